package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"shopauth/internal/models"
)

type otpRepository struct {
	DB *sql.DB
}

// NewOTPRepository returns the Postgres-backed OTP ledger.
func NewOTPRepository(db *sql.DB) OTPRepository {
	return &otpRepository{DB: db}
}

func (r *otpRepository) Create(ctx context.Context, otp *models.OTP) error {
	const q = `
		INSERT INTO otps (id, email, otp, type, expires_at, is_used, created_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6)
	`
	if otp.ID == "" {
		otp.ID = uuid.NewString()
	}
	if _, err := r.DB.ExecContext(ctx, q, otp.ID, otp.Email, otp.Code, string(otp.Purpose), otp.ExpiresAt, otp.CreatedAt); err != nil {
		return fmt.Errorf("otp create: %w", err)
	}
	return nil
}

func scanOTP(row *sql.Row) (*models.OTP, error) {
	o := &models.OTP{}
	var (
		purpose string
		usedAt  sql.NullTime
	)
	if err := row.Scan(&o.ID, &o.Email, &o.Code, &purpose, &o.ExpiresAt, &o.IsUsed, &usedAt, &o.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("otp scan: %w", err)
	}
	o.Purpose = models.OTPPurpose(purpose)
	if usedAt.Valid {
		t := usedAt.Time
		o.UsedAt = &t
	}
	return o, nil
}

func (r *otpRepository) FindValid(ctx context.Context, email, code string, purpose models.OTPPurpose, now time.Time) (*models.OTP, error) {
	const q = `
		SELECT id, email, otp, type, expires_at, is_used, used_at, created_at
		FROM otps
		WHERE email = $1 AND otp = $2 AND type = $3 AND is_used = FALSE AND expires_at > $4
		ORDER BY created_at DESC
		LIMIT 1
	`
	return scanOTP(r.DB.QueryRowContext(ctx, q, email, code, string(purpose), now))
}

// ConsumeValid relies on the outer "is_used = FALSE" being re-evaluated after a
// concurrent writer commits: the losing UPDATE matches zero rows.
func (r *otpRepository) ConsumeValid(ctx context.Context, email, code string, purpose models.OTPPurpose, now time.Time) (*models.OTP, error) {
	const q = `
		UPDATE otps SET is_used = TRUE, used_at = $4
		WHERE id = (
			SELECT id FROM otps
			WHERE email = $1 AND otp = $2 AND type = $3 AND is_used = FALSE AND expires_at > $4
			ORDER BY created_at DESC
			LIMIT 1
		) AND is_used = FALSE
		RETURNING id, email, otp, type, expires_at, is_used, used_at, created_at
	`
	return scanOTP(r.DB.QueryRowContext(ctx, q, email, code, string(purpose), now))
}
