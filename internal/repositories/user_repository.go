package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"shopauth/internal/models"
)

const pgUniqueViolation = "23505"

type userRepository struct {
	DB *sql.DB
}

// NewUserRepository returns the Postgres-backed user store.
func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{DB: db}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	const q = `
		INSERT INTO users (
			id, name, email, password_hash, role,
			is_active, email_verified, last_login, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NULL,$8,$9)
	`
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	_, err := r.DB.ExecContext(ctx, q,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		string(user.Role),
		user.IsActive,
		user.EmailVerified,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("user create: %w", err)
	}
	return nil
}

const userColumns = `
	id, name, email, password_hash, role,
	is_active, email_verified, last_login, created_at, updated_at
`

func scanUser(row *sql.Row) (*models.User, error) {
	u := &models.User{}
	var (
		role      string
		lastLogin sql.NullTime
	)
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role,
		&u.IsActive, &u.EmailVerified, &lastLogin, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("user scan: %w", err)
	}
	u.Role = models.Role(role)
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return u, nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.DB.QueryRowContext(ctx, q, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.DB.QueryRowContext(ctx, q, email))
}

// exec runs a single-row UPDATE and maps "nothing matched" to ErrNotFound.
func (r *userRepository) exec(ctx context.Context, op, q string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("user %s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("user %s: %w", op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	const q = `UPDATE users SET last_login = $1, updated_at = $1 WHERE id = $2 AND is_active = TRUE`
	return r.exec(ctx, "last login", q, at, id)
}

func (r *userRepository) UpdatePassword(ctx context.Context, id, hash string, at time.Time) error {
	const q = `UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`
	return r.exec(ctx, "update password", q, hash, at, id)
}

func (r *userRepository) MarkEmailVerified(ctx context.Context, id string, at time.Time) error {
	const q = `UPDATE users SET email_verified = TRUE, updated_at = $1 WHERE id = $2`
	return r.exec(ctx, "verify email", q, at, id)
}

func (r *userRepository) SetActive(ctx context.Context, id string, active bool, at time.Time) error {
	const q = `UPDATE users SET is_active = $1, updated_at = $2 WHERE id = $3`
	return r.exec(ctx, "set active", q, active, at, id)
}
