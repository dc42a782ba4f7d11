package repositories

import (
	"context"
	"errors"
	"time"

	"shopauth/internal/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// UpdateLastLogin touches only active accounts; ErrNotFound otherwise.
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	UpdatePassword(ctx context.Context, id, hash string, at time.Time) error
	MarkEmailVerified(ctx context.Context, id string, at time.Time) error
	SetActive(ctx context.Context, id string, active bool, at time.Time) error
}

type OTPRepository interface {
	Create(ctx context.Context, otp *models.OTP) error
	// FindValid returns an unused, unexpired record matching all fields, without changing it.
	FindValid(ctx context.Context, email, code string, purpose models.OTPPurpose, now time.Time) (*models.OTP, error)
	// ConsumeValid atomically flips a matching record to used. Of any number of
	// concurrent callers presenting the same code, exactly one gets the record.
	ConsumeValid(ctx context.Context, email, code string, purpose models.OTPPurpose, now time.Time) (*models.OTP, error)
}
