package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"shopauth/internal/models"
	"shopauth/internal/repositories"
)

const (
	minPasswordLen = 6
	// bcrypt не принимает пароли длиннее 72 байт
	maxPasswordLen = 72
)

type UserService interface {
	Register(ctx context.Context, name, email, password string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	// VerifyPassword with a nil user still burns one bcrypt comparison.
	VerifyPassword(user *models.User, password string) bool
	RecordLogin(ctx context.Context, user *models.User) error
	SetPassword(ctx context.Context, user *models.User, password string) error
	MarkEmailVerified(ctx context.Context, user *models.User) error
	// SetActive is the hook for account administration; login refuses inactive users.
	SetActive(ctx context.Context, user *models.User, active bool) error
}

type userService struct {
	repo  repositories.UserRepository
	cost  int
	clock clockwork.Clock
	log   *zap.Logger

	dummyOnce sync.Once
	dummyHash []byte
}

func NewUserService(repo repositories.UserRepository, bcryptCost int, clock clockwork.Clock, log *zap.Logger) UserService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &userService{
		repo:  repo,
		cost:  bcryptCost,
		clock: clock,
		log:   log.Named("users"),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validatePassword(password string) error {
	if len(password) < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLen)
	}
	if len(password) > maxPasswordLen {
		return fmt.Errorf("%w: password must be at most %d bytes", ErrValidation, maxPasswordLen)
	}
	return nil
}

func (s *userService) hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt generate: %w", err)
	}
	return string(h), nil
}

func (s *userService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" {
		return nil, fmt.Errorf("%w: name and email are required", ErrValidation)
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	h, err := s.hash(password)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now().UTC()
	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: h,
		Role:         models.RoleUser,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	s.log.Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}

func (s *userService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.mapNotFound(s.repo.GetByEmail(ctx, normalizeEmail(email)))
}

func (s *userService) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.mapNotFound(s.repo.GetByID(ctx, id))
}

func (s *userService) mapNotFound(u *models.User, err error) (*models.User, error) {
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

func (s *userService) VerifyPassword(user *models.User, password string) bool {
	if user == nil {
		s.dummyOnce.Do(func() {
			s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.cost)
		})
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}

// RecordLogin stamps lastLogin; a deactivated account is left untouched.
func (s *userService) RecordLogin(ctx context.Context, user *models.User) error {
	now := s.clock.Now().UTC()
	if err := s.repo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrAccountDeactivated
		}
		return err
	}
	user.LastLogin = &now
	user.UpdatedAt = now
	return nil
}

func (s *userService) SetPassword(ctx context.Context, user *models.User, password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}
	h, err := s.hash(password)
	if err != nil {
		return err
	}
	now := s.clock.Now().UTC()
	if err := s.repo.UpdatePassword(ctx, user.ID, h, now); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	user.PasswordHash = h
	user.UpdatedAt = now
	s.log.Info("password changed", zap.String("user_id", user.ID))
	return nil
}

func (s *userService) MarkEmailVerified(ctx context.Context, user *models.User) error {
	now := s.clock.Now().UTC()
	if err := s.repo.MarkEmailVerified(ctx, user.ID, now); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	user.EmailVerified = true
	user.UpdatedAt = now
	return nil
}

func (s *userService) SetActive(ctx context.Context, user *models.User, active bool) error {
	now := s.clock.Now().UTC()
	if err := s.repo.SetActive(ctx, user.ID, active, now); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	user.IsActive = active
	user.UpdatedAt = now
	return nil
}
