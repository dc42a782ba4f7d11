package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"shopauth/internal/models"
	"shopauth/internal/repositories"
	"shopauth/internal/utils"
)

// OTPService is the ledger of one-time codes. Issuing never revokes earlier
// codes for the same email and purpose.
type OTPService interface {
	Issue(ctx context.Context, email string, purpose models.OTPPurpose) (*models.OTP, error)
	// Consume marks a matching code used. Concurrent callers with the same code: one wins.
	Consume(ctx context.Context, email, code string, purpose models.OTPPurpose) (*models.OTP, error)
	// VerifyOnly checks a code without using it up.
	VerifyOnly(ctx context.Context, email, code string, purpose models.OTPPurpose) (bool, error)
}

type otpService struct {
	repo     repositories.OTPRepository
	ttl      time.Duration
	clock    clockwork.Clock
	log      *zap.Logger
	generate func() (string, error)
}

func NewOTPService(repo repositories.OTPRepository, ttl time.Duration, clock clockwork.Clock, log *zap.Logger) OTPService {
	return &otpService{
		repo:     repo,
		ttl:      ttl,
		clock:    clock,
		log:      log.Named("otp"),
		generate: utils.NewOTPCode,
	}
}

func (s *otpService) Issue(ctx context.Context, email string, purpose models.OTPPurpose) (*models.OTP, error) {
	if !purpose.Valid() {
		return nil, ErrInvalidPurpose
	}
	email = normalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}

	code, err := s.generate()
	if err != nil {
		return nil, err
	}
	now := s.clock.Now().UTC()
	otp := &models.OTP{
		Email:     email,
		Code:      code,
		Purpose:   purpose,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.repo.Create(ctx, otp); err != nil {
		return nil, fmt.Errorf("store otp: %w", err)
	}
	s.log.Debug("otp issued", zap.String("otp_id", otp.ID), zap.String("type", string(purpose)))
	return otp, nil
}

func (s *otpService) Consume(ctx context.Context, email, code string, purpose models.OTPPurpose) (*models.OTP, error) {
	if !purpose.Valid() {
		return nil, ErrInvalidPurpose
	}
	if !utils.IsOTPCode(code) {
		return nil, ErrInvalidOrExpiredOTP
	}
	otp, err := s.repo.ConsumeValid(ctx, normalizeEmail(email), code, purpose, s.clock.Now().UTC())
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrInvalidOrExpiredOTP
	}
	if err != nil {
		return nil, err
	}
	s.log.Debug("otp consumed", zap.String("otp_id", otp.ID), zap.String("type", string(purpose)))
	return otp, nil
}

func (s *otpService) VerifyOnly(ctx context.Context, email, code string, purpose models.OTPPurpose) (bool, error) {
	if !purpose.Valid() {
		return false, ErrInvalidPurpose
	}
	if !utils.IsOTPCode(code) {
		return false, nil
	}
	_, err := s.repo.FindValid(ctx, normalizeEmail(email), code, purpose, s.clock.Now().UTC())
	if errors.Is(err, repositories.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
