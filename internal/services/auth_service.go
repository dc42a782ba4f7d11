package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"shopauth/internal/models"
	"shopauth/internal/ratelimit"
)

type AuthService interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.Session, error)
	Login(ctx context.Context, email, password string) (*models.Session, error)
	Profile(ctx context.Context, userID string) (*models.User, error)
	Logout(ctx context.Context, token string) error

	ForgotPassword(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, code string, purpose models.OTPPurpose) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error

	RequestEmailVerification(ctx context.Context, userID string) error
	ConfirmEmail(ctx context.Context, email, code string) error
}

type AuthOptions struct {
	// ConcealUnknownEmail makes forgot-password answer the same way for unknown emails.
	ConcealUnknownEmail bool
	SendLimit           int
	SendWindow          time.Duration
}

type authService struct {
	users    UserService
	otps     OTPService
	tokens   TokenService
	emails   EmailService
	throttle *ratelimit.Keyed
	conceal  bool
	log      *zap.Logger
}

func NewAuthService(users UserService, otps OTPService, tokens TokenService, emails EmailService, opts AuthOptions, clock clockwork.Clock, log *zap.Logger) AuthService {
	return &authService{
		users:    users,
		otps:     otps,
		tokens:   tokens,
		emails:   emails,
		throttle: ratelimit.New(opts.SendLimit, opts.SendWindow, clock),
		conceal:  opts.ConcealUnknownEmail,
		log:      log.Named("auth"),
	}
}

func (s *authService) session(user *models.User) (*models.Session, error) {
	token, err := s.tokens.Mint(user.ID)
	if err != nil {
		return nil, err
	}
	return &models.Session{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
		Token: token,
	}, nil
}

func (s *authService) Register(ctx context.Context, req models.RegisterRequest) (*models.Session, error) {
	user, err := s.users.Register(ctx, req.Name, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	return s.session(user)
}

func (s *authService) Login(ctx context.Context, email, password string) (*models.Session, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		s.users.VerifyPassword(nil, password)
		s.log.Info("login rejected", zap.String("reason", "unknown email"))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		s.log.Info("login rejected", zap.String("reason", "deactivated"), zap.String("user_id", user.ID))
		return nil, ErrAccountDeactivated
	}
	if !s.users.VerifyPassword(user, password) {
		s.log.Info("login rejected", zap.String("reason", "bad password"), zap.String("user_id", user.ID))
		return nil, ErrInvalidCredentials
	}
	// деактивацию между чтением и записью ловит условный апдейт
	if err := s.users.RecordLogin(ctx, user); err != nil {
		return nil, err
	}
	return s.session(user)
}

func (s *authService) Profile(ctx context.Context, userID string) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *authService) Logout(ctx context.Context, token string) error {
	return s.tokens.Revoke(ctx, token)
}

// sendCode issues a fresh code and hands it to delivery. Issue and delivery
// failures stay distinguishable for the caller.
func (s *authService) sendCode(ctx context.Context, email string, purpose models.OTPPurpose) error {
	otp, err := s.otps.Issue(ctx, email, purpose)
	if err != nil {
		return err
	}
	if err := s.emails.SendCode(ctx, otp.Email, otp.Code, purpose); err != nil {
		s.log.Error("code delivery failed", zap.String("otp_id", otp.ID), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrDeliveryFailure, err)
	}
	return nil
}

func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	// throttle before lookup so 429 says nothing about the account
	if !s.throttle.Allow(email) {
		return ErrTooManyRequests
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		s.log.Info("password reset for unknown email", zap.Bool("concealed", s.conceal))
		if s.conceal {
			return nil
		}
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}
	return s.sendCode(ctx, user.Email, models.PurposePasswordReset)
}

func (s *authService) VerifyOTP(ctx context.Context, email, code string, purpose models.OTPPurpose) error {
	ok, err := s.otps.VerifyOnly(ctx, email, code, purpose)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidOrExpiredOTP
	}
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	// до Consume, чтобы короткий пароль не сжигал код
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	if _, err := s.otps.Consume(ctx, email, code, models.PurposePasswordReset); err != nil {
		return err
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err := s.users.SetPassword(ctx, user, newPassword); err != nil {
		return err
	}
	s.log.Info("password reset", zap.String("user_id", user.ID))
	return nil
}

func (s *authService) RequestEmailVerification(ctx context.Context, userID string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return fmt.Errorf("%w: email already verified", ErrValidation)
	}
	if !s.throttle.Allow(user.Email) {
		return ErrTooManyRequests
	}
	return s.sendCode(ctx, user.Email, models.PurposeEmailVerification)
}

func (s *authService) ConfirmEmail(ctx context.Context, email, code string) error {
	if _, err := s.otps.Consume(ctx, email, code, models.PurposeEmailVerification); err != nil {
		return err
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err := s.users.MarkEmailVerified(ctx, user); err != nil {
		return err
	}
	s.log.Info("email verified", zap.String("user_id", user.ID))
	return nil
}
