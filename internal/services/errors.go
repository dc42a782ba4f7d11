package services

import "errors"

// Domain errors. Handlers map each of them to one status and one message;
// anything else is a server fault.
var (
	ErrValidation          = errors.New("invalid data")
	ErrDuplicateEmail      = errors.New("user already exists")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrAccountDeactivated  = errors.New("account is deactivated")
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidOrExpiredOTP = errors.New("invalid or expired OTP")
	ErrInvalidPurpose      = errors.New("invalid OTP type")
	ErrInvalidToken        = errors.New("invalid token")
	ErrExpiredToken        = errors.New("token expired")
	ErrDeliveryFailure     = errors.New("failed to deliver code")
	ErrTooManyRequests     = errors.New("too many requests, try later")
)
