package models

import "time"

type OTPPurpose string

const (
	PurposePasswordReset     OTPPurpose = "password-reset"
	PurposeEmailVerification OTPPurpose = "email-verification"
)

func (p OTPPurpose) Valid() bool {
	return p == PurposePasswordReset || p == PurposeEmailVerification
}

// OTP: одна запись на каждую выдачу кода. Старые коды при повторной выдаче
// не гасятся: каждый живёт до истечения или до использования.
type OTP struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Code      string     `json:"-"`
	Purpose   OTPPurpose `json:"type"`
	ExpiresAt time.Time  `json:"expiresAt"`
	IsUsed    bool       `json:"isUsed"`
	UsedAt    *time.Time `json:"usedAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Valid reports whether the record can still be matched at the given moment.
func (o *OTP) Valid(now time.Time) bool {
	return !o.IsUsed && now.Before(o.ExpiresAt)
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	OTP         string `json:"otp" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=6,max=72"`
}

type VerifyOTPRequest struct {
	Email string     `json:"email" binding:"required,email"`
	OTP   string     `json:"otp" binding:"required"`
	Type  OTPPurpose `json:"type" binding:"required"`
}

type ConfirmEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required"`
}
