package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	otpMin    = 100000
	otpSpread = 900000 // 100000..999999
)

// NewOTPCode returns a uniformly distributed 6-digit code from crypto/rand.
func NewOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpSpread))
	if err != nil {
		return "", fmt.Errorf("otp rand: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+otpMin), nil
}

// IsOTPCode reports whether s looks like something NewOTPCode could have produced.
func IsOTPCode(s string) bool {
	if len(s) != 6 || s[0] == '0' {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
