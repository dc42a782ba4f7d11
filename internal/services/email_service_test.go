package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"shopauth/internal/config"
	"shopauth/internal/models"
)

func TestRenderCode(t *testing.T) {
	msg, err := renderCode("Shop", "a@x.io", "482913", models.PurposePasswordReset, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "a@x.io", msg.To)
	assert.Equal(t, "Password Reset OTP", msg.Subject)
	assert.Contains(t, msg.HTML, "482913")
	assert.Contains(t, msg.HTML, "password reset")
	assert.Contains(t, msg.HTML, "10 minutes")
	assert.Contains(t, msg.Text, "482913")

	msg, err = renderCode("<b>Shop</b>", "a@x.io", "482913", models.PurposeEmailVerification, 30*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "Email Verification OTP", msg.Subject)
	assert.Contains(t, msg.HTML, "1 minutes")
	assert.NotContains(t, msg.HTML, "<b>Shop</b>")
}

func TestNewEmailService_Providers(t *testing.T) {
	for _, p := range []string{"smtp", "resend", "sendgrid", "log"} {
		svc, err := NewEmailService(config.EmailConfig{Provider: p, SMTPHost: "localhost", SMTPPort: 587, APIKey: "k", FromEmail: "no-reply@shop.test", FromName: "Shop"}, time.Minute, zap.NewNop())
		require.NoError(t, err, p)
		assert.NotNil(t, svc)
	}

	_, err := NewEmailService(config.EmailConfig{Provider: "pigeon"}, time.Minute, zap.NewNop())
	assert.Error(t, err)
}

func TestEmailService_LogProvider(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	svc, err := NewEmailService(config.EmailConfig{Provider: "log", FromName: "Shop"}, 10*time.Minute, zap.New(core))
	require.NoError(t, err)

	require.NoError(t, svc.SendCode(context.Background(), "a@x.io", "482913", models.PurposePasswordReset))

	entries := logs.FilterMessage("email delivery disabled, code logged").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "a@x.io", entries[0].ContextMap()["to"])
	assert.Contains(t, entries[0].ContextMap()["text"], "482913")
}

func TestEmailService_SendError(t *testing.T) {
	svc := &emailService{
		brand: "Shop",
		ttl:   time.Minute,
		send: func(context.Context, codeMessage) error {
			return errors.New("connection refused")
		},
	}
	err := svc.SendCode(context.Background(), "a@x.io", "482913", models.PurposePasswordReset)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password-reset")
	assert.Contains(t, err.Error(), "connection refused")
}
