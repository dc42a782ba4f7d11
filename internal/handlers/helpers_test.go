package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"shopauth/internal/models"
	"shopauth/internal/services"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"duplicate", services.ErrDuplicateEmail, http.StatusBadRequest, "user already exists"},
		{"bad credentials", services.ErrInvalidCredentials, http.StatusUnauthorized, "invalid credentials"},
		{"deactivated", services.ErrAccountDeactivated, http.StatusUnauthorized, "account is deactivated"},
		{"expired token", services.ErrExpiredToken, http.StatusUnauthorized, "token expired"},
		{"no user", services.ErrUserNotFound, http.StatusNotFound, "user not found"},
		{"otp", services.ErrInvalidOrExpiredOTP, http.StatusBadRequest, "invalid or expired OTP"},
		{"purpose", services.ErrInvalidPurpose, http.StatusBadRequest, "invalid OTP type"},
		{"throttled", services.ErrTooManyRequests, http.StatusTooManyRequests, "too many requests, try later"},
		{
			"delivery detail hidden",
			fmt.Errorf("%w: %v", services.ErrDeliveryFailure, errors.New("smtp auth 535 user=ops@shop")),
			http.StatusBadGateway, "failed to deliver code",
		},
		{
			"validation detail shown",
			fmt.Errorf("%w: password must be at least 6 characters", services.ErrValidation),
			http.StatusBadRequest, "invalid data: password must be at least 6 characters",
		},
		{"unknown", errors.New("pq: connection refused"), http.StatusInternalServerError, "Server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := statusFor(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.msg, msg)
		})
	}
}

func TestBindJSON_HidesValidatorDetail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name string
		body string
	}{
		{"bad email", `{"name":"Bob","email":"not-an-email","password":"secret1"}`},
		{"missing name", `{"email":"bob@example.com","password":"secret1"}`},
		{"password too long", `{"name":"Bob","email":"bob@example.com","password":"` + strings.Repeat("a", 73) + `"}`},
		{"not json", `{"name":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(tt.body))
			c.Request.Header.Set("Content-Type", "application/json")

			var req models.RegisterRequest
			assert.False(t, bindJSON(c, zap.NewNop(), "register", &req))
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.JSONEq(t, `{"error":"invalid data"}`, w.Body.String())
			assert.NotContains(t, w.Body.String(), "RegisterRequest")
		})
	}
}
