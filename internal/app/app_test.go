package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"shopauth/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	t     *testing.T
	h     http.Handler
	clock *clockwork.FakeClock
	logs  *observer.ObservedLogs
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.BcryptCost = 4
	cfg.Server.RateLimit = 0
	cfg.Log.Dev = true
	return cfg
}

func newTestServer(t *testing.T, tweak ...func(*config.Config)) *testServer {
	t.Helper()
	cfg := testConfig()
	for _, fn := range tweak {
		fn(cfg)
	}
	core, logs := observer.New(zap.DebugLevel)
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))

	a, err := New(context.Background(), cfg, zap.New(core), clock)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return &testServer{t: t, h: a.Router(), clock: clock, logs: logs}
}

func (s *testServer) do(method, path, token string, body interface{}) (int, map[string]interface{}) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.h.ServeHTTP(w, req)

	out := map[string]interface{}{}
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w.Code, out
}

var codeRe = regexp.MustCompile(`\b[1-9]\d{5}\b`)

// lastCode reads the code the "log" email provider wrote.
func (s *testServer) lastCode() string {
	s.t.Helper()
	entries := s.logs.FilterMessage("email delivery disabled, code logged").All()
	require.NotEmpty(s.t, entries, "no code delivered")
	text, _ := entries[len(entries)-1].ContextMap()["text"].(string)
	code := codeRe.FindString(text)
	require.NotEmpty(s.t, code)
	return code
}

func (s *testServer) register(name, email, password string) string {
	s.t.Helper()
	status, body := s.do(http.MethodPost, "/auth/register", "", gin.H{"name": name, "email": email, "password": password})
	require.Equal(s.t, http.StatusCreated, status, body)
	return body["token"].(string)
}

func TestHTTP_PasswordResetScenario(t *testing.T) {
	s := newTestServer(t)

	token := s.register("Alice", "alice@example.com", "oldpass")

	status, body := s.do(http.MethodGet, "/auth/profile", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alice@example.com", body["email"])
	assert.Equal(t, "user", body["role"])
	assert.NotContains(t, body, "password")
	assert.NotContains(t, body, "PasswordHash")

	status, body = s.do(http.MethodPost, "/auth/forgot-password", "", gin.H{"email": "alice@example.com"})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body["message"], "OTP")
	code := s.lastCode()

	status, _ = s.do(http.MethodPost, "/auth/verify-otp", "", gin.H{"email": "alice@example.com", "otp": code, "type": "password-reset"})
	require.Equal(t, http.StatusOK, status)

	status, body = s.do(http.MethodPost, "/auth/reset-password", "", gin.H{"email": "alice@example.com", "otp": code, "newPassword": "newpass"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Password reset successfully", body["message"])

	status, body = s.do(http.MethodPost, "/auth/login", "", gin.H{"email": "alice@example.com", "password": "oldpass"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "invalid credentials", body["error"])

	status, body = s.do(http.MethodPost, "/auth/login", "", gin.H{"email": "alice@example.com", "password": "newpass"})
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, body["token"])
	assert.NotContains(t, body, "password")

	status, body = s.do(http.MethodPost, "/auth/reset-password", "", gin.H{"email": "alice@example.com", "otp": code, "newPassword": "third1"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid or expired OTP", body["error"])
}

func TestHTTP_ExpiredCode(t *testing.T) {
	s := newTestServer(t)
	s.register("Alice", "alice@example.com", "oldpass")

	status, _ := s.do(http.MethodPost, "/auth/forgot-password", "", gin.H{"email": "alice@example.com"})
	require.Equal(t, http.StatusOK, status)
	code := s.lastCode()

	s.clock.Advance(10 * time.Minute)
	status, body := s.do(http.MethodPost, "/auth/reset-password", "", gin.H{"email": "alice@example.com", "otp": code, "newPassword": "newpass"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid or expired OTP", body["error"])
}

func TestHTTP_LoginFailuresLookAlike(t *testing.T) {
	s := newTestServer(t)
	s.register("Alice", "alice@example.com", "secret1")

	st1, b1 := s.do(http.MethodPost, "/auth/login", "", gin.H{"email": "nobody@example.com", "password": "secret1"})
	st2, b2 := s.do(http.MethodPost, "/auth/login", "", gin.H{"email": "alice@example.com", "password": "wrong-1"})
	assert.Equal(t, http.StatusUnauthorized, st1)
	assert.Equal(t, st1, st2)
	assert.Equal(t, b1, b2)
}

func TestHTTP_ForgotPasswordUnknownEmail(t *testing.T) {
	s := newTestServer(t)
	s.register("Alice", "alice@example.com", "secret1")

	st1, b1 := s.do(http.MethodPost, "/auth/forgot-password", "", gin.H{"email": "alice@example.com"})
	st2, b2 := s.do(http.MethodPost, "/auth/forgot-password", "", gin.H{"email": "ghost@example.com"})
	assert.Equal(t, http.StatusOK, st1)
	assert.Equal(t, st1, st2)
	assert.Equal(t, b1, b2)

	open := newTestServer(t, func(c *config.Config) { c.Auth.ConcealUnknownEmail = false })
	status, body := open.do(http.MethodPost, "/auth/forgot-password", "", gin.H{"email": "ghost@example.com"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "user not found", body["error"])
}

func TestHTTP_ForgotPasswordThrottled(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.OTP.SendLimit = 1 })
	s.register("Alice", "alice@example.com", "secret1")

	status, _ := s.do(http.MethodPost, "/auth/forgot-password", "", gin.H{"email": "alice@example.com"})
	require.Equal(t, http.StatusOK, status)
	status, _ = s.do(http.MethodPost, "/auth/forgot-password", "", gin.H{"email": "alice@example.com"})
	assert.Equal(t, http.StatusTooManyRequests, status)
}

func TestHTTP_RegisterRejects(t *testing.T) {
	s := newTestServer(t)
	s.register("Alice", "alice@example.com", "secret1")

	status, body := s.do(http.MethodPost, "/auth/register", "", gin.H{"name": "Eve", "email": "Alice@Example.com", "password": "secret2"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "user already exists", body["error"])

	status, _ = s.do(http.MethodPost, "/auth/register", "", gin.H{"name": "Bob", "email": "bob@example.com", "password": "123"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = s.do(http.MethodPost, "/auth/register", "", gin.H{"name": "Bob", "email": "not-an-email", "password": "secret1"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid data", body["error"])

	status, body = s.do(http.MethodPost, "/auth/register", "", gin.H{"name": "Bob", "email": "bob@example.com", "password": strings.Repeat("a", 73)})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid data", body["error"])
}

func TestHTTP_ProtectedRoutes(t *testing.T) {
	s := newTestServer(t)
	token := s.register("Alice", "alice@example.com", "secret1")

	status, _ := s.do(http.MethodGet, "/auth/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = s.do(http.MethodGet, "/auth/profile", token+"x", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	s.clock.Advance(31 * 24 * time.Hour)
	status, body := s.do(http.MethodGet, "/auth/profile", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "token expired", body["error"])
}

func TestHTTP_LogoutAck(t *testing.T) {
	s := newTestServer(t)
	token := s.register("Alice", "alice@example.com", "secret1")

	status, body := s.do(http.MethodPost, "/auth/logout", token, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Logged out successfully", body["message"])

	// no revocation list configured: the token keeps working until it expires
	status, _ = s.do(http.MethodGet, "/auth/profile", token, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestHTTP_EmailVerification(t *testing.T) {
	s := newTestServer(t)
	token := s.register("Alice", "alice@example.com", "secret1")

	status, _ := s.do(http.MethodPost, "/auth/request-verification", token, nil)
	require.Equal(t, http.StatusOK, status)
	code := s.lastCode()

	// a verification code is not a reset code
	status, _ = s.do(http.MethodPost, "/auth/reset-password", "", gin.H{"email": "alice@example.com", "otp": code, "newPassword": "newpass"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do(http.MethodPost, "/auth/confirm-email", "", gin.H{"email": "alice@example.com", "otp": code})
	require.Equal(t, http.StatusOK, status)

	status, body := s.do(http.MethodGet, "/auth/profile", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["emailVerified"])
}

func TestHTTP_VerifyOTPBadType(t *testing.T) {
	s := newTestServer(t)
	status, body := s.do(http.MethodPost, "/auth/verify-otp", "", gin.H{"email": "alice@example.com", "otp": "123456", "type": "login"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid OTP type", body["error"])
}

func TestHTTP_HealthAndSwagger(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "2026-03-14T09:00:00Z", body["timestamp"])

	req := httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil)
	w := httptest.NewRecorder()
	s.h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/auth/forgot-password")
}

func TestHTTP_IPRateLimit(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.Server.RateLimit = 2 })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		status, _ := s.do(http.MethodGet, "/healthz", "", nil)
		codes = append(codes, status)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
}

func TestNew_BadEmailProvider(t *testing.T) {
	cfg := testConfig()
	cfg.Email.Provider = "pigeon"
	_, err := New(context.Background(), cfg, zap.NewNop(), clockwork.NewRealClock())
	assert.Error(t, err)
}

func TestOpenStores_UnknownDriver(t *testing.T) {
	_, err := openStores(context.Background(), config.DatabaseConfig{Driver: "sqlite"}, zap.NewNop())
	assert.Error(t, err)
}

func TestHTTP_UnknownRoute(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/auth/nope", "/api/users"} {
		status, body := s.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusNotFound, status, path)
		assert.Equal(t, "Route not found", body["error"], path)
	}
}
