package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"shopauth/internal/models"
	"shopauth/internal/repositories"
)

type sentCode struct {
	to      string
	code    string
	purpose models.OTPPurpose
}

type fakeEmail struct {
	mu   sync.Mutex
	sent []sentCode
	err  error
}

func (f *fakeEmail) SendCode(_ context.Context, to, code string, purpose models.OTPPurpose) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentCode{to: to, code: code, purpose: purpose})
	return nil
}

func (f *fakeEmail) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeEmail) last() sentCode {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return sentCode{}
	}
	return f.sent[len(f.sent)-1]
}

type fakeRevocations struct {
	mu   sync.Mutex
	keys map[string]time.Duration
	err  error
}

func newFakeRevocations() *fakeRevocations {
	return &fakeRevocations{keys: make(map[string]time.Duration)}
}

func (f *fakeRevocations) Revoke(_ context.Context, key string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.keys[key] = ttl
	return nil
}

func (f *fakeRevocations) IsRevoked(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	_, ok := f.keys[key]
	return ok, nil
}

const (
	testSecret = "test-secret"
	testOTPTTL = 10 * time.Minute
	testJWTTTL = 720 * time.Hour
)

var testEpoch = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

type fixture struct {
	clock  *clockwork.FakeClock
	repo   repositories.UserRepository
	users  UserService
	otps   OTPService
	tokens TokenService
	emails *fakeEmail
	revs   *fakeRevocations
	auth   AuthService
}

func newFixture(t *testing.T, opts ...func(*AuthOptions)) *fixture {
	t.Helper()
	o := AuthOptions{ConcealUnknownEmail: true}
	for _, fn := range opts {
		fn(&o)
	}

	f := &fixture{
		clock:  clockwork.NewFakeClockAt(testEpoch),
		repo:   repositories.NewMemoryUserRepository(),
		emails: &fakeEmail{},
		revs:   newFakeRevocations(),
	}
	log := zap.NewNop()
	f.users = NewUserService(f.repo, bcrypt.MinCost, f.clock, log)
	f.otps = NewOTPService(repositories.NewMemoryOTPRepository(), testOTPTTL, f.clock, log)
	f.tokens = NewTokenService(testSecret, testJWTTTL, f.clock, f.revs)
	f.auth = NewAuthService(f.users, f.otps, f.tokens, f.emails, o, f.clock, log)
	return f
}

func (f *fixture) register(t *testing.T, name, email, password string) *models.Session {
	t.Helper()
	s, err := f.auth.Register(context.Background(), models.RegisterRequest{Name: name, Email: email, Password: password})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return s
}
