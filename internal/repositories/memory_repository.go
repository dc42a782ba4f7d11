package repositories

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"shopauth/internal/models"
)

// In-memory backends for the "memory" driver and for service tests.

type memoryUserRepository struct {
	mu      sync.RWMutex
	byID    map[string]*models.User
	byEmail map[string]string
}

func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{
		byID:    make(map[string]*models.User),
		byEmail: make(map[string]string),
	}
}

func (r *memoryUserRepository) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[user.Email]; ok {
		return ErrDuplicate
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	cp := *user
	r.byID[cp.ID] = &cp
	r.byEmail[cp.Email] = cp.ID
	return nil
}

func (r *memoryUserRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memoryUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	id, ok := r.byEmail[email]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *memoryUserRepository) update(id string, fn func(u *models.User) bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok || !fn(u) {
		return ErrNotFound
	}
	return nil
}

func (r *memoryUserRepository) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	return r.update(id, func(u *models.User) bool {
		if !u.IsActive {
			return false
		}
		t := at
		u.LastLogin = &t
		u.UpdatedAt = at
		return true
	})
}

func (r *memoryUserRepository) UpdatePassword(_ context.Context, id, hash string, at time.Time) error {
	return r.update(id, func(u *models.User) bool {
		u.PasswordHash = hash
		u.UpdatedAt = at
		return true
	})
}

func (r *memoryUserRepository) MarkEmailVerified(_ context.Context, id string, at time.Time) error {
	return r.update(id, func(u *models.User) bool {
		u.EmailVerified = true
		u.UpdatedAt = at
		return true
	})
}

func (r *memoryUserRepository) SetActive(_ context.Context, id string, active bool, at time.Time) error {
	return r.update(id, func(u *models.User) bool {
		u.IsActive = active
		u.UpdatedAt = at
		return true
	})
}

type memoryOTPRepository struct {
	mu      sync.Mutex
	records []*models.OTP
}

func NewMemoryOTPRepository() OTPRepository {
	return &memoryOTPRepository{}
}

func (r *memoryOTPRepository) Create(_ context.Context, otp *models.OTP) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if otp.ID == "" {
		otp.ID = uuid.NewString()
	}
	cp := *otp
	r.records = append(r.records, &cp)
	return nil
}

// match must be called with mu held. Newest record wins, same as the SQL backend.
func (r *memoryOTPRepository) match(email, code string, purpose models.OTPPurpose, now time.Time) *models.OTP {
	for i := len(r.records) - 1; i >= 0; i-- {
		o := r.records[i]
		if o.Email == email && o.Code == code && o.Purpose == purpose && o.Valid(now) {
			return o
		}
	}
	return nil
}

func (r *memoryOTPRepository) FindValid(_ context.Context, email, code string, purpose models.OTPPurpose, now time.Time) (*models.OTP, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o := r.match(email, code, purpose, now)
	if o == nil {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *memoryOTPRepository) ConsumeValid(_ context.Context, email, code string, purpose models.OTPPurpose, now time.Time) (*models.OTP, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o := r.match(email, code, purpose, now)
	if o == nil {
		return nil, ErrNotFound
	}
	t := now
	o.IsUsed = true
	o.UsedAt = &t
	cp := *o
	return &cp, nil
}
