// Package ratelimit keeps one token bucket per key (an email, a client IP).
package ratelimit

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

const pruneAt = 10000

// Keyed allows limit events per window for every key, bursting up to limit.
// A nil *Keyed allows everything.
type Keyed struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	every    rate.Limit
	burst    int
	clock    clockwork.Clock
}

// New returns nil when limit or window is not positive.
func New(limit int, window time.Duration, clock clockwork.Clock) *Keyed {
	if limit <= 0 || window <= 0 {
		return nil
	}
	return &Keyed{
		limiters: make(map[string]*rate.Limiter),
		every:    rate.Every(window / time.Duration(limit)),
		burst:    limit,
		clock:    clock,
	}
}

func (k *Keyed) Allow(key string) bool {
	if k == nil {
		return true
	}
	now := k.clock.Now()

	k.mu.Lock()
	defer k.mu.Unlock()

	lim, ok := k.limiters[key]
	if !ok {
		if len(k.limiters) >= pruneAt {
			k.prune(now)
		}
		lim = rate.NewLimiter(k.every, k.burst)
		k.limiters[key] = lim
	}
	return lim.AllowN(now, 1)
}

// prune drops buckets that have refilled completely; they carry no state.
func (k *Keyed) prune(now time.Time) {
	for key, lim := range k.limiters {
		if lim.TokensAt(now) >= float64(k.burst) {
			delete(k.limiters, key)
		}
	}
}
