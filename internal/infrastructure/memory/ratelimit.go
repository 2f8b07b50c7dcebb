package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nimbusworks/platform-api/internal/core/ports"
)

const defaultMaxKeys = 10000

type bucket struct {
	count     int
	windowEnd time.Time
}

// RateLimiter is a mutex-guarded fixed-window counter. It is the
// single-instance fallback for the Redis limiter and the workhorse for
// tests; counters are process-local, so it must not be used behind a load
// balancer.
type RateLimiter struct {
	mu      sync.Mutex
	now     func() time.Time
	buckets map[string]*bucket
	maxKeys int
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{now: time.Now, buckets: make(map[string]*bucket), maxKeys: defaultMaxKeys}
}

// WithClock overrides the time source. Tests only.
func (l *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	l.now = now
	return l
}

func (l *RateLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (ports.RateLimitDecision, error) {
	if limit <= 0 {
		return ports.RateLimitDecision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if ok && now.After(b.windowEnd) {
		delete(l.buckets, key)
		ok = false
	}
	if !ok {
		if len(l.buckets) >= l.maxKeys {
			l.sweep(now)
		}
		if len(l.buckets) >= l.maxKeys {
			return ports.RateLimitDecision{}, errors.New("rate limiter capacity exceeded")
		}
		b = &bucket{windowEnd: now.Add(window)}
		l.buckets[key] = b
	}

	if b.count < limit {
		b.count++
		return ports.RateLimitDecision{
			Allowed:   true,
			Limit:     limit,
			Remaining: limit - b.count,
			ResetAt:   b.windowEnd,
		}, nil
	}
	return ports.RateLimitDecision{
		Allowed:   false,
		Limit:     limit,
		Remaining: 0,
		ResetAt:   b.windowEnd,
	}, nil
}

// sweep drops expired buckets. Caller holds the mutex.
func (l *RateLimiter) sweep(now time.Time) {
	for key, b := range l.buckets {
		if now.After(b.windowEnd) {
			delete(l.buckets, key)
		}
	}
}
