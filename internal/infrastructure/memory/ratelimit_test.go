package memory

import (
	"context"
	"testing"
	"time"
)

func TestAllowWithinWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := NewRateLimiter().WithClock(func() time.Time { return now })

	for i := 0; i < 3; i++ {
		d, err := l.Allow(context.Background(), "user-1", 3, time.Minute)
		if err != nil {
			t.Fatalf("allow %d: %v", i, err)
		}
		if !d.Allowed {
			t.Fatalf("request %d should be allowed", i)
		}
		if d.Remaining != 3-(i+1) {
			t.Fatalf("request %d remaining = %d, want %d", i, d.Remaining, 3-(i+1))
		}
	}

	d, err := l.Allow(context.Background(), "user-1", 3, time.Minute)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if d.Allowed {
		t.Fatal("request over the limit should be denied")
	}
	if d.Remaining != 0 {
		t.Fatalf("denied decision remaining = %d, want 0", d.Remaining)
	}
	if !d.ResetAt.Equal(now.Add(time.Minute)) {
		t.Fatalf("reset at %v, want %v", d.ResetAt, now.Add(time.Minute))
	}
}

func TestWindowResets(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := NewRateLimiter().WithClock(func() time.Time { return now })

	for i := 0; i < 2; i++ {
		if _, err := l.Allow(context.Background(), "user-1", 2, time.Minute); err != nil {
			t.Fatalf("allow: %v", err)
		}
	}
	if d, _ := l.Allow(context.Background(), "user-1", 2, time.Minute); d.Allowed {
		t.Fatal("window should be exhausted")
	}

	now = now.Add(61 * time.Second)
	d, err := l.Allow(context.Background(), "user-1", 2, time.Minute)
	if err != nil {
		t.Fatalf("allow after reset: %v", err)
	}
	if !d.Allowed || d.Remaining != 1 {
		t.Fatalf("fresh window decision = %+v", d)
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l := NewRateLimiter()
	if _, err := l.Allow(context.Background(), "user-1", 1, time.Minute); err != nil {
		t.Fatalf("allow: %v", err)
	}
	if d, _ := l.Allow(context.Background(), "user-1", 1, time.Minute); d.Allowed {
		t.Fatal("user-1 should be exhausted")
	}
	if d, _ := l.Allow(context.Background(), "user-2", 1, time.Minute); !d.Allowed {
		t.Fatal("user-2 must not share user-1's counter")
	}
}

func TestZeroLimitAlwaysAllows(t *testing.T) {
	l := NewRateLimiter()
	d, err := l.Allow(context.Background(), "user-1", 0, time.Minute)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if !d.Allowed {
		t.Fatal("non-positive limit disables limiting")
	}
}

func TestCapacitySweep(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := NewRateLimiter().WithClock(func() time.Time { return now })
	l.maxKeys = 3

	for _, key := range []string{"a", "b", "c"} {
		if _, err := l.Allow(context.Background(), key, 5, time.Minute); err != nil {
			t.Fatalf("allow %s: %v", key, err)
		}
	}

	// At capacity with live buckets: a new key is rejected outright.
	if _, err := l.Allow(context.Background(), "d", 5, time.Minute); err == nil {
		t.Fatal("expected capacity error while all buckets are live")
	}

	// Once the old windows expire the sweep reclaims room.
	now = now.Add(2 * time.Minute)
	if _, err := l.Allow(context.Background(), "d", 5, time.Minute); err != nil {
		t.Fatalf("allow after sweep: %v", err)
	}
}
