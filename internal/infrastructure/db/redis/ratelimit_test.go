package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestAllowCountsPerKey(t *testing.T) {
	_, client := newTestClient(t)
	l := NewRateLimiter(client)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		d, err := l.Allow(ctx, "user-1", 5, time.Minute)
		require.NoError(t, err)
		require.True(t, d.Allowed, "request %d should be allowed", i)
		require.Equal(t, 5-(i+1), d.Remaining)
	}

	d, err := l.Allow(ctx, "user-1", 5, time.Minute)
	require.NoError(t, err)
	require.False(t, d.Allowed, "sixth request must be denied")
	require.Zero(t, d.Remaining)
	require.False(t, d.ResetAt.IsZero())

	// A different key is unaffected.
	d, err = l.Allow(ctx, "user-2", 5, time.Minute)
	require.NoError(t, err)
	require.True(t, d.Allowed)
}

func TestAllowWindowExpires(t *testing.T) {
	mr, client := newTestClient(t)
	l := NewRateLimiter(client)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := l.Allow(ctx, "user-1", 2, time.Minute)
		require.NoError(t, err)
	}
	d, err := l.Allow(ctx, "user-1", 2, time.Minute)
	require.NoError(t, err)
	require.False(t, d.Allowed)

	mr.FastForward(61 * time.Second)

	d, err = l.Allow(ctx, "user-1", 2, time.Minute)
	require.NoError(t, err)
	require.True(t, d.Allowed, "counter must reset after the window expires")
	require.Equal(t, 1, d.Remaining)
}

func TestAllowNonPositiveLimit(t *testing.T) {
	_, client := newTestClient(t)
	l := NewRateLimiter(client)

	d, err := l.Allow(context.Background(), "user-1", 0, time.Minute)
	require.NoError(t, err)
	require.True(t, d.Allowed)
}

func TestAllowStoreDown(t *testing.T) {
	mr, client := newTestClient(t)
	l := NewRateLimiter(client)
	mr.Close()

	_, err := l.Allow(context.Background(), "user-1", 5, time.Minute)
	require.Error(t, err, "store failure must surface, fail-open is the caller's decision")
}
