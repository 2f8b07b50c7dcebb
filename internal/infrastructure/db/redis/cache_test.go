package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCacheRoundTrip(t *testing.T) {
	_, client := newTestClient(t)
	c := NewCache(client)
	ctx := context.Background()

	_, hit, err := c.Get(ctx, "users.list|/admin/users|u:1")
	require.NoError(t, err)
	require.False(t, hit)

	require.NoError(t, c.Set(ctx, "users.list|/admin/users|u:1", []byte(`{"users":[]}`), time.Minute))

	val, hit, err := c.Get(ctx, "users.list|/admin/users|u:1")
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, []byte(`{"users":[]}`), val)
}

func TestCacheTTL(t *testing.T) {
	mr, client := newTestClient(t)
	c := NewCache(client)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 30*time.Second))

	mr.FastForward(31 * time.Second)

	_, hit, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, hit, "read after TTL must miss")
}

func TestCacheZeroTTLNotStored(t *testing.T) {
	_, client := newTestClient(t)
	c := NewCache(client)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	_, hit, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, hit)
}

func TestCacheDelete(t *testing.T) {
	_, client := newTestClient(t)
	c := NewCache(client)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, c.Delete(ctx, "k"))

	_, hit, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, hit)
}

func TestCacheDeleteByPrefix(t *testing.T) {
	_, client := newTestClient(t)
	c := NewCache(client)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "users.list|a", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "users.list|b", []byte("2"), time.Minute))
	require.NoError(t, c.Set(ctx, "keys.list|a", []byte("3"), time.Minute))

	require.NoError(t, c.DeleteByPrefix(ctx, "users.list|"))

	_, hit, _ := c.Get(ctx, "users.list|a")
	require.False(t, hit)
	_, hit, _ = c.Get(ctx, "users.list|b")
	require.False(t, hit)
	_, hit, _ = c.Get(ctx, "keys.list|a")
	require.True(t, hit, "unrelated entries must survive")
}
