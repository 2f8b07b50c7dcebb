package ports

import (
	"context"
	"time"
)

// Cache is a TTL key/value store for idempotent read responses. Values are
// opaque byte payloads; a read after expiry behaves as a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
}
