package ports

import (
	"context"
	"time"

	"github.com/nimbusworks/platform-api/internal/core/domain"
)

// SessionStore holds live session records keyed by session ID. Records
// expire server-side at the store TTL; session-age policy is enforced on top
// of that by the resolver.
type SessionStore interface {
	Put(ctx context.Context, rec domain.SessionRecord, ttl time.Duration) error
	Get(ctx context.Context, sessionID string) (*domain.SessionRecord, error)
	Delete(ctx context.Context, sessionID string) error
}
