package ports

import (
	"context"

	"github.com/nimbusworks/platform-api/internal/core/domain"
)

// APIKeyRepository defines persistence for API keys. Only digests of key
// material are ever stored.
type APIKeyRepository interface {
	Create(ctx context.Context, key *domain.APIKey) (*domain.APIKey, error)
	FindByDigest(ctx context.Context, digest string) (*domain.APIKey, error)
	FindByID(ctx context.Context, id string) (*domain.APIKey, error)
	ListByUser(ctx context.Context, userID string) ([]domain.APIKey, error)
	// Revoke marks the key revoked. Returns domain.ErrAPIKeyRevoked when the
	// key was already revoked so callers can surface a deterministic
	// conflict instead of double-applying.
	Revoke(ctx context.Context, id string) error
}
