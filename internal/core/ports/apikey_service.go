package ports

import (
	"context"

	"github.com/nimbusworks/platform-api/internal/core/domain"
)

// APIKeyService manages machine credentials. Issue returns the plaintext key
// exactly once; afterwards only its digest exists server-side.
type APIKeyService interface {
	Issue(ctx context.Context, actor domain.Principal, name string) (plaintext string, key *domain.APIKey, err error)
	List(ctx context.Context, actor domain.Principal) ([]domain.APIKey, error)
	Revoke(ctx context.Context, actor domain.Principal, keyID string) error
}
