package ports

import (
	"context"

	"github.com/nimbusworks/platform-api/internal/core/domain"
)

// BreakGlassRepository stores emergency-access grants. Consume must be
// atomic: exactly one caller may consume a given grant.
type BreakGlassRepository interface {
	Create(ctx context.Context, grant *domain.BreakGlassGrant) (*domain.BreakGlassGrant, error)
	// Consume atomically marks the grant for tokenDigest consumed and
	// returns it. The grant must belong to userID; a mismatched caller gets
	// domain.ErrGrantNotFound and the grant stays usable. Returns
	// domain.ErrGrantConsumed if already used, domain.ErrGrantExpired if
	// past its expiry, domain.ErrGrantNotFound otherwise.
	Consume(ctx context.Context, tokenDigest, userID string) (*domain.BreakGlassGrant, error)
}
