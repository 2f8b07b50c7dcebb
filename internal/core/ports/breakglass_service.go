package ports

import (
	"context"

	"github.com/nimbusworks/platform-api/internal/core/domain"
)

// BreakGlassService issues and consumes emergency-access grants. Grants are
// explicit, time-boxed and single-use; every consumption is audited
// synchronously.
type BreakGlassService interface {
	// Grant creates a grant for userID approved by approver. The returned
	// string is the one-time token handed to the grantee.
	Grant(ctx context.Context, approver domain.Principal, userID, reason string) (string, *domain.BreakGlassGrant, error)
	// Consume validates and burns the token on behalf of caller, emitting a
	// critical audit entry before returning. A token whose grant belongs to
	// a different user is rejected without being consumed.
	Consume(ctx context.Context, caller domain.Principal, token string, action, resource string) (*domain.BreakGlassGrant, error)
}
