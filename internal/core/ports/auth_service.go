package ports

import (
	"context"

	"github.com/nimbusworks/platform-api/internal/core/domain"
)

// AuthService implements registration and login flows.
type AuthService interface {
	Register(ctx context.Context, email, password string, role domain.Role, organizationID string) (*domain.User, error)
	// Login verifies credentials, creates a session record and returns the
	// bearer token referencing it.
	Login(ctx context.Context, email, password string, mfaVerified bool) (string, *domain.User, error)
	Logout(ctx context.Context, sessionID string) error
}
