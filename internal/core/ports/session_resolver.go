package ports

import (
	"context"

	"github.com/nimbusworks/platform-api/internal/core/domain"
)

// CredentialKind distinguishes the supported credential shapes.
type CredentialKind string

const (
	CredentialBearer CredentialKind = "bearer"
	CredentialAPIKey CredentialKind = "api_key"
)

// Credential is the opaque secret extracted from a request.
type Credential struct {
	Kind  CredentialKind
	Token string
}

// SessionResolver turns an incoming credential into a typed Principal.
// Malformed or empty credentials are rejected before any store access.
type SessionResolver interface {
	Resolve(ctx context.Context, cred Credential) (*domain.Principal, error)
}
