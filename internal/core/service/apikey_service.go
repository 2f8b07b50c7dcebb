package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/nimbusworks/platform-api/internal/core/domain"
	"github.com/nimbusworks/platform-api/internal/core/ports"
)

const (
	apiKeyByteLen   = 32
	apiKeyPrefixLen = 8
)

// APIKeyService issues and revokes machine credentials. The plaintext key is
// returned exactly once at issue time; only the SHA-256 digest and a short
// display prefix are persisted.
type APIKeyService struct {
	repo ports.APIKeyRepository
}

func NewAPIKeyService(repo ports.APIKeyRepository) *APIKeyService {
	return &APIKeyService{repo: repo}
}

func (s *APIKeyService) Issue(ctx context.Context, actor domain.Principal, name string) (string, *domain.APIKey, error) {
	if name == "" {
		return "", nil, domain.NewValidationError(domain.FieldError{Field: "name", Message: "name is required"})
	}

	raw := make([]byte, apiKeyByteLen)
	if _, err := rand.Read(raw); err != nil {
		return "", nil, fmt.Errorf("generate api key: %w", err)
	}
	plaintext := "nbk_" + base64.RawURLEncoding.EncodeToString(raw)

	key := &domain.APIKey{
		UserID:         actor.UserID,
		OrganizationID: actor.OrganizationID,
		Role:           actor.Role,
		Name:           name,
		Prefix:         plaintext[:apiKeyPrefixLen],
		Digest:         DigestAPIKey(plaintext),
		CreatedAt:      time.Now().UTC(),
	}

	created, err := s.repo.Create(ctx, key)
	if err != nil {
		return "", nil, err
	}
	return plaintext, created, nil
}

func (s *APIKeyService) List(ctx context.Context, actor domain.Principal) ([]domain.APIKey, error) {
	return s.repo.ListByUser(ctx, actor.UserID)
}

// Revoke marks the key revoked. Revoking a key that belongs to a different
// user is an ownership violation; revoking an already-revoked key surfaces
// a deterministic conflict rather than a second state change.
func (s *APIKeyService) Revoke(ctx context.Context, actor domain.Principal, keyID string) error {
	key, err := s.repo.FindByID(ctx, keyID)
	if err != nil {
		return err
	}
	if key.UserID != actor.UserID && !actor.HasPermission(domain.PermUsersWrite) {
		return domain.ErrForbidden
	}
	if key.Revoked() {
		return fmt.Errorf("%w: %w", domain.ErrConflict, domain.ErrAPIKeyRevoked)
	}
	return s.repo.Revoke(ctx, keyID)
}
