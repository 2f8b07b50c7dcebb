package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nimbusworks/platform-api/internal/core/domain"
)

var keyOwner = domain.Principal{UserID: "user-1", OrganizationID: "org-1", Role: domain.RolePro}

func TestIssueAPIKey(t *testing.T) {
	repo := newStubAPIKeyRepo()
	svc := NewAPIKeyService(repo)

	plaintext, key, err := svc.Issue(context.Background(), keyOwner, "ci-deploy")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !strings.HasPrefix(plaintext, "nbk_") {
		t.Fatalf("key %q missing nbk_ prefix", plaintext)
	}
	if key.Digest != DigestAPIKey(plaintext) {
		t.Fatal("stored digest does not match issued key")
	}
	if key.Prefix != plaintext[:8] {
		t.Fatalf("display prefix %q does not match key", key.Prefix)
	}
	if key.UserID != keyOwner.UserID || key.Role != keyOwner.Role {
		t.Fatalf("key not bound to issuer: %+v", key)
	}

	// The plaintext must not be recoverable from what was persisted.
	stored, err := repo.FindByID(context.Background(), key.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if strings.Contains(stored.Digest, plaintext) || stored.Digest == plaintext {
		t.Fatal("plaintext leaked into storage")
	}
}

func TestIssueAPIKeyUnique(t *testing.T) {
	svc := NewAPIKeyService(newStubAPIKeyRepo())
	a, _, err := svc.Issue(context.Background(), keyOwner, "one")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	b, _, err := svc.Issue(context.Background(), keyOwner, "two")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if a == b {
		t.Fatal("two issued keys share plaintext")
	}
}

func TestRevokeAPIKey(t *testing.T) {
	repo := newStubAPIKeyRepo()
	svc := NewAPIKeyService(repo)

	_, key, err := svc.Issue(context.Background(), keyOwner, "ci-deploy")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := svc.Revoke(context.Background(), keyOwner, key.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	// Second revocation is a deterministic conflict, not a no-op.
	err = svc.Revoke(context.Background(), keyOwner, key.ID)
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("got %v, want ErrConflict", err)
	}
	if !errors.Is(err, domain.ErrAPIKeyRevoked) {
		t.Fatalf("got %v, want ErrAPIKeyRevoked in chain", err)
	}
}

func TestRevokeOwnership(t *testing.T) {
	repo := newStubAPIKeyRepo()
	svc := NewAPIKeyService(repo)

	_, key, err := svc.Issue(context.Background(), keyOwner, "ci-deploy")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	stranger := domain.Principal{UserID: "user-9", Role: domain.RolePro}
	if err := svc.Revoke(context.Background(), stranger, key.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("got %v, want ErrForbidden", err)
	}

	// An admin with users:write may revoke keys they do not own.
	admin := domain.Principal{UserID: "user-9", Role: domain.RoleOrgAdmin}
	if err := svc.Revoke(context.Background(), admin, key.ID); err != nil {
		t.Fatalf("admin revoke: %v", err)
	}
}

func TestRevokeUnknownKey(t *testing.T) {
	svc := NewAPIKeyService(newStubAPIKeyRepo())
	err := svc.Revoke(context.Background(), keyOwner, "missing")
	if !errors.Is(err, domain.ErrAPIKeyNotFound) {
		t.Fatalf("got %v, want ErrAPIKeyNotFound", err)
	}
}

func TestListAPIKeys(t *testing.T) {
	svc := NewAPIKeyService(newStubAPIKeyRepo())
	if _, _, err := svc.Issue(context.Background(), keyOwner, "one"); err != nil {
		t.Fatalf("issue: %v", err)
	}
	other := domain.Principal{UserID: "user-2", Role: domain.RolePro}
	if _, _, err := svc.Issue(context.Background(), other, "two"); err != nil {
		t.Fatalf("issue: %v", err)
	}

	keys, err := svc.List(context.Background(), keyOwner)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("expected 1 key for owner, got %d", len(keys))
	}
}
