package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nimbusworks/platform-api/internal/core/domain"
	"github.com/nimbusworks/platform-api/internal/core/ports"
)

// DefaultGrantTTL bounds how long an unconsumed break-glass grant stays
// usable.
const DefaultGrantTTL = 15 * time.Minute

// BreakGlassService manages emergency-access grants. Grants are explicit,
// tied to a named approver, time-boxed and single-use; consuming one emits a
// critical audit entry synchronously before the bypassed operation runs.
type BreakGlassService struct {
	repo     ports.BreakGlassRepository
	recorder ports.AuditRecorder
	grantTTL time.Duration
	now      func() time.Time
}

func NewBreakGlassService(repo ports.BreakGlassRepository, recorder ports.AuditRecorder, grantTTL time.Duration) *BreakGlassService {
	if grantTTL <= 0 {
		grantTTL = DefaultGrantTTL
	}
	return &BreakGlassService{repo: repo, recorder: recorder, grantTTL: grantTTL, now: time.Now}
}

// WithClock overrides the time source. Tests only.
func (s *BreakGlassService) WithClock(now func() time.Time) *BreakGlassService {
	s.now = now
	return s
}

func (s *BreakGlassService) Grant(ctx context.Context, approver domain.Principal, userID, reason string) (string, *domain.BreakGlassGrant, error) {
	if userID == "" || reason == "" {
		return "", nil, domain.NewValidationError(
			domain.FieldError{Field: "user_id", Message: "user_id is required"},
			domain.FieldError{Field: "reason", Message: "reason is required"},
		)
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", nil, fmt.Errorf("generate grant token: %w", err)
	}
	token := "bg_" + base64.RawURLEncoding.EncodeToString(raw)

	now := s.now().UTC()
	grant := &domain.BreakGlassGrant{
		ID:         uuid.NewString(),
		Token:      DigestAPIKey(token),
		UserID:     userID,
		ApproverID: approver.UserID,
		Reason:     reason,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.grantTTL),
	}
	created, err := s.repo.Create(ctx, grant)
	if err != nil {
		return "", nil, err
	}

	err = s.recorder.RecordSync(ctx, domain.AuditEntry{
		ActorID:  approver.UserID,
		Action:   "breakglass.grant",
		Resource: "break_glass",
		Severity: domain.SeverityCritical,
		Details: map[string]any{
			"grant_id": created.ID,
			"user_id":  userID,
			"reason":   reason,
		},
	})
	if err != nil {
		return "", nil, fmt.Errorf("audit break-glass grant: %w", err)
	}
	return token, created, nil
}

// Consume burns the token on behalf of caller. The repository only releases
// a grant to the user it was issued for, so a stolen token cannot destroy
// the rightful user's emergency access. The critical audit entry is written
// durably before the grant is handed back, so a bypassed operation can never
// run unrecorded.
func (s *BreakGlassService) Consume(ctx context.Context, caller domain.Principal, token, action, resource string) (*domain.BreakGlassGrant, error) {
	if token == "" {
		return nil, domain.ErrGrantNotFound
	}
	grant, err := s.repo.Consume(ctx, DigestAPIKey(token), caller.UserID)
	if err != nil {
		return nil, err
	}

	err = s.recorder.RecordSync(ctx, domain.AuditEntry{
		ActorID:  caller.UserID,
		Action:   "breakglass.consume",
		Resource: "break_glass",
		Severity: domain.SeverityCritical,
		Details: map[string]any{
			"grant_id":        grant.ID,
			"approver_id":     grant.ApproverID,
			"reason":          domain.ReasonBreakGlassUsed,
			"grant_reason":    grant.Reason,
			"bypassed_action": action,
			"bypassed_target": resource,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("audit break-glass use: %w", err)
	}
	return grant, nil
}
