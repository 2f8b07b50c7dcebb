package domain

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Severity classifies an audit entry.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Failure reasons recorded in audit details. These are server-side only and
// never appear in response bodies.
const (
	ReasonUnauthenticated        = "UNAUTHENTICATED"
	ReasonMFANotVerified         = "MFA_NOT_VERIFIED"
	ReasonSessionExpired         = "SESSION_EXPIRED"
	ReasonInsufficientPermission = "INSUFFICIENT_PERMISSION"
	ReasonOwnershipMismatch      = "RESOURCE_OWNERSHIP_MISMATCH"
	ReasonRateLimited            = "RATE_LIMITED"
	ReasonValidationFailed       = "VALIDATION_FAILED"
	ReasonHandlerError           = "HANDLER_ERROR"
	ReasonBreakGlassUsed         = "BREAK_GLASS_USED"
)

// AuditEntry is an append-only security/business event. Once signed and
// written it is immutable; the signature is a keyed MAC over a canonical
// serialization so later tampering in the store is detectable.
type AuditEntry struct {
	ID        string         `json:"id" bson:"_id,omitempty"`
	Timestamp time.Time      `json:"timestamp" bson:"timestamp"`
	ActorID   string         `json:"actor_id" bson:"actor_id"`
	Action    string         `json:"action" bson:"action"`
	Resource  string         `json:"resource" bson:"resource"`
	Severity  Severity       `json:"severity" bson:"severity"`
	Details   map[string]any `json:"details,omitempty" bson:"details,omitempty"`
	Signature string         `json:"signature" bson:"signature"`
}

// canonical produces the byte stream the signature covers. Field order is
// fixed; details are JSON-encoded (encoding/json sorts map keys, so the
// encoding is deterministic). The signature field itself is excluded.
func (e AuditEntry) canonical() ([]byte, error) {
	details, err := json.Marshal(e.Details)
	if err != nil {
		return nil, fmt.Errorf("canonicalize audit details: %w", err)
	}
	var b strings.Builder
	b.WriteString(e.Timestamp.UTC().Format(time.RFC3339Nano))
	b.WriteByte('|')
	b.WriteString(e.ActorID)
	b.WriteByte('|')
	b.WriteString(e.Action)
	b.WriteByte('|')
	b.WriteString(e.Resource)
	b.WriteByte('|')
	b.WriteString(string(e.Severity))
	b.WriteByte('|')
	b.Write(details)
	return []byte(b.String()), nil
}

// Sign computes and stores the entry's HMAC-SHA256 signature.
func (e *AuditEntry) Sign(key []byte) error {
	payload, err := e.canonical()
	if err != nil {
		return err
	}
	mac := hmac.New(sha256.New, key)
	mac.Write(payload)
	e.Signature = hex.EncodeToString(mac.Sum(nil))
	return nil
}

// VerifySignature recomputes the MAC and compares it in constant time.
func (e AuditEntry) VerifySignature(key []byte) (bool, error) {
	payload, err := e.canonical()
	if err != nil {
		return false, err
	}
	mac := hmac.New(sha256.New, key)
	mac.Write(payload)
	want, err := hex.DecodeString(e.Signature)
	if err != nil {
		return false, nil
	}
	return hmac.Equal(mac.Sum(nil), want), nil
}
