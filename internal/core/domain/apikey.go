package domain

import "time"

// APIKey is a long-lived machine credential. Only the SHA-256 digest of the
// secret is stored; Prefix (the first characters of the key) is retained so
// audit entries can reference the key without disclosing it.
type APIKey struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	OrganizationID string    `json:"organization_id,omitempty"`
	Role           Role      `json:"role"`
	Name           string    `json:"name"`
	Prefix         string    `json:"prefix"`
	Digest         string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	RevokedAt      time.Time `json:"revoked_at,omitempty"`
}

// Revoked reports whether the key has been revoked.
func (k APIKey) Revoked() bool {
	return !k.RevokedAt.IsZero()
}
