package domain

import "time"

// SessionRecord is the server-side state behind a session credential. It
// lives in the session store keyed by SessionID; the bearer token only
// references it.
type SessionRecord struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Role           Role      `json:"role"`
	OrganizationID string    `json:"organization_id,omitempty"`
	MFAVerified    bool      `json:"mfa_verified"`
	IssuedAt       time.Time `json:"issued_at"`
}
