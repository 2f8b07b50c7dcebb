package domain

import "time"

// Principal is the authenticated identity attached to one request. It is
// constructed by the session resolver at pipeline start and treated as
// immutable for the lifetime of the request; it is never persisted.
type Principal struct {
	UserID          string
	Role            Role
	OrganizationID  string
	MFAVerified     bool
	SessionIssuedAt time.Time

	// SessionID identifies the backing session record for revocation and
	// audit correlation. Empty when the principal came from an API key.
	SessionID string

	// APIKeyPrefix is the non-secret prefix of the API key that produced
	// this principal, for audit correlation. Empty for cookie/JWT sessions.
	APIKeyPrefix string
}

// SessionAge returns how long ago the backing session was issued.
func (p Principal) SessionAge(now time.Time) time.Duration {
	return now.Sub(p.SessionIssuedAt)
}

// HasPermission checks the principal's role against the static matrix.
func (p Principal) HasPermission(perm Permission) bool {
	return HasPermission(p.Role, perm)
}
