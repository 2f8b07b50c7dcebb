package domain

import "time"

// BreakGlassGrant is an explicit, time-boxed, single-use emergency-access
// grant. It is the only sanctioned way to bypass an authorization check:
// there is no standing exemption for any role, and every consumption emits
// a critical audit entry before the bypassed operation proceeds.
type BreakGlassGrant struct {
	ID         string    `json:"id"`
	Token      string    `json:"-"`
	UserID     string    `json:"user_id"`
	ApproverID string    `json:"approver_id"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	ConsumedAt time.Time `json:"consumed_at,omitempty"`
}

// Usable reports whether the grant can still be consumed at now.
func (g BreakGlassGrant) Usable(now time.Time) bool {
	return g.ConsumedAt.IsZero() && now.Before(g.ExpiresAt)
}
