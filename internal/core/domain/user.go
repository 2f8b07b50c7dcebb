package domain

import "time"

// User models a registered account. Role is always one of the closed Role
// set; the permission matrix, not the stored record, decides what the role
// may do.
type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	Role           Role      `json:"role"`
	OrganizationID string    `json:"organization_id,omitempty"`
	MFAEnrolled    bool      `json:"mfa_enrolled"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
