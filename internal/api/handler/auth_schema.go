package handler

import (
	"time"

	"github.com/nimbusworks/platform-api/internal/core/domain"
)

// --- Request / Response types ---

type RegisterRequest struct {
	Email          string `json:"email"           validate:"required,email"`
	Password       string `json:"password"        validate:"required,min=12"`
	Role           string `json:"role"            validate:"required,oneof=org_member user free pro enterprise"`
	OrganizationID string `json:"organization_id"`
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
	MFACode  string `json:"mfa_code"`
}

type userResponse struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Role           string    `json:"role"`
	OrganizationID string    `json:"organization_id,omitempty"`
	MFAEnrolled    bool      `json:"mfa_enrolled"`
	CreatedAt      time.Time `json:"created_at"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:             u.ID,
		Email:          u.Email,
		Role:           string(u.Role),
		OrganizationID: u.OrganizationID,
		MFAEnrolled:    u.MFAEnrolled,
		CreatedAt:      u.CreatedAt,
	}
}
