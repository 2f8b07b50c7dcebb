package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nimbusworks/platform-api/internal/api/pipeline"
	"github.com/nimbusworks/platform-api/internal/core/domain"
	"github.com/nimbusworks/platform-api/internal/core/ports"
)

type BreakGlassHandler struct {
	grants ports.BreakGlassService
}

func NewBreakGlassHandler(grants ports.BreakGlassService) *BreakGlassHandler {
	return &BreakGlassHandler{grants: grants}
}

type GrantRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Reason string `json:"reason"  validate:"required,min=10"`
}

type grantResponse struct {
	// Token is the one-time emergency credential, returned exactly once.
	Token     string    `json:"token"`
	GrantID   string    `json:"grant_id"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Grant issues a time-boxed, single-use emergency-access grant. The approver
// is the authenticated caller; the grant and every later use are audited at
// critical severity.
//
// @Summary      Issue a break-glass grant
// @Tags         break-glass
// @Accept       json
// @Produce      json
// @Param        body  body      GrantRequest  true  "Grant details"
// @Success      201   {object}  pipeline.Envelope
// @Router       /admin/break-glass [post]
func (h *BreakGlassHandler) Grant(c echo.Context) error {
	principal, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	req, ok := pipeline.Input[*GrantRequest](c)
	if !ok {
		return domain.NewValidationError(domain.FieldError{Field: "body", Message: "missing request payload"})
	}

	token, grant, err := h.grants.Grant(c.Request().Context(), principal, req.UserID, req.Reason)
	if err != nil {
		return err
	}
	return pipeline.OK(c, http.StatusCreated, grantResponse{
		Token:     token,
		GrantID:   grant.ID,
		UserID:    grant.UserID,
		ExpiresAt: grant.ExpiresAt,
	})
}
