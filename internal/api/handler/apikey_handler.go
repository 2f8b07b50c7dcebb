package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nimbusworks/platform-api/internal/api/pipeline"
	"github.com/nimbusworks/platform-api/internal/core/domain"
	"github.com/nimbusworks/platform-api/internal/core/ports"
)

type APIKeyHandler struct {
	keys ports.APIKeyService
}

func NewAPIKeyHandler(keys ports.APIKeyService) *APIKeyHandler {
	return &APIKeyHandler{keys: keys}
}

type IssueKeyRequest struct {
	Name string `json:"name" validate:"required,min=3,max=64"`
}

type apiKeyResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Prefix    string    `json:"prefix"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	Revoked   bool      `json:"revoked"`
}

type issueKeyResponse struct {
	// Key is the plaintext credential, returned exactly once.
	Key    string         `json:"key"`
	APIKey apiKeyResponse `json:"api_key"`
}

func toAPIKeyResponse(k domain.APIKey) apiKeyResponse {
	return apiKeyResponse{
		ID:        k.ID,
		Name:      k.Name,
		Prefix:    k.Prefix,
		Role:      string(k.Role),
		CreatedAt: k.CreatedAt,
		Revoked:   k.Revoked(),
	}
}

// Issue creates a new API key for the caller.
//
// @Summary      Issue an API key
// @Tags         api-keys
// @Accept       json
// @Produce      json
// @Param        body  body      IssueKeyRequest  true  "Key details"
// @Success      201   {object}  pipeline.Envelope
// @Router       /api-keys [post]
func (h *APIKeyHandler) Issue(c echo.Context) error {
	principal, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	req, ok := pipeline.Input[*IssueKeyRequest](c)
	if !ok {
		return domain.NewValidationError(domain.FieldError{Field: "body", Message: "missing request payload"})
	}

	plaintext, key, err := h.keys.Issue(c.Request().Context(), principal, req.Name)
	if err != nil {
		return err
	}
	return pipeline.OK(c, http.StatusCreated, issueKeyResponse{Key: plaintext, APIKey: toAPIKeyResponse(*key)})
}

// List returns the caller's API keys.
//
// @Summary      List API keys
// @Tags         api-keys
// @Produce      json
// @Success      200  {object}  pipeline.Envelope
// @Router       /api-keys [get]
func (h *APIKeyHandler) List(c echo.Context) error {
	principal, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	keys, err := h.keys.List(c.Request().Context(), principal)
	if err != nil {
		return err
	}
	out := make([]apiKeyResponse, 0, len(keys))
	for _, k := range keys {
		out = append(out, toAPIKeyResponse(k))
	}
	return pipeline.OK(c, http.StatusOK, out)
}

// Revoke disables an API key. Revoking an already-revoked key returns 409.
//
// @Summary      Revoke an API key
// @Tags         api-keys
// @Produce      json
// @Param        id  path  string  true  "Key ID"
// @Success      200  {object}  pipeline.Envelope
// @Failure      409  {object}  pipeline.Envelope
// @Router       /api-keys/{id} [delete]
func (h *APIKeyHandler) Revoke(c echo.Context) error {
	principal, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	if err := h.keys.Revoke(c.Request().Context(), principal, c.Param("id")); err != nil {
		return err
	}
	return pipeline.NoContent(c, http.StatusOK)
}
