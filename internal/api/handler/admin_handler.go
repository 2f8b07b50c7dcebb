package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/nimbusworks/platform-api/internal/api/pipeline"
	"github.com/nimbusworks/platform-api/internal/core/domain"
	"github.com/nimbusworks/platform-api/internal/core/ports"
)

// AdminHandler exposes user administration. Authorization is entirely the
// pipeline's job: these handlers assume the permission checks already ran.
type AdminHandler struct {
	users ports.UserRepository
}

func NewAdminHandler(users ports.UserRepository) *AdminHandler {
	return &AdminHandler{users: users}
}

type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

type listUsersResponse struct {
	Users []userResponse `json:"users"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

// ListUsers returns users in the caller's organization (all organizations
// for super_admin).
//
// @Summary      List users
// @Tags         admin
// @Produce      json
// @Param        page   query  int  false  "Page"
// @Param        limit  query  int  false  "Page size"
// @Success      200  {object}  pipeline.Envelope
// @Router       /admin/users [get]
func (h *AdminHandler) ListUsers(c echo.Context) error {
	principal, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	orgScope := principal.OrganizationID
	if principal.Role == domain.RoleSuperAdmin {
		orgScope = ""
	}

	users, total, err := h.users.List(c.Request().Context(), orgScope, page, limit)
	if err != nil {
		return err
	}

	out := make([]userResponse, 0, len(users))
	for i := range users {
		out = append(out, toUserResponse(&users[i]))
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return pipeline.OK(c, http.StatusOK, listUsersResponse{Users: out, Total: total, Page: page, Limit: limit})
}

// UpdateRole changes a user's role.
//
// @Summary      Update a user's role
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        id    path  string             true  "User ID"
// @Param        body  body  UpdateRoleRequest  true  "New role"
// @Success      200  {object}  pipeline.Envelope
// @Failure      400  {object}  pipeline.Envelope
// @Failure      404  {object}  pipeline.Envelope
// @Router       /admin/users/{id}/role [put]
func (h *AdminHandler) UpdateRole(c echo.Context) error {
	principal, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	req, ok := pipeline.Input[*UpdateRoleRequest](c)
	if !ok {
		return domain.NewValidationError(domain.FieldError{Field: "body", Message: "missing request payload"})
	}

	role, err := domain.ParseRole(req.Role)
	if err != nil {
		return domain.NewValidationError(domain.FieldError{Field: "role", Message: "unknown role"})
	}

	// Nobody grants a role above their own level; promoting to super_admin
	// requires being super_admin.
	if domain.RoleLevel(role) > domain.RoleLevel(principal.Role) {
		return domain.ErrForbidden
	}

	target, err := h.users.FindByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	// Org admins manage their own organization only.
	if principal.Role != domain.RoleSuperAdmin && target.OrganizationID != principal.OrganizationID {
		return domain.ErrForbidden
	}

	if err := h.users.UpdateRole(c.Request().Context(), target.ID, role); err != nil {
		return err
	}
	return pipeline.NoContent(c, http.StatusOK)
}
