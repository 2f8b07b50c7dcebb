package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nimbusworks/platform-api/internal/api/pipeline"
	"github.com/nimbusworks/platform-api/internal/core/domain"
)

// ctxPrincipal extracts the principal resolved by the pipeline and performs
// a fast-fail presence check before any service call: a missing principal on
// an authenticated route means the route was registered without the
// pipeline, which must never pass silently.
func ctxPrincipal(c echo.Context) (domain.Principal, error) {
	p, ok := pipeline.Principal(c)
	if !ok {
		return domain.Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication context")
	}
	return p, nil
}
