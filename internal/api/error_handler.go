package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/nimbusworks/platform-api/internal/api/pipeline"
	"github.com/nimbusworks/platform-api/internal/core/domain"
)

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps taxonomy errors to deterministic HTTP status codes.
//   - Renders the uniform envelope {"success": false, "error": ..., "meta": ...}.
//   - Never discloses the caller's role or the roles/permissions an
//     operation requires; that detail lives in the audit log only.
//   - Logs unexpected errors with full detail server-side and returns a
//     generic message.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg, fields := resolveError(err, log, c)

		env := pipeline.Envelope{
			Error:  msg,
			Errors: fields,
			Meta:   pipeline.Meta{Timestamp: time.Now().UTC()},
		}
		_ = c.JSON(code, env)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string, []domain.FieldError) {
	// Echo's own errors (bind failures, 404 from the router, etc.).
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message), nil
	}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, "validation failed", verr.Fields
	}

	var rerr *domain.RateLimitError
	if errors.As(err, &rerr) {
		c.Response().Header().Set("Retry-After", fmt.Sprintf("%d", retryAfterSeconds(rerr.ResetAt)))
		return http.StatusTooManyRequests, "rate limit exceeded", nil
	}

	switch {
	case errors.Is(err, domain.ErrUnauthenticated),
		errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "unauthorized", nil
	case errors.Is(err, domain.ErrSessionExpired):
		// 401 rather than 403 so clients re-authenticate.
		return http.StatusUnauthorized, "session expired", nil
	case errors.Is(err, domain.ErrForbidden),
		errors.Is(err, domain.ErrMFARequired):
		return http.StatusForbidden, "forbidden", nil
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrAPIKeyNotFound),
		errors.Is(err, domain.ErrGrantNotFound):
		return http.StatusNotFound, "not found", nil
	case errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrUserExists):
		return http.StatusConflict, "conflict", nil
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout, "request timed out", nil
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error", nil
}

func retryAfterSeconds(resetAt time.Time) int64 {
	secs := int64(time.Until(resetAt).Seconds())
	if secs < 1 {
		secs = 1
	}
	return secs
}
