package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/nimbusworks/platform-api/internal/api/pipeline"
	"github.com/nimbusworks/platform-api/internal/core/domain"
)

func renderError(t *testing.T, err error) (*httptest.ResponseRecorder, pipeline.Envelope) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	NewHTTPErrorHandler(zerolog.Nop())(err, c)

	var env pipeline.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return rec, env
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
		msg  string
	}{
		{domain.ErrUnauthenticated, http.StatusUnauthorized, "unauthorized"},
		{domain.ErrInvalidCredentials, http.StatusUnauthorized, "unauthorized"},
		{domain.ErrSessionExpired, http.StatusUnauthorized, "session expired"},
		{domain.ErrForbidden, http.StatusForbidden, "forbidden"},
		{domain.ErrMFARequired, http.StatusForbidden, "forbidden"},
		{domain.ErrNotFound, http.StatusNotFound, "not found"},
		{domain.ErrUserNotFound, http.StatusNotFound, "not found"},
		{domain.ErrAPIKeyNotFound, http.StatusNotFound, "not found"},
		{domain.ErrConflict, http.StatusConflict, "conflict"},
		{domain.ErrUserExists, http.StatusConflict, "conflict"},
		{domain.ErrTimeout, http.StatusGatewayTimeout, "request timed out"},
		{errors.New("database exploded"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tc := range cases {
		rec, env := renderError(t, tc.err)
		if rec.Code != tc.code {
			t.Errorf("%v: status %d, want %d", tc.err, rec.Code, tc.code)
		}
		if env.Error != tc.msg {
			t.Errorf("%v: message %q, want %q", tc.err, env.Error, tc.msg)
		}
		if env.Success {
			t.Errorf("%v: envelope should report failure", tc.err)
		}
	}
}

func TestWrappedErrorsStillMap(t *testing.T) {
	rec, _ := renderError(t, fmt.Errorf("update role: %w", domain.ErrForbidden))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status %d, want 403", rec.Code)
	}
}

func TestValidationErrorCarriesFields(t *testing.T) {
	err := domain.NewValidationError(
		domain.FieldError{Field: "email", Message: "email must be a valid email"},
		domain.FieldError{Field: "password", Message: "password must be at least 12"},
	)
	rec, env := renderError(t, err)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}
	if env.Error != "validation failed" {
		t.Fatalf("message %q", env.Error)
	}
	if len(env.Errors) != 2 {
		t.Fatalf("expected 2 field errors, got %d", len(env.Errors))
	}
}

func TestRateLimitSetsRetryAfter(t *testing.T) {
	err := &domain.RateLimitError{Limit: 5, ResetAt: time.Now().Add(30 * time.Second)}
	rec, env := renderError(t, err)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status %d, want 429", rec.Code)
	}
	if env.Error != "rate limit exceeded" {
		t.Fatalf("message %q", env.Error)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("Retry-After header missing")
	}
}

func TestEchoHTTPErrorPassesThrough(t *testing.T) {
	rec, env := renderError(t, echo.NewHTTPError(http.StatusNotFound, "Not Found"))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", rec.Code)
	}
	if env.Error == "" {
		t.Fatal("message missing")
	}
}

func TestNoAuthorizationDetailDisclosed(t *testing.T) {
	// The body for an authorization failure must not name roles,
	// permissions, or what the operation required.
	e := echo.New()
	req := httptest.NewRequest(http.MethodPut, "/admin/users/7/role", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	NewHTTPErrorHandler(zerolog.Nop())(fmt.Errorf("role check: %w", domain.ErrForbidden), c)

	body := strings.ToLower(rec.Body.String())
	for _, leak := range []string{"super_admin", "org_admin", "permission", "role check", "users:write"} {
		if strings.Contains(body, leak) {
			t.Fatalf("response body discloses %q: %s", leak, body)
		}
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status %d, want 403", rec.Code)
	}
}

func TestInternalDetailNotDisclosed(t *testing.T) {
	_, env := renderError(t, errors.New("pq: connection refused at 10.0.0.5"))
	if strings.Contains(env.Error, "10.0.0.5") || strings.Contains(env.Error, "pq:") {
		t.Fatalf("internal detail leaked: %q", env.Error)
	}
}
