package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/nimbusworks/platform-api/internal/api/pipeline"
	"github.com/nimbusworks/platform-api/internal/core/domain"
	"github.com/nimbusworks/platform-api/internal/core/ports"
)

type resolverStub struct {
	principal *domain.Principal
}

func (r *resolverStub) Resolve(_ context.Context, _ ports.Credential) (*domain.Principal, error) {
	if r.principal == nil {
		return nil, domain.ErrUnauthenticated
	}
	return r.principal, nil
}

type authServiceStub struct {
	registered *domain.User
	loginToken string
	loginUser  *domain.User
	loginErr   error
	loggedOut  []string
}

func (s *authServiceStub) Register(_ context.Context, email, _ string, role domain.Role, orgID string) (*domain.User, error) {
	if s.registered == nil {
		return nil, domain.ErrUserExists
	}
	u := *s.registered
	u.Email = email
	u.Role = role
	u.OrganizationID = orgID
	return &u, nil
}

func (s *authServiceStub) Login(_ context.Context, _, _ string, _ bool) (string, *domain.User, error) {
	if s.loginErr != nil {
		return "", nil, s.loginErr
	}
	return s.loginToken, s.loginUser, nil
}

func (s *authServiceStub) Logout(_ context.Context, sessionID string) error {
	s.loggedOut = append(s.loggedOut, sessionID)
	return nil
}

// wrap runs a handler through a real pipeline so the request passes the same
// bind/sanitize/validate stages it would in production.
func wrap(resolver ports.SessionResolver, cfg pipeline.Config, h echo.HandlerFunc) echo.HandlerFunc {
	p := pipeline.New(resolver, nil, nil, nil, nil, zerolog.Nop())
	method := http.MethodPost
	return p.Wrap(method, cfg, h)
}

func doJSON(t *testing.T, h echo.HandlerFunc, method, target, body string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	e.Validator = NewValidator()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.Header.Set(echo.HeaderAuthorization, "Bearer token")
	rec := httptest.NewRecorder()
	return rec, h(e.NewContext(req, rec))
}

func TestRegisterHandler(t *testing.T) {
	svc := &authServiceStub{registered: &domain.User{ID: "user-1", CreatedAt: time.Now().UTC()}}
	h := wrap(&resolverStub{}, pipeline.Config{
		Name:     "auth.register",
		NewInput: func() any { return new(RegisterRequest) },
	}, NewAuthHandler(svc).Register)

	rec, err := doJSON(t, h, http.MethodPost, "/auth/register",
		`{"email":"alice@example.com","password":"a-long-enough-password","role":"org_member","organization_id":"org-1"}`)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d, want 201", rec.Code)
	}

	var env pipeline.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	var user map[string]any
	if err := json.Unmarshal(env.Data, &user); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	if user["email"] != "alice@example.com" {
		t.Fatalf("user = %v", user)
	}
	if _, ok := user["password"]; ok {
		t.Fatal("password must never appear in responses")
	}
}

func TestRegisterHandlerRejectsInvalidBody(t *testing.T) {
	svc := &authServiceStub{registered: &domain.User{ID: "user-1"}}
	h := wrap(&resolverStub{}, pipeline.Config{
		Name:     "auth.register",
		NewInput: func() any { return new(RegisterRequest) },
	}, NewAuthHandler(svc).Register)

	_, err := doJSON(t, h, http.MethodPost, "/auth/register",
		`{"email":"nope","password":"short","role":"super_admin"}`)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("got %v, want ErrValidation", err)
	}
}

func TestLoginHandler(t *testing.T) {
	svc := &authServiceStub{
		loginToken: "jwt-token",
		loginUser:  &domain.User{ID: "user-1", Email: "alice@example.com", Role: domain.RoleOrgMember},
	}
	h := wrap(&resolverStub{}, pipeline.Config{
		Name:     "auth.login",
		NewInput: func() any { return new(LoginRequest) },
	}, NewAuthHandler(svc).Login)

	rec, err := doJSON(t, h, http.MethodPost, "/auth/login",
		`{"email":"alice@example.com","password":"a-long-enough-password"}`)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}

	var env pipeline.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	var resp map[string]any
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if resp["token"] != "jwt-token" {
		t.Fatalf("token = %v", resp["token"])
	}
}

func TestLoginHandlerBadCredentials(t *testing.T) {
	svc := &authServiceStub{loginErr: domain.ErrInvalidCredentials}
	h := wrap(&resolverStub{}, pipeline.Config{
		Name:     "auth.login",
		NewInput: func() any { return new(LoginRequest) },
	}, NewAuthHandler(svc).Login)

	_, err := doJSON(t, h, http.MethodPost, "/auth/login",
		`{"email":"alice@example.com","password":"wrong-but-long-enough"}`)
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("got %v, want ErrInvalidCredentials", err)
	}
}

func TestLogoutHandler(t *testing.T) {
	svc := &authServiceStub{}
	resolver := &resolverStub{principal: &domain.Principal{
		UserID:    "user-1",
		Role:      domain.RoleOrgMember,
		SessionID: "sess-42",
	}}
	h := wrap(resolver, pipeline.Config{
		Name:        "auth.logout",
		RequireAuth: true,
	}, NewAuthHandler(svc).Logout)

	rec, err := doJSON(t, h, http.MethodPost, "/auth/logout", "")
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	if len(svc.loggedOut) != 1 || svc.loggedOut[0] != "sess-42" {
		t.Fatalf("logged out sessions = %v, want [sess-42]", svc.loggedOut)
	}
}

func TestLogoutWithoutPipeline(t *testing.T) {
	// Calling the handler directly, without the pipeline, must fail the
	// presence check rather than proceed with a zero principal.
	h := NewAuthHandler(&authServiceStub{}).Logout
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	rec := httptest.NewRecorder()

	err := h(e.NewContext(req, rec))
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Fatalf("got %v, want 401", err)
	}
}
