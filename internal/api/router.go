package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/nimbusworks/platform-api/internal/api/handler"
	"github.com/nimbusworks/platform-api/internal/api/pipeline"
	"github.com/nimbusworks/platform-api/internal/core/domain"
	"github.com/nimbusworks/platform-api/internal/core/ports"
	"github.com/nimbusworks/platform-api/internal/core/service"
	"github.com/nimbusworks/platform-api/internal/infrastructure/config"
	mongodb "github.com/nimbusworks/platform-api/internal/infrastructure/db/mongo"
)

// Deps carries the process-wide dependencies into the router. Everything is
// constructed once in main and passed explicitly; no package-level state.
// Sessions, Limiter and Cache are ports so main can pick the Redis-backed
// implementations or the in-process ones when no Redis is configured.
type Deps struct {
	Mongo    *mongo.Database
	Redis    *redis.Client // nil in single-instance mode; readiness only
	Sessions ports.SessionStore
	Limiter  ports.RateLimiter
	Cache    ports.Cache
	Config   *config.Config
	Logger   zerolog.Logger
	Recorder ports.AuditRecorder
}

// NewRouter builds the Echo instance with every route registered through
// the authorization pipeline. Each endpoint's full policy is visible here,
// in one place, as declarative configuration.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echoprometheus.NewMiddleware("platform"))

	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Logger)

	// --- Stage dependencies ---
	users := mongodb.NewUserRepository(d.Mongo)
	apiKeys := mongodb.NewAPIKeyRepository(d.Mongo)
	grants := mongodb.NewBreakGlassRepository(d.Mongo)

	resolver := service.NewSessionResolver(d.Sessions, apiKeys, d.Config.JWTSecret, d.Config.MaxSessionAge)
	authService := service.NewAuthService(users, d.Sessions, d.Config.JWTSecret, d.Config.SessionTTL)
	keyService := service.NewAPIKeyService(apiKeys)
	breakGlass := service.NewBreakGlassService(grants, d.Recorder, service.DefaultGrantTTL)

	p := pipeline.New(resolver, d.Limiter, d.Cache, d.Recorder, breakGlass, d.Logger)

	authHandler := handler.NewAuthHandler(authService)
	keyHandler := handler.NewAPIKeyHandler(keyService)
	adminHandler := handler.NewAdminHandler(users)
	bgHandler := handler.NewBreakGlassHandler(breakGlass)

	// --- Auth routes ---
	e.POST("/auth/register", p.Wrap(http.MethodPost, pipeline.Config{
		Name:        "auth.register",
		RateLimit:   &pipeline.LimitAuth,
		IPRateLimit: &pipeline.LimitAuth,
		NewInput:    func() any { return new(handler.RegisterRequest) },
		Audit:       &pipeline.AuditPolicy{Action: "auth.register", Resource: "users", Severity: domain.SeverityInfo},
	}, authHandler.Register))

	e.POST("/auth/login", p.Wrap(http.MethodPost, pipeline.Config{
		Name:        "auth.login",
		RateLimit:   &pipeline.LimitAuth,
		IPRateLimit: &pipeline.LimitAuth,
		NewInput:    func() any { return new(handler.LoginRequest) },
		Audit:       &pipeline.AuditPolicy{Action: "auth.login", Resource: "sessions", Severity: domain.SeverityInfo},
	}, authHandler.Login))

	e.POST("/auth/logout", p.Wrap(http.MethodPost, pipeline.Config{
		Name:        "auth.logout",
		RequireAuth: true,
		Audit:       &pipeline.AuditPolicy{Action: "auth.logout", Resource: "sessions", Severity: domain.SeverityInfo},
	}, authHandler.Logout))

	// --- API key routes ---
	e.POST("/api-keys", p.Wrap(http.MethodPost, pipeline.Config{
		Name:        "apikeys.issue",
		RequireAuth: true,
		Permission:  &domain.PermAPIKeysWrite,
		RateLimit:   &pipeline.LimitMutation,
		NewInput:    func() any { return new(handler.IssueKeyRequest) },
		Audit:       &pipeline.AuditPolicy{Action: "apikeys.issue", Resource: "api_keys", Severity: domain.SeverityWarning},
	}, keyHandler.Issue))

	e.GET("/api-keys", p.Wrap(http.MethodGet, pipeline.Config{
		Name:        "apikeys.list",
		RequireAuth: true,
		Permission:  &domain.PermAPIKeysRead,
		RateLimit:   &pipeline.LimitRead,
		Cache:       &pipeline.CachePolicy{TTL: 30 * time.Second},
	}, keyHandler.List))

	e.DELETE("/api-keys/:id", p.Wrap(http.MethodDelete, pipeline.Config{
		Name:        "apikeys.revoke",
		RequireAuth: true,
		Permission:  &domain.PermAPIKeysWrite,
		RateLimit:   &pipeline.LimitMutation,
		Audit:       &pipeline.AuditPolicy{Action: "apikeys.revoke", Resource: "api_keys", Severity: domain.SeverityWarning, Blocking: true},
	}, keyHandler.Revoke))

	// --- Admin routes ---
	e.GET("/admin/users", p.Wrap(http.MethodGet, pipeline.Config{
		Name:        "admin.users.list",
		RequireAuth: true,
		Permission:  &domain.PermUsersRead,
		RateLimit:   &pipeline.LimitRead,
		Cache:       &pipeline.CachePolicy{TTL: time.Minute},
		Audit:       &pipeline.AuditPolicy{Action: "admin.users.list", Resource: "users", Severity: domain.SeverityInfo},
	}, adminHandler.ListUsers))

	e.PUT("/admin/users/:id/role", p.Wrap(http.MethodPut, pipeline.Config{
		Name:            "admin.users.update_role",
		RequireAuth:     true,
		RequireMFA:      true,
		Permission:      &domain.PermUsersWrite,
		RateLimit:       &pipeline.LimitAdmin,
		NewInput:        func() any { return new(handler.UpdateRoleRequest) },
		Audit:           &pipeline.AuditPolicy{Action: "admin.users.update_role", Resource: "users", Severity: domain.SeverityWarning, Blocking: true},
		AllowBreakGlass: true,
	}, adminHandler.UpdateRole))

	e.POST("/admin/break-glass", p.Wrap(http.MethodPost, pipeline.Config{
		Name:        "admin.breakglass.grant",
		RequireAuth: true,
		RequireMFA:  true,
		Roles:       []domain.Role{domain.RoleOrgAdmin},
		RateLimit:   &pipeline.LimitAdmin,
		NewInput:    func() any { return new(handler.GrantRequest) },
		Audit:       &pipeline.AuditPolicy{Action: "admin.breakglass.grant", Resource: "break_glass", Severity: domain.SeverityCritical, Blocking: true},
	}, bgHandler.Grant))

	// --- Health probes and metrics (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(d.Mongo, d.Redis)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", readinessHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())

	return e
}
