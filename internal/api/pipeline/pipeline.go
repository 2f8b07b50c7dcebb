// Package pipeline implements the unified request-authorization pipeline.
//
// Every privileged endpoint is registered through Pipeline.Wrap with a
// declarative Config; the stages always execute in the same fixed order
// (auth → MFA → session freshness → authorization → rate limit → validation
// → cache/handler → audit) and short-circuit on the first failure. A stage
// absent from the config is a no-op, never a reordering. Enforcement lives
// here and only here; handlers never re-implement their own checks.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/nimbusworks/platform-api/internal/api/metrics"
	"github.com/nimbusworks/platform-api/internal/core/domain"
	"github.com/nimbusworks/platform-api/internal/core/ports"
)

const (
	breakGlassHeader = "X-Break-Glass"
	auditDeadline    = 2 * time.Second
)

// Pipeline holds the shared stage dependencies. All of them are explicit
// constructor arguments so tests can substitute any stage.
type Pipeline struct {
	resolver   ports.SessionResolver
	limiter    ports.RateLimiter
	cache      ports.Cache
	recorder   ports.AuditRecorder
	breakGlass ports.BreakGlassService
	log        zerolog.Logger
	now        func() time.Time
}

func New(resolver ports.SessionResolver, limiter ports.RateLimiter, cache ports.Cache, recorder ports.AuditRecorder, breakGlass ports.BreakGlassService, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		resolver:   resolver,
		limiter:    limiter,
		cache:      cache,
		recorder:   recorder,
		breakGlass: breakGlass,
		log:        log,
		now:        time.Now,
	}
}

// WithClock overrides the time source. Tests only.
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

// Wrap binds a business handler to its endpoint policy. Misconfiguration is
// a startup error: Wrap panics rather than registering a route whose checks
// would silently not run.
func (p *Pipeline) Wrap(method string, cfg Config, h echo.HandlerFunc) echo.HandlerFunc {
	if err := cfg.validate(method); err != nil {
		panic(err)
	}

	return func(c echo.Context) error {
		c.Set(startKey, p.now().UTC())
		ctx := c.Request().Context()

		// Stage 1-3: authentication, MFA, session freshness. Freshness and
		// expiry are enforced inside the resolver so no caller can skip
		// them; MFA has no role carve-out of any kind.
		var principal *domain.Principal
		if cfg.RequireAuth {
			pr, err := p.resolver.Resolve(ctx, extractCredential(c))
			if err != nil {
				metrics.AuthResolutionsTotal.WithLabelValues(authResult(err)).Inc()
				return p.fail(c, cfg, nil, "auth", err)
			}
			metrics.AuthResolutionsTotal.WithLabelValues("ok").Inc()
			principal = pr
			c.Set(principalKey, *pr)

			if cfg.RequireMFA && !principal.MFAVerified {
				return p.fail(c, cfg, principal, "mfa", domain.ErrMFARequired)
			}
		}

		// Stage 4: authorization.
		if cfg.Permission != nil || len(cfg.Roles) > 0 {
			if !p.authorize(c, cfg, principal) {
				return p.fail(c, cfg, principal, "authorization", domain.ErrForbidden)
			}
		}

		// Stage 5: rate limiting, per-identity first (stricter), then
		// per-origin (broader). Identity-only limits are defeatable by
		// creating many identities. The scopes count in separate key
		// namespaces so an anonymous request, whose identity key degrades
		// to the IP, never burns two slots of one counter.
		if cfg.RateLimit != nil {
			if err := p.checkLimit(c, cfg, *cfg.RateLimit, "identity", identityKey(c, principal), true); err != nil {
				return p.fail(c, cfg, principal, "rate_limit", err)
			}
		}
		if cfg.IPRateLimit != nil {
			if err := p.checkLimit(c, cfg, *cfg.IPRateLimit, "ip", "origin:"+c.RealIP(), cfg.RateLimit == nil); err != nil {
				return p.fail(c, cfg, principal, "rate_limit", err)
			}
		}

		// Stage 6: input validation. Runs only after authorization so
		// unauthorized requests never reach binding or schema checks.
		if cfg.NewInput != nil {
			input := cfg.NewInput()
			if err := c.Bind(input); err != nil {
				verr := domain.NewValidationError(domain.FieldError{Field: "body", Message: "malformed request payload"})
				return p.fail(c, cfg, principal, "validation", verr)
			}
			SanitizeStruct(input)
			if err := c.Validate(input); err != nil {
				return p.fail(c, cfg, principal, "validation", err)
			}
			c.Set(inputKey, input)
		}

		// Stage 7: cache consult (GET only), then the business handler.
		var cacheKey string
		if cfg.Cache != nil {
			cacheKey = p.cacheKey(c, cfg, principal)
			if raw, hit, err := p.cache.Get(ctx, cacheKey); err == nil && hit {
				metrics.CacheRequestsTotal.WithLabelValues("hit").Inc()
				c.Response().Header().Set("X-Cache", "HIT")
				p.auditSuccess(c, cfg, principal)
				return c.JSON(http.StatusOK, Envelope{Success: true, Data: raw, Meta: metaFor(c)})
			}
			metrics.CacheRequestsTotal.WithLabelValues("miss").Inc()
		}

		if err := invoke(h, c); err != nil {
			return p.fail(c, cfg, principal, "handler", err)
		}

		if cfg.Cache != nil {
			if raw, ok := c.Get(dataKey).([]byte); ok {
				if err := p.cache.Set(ctx, cacheKey, raw, cfg.Cache.TTL); err != nil {
					p.log.Warn().Err(err).Str("endpoint", cfg.Name).Msg("response cache write failed")
				}
			}
		}

		// Stage 8: success audit, exactly once.
		p.auditSuccess(c, cfg, principal)
		return nil
	}
}

// authorize evaluates permission (preferred) or role membership, with the
// break-glass escape hatch as the only sanctioned bypass.
func (p *Pipeline) authorize(c echo.Context, cfg Config, principal *domain.Principal) bool {
	if principal == nil {
		return false
	}
	allowed := false
	if cfg.Permission != nil {
		allowed = principal.HasPermission(*cfg.Permission)
	} else {
		allowed = domain.SatisfiesRoles(principal.Role, cfg.Roles)
	}
	if allowed {
		return true
	}

	if cfg.AllowBreakGlass {
		token := c.Request().Header.Get(breakGlassHeader)
		if token != "" {
			_, err := p.breakGlass.Consume(c.Request().Context(), *principal, token, cfg.Name, c.Path())
			if err == nil {
				metrics.BreakGlassEventsTotal.WithLabelValues("consumed").Inc()
				return true
			}
			p.log.Warn().Err(err).Str("user_id", principal.UserID).Msg("break-glass consume rejected")
		}
	}
	return false
}

// checkLimit runs one limiter scope and maintains the rate-limit response
// headers. setHeaders is true for the scope whose numbers the client sees.
func (p *Pipeline) checkLimit(c echo.Context, cfg Config, policy RateLimitPolicy, scope, key string, setHeaders bool) error {
	decision, err := p.limiter.Allow(c.Request().Context(), cfg.Name+":"+key, policy.Max, policy.Window)
	if err != nil {
		if policy.FailOpen {
			p.log.Warn().Err(err).Str("endpoint", cfg.Name).Str("scope", scope).Msg("rate limit store unreachable, failing open")
			return nil
		}
		return fmt.Errorf("rate limit check: %w", err)
	}

	if setHeaders {
		h := c.Response().Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
	}

	if !decision.Allowed {
		metrics.RateLimitDecisionsTotal.WithLabelValues(scope, "limited").Inc()
		return &domain.RateLimitError{Limit: decision.Limit, ResetAt: decision.ResetAt}
	}
	metrics.RateLimitDecisionsTotal.WithLabelValues(scope, "allowed").Inc()
	return nil
}

// fail is the single exit path for stage failures. It records exactly one
// failure audit entry for security-sensitive policies, then hands the
// taxonomy error to the central error handler for wire mapping.
func (p *Pipeline) fail(c echo.Context, cfg Config, principal *domain.Principal, stage string, err error) error {
	reason := reasonFor(err)
	metrics.PipelineFailuresTotal.WithLabelValues(stage, reason).Inc()

	if cfg.Audit != nil {
		entry := domain.AuditEntry{
			ActorID:  actorID(c, principal),
			Action:   cfg.Audit.Action,
			Resource: cfg.Audit.Resource,
			Severity: failureSeverity(cfg.Audit.Severity),
			Details: map[string]any{
				"outcome": "failure",
				"reason":  reason,
				"stage":   stage,
				"method":  c.Request().Method,
				"path":    c.Path(),
			},
		}
		p.record(cfg, entry)
		metrics.AuditEntriesTotal.WithLabelValues(string(entry.Severity), "failure").Inc()
	}

	if stage == "handler" && !isTaxonomy(err) {
		p.log.Error().Err(err).Str("endpoint", cfg.Name).Str("path", c.Path()).Msg("handler failed")
	}
	return err
}

func (p *Pipeline) auditSuccess(c echo.Context, cfg Config, principal *domain.Principal) {
	if cfg.Audit == nil {
		return
	}
	entry := domain.AuditEntry{
		ActorID:  actorID(c, principal),
		Action:   cfg.Audit.Action,
		Resource: cfg.Audit.Resource,
		Severity: cfg.Audit.Severity,
		Details: map[string]any{
			"outcome": "success",
			"method":  c.Request().Method,
			"path":    c.Path(),
		},
	}
	p.record(cfg, entry)
	metrics.AuditEntriesTotal.WithLabelValues(string(entry.Severity), "success").Inc()
}

// record writes the entry with its own short deadline, detached from the
// request context, so audit persistence problems never cascade into the
// request outcome and a cancelled request still gets its entry.
func (p *Pipeline) record(cfg Config, entry domain.AuditEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), auditDeadline)
	defer cancel()

	var err error
	if cfg.Audit.Blocking {
		err = p.recorder.RecordSync(ctx, entry)
	} else {
		err = p.recorder.Record(ctx, entry)
	}
	if err != nil {
		p.log.Error().Err(err).Str("action", entry.Action).Msg("audit record failed")
	}
}

// invoke runs the business handler, catching panics at the orchestrator
// boundary so they surface as a generic internal error.
func invoke(h echo.HandlerFunc, c echo.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(c)
}

func extractCredential(c echo.Context) ports.Credential {
	if key := c.Request().Header.Get("X-API-Key"); key != "" {
		return ports.Credential{Kind: ports.CredentialAPIKey, Token: key}
	}
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	const prefix = "Bearer "
	if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
		return ports.Credential{Kind: ports.CredentialBearer, Token: auth[len(prefix):]}
	}
	return ports.Credential{}
}

func identityKey(c echo.Context, principal *domain.Principal) string {
	if principal != nil {
		return "id:" + principal.UserID
	}
	return "ip:" + c.RealIP()
}

func actorID(c echo.Context, principal *domain.Principal) string {
	if principal != nil {
		return principal.UserID
	}
	return "anonymous:" + c.RealIP()
}

// cacheKey derives a deterministic key from the endpoint identity, the
// request parameters and, unless the policy marks the response shared,
// the principal. Credentials never feed into the key.
func (p *Pipeline) cacheKey(c echo.Context, cfg Config, principal *domain.Principal) string {
	key := cfg.Name + "|" + c.Request().URL.Path
	if q := c.Request().URL.RawQuery; q != "" {
		key += "?" + q
	}
	if !cfg.Cache.Shared && principal != nil {
		key += "|u:" + principal.UserID
	}
	return key
}

// failureSeverity floors failure entries at warning: a denied privileged
// operation is never mere info.
func failureSeverity(s domain.Severity) domain.Severity {
	if s == domain.SeverityInfo {
		return domain.SeverityWarning
	}
	return s
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrMFARequired):
		return domain.ReasonMFANotVerified
	case errors.Is(err, domain.ErrSessionExpired):
		return domain.ReasonSessionExpired
	case errors.Is(err, domain.ErrForbidden):
		return domain.ReasonInsufficientPermission
	case errors.Is(err, domain.ErrUnauthenticated):
		return domain.ReasonUnauthenticated
	case errors.Is(err, domain.ErrRateLimited):
		return domain.ReasonRateLimited
	case errors.Is(err, domain.ErrValidation):
		return domain.ReasonValidationFailed
	default:
		return domain.ReasonHandlerError
	}
}

func authResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrSessionExpired):
		return "session_expired"
	case errors.Is(err, domain.ErrUnauthenticated):
		return "unauthenticated"
	default:
		return "error"
	}
}

func isTaxonomy(err error) bool {
	for _, sentinel := range []error{
		domain.ErrUnauthenticated, domain.ErrForbidden, domain.ErrMFARequired,
		domain.ErrSessionExpired, domain.ErrRateLimited, domain.ErrValidation,
		domain.ErrNotFound, domain.ErrConflict,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
