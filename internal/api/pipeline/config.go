package pipeline

import (
	"fmt"
	"net/http"
	"time"

	"github.com/nimbusworks/platform-api/internal/core/domain"
)

// RateLimitPolicy is a fixed-window budget. FailOpen decides what happens
// when the counting store is unreachable: read-type endpoints that are also
// behind auth may fail open, write-type endpoints fail closed.
type RateLimitPolicy struct {
	Max      int
	Window   time.Duration
	FailOpen bool
}

// Named presets used by most endpoints. Ad-hoc policies are allowed but
// presets keep budgets consistent across call sites.
var (
	LimitAuth     = RateLimitPolicy{Max: 5, Window: 5 * time.Minute}
	LimitMutation = RateLimitPolicy{Max: 30, Window: time.Minute}
	LimitRead     = RateLimitPolicy{Max: 120, Window: time.Minute, FailOpen: true}
	LimitAdmin    = RateLimitPolicy{Max: 10, Window: time.Minute}
)

// CachePolicy enables response caching for a side-effect-free endpoint.
// Unless Shared is set, cache keys include the principal's user ID so one
// caller can never be served another caller's response.
type CachePolicy struct {
	TTL    time.Duration
	Shared bool
}

// AuditPolicy makes an endpoint security-sensitive: exactly one audit entry
// is emitted per outcome. Blocking forces the entry to be durably written
// before the response is finalized.
type AuditPolicy struct {
	Action   string
	Resource string
	Severity domain.Severity
	Blocking bool
}

// Config is the declarative per-endpoint policy. It is resolved once at
// route registration and read-only afterwards; options left unset are
// no-ops, and set options always execute in the same fixed stage order.
type Config struct {
	// Name identifies the endpoint for cache keys and logs.
	Name string

	RequireAuth bool
	RequireMFA  bool

	// Authorization: at most one of Permission and Roles may be set; validate
	// rejects configs that set both. Checking by permission rather than
	// role-name literals is preferred.
	Permission *domain.Permission
	Roles      []domain.Role

	// RateLimit applies per identity (user ID, falling back to IP for
	// unauthenticated endpoints). IPRateLimit applies per origin IP
	// regardless of identity, since identity-only limits are defeatable by
	// creating many identities.
	RateLimit   *RateLimitPolicy
	IPRateLimit *RateLimitPolicy

	// NewInput allocates the request payload struct for the validation
	// stage. The bound, sanitized and validated value is available to the
	// handler via Input.
	NewInput func() any

	Cache *CachePolicy
	Audit *AuditPolicy

	// AllowBreakGlass lets a valid X-Break-Glass token bypass the
	// authorization stage. Consumption is single-use and audited critically
	// before the handler runs; there is no other bypass path.
	AllowBreakGlass bool
}

// validate rejects configurations that would silently weaken enforcement.
// Called at route registration so misconfiguration fails at startup, not
// per-request.
func (c Config) validate(method string) error {
	if c.Name == "" {
		return fmt.Errorf("pipeline config: Name is required")
	}
	for _, r := range c.Roles {
		if !r.IsValid() {
			return fmt.Errorf("pipeline config %q: unknown role %q", c.Name, r)
		}
	}
	if (c.RequireMFA || c.Permission != nil || len(c.Roles) > 0) && !c.RequireAuth {
		return fmt.Errorf("pipeline config %q: authorization options require RequireAuth", c.Name)
	}
	if c.Permission != nil && len(c.Roles) > 0 {
		return fmt.Errorf("pipeline config %q: Permission and Roles are mutually exclusive", c.Name)
	}
	if c.Cache != nil && method != http.MethodGet {
		return fmt.Errorf("pipeline config %q: cache is only valid on GET endpoints", c.Name)
	}
	if c.Audit != nil {
		if c.Audit.Action == "" || c.Audit.Resource == "" {
			return fmt.Errorf("pipeline config %q: audit policy requires action and resource", c.Name)
		}
		switch c.Audit.Severity {
		case domain.SeverityInfo, domain.SeverityWarning, domain.SeverityCritical:
		default:
			return fmt.Errorf("pipeline config %q: invalid audit severity %q", c.Name, c.Audit.Severity)
		}
	}
	return nil
}
