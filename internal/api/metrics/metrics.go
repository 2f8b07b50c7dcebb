// Package metrics defines and registers all custom Prometheus metrics for
// the platform API. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default registry via promauto at package
// load; the /metrics endpoint and the echoprometheus request middleware are
// wired in the router.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "platform"

// ── Pipeline metrics ──────────────────────────────────────────────────────────

// PipelineFailuresTotal counts requests rejected by a pipeline stage.
// Labels:
//   - stage: the stage that failed ("auth", "mfa", "authorization", "rate_limit", "validation", "handler")
//   - reason: the server-side failure reason (e.g. "MFA_NOT_VERIFIED")
var PipelineFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pipeline_failures_total",
		Help:      "Total number of requests rejected by a pipeline stage.",
	},
	[]string{"stage", "reason"},
)

// AuthResolutionsTotal counts credential resolutions by outcome.
// Label:
//   - result: "ok", "unauthenticated", "session_expired", "error"
var AuthResolutionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_resolutions_total",
		Help:      "Total number of credential resolutions, labelled by outcome.",
	},
	[]string{"result"},
)

// ── Rate limiter metrics ──────────────────────────────────────────────────────

// RateLimitDecisionsTotal counts limiter decisions.
// Labels:
//   - scope: "identity" or "ip"
//   - result: "allowed" or "limited"
var RateLimitDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limit_decisions_total",
		Help:      "Total number of rate limit decisions, by scope and result.",
	},
	[]string{"scope", "result"},
)

// ── Cache metrics ─────────────────────────────────────────────────────────────

// CacheRequestsTotal counts response-cache lookups.
// Label:
//   - result: "hit" or "miss"
var CacheRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_requests_total",
		Help:      "Total number of response cache lookups, by result.",
	},
	[]string{"result"},
)

// ── Audit metrics ─────────────────────────────────────────────────────────────

// AuditEntriesTotal counts audit entries recorded.
// Labels:
//   - severity: "info", "warning", "critical"
//   - outcome: "success" or "failure" (the audited operation's outcome)
var AuditEntriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_entries_total",
		Help:      "Total number of audit entries recorded, by severity and operation outcome.",
	},
	[]string{"severity", "outcome"},
)

// BreakGlassEventsTotal counts break-glass lifecycle events.
// Label:
//   - event: "granted" or "consumed"
var BreakGlassEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "break_glass_events_total",
		Help:      "Total number of break-glass grants issued and consumed.",
	},
	[]string{"event"},
)
