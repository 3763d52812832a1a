// Package metrics registers the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentops_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agentops_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "route"},
	)

	// Ingestion metrics
	RunsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentops_runs_ingested_total",
			Help: "Runs stored by the ingestion pipeline",
		},
		[]string{"status"},
	)

	RunsDuplicate = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agentops_runs_duplicate_total",
			Help: "Run deliveries suppressed because the run id was already ingested",
		},
	)

	EventsIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agentops_events_ingested_total",
			Help: "Run events stored by the ingestion pipeline",
		},
	)

	IngestedCostUSD = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agentops_ingested_cost_usd_total",
			Help: "Sum of derived run cost in USD",
		},
	)

	// Credential metrics
	APIKeysIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agentops_api_keys_issued_total",
			Help: "API keys issued",
		},
	)

	APIKeysRevoked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agentops_api_keys_revoked_total",
			Help: "API keys revoked",
		},
	)

	// Password reset metrics
	PasswordResetsRequested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentops_password_resets_requested_total",
			Help: "Password reset requests",
		},
		[]string{"issued"}, // "true" or "false"
	)

	PasswordResetsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentops_password_resets_consumed_total",
			Help: "Password reset confirmations by outcome",
		},
		[]string{"outcome"}, // "ok", "invalid", "expired"
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentops_rate_limit_hits_total",
			Help: "Requests rejected by rate limiting",
		},
		[]string{"limiter"},
	)
)
