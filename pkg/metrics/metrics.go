package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure|locked).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campushub_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// RoleChecks counts role gate evaluations and their outcome (allowed|denied).
	RoleChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campushub_role_checks_total",
			Help: "Total number of role checks",
		},
		[]string{"role", "result"},
	)

	// ActiveSessions tracks active sessions (not expired/revoked).
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "campushub_active_sessions",
			Help: "Number of active sessions",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "campushub_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// NotificationFetches counts inbox fetches by result (ok|degraded).
	NotificationFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campushub_notification_fetches_total",
			Help: "Total number of notification inbox fetches",
		},
		[]string{"result"},
	)

	// FeedCache counts composed feed cache lookups (hit|miss|error).
	FeedCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campushub_feed_cache_total",
			Help: "Feed cache lookups by outcome",
		},
		[]string{"outcome"},
	)

	// Uploads counts stored objects by outcome (stored|rejected|failed).
	Uploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campushub_uploads_total",
			Help: "Object storage uploads by outcome",
		},
		[]string{"outcome"},
	)

	// RealtimeConnections tracks open websocket connections.
	RealtimeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "campushub_realtime_connections",
			Help: "Number of open realtime connections",
		},
	)

	// MaintenanceRuns counts background cleanup runs by job and result (success|failure).
	MaintenanceRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campushub_maintenance_runs_total",
			Help: "Background maintenance job runs",
		},
		[]string{"job", "result"},
	)
)
