package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Authentication and authorization
	AuthenticationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_authentication_total",
			Help: "Credential verification outcomes by result",
		},
		[]string{"result"},
	)

	AuthorizationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_authorization_total",
			Help: "Access policy decisions by role and decision",
		},
		[]string{"role", "decision"},
	)

	LoginAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_login_attempts_total",
			Help: "Login attempts by result",
		},
		[]string{"result"},
	)

	RateLimitExceeded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_rate_limit_exceeded_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"scope"},
	)

	// Audit pipeline
	AuditSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_audit_submitted_total",
			Help: "Audit records accepted by the recorder queue by action",
		},
		[]string{"action"},
	)

	AuditDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_audit_dropped_total",
			Help: "Audit records dropped before persistence by reason",
		},
		[]string{"reason"},
	)

	AuditWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_audit_writes_total",
			Help: "Audit store writes by store and status",
		},
		[]string{"store", "status"},
	)

	AuditWriteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_audit_write_duration_seconds",
			Help:    "Audit store write latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"store"},
	)

	AuditQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_audit_queue_depth",
			Help: "Number of audit records waiting to be persisted",
		},
	)

	// Build info
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "catalog_build_info",
			Help: "Build information about the catalog service",
		},
		[]string{"version", "go_version"},
	)
)
