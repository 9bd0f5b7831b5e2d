package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	// Login counters
	LoginCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gestion_login_total",
			Help: "Total number of login attempts",
		},
	)

	RegisterCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gestion_register_total",
			Help: "Total number of user registrations",
		},
	)

	// Authorization denials by action
	AuthzDenialCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gestion_authz_denials_total",
			Help: "Total number of authorization denials",
		},
		[]string{"action"},
	)

	// Role and permission mutations
	RoleOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gestion_role_operations_total",
			Help: "Total number of role operations",
		},
		[]string{"operation"}, // "create", "update", "delete", "grant", "revoke"
	)

	// Numbering allocations and their outcomes
	NumberingOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gestion_numbering_operations_total",
			Help: "Total number of numbering operations by outcome",
		},
		[]string{"outcome"}, // "allocated", "exhausted", "expired", "config_error", "default_switch"
	)

	// Verification digit computations
	ChecksumCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gestion_verification_digits_total",
			Help: "Total number of verification digits computed",
		},
	)

	// Audit events by kind
	AuditEventCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gestion_audit_events_total",
			Help: "Total number of audit events recorded",
		},
		[]string{"kind"},
	)

	// HTTP request counter by endpoint and status
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gestion_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)

	// Error counters
	ErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gestion_errors_total",
			Help: "Total number of request errors by type",
		},
		[]string{"type"}, // "invalid_request", "db_error", "conflict", ...
	)
)

// Histogram metrics
var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gestion_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gestion_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // "query", "insert", "update", "delete"
	)
)

// Gauge metrics
var (
	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gestion_info",
			Help: "Information about the service",
		},
		[]string{"version"},
	)
)

func init() {
	prometheus.MustRegister(LoginCounter)
	prometheus.MustRegister(RegisterCounter)
	prometheus.MustRegister(AuthzDenialCounter)
	prometheus.MustRegister(RoleOperationCounter)
	prometheus.MustRegister(NumberingOperationCounter)
	prometheus.MustRegister(ChecksumCounter)
	prometheus.MustRegister(AuditEventCounter)
	prometheus.MustRegister(HTTPRequestCounter)
	prometheus.MustRegister(ErrorCounter)

	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(DBOperationDuration)

	prometheus.MustRegister(InfoGauge)

	InfoGauge.With(prometheus.Labels{"version": "1.0.0"}).Set(1)
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// TrackDBOperation measures database operation durations
func TrackDBOperation(operation string) func(time.Time) {
	startTime := time.Now()
	return func(endTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DBOperationDuration.With(prometheus.Labels{
			"operation": operation,
		}).Observe(duration)
	}
}

// RecordAuthzDenial records an authorization denial for an action
func RecordAuthzDenial(action string) {
	AuthzDenialCounter.With(prometheus.Labels{"action": action}).Inc()
}

// RecordRoleOperation records a role or permission-grant mutation
func RecordRoleOperation(operation string) {
	RoleOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordNumberingOutcome records the outcome of a numbering operation
func RecordNumberingOutcome(outcome string) {
	NumberingOperationCounter.With(prometheus.Labels{"outcome": outcome}).Inc()
}

// RecordAuditEvent records an audit event by kind
func RecordAuditEvent(kind string) {
	AuditEventCounter.With(prometheus.Labels{"kind": kind}).Inc()
}

// RecordError records a request error by type
func RecordError(errorType string) {
	ErrorCounter.With(prometheus.Labels{"type": errorType}).Inc()
}

// MetricsMiddleware creates a middleware function that captures metrics for each request
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(c.Response().Status)
			endpoint := c.Path()
			method := c.Request().Method

			RequestDuration.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Observe(duration)

			HTTPRequestCounter.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Inc()

			return err
		}
	}
}
