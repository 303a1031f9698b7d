package prometheus

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups every collector the CRM exports
type Metrics struct {
	// HTTP request metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Database operation metrics
	DBOperationDuration *prometheus.HistogramVec

	// Dispatcher metrics
	ActionsTotal *prometheus.CounterVec

	// Business metrics
	LeadGrabsTotal         *prometheus.CounterVec
	DuplicateWarningsTotal *prometheus.CounterVec
	LoginsTotal            *prometheus.CounterVec
	ImportsTotal           *prometheus.CounterVec
}

// New registers the CRM metrics on reg, prefixing every name
func New(prefix string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		DBOperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_db_operation_duration_seconds",
				Help:    "Duration of database operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		ActionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_actions_total",
				Help: "Total number of dispatched API actions by outcome",
			},
			[]string{"action", "status"},
		),
		LeadGrabsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_lead_grabs_total",
				Help: "Lead grab attempts by result (won, lost)",
			},
			[]string{"result"},
		),
		DuplicateWarningsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_duplicate_warnings_total",
				Help: "Duplicate contact warnings by matched field",
			},
			[]string{"match"},
		),
		LoginsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_logins_total",
				Help: "Login attempts by result",
			},
			[]string{"result"},
		),
		ImportsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_imports_total",
				Help: "Data imports by result",
			},
			[]string{"result"},
		),
	}
}

// TrackDBOperation returns a function that records the duration of a database operation.
// Use as: defer m.TrackDBOperation("query")(time.Now())
func (m *Metrics) TrackDBOperation(operation string) func(time.Time) {
	return func(start time.Time) {
		m.DBOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

// RecordAction counts a dispatched action with its final HTTP status
func (m *Metrics) RecordAction(action string, status int) {
	m.ActionsTotal.WithLabelValues(action, strconv.Itoa(status)).Inc()
}

// RecordLeadGrab counts a grab attempt
func (m *Metrics) RecordLeadGrab(won bool) {
	result := "lost"
	if won {
		result = "won"
	}
	m.LeadGrabsTotal.WithLabelValues(result).Inc()
}

// RecordDuplicateWarning counts a duplicate-contact warning
func (m *Metrics) RecordDuplicateWarning(match string) {
	m.DuplicateWarningsTotal.WithLabelValues(match).Inc()
}

// RecordLogin counts a login attempt
func (m *Metrics) RecordLogin(result string) {
	m.LoginsTotal.WithLabelValues(result).Inc()
}

// RecordImport counts an import run
func (m *Metrics) RecordImport(ok bool) {
	result := "failed"
	if ok {
		result = "ok"
	}
	m.ImportsTotal.WithLabelValues(result).Inc()
}

// Middleware records request count and duration
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			if err := next(c); err != nil {
				c.Error(err)
			}

			method := c.Request().Method
			path := c.Path()
			status := strconv.Itoa(c.Response().Status)

			m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
			m.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())

			return nil
		}
	}
}
