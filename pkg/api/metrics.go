package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Metrics holds all Prometheus metrics for the API
type Metrics struct {
	registry *prometheus.Registry

	// HTTP request metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight *prometheus.GaugeVec

	// Decode metrics
	recordsDecodedTotal *prometheus.CounterVec
	decodeErrorsTotal   *prometheus.CounterVec
	bytesDecodedTotal   prometheus.Counter
	skippedBytesTotal   prometheus.Counter
	recordsFiltered     prometheus.Counter

	// Archive metrics
	archiveOperationsTotal *prometheus.CounterVec
	archiveRecords         prometheus.Gauge

	// API key authentication metrics
	authRequestsTotal *prometheus.CounterVec

	// Health check metrics
	healthChecksTotal *prometheus.CounterVec
}

// NewMetrics creates all Prometheus metrics on a registry of their own, so
// several servers can live in one process.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,

		// HTTP request metrics
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dltview_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dltview_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		httpRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dltview_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"method", "endpoint"},
		),

		recordsDecodedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dltview_records_decoded_total",
				Help: "Total number of DLT records decoded",
			},
			[]string{"content_type"},
		),

		decodeErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dltview_decode_errors_total",
				Help: "Total number of records or payloads that failed to decode",
			},
			[]string{"kind"},
		),

		bytesDecodedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "dltview_decoded_bytes_total",
				Help: "Total number of record bytes read from uploads",
			},
		),

		skippedBytesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "dltview_skipped_bytes_total",
				Help: "Total number of bytes skipped while resynchronizing uploads",
			},
		),

		recordsFiltered: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "dltview_records_filtered_total",
				Help: "Total number of decoded records dropped by request filters",
			},
		),

		archiveOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dltview_archive_operations_total",
				Help: "Total number of archive operations",
			},
			[]string{"operation", "status"},
		),

		archiveRecords: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "dltview_archive_records",
				Help: "Number of records in the archive at the last health check",
			},
		),

		// Authentication metrics
		authRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dltview_auth_requests_total",
				Help: "Total number of authentication requests",
			},
			[]string{"status"},
		),

		// Health check metrics
		healthChecksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dltview_health_checks_total",
				Help: "Total number of health checks",
			},
			[]string{"status"},
		),
	}

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	statusCodeStr := strconv.Itoa(statusCode)

	m.httpRequestsTotal.WithLabelValues(method, endpoint, statusCodeStr).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordDecoded counts one decoded record
func (m *Metrics) RecordDecoded(contentType string) {
	m.recordsDecodedTotal.WithLabelValues(contentType).Inc()
}

// RecordDecodeError counts one decode failure by kind
func (m *Metrics) RecordDecodeError(kind string) {
	m.decodeErrorsTotal.WithLabelValues(kind).Inc()
}

// RecordStreamBytes adds the byte counters of one decoded upload
func (m *Metrics) RecordStreamBytes(decoded, skipped int64) {
	m.bytesDecodedTotal.Add(float64(decoded))
	m.skippedBytesTotal.Add(float64(skipped))
}

// RecordFiltered counts records a filter dropped from one response
func (m *Metrics) RecordFiltered(n int64) {
	m.recordsFiltered.Add(float64(n))
}

func statusLabel(success bool) string {
	if success {
		return statusSuccess
	}
	return statusError
}

// RecordArchiveOperation records an archive operation
func (m *Metrics) RecordArchiveOperation(operation string, success bool) {
	m.archiveOperationsTotal.WithLabelValues(operation, statusLabel(success)).Inc()
}

// UpdateArchiveStats updates archive statistics
func (m *Metrics) UpdateArchiveStats(records int) {
	m.archiveRecords.Set(float64(records))
}

// RecordAuthRequest records an authentication request
func (m *Metrics) RecordAuthRequest(success bool) {
	m.authRequestsTotal.WithLabelValues(statusLabel(success)).Inc()
}

// RecordHealthCheck records a health check
func (m *Metrics) RecordHealthCheck(success bool) {
	m.healthChecksTotal.WithLabelValues(statusLabel(success)).Inc()
}

// InstrumentHandler instruments an HTTP handler with metrics
func (m *Metrics) InstrumentHandler(method, endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		inFlight := m.httpRequestsInFlight.WithLabelValues(method, endpoint)
		inFlight.Inc()
		defer inFlight.Dec()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler(rw, r)
		m.RecordHTTPRequest(method, endpoint, rw.statusCode, time.Since(start))
	}
}

// InstrumentAuthMiddleware instruments the authentication middleware
func (m *Metrics) InstrumentAuthMiddleware(next func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		auth := next(h)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Check if API key is present
			hasAPIKey := r.Header.Get("X-API-Key") != ""

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			auth.ServeHTTP(rw, r)

			// Record auth metrics based on response status
			if hasAPIKey {
				m.RecordAuthRequest(rw.statusCode != http.StatusUnauthorized)
			}
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
