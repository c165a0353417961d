package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the prometheus collectors exported by the service.
type Metrics struct {
	registry        *prometheus.Registry
	requestCount    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errorCount      *prometheus.CounterVec
	changesTotal    *prometheus.CounterVec
	feedClients     prometheus.Gauge
	uploadBytes     *prometheus.CounterVec
}

// NewMetrics registers collectors on a dedicated registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "live_chat",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "live_chat",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.5, 1, 2, 5},
		}, []string{"method", "path"}),
		errorCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "live_chat",
			Subsystem: "http",
			Name:      "errors_total",
			Help:      "Total number of failed requests by error code",
		}, []string{"method", "path", "code"}),
		changesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "live_chat",
			Subsystem: "feed",
			Name:      "changes_total",
			Help:      "Row changes published to the change feed",
		}, []string{"table", "op"}),
		feedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "live_chat",
			Subsystem: "feed",
			Name:      "clients",
			Help:      "Connected realtime clients",
		}),
		uploadBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "live_chat",
			Subsystem: "storage",
			Name:      "upload_bytes_total",
			Help:      "Total bytes uploaded to object storage",
		}, []string{"content_type"}),
	}
	m.registry.MustRegister(
		m.requestCount,
		m.requestDuration,
		m.errorCount,
		m.changesTotal,
		m.feedClients,
		m.uploadBytes,
	)
	return m
}

// Registry exposes the registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestCount.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errorCount.WithLabelValues(method, path, code).Inc()
}

// RecordChange counts a change published to the feed.
func (m *Metrics) RecordChange(table, op string) {
	if m == nil {
		return
	}
	m.changesTotal.WithLabelValues(table, op).Inc()
}

// FeedClientConnected adjusts the connected client gauge by delta.
func (m *Metrics) FeedClientConnected(delta int) {
	if m == nil {
		return
	}
	m.feedClients.Add(float64(delta))
}

// RecordUpload counts uploaded bytes.
func (m *Metrics) RecordUpload(contentType string, size int) {
	if m == nil {
		return
	}
	m.uploadBytes.WithLabelValues(contentType).Add(float64(size))
}
