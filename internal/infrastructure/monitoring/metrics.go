package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Command metrics
	CommandsTotal *prometheus.CounterVec
	ReadsTotal    *prometheus.CounterVec
	BytesRead     prometheus.Counter
	BytesWritten  prometheus.Counter

	// Packager metrics
	PackagerRuns     *prometheus.CounterVec
	PackagerDuration *prometheus.HistogramVec

	// System metrics
	Uptime    prometheus.GaugeFunc
	startTime time.Time

	// Snapshot for the health endpoint
	snapshot Snapshot

	mu sync.RWMutex
}

// Snapshot holds running totals reported by the health endpoint
type Snapshot struct {
	TotalRequests int64   `json:"total_requests"`
	TotalErrors   int64   `json:"total_errors"`
	TotalDuration float64 `json:"total_duration_seconds"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// NewMetrics creates a metrics collector on its own registry, so several
// servers (or tests) in one process do not collide.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docfs_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "command", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docfs_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "command"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docfs_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "command"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docfs_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "command"},
		),

		CommandsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docfs_commands_total",
				Help: "Total number of dispatched commands by outcome",
			},
			[]string{"command", "outcome"},
		),
		ReadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docfs_reads_total",
				Help: "Total number of successful reads by location kind",
			},
			[]string{"kind"},
		),
		BytesRead: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "docfs_read_bytes_total",
				Help: "Bytes returned by read",
			},
		),
		BytesWritten: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "docfs_written_bytes_total",
				Help: "Bytes persisted by write",
			},
		),

		PackagerRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docfs_packager_runs_total",
				Help: "Total number of packager runs",
			},
			[]string{"packager", "status"},
		),
		PackagerDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docfs_packager_duration_seconds",
				Help:    "Packager run duration in seconds",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"packager"},
		),
	}

	m.Uptime = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "docfs_uptime_seconds",
			Help: "Server uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry returns the registry all metrics are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, command, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, command, status).Inc()
	m.RequestDuration.WithLabelValues(method, command).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, command).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, command).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.TotalDuration += duration.Seconds()
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordCommand records the outcome of a dispatched command
func (m *Metrics) RecordCommand(command, outcome string) {
	m.CommandsTotal.WithLabelValues(command, outcome).Inc()
}

// RecordRead records a successful read of n bytes
func (m *Metrics) RecordRead(kind string, n int) {
	m.ReadsTotal.WithLabelValues(kind).Inc()
	m.BytesRead.Add(float64(n))
}

// RecordWrite records a successful write of n bytes
func (m *Metrics) RecordWrite(n int) {
	m.BytesWritten.Add(float64(n))
}

// RecordPackagerRun records a finished packager run
func (m *Metrics) RecordPackagerRun(packager, status string, duration time.Duration) {
	m.PackagerRuns.WithLabelValues(packager, status).Inc()
	m.PackagerDuration.WithLabelValues(packager).Observe(duration.Seconds())
}

// Snapshot returns the current running totals
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.snapshot
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}
