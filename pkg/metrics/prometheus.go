// Package metrics provides Prometheus metrics for the Pulse collection
// service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the collection pipeline.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	// Ingestion metrics
	eventsReceived prometheus.Counter
	eventsAccepted prometheus.Counter
	eventsRejected *prometheus.CounterVec

	// Store metrics
	storeWriteLatency prometheus.Histogram
	storeErrors       prometheus.Counter

	// Site resolver metrics
	siteCacheHits   prometheus.Counter
	siteCacheMisses prometheus.Counter

	// Temp site housekeeping metrics
	tempEventsPruned prometheus.Counter
	tempSitesExpired prometheus.Counter
	sweepRuns        prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // singleton metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "pulse",
		subsystem:        "collect",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	factory := promauto.With(m.registry)

	m.eventsReceived = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_received_total",
		Help:      "Events that reached the collection endpoint.",
	})
	m.eventsAccepted = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_accepted_total",
		Help:      "Events durably stored and acknowledged.",
	})
	m.eventsRejected = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_rejected_total",
		Help:      "Events rejected, partitioned by rejection kind.",
	}, []string{"kind"})

	m.storeWriteLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_write_latency_ms",
		Help:      "Event store write latency in milliseconds.",
		Buckets:   m.histogramBuckets,
	})
	m.storeErrors = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_errors_total",
		Help:      "Event store operations that failed.",
	})

	m.siteCacheHits = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "site_cache_hits_total",
		Help:      "Site lookups served from the resolver cache.",
	})
	m.siteCacheMisses = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "site_cache_misses_total",
		Help:      "Site lookups that went to the store.",
	})

	m.tempEventsPruned = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "temp_events_pruned_total",
		Help:      "Temp-site events removed by retention pruning.",
	})
	m.tempSitesExpired = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "temp_sites_expired_total",
		Help:      "Temp sites removed by the expiry sweep.",
	})
	m.sweepRuns = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sweep_runs_total",
		Help:      "Completed expiry sweep runs.",
	})

	m.httpRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "HTTP requests by endpoint, method, and status.",
	}, []string{"endpoint", "method", "status"})
	m.httpRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request duration in milliseconds.",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status"})

	m.systemMemoryUsage = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_bytes",
		Help:      "Current heap allocation in bytes.",
	})
	m.systemGoroutineCount = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutines",
		Help:      "Current number of goroutines.",
	})
	m.systemGCPauseTime = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_ms",
		Help:      "Average GC pause time in milliseconds.",
		Buckets:   m.histogramBuckets,
	})
}

// Package-level helpers delegating to the global manager.

// RecordEventReceived counts an event arriving at the endpoint.
func RecordEventReceived() {
	globalManager.eventsReceived.Inc()
}

// RecordEventAccepted counts a durably stored event.
func RecordEventAccepted() {
	globalManager.eventsAccepted.Inc()
}

// RecordEventRejected counts a rejection by kind, e.g. "validation_error"
// or "domain_not_allowed".
func RecordEventRejected(kind string) {
	globalManager.eventsRejected.WithLabelValues(kind).Inc()
}

// RecordStoreWriteLatency observes one event store write.
func RecordStoreWriteLatency(latencyMs float64) {
	globalManager.storeWriteLatency.Observe(latencyMs)
}

// RecordStoreError counts a failed store operation.
func RecordStoreError() {
	globalManager.storeErrors.Inc()
}

// RecordSiteCacheHit counts a resolver cache hit.
func RecordSiteCacheHit() {
	globalManager.siteCacheHits.Inc()
}

// RecordSiteCacheMiss counts a resolver cache miss.
func RecordSiteCacheMiss() {
	globalManager.siteCacheMisses.Inc()
}

// AddTempEventsPruned counts events removed by retention pruning.
func AddTempEventsPruned(n int) {
	globalManager.tempEventsPruned.Add(float64(n))
}

// AddTempSitesExpired counts temp sites removed by the expiry sweep.
func AddTempSitesExpired(n int) {
	globalManager.tempSitesExpired.Add(float64(n))
}

// RecordSweepRun counts a completed expiry sweep.
func RecordSweepRun() {
	globalManager.sweepRuns.Inc()
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, status string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

// RecordHTTPRequestDuration observes an HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, status string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, status).Observe(durationMs)
}

// UpdateSystemMemoryUsage sets the current heap allocation gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the current goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime observes an average GC pause.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the registry backing the global manager, for
// serving /healthz.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
