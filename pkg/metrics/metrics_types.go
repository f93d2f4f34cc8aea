package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the storage engine
type Registry struct {
	// Store Metrics
	StorePutsTotal         prometheus.Counter
	StoreGetsTotal         *prometheus.CounterVec
	StoreBatchesTotal      prometheus.Counter
	StoreBatchDuration     prometheus.Histogram
	StoreOperationDuration *prometheus.HistogramVec
	StoreRecordsTotal      prometheus.Gauge

	// Data Log Metrics
	LogAppendedBytesTotal  prometheus.Counter
	LogSizeBytes           prometheus.Gauge
	LogFlushDuration       *prometheus.HistogramVec
	LogPagesFlushedTotal   *prometheus.CounterVec
	CompressionInputBytes  prometheus.Counter
	CompressionOutputBytes prometheus.Counter

	// Hash Index Metrics
	IndexLinksTotal  prometheus.Counter
	IndexChainSteps  prometheus.Histogram
	IndexBucketsUsed prometheus.Gauge

	// Paged File Metrics
	PageCacheHitsTotal   prometheus.Counter
	PageCacheMissesTotal prometheus.Counter
	PageReadsTotal       prometheus.Counter
	PageWritesTotal      prometheus.Counter
	PagesStaged          prometheus.Gauge

	// System Metrics
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge
	MemorySysBytes   prometheus.Gauge

	registry *prometheus.Registry
	mu       sync.RWMutex
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	// Initialize all metrics
	r.initStoreMetrics()
	r.initLogMetrics()
	r.initIndexMetrics()
	r.initPagefileMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
