package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initLogMetrics() {
	r.LogAppendedBytesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "packdb_log_appended_bytes_total",
			Help: "Total bytes appended to the data log",
		},
	)

	r.LogSizeBytes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "packdb_log_size_bytes",
			Help: "Logical end-of-log position in bytes",
		},
	)

	r.LogFlushDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "packdb_log_flush_duration_seconds",
			Help:    "Flush and sync duration per file in seconds",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
		[]string{"file"},
	)

	r.LogPagesFlushedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "packdb_log_pages_flushed_total",
			Help: "Total pages flushed to stable storage per file",
		},
		[]string{"file"},
	)

	r.CompressionInputBytes = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "packdb_compression_input_bytes_total",
			Help: "Raw value bytes before compression",
		},
	)

	r.CompressionOutputBytes = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "packdb_compression_output_bytes_total",
			Help: "Stored value bytes after compression",
		},
	)
}
