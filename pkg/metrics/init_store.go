package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initStoreMetrics() {
	r.StorePutsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "packdb_store_puts_total",
			Help: "Total number of records staged by put",
		},
	)

	r.StoreGetsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "packdb_store_gets_total",
			Help: "Total number of get lookups",
		},
		[]string{"result"},
	)

	r.StoreBatchesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "packdb_store_batches_total",
			Help: "Total number of completed batch commits",
		},
	)

	r.StoreBatchDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "packdb_store_batch_duration_seconds",
			Help:    "Batch commit duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
	)

	r.StoreOperationDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "packdb_store_operation_duration_seconds",
			Help:    "Store operation duration in seconds",
			Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1.0},
		},
		[]string{"operation"},
	)

	r.StoreRecordsTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "packdb_store_records_total",
			Help: "Total number of records appended over the store's lifetime",
		},
	)
}
