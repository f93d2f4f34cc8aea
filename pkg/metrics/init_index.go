package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initIndexMetrics() {
	r.IndexLinksTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "packdb_index_links_total",
			Help: "Total chain links appended to the hash index",
		},
	)

	r.IndexChainSteps = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "packdb_index_chain_steps",
			Help:    "Chain links walked per lookup",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128},
		},
	)

	r.IndexBucketsUsed = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "packdb_index_buckets_used",
			Help: "Buckets holding at least one chain head",
		},
	)
}
