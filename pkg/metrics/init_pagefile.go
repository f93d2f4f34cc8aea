package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initPagefileMetrics() {
	r.PageCacheHitsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "packdb_pagefile_cache_hits_total",
			Help: "Page reads served from the clean-page cache",
		},
	)

	r.PageCacheMissesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "packdb_pagefile_cache_misses_total",
			Help: "Page reads that went to the file",
		},
	)

	r.PageReadsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "packdb_pagefile_reads_total",
			Help: "Total page reads",
		},
	)

	r.PageWritesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "packdb_pagefile_writes_total",
			Help: "Total page writes",
		},
	)

	r.PagesStaged = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "packdb_pagefile_staged_pages",
			Help: "Dirty pages held in memory awaiting the next flush",
		},
	)
}
