package metrics

import (
	"runtime"
	"time"
)

// RecordPut records a staged put.
func (r *Registry) RecordPut(duration time.Duration) {
	r.StorePutsTotal.Inc()
	r.StoreRecordsTotal.Inc()
	r.StoreOperationDuration.WithLabelValues("put").Observe(duration.Seconds())
}

// RecordGet records a lookup and whether it found the key.
func (r *Registry) RecordGet(hit bool, duration time.Duration) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.StoreGetsTotal.WithLabelValues(result).Inc()
	r.StoreOperationDuration.WithLabelValues("get").Observe(duration.Seconds())
}

// RecordBatch records a completed batch commit.
func (r *Registry) RecordBatch(duration time.Duration) {
	r.StoreBatchesTotal.Inc()
	r.StoreBatchDuration.Observe(duration.Seconds())
}

// RecordAppend records bytes appended to the data log and the new
// logical log size.
func (r *Registry) RecordAppend(n int, logSize uint64) {
	r.LogAppendedBytesTotal.Add(float64(n))
	r.LogSizeBytes.Set(float64(logSize))
}

// RecordFlush records a per-file flush of dirty pages.
func (r *Registry) RecordFlush(file string, pages int, duration time.Duration) {
	r.LogPagesFlushedTotal.WithLabelValues(file).Add(float64(pages))
	r.LogFlushDuration.WithLabelValues(file).Observe(duration.Seconds())
}

// RecordChainWalk records how many chain links a lookup followed.
func (r *Registry) RecordChainWalk(steps int) {
	r.IndexChainSteps.Observe(float64(steps))
}

// RecordCompression tracks raw versus stored value bytes.
func (r *Registry) RecordCompression(rawBytes, storedBytes int) {
	r.CompressionInputBytes.Add(float64(rawBytes))
	r.CompressionOutputBytes.Add(float64(storedBytes))
}

// UpdateSystemMetrics refreshes the process-level gauges.
func (r *Registry) UpdateSystemMetrics(uptime time.Duration) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	r.UptimeSeconds.Set(uptime.Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))
	r.MemoryAllocBytes.Set(float64(m.Alloc))
	r.MemorySysBytes.Set(float64(m.Sys))
}
