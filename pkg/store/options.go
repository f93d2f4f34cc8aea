package store

import (
	"github.com/packdb/packdb/pkg/hashindex"
	"github.com/packdb/packdb/pkg/logging"
	"github.com/packdb/packdb/pkg/metrics"
	"github.com/packdb/packdb/pkg/pagefile"
	"github.com/packdb/packdb/pkg/validation"
)

// Compression modes accepted by Options.
const (
	CompressionNone   = "none"
	CompressionSnappy = "snappy"
)

// Options configure a store handle. Zero values select defaults.
type Options struct {
	// BucketCount fixes the index table size when the store is
	// created; it cannot change afterwards. Ignored when opening an
	// existing store.
	BucketCount uint64

	// CachePages bounds the clean-page cache of each backing file.
	CachePages int `validate:"gte=0"`

	// Compression selects how values are encoded in new stores.
	Compression string `validate:"omitempty,oneof=none snappy"`

	Logger  logging.Logger    `validate:"-"`
	Metrics *metrics.Registry `validate:"-"`
}

// DefaultOptions returns the options New starts from.
func DefaultOptions() Options {
	return Options{
		BucketCount: hashindex.DefaultBucketCount,
		CachePages:  pagefile.DefaultCachePages,
		Compression: CompressionNone,
	}
}

func (o Options) validate() error {
	return validation.Struct(o)
}

// Option adjusts one field of Options.
type Option func(*Options)

// WithBucketCount sets the index bucket count for new stores.
func WithBucketCount(n uint64) Option {
	return func(o *Options) { o.BucketCount = n }
}

// WithCachePages bounds each backing file's clean-page cache.
func WithCachePages(n int) Option {
	return func(o *Options) { o.CachePages = n }
}

// WithCompression selects value encoding for new stores.
func WithCompression(mode string) Option {
	return func(o *Options) { o.Compression = mode }
}

// WithLogger routes the store's log output.
func WithLogger(l logging.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithMetrics directs the store's metrics to a specific registry.
func WithMetrics(m *metrics.Registry) Option {
	return func(o *Options) { o.Metrics = m }
}
