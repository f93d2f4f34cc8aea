package pools

import (
	"sync"
)

// Buffer size classes for efficient reuse
const (
	KeySize    = 64    // For record keys
	ValueSize  = 512   // For typical record values
	RecordSize = 4096  // For serialized key+value records up to a page
	SpanSize   = 16384 // For records spanning several pages
	MaxPool    = 65536 // Don't pool buffers larger than this
)

// BytePool provides size-class based pooling for byte slices.
// This reduces GC pressure by reusing buffers of appropriate sizes.
type BytePool struct {
	key    sync.Pool // <= 64 bytes
	value  sync.Pool // <= 512 bytes
	record sync.Pool // <= 4096 bytes
	span   sync.Pool // <= 16384 bytes
}

// NewBytePool creates a new byte pool with pre-allocated buffers.
func NewBytePool() *BytePool {
	return &BytePool{
		key: sync.Pool{
			New: func() any {
				b := make([]byte, 0, KeySize)
				return &b
			},
		},
		value: sync.Pool{
			New: func() any {
				b := make([]byte, 0, ValueSize)
				return &b
			},
		},
		record: sync.Pool{
			New: func() any {
				b := make([]byte, 0, RecordSize)
				return &b
			},
		},
		span: sync.Pool{
			New: func() any {
				b := make([]byte, 0, SpanSize)
				return &b
			},
		},
	}
}

// Get returns a byte slice with at least the requested capacity.
// The returned slice has length 0 and the specified capacity.
func (p *BytePool) Get(size int) []byte {
	var pool *sync.Pool
	switch {
	case size <= KeySize:
		pool = &p.key
	case size <= ValueSize:
		pool = &p.value
	case size <= RecordSize:
		pool = &p.record
	case size <= SpanSize:
		pool = &p.span
	default:
		// Too large to pool, allocate directly
		return make([]byte, 0, size)
	}

	bp, ok := pool.Get().(*[]byte)
	if !ok || cap(*bp) < size {
		// Pool returned wrong type or too small, allocate new
		return make([]byte, 0, size)
	}
	return (*bp)[:0]
}

// GetSized returns a byte slice with exactly the requested length.
func (p *BytePool) GetSized(size int) []byte {
	b := p.Get(size)
	return b[:size]
}

// Put returns a byte slice to the pool for reuse.
// Slices larger than MaxPool are not pooled.
func (p *BytePool) Put(b []byte) {
	c := cap(b)
	if c > MaxPool {
		return // Don't pool oversized buffers
	}

	// Reset slice to zero length
	b = b[:0]

	var pool *sync.Pool
	switch {
	case c <= KeySize:
		pool = &p.key
	case c <= ValueSize:
		pool = &p.value
	case c <= RecordSize:
		pool = &p.record
	case c <= SpanSize:
		pool = &p.span
	default:
		return
	}

	pool.Put(&b)
}

// Default global byte pool
var defaultBytePool = NewBytePool()

// GetBytes returns a byte slice from the default pool.
func GetBytes(size int) []byte {
	return defaultBytePool.Get(size)
}

// GetBytesSized returns a byte slice with exact length from the default pool.
func GetBytesSized(size int) []byte {
	return defaultBytePool.GetSized(size)
}

// PutBytes returns a byte slice to the default pool.
func PutBytes(b []byte) {
	defaultBytePool.Put(b)
}
