package pools

import (
	"sync"

	"github.com/packdb/packdb/pkg/addr"
)

// PagePool recycles page-sized buffers, the working unit of file I/O.
// Unlike BytePool it hands out full-length slices, since a page is
// always read or written whole.
type PagePool struct {
	pool sync.Pool
}

// NewPagePool creates a pool of addr.PageSize buffers.
func NewPagePool() *PagePool {
	return &PagePool{
		pool: sync.Pool{
			New: func() any {
				b := make([]byte, addr.PageSize)
				return &b
			},
		},
	}
}

// Get returns a page-sized buffer. Contents are unspecified; callers
// that need a blank page use GetZeroed.
func (p *PagePool) Get() []byte {
	bp, ok := p.pool.Get().(*[]byte)
	if !ok || len(*bp) != addr.PageSize {
		return make([]byte, addr.PageSize)
	}
	return *bp
}

// GetZeroed returns a page-sized buffer with every byte cleared.
func (p *PagePool) GetZeroed() []byte {
	b := p.Get()
	clear(b)
	return b
}

// Put returns a page buffer to the pool. Buffers of any other size are
// dropped.
func (p *PagePool) Put(b []byte) {
	if len(b) != addr.PageSize {
		return
	}
	p.pool.Put(&b)
}

// Default global page pool
var defaultPagePool = NewPagePool()

// GetPage returns a page-sized buffer from the default pool.
func GetPage() []byte {
	return defaultPagePool.Get()
}

// GetZeroedPage returns a cleared page-sized buffer from the default pool.
func GetZeroedPage() []byte {
	return defaultPagePool.GetZeroed()
}

// PutPage returns a page buffer to the default pool.
func PutPage(b []byte) {
	defaultPagePool.Put(b)
}
