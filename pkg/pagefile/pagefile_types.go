package pagefile

import (
	"errors"
	"os"

	"golang.org/x/exp/mmap"

	"github.com/packdb/packdb/pkg/metrics"
	"github.com/packdb/packdb/pkg/pools"
)

// DefaultCachePages is the clean-page cache capacity used when the
// caller does not pick one.
const DefaultCachePages = 256

// Common sentinel errors
var (
	ErrReadOnly  = errors.New("paged file is read-only")
	ErrPageRange = errors.New("page beyond end of file")
	ErrPageSize  = errors.New("buffer is not exactly one page")
	ErrClosed    = errors.New("paged file is closed")
)

// PagedFile presents a file as a sequence of fixed-size pages and owns
// the traffic between callers and the disk. Pages handed to WritePage
// reach the file immediately but are not durable until Flush. Pages
// obtained from DirtyPage are staged in memory, visible to reads, and
// reach the file only on CompletePage or Flush.
//
// Callers serialize all mutating calls. A file opened with
// OpenReadOnly may serve reads concurrently.
type PagedFile struct {
	path string
	file *os.File
	ro   *mmap.ReaderAt // non-nil in read-only mode

	dirty map[uint64][]byte // staged pages, newest content, not yet in the file
	cache *PageCache
	pool  *pools.PagePool

	filePages uint64 // whole pages physically present in the file
	pages     uint64 // logical page count including staged tails
	unsynced  int    // pages written since the last successful Flush

	closed bool
	met    *metrics.Registry
}
