// Package pagefile maps a file into fixed-size pages with a staging
// layer for in-progress writes and an LRU cache for clean reads.
package pagefile

import (
	"fmt"
	"os"
	"sort"

	"github.com/packdb/packdb/pkg/addr"
	"github.com/packdb/packdb/pkg/metrics"
	"github.com/packdb/packdb/pkg/pools"
)

// Open opens the paged file at path, creating it if it does not exist.
// cachePages bounds the clean-page cache; values <= 0 select
// DefaultCachePages. A nil metrics registry selects the default one.
func Open(path string, cachePages int, met *metrics.Registry) (*PagedFile, error) {
	if cachePages <= 0 {
		cachePages = DefaultCachePages
	}
	if met == nil {
		met = metrics.DefaultRegistry()
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open paged file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat paged file: %w", err)
	}

	// A torn trailing fragment is not a whole page; it is ignored and
	// overwritten by the next write to that page.
	filePages := uint64(info.Size()) / addr.PageSize

	return &PagedFile{
		path:      path,
		file:      file,
		dirty:     make(map[uint64][]byte),
		cache:     NewPageCache(cachePages),
		pool:      pools.NewPagePool(),
		filePages: filePages,
		pages:     filePages,
		met:       met,
	}, nil
}

// ReadPage returns the current content of page n, preferring staged
// content over the cache and the cache over the file. The returned
// slice is owned by the paged file and must not be modified.
func (f *PagedFile) ReadPage(n uint64) ([]byte, error) {
	if f.closed {
		return nil, ErrClosed
	}
	if p, ok := f.dirty[n]; ok {
		return p, nil
	}
	if f.ro != nil {
		return f.readPageMapped(n)
	}
	if p, ok := f.cache.Get(n); ok {
		f.met.PageCacheHitsTotal.Inc()
		return p, nil
	}
	f.met.PageCacheMissesTotal.Inc()

	if n >= f.filePages {
		return nil, fmt.Errorf("failed to read page %d of %s: %w", n, f.path, ErrPageRange)
	}

	buf := make([]byte, addr.PageSize)
	if _, err := f.file.ReadAt(buf, int64(n)*addr.PageSize); err != nil {
		return nil, fmt.Errorf("failed to read page %d of %s: %w", n, f.path, err)
	}
	f.met.PageReadsTotal.Inc()

	f.cache.Put(n, buf)
	return buf, nil
}

// ReadRange copies length bytes starting at off into a fresh slice,
// assembling across page boundaries. Staged pages are observed, so a
// record appended into a staged tail reads back before any flush.
func (f *PagedFile) ReadRange(off addr.Offset, length int) ([]byte, error) {
	if f.closed {
		return nil, ErrClosed
	}
	if length == 0 {
		return []byte{}, nil
	}

	out := make([]byte, length)

	// Read-only files never stage pages, so a single mapped read
	// serves the whole range.
	if f.ro != nil {
		if _, err := f.ro.ReadAt(out, int64(off)); err != nil {
			return nil, fmt.Errorf("failed to read %d bytes at %d of %s: %w", length, off, f.path, err)
		}
		return out, nil
	}

	pos := 0
	cur := off
	for pos < length {
		p, err := f.ReadPage(cur.PageNumber())
		if err != nil {
			return nil, err
		}
		pos += copy(out[pos:], p[cur.InPagePos():])
		cur = cur.NextPage()
	}
	return out, nil
}

// WritePage writes one full page at n immediately. The content reaches
// the file but is not durable until Flush. The buffer must not alias a
// staged page; any staged copy of the page is discarded.
func (f *PagedFile) WritePage(n uint64, p []byte) error {
	if f.closed {
		return ErrClosed
	}
	if f.ro != nil {
		return ErrReadOnly
	}
	if len(p) != addr.PageSize {
		return ErrPageSize
	}

	if _, err := f.file.WriteAt(p, int64(n)*addr.PageSize); err != nil {
		return fmt.Errorf("failed to write page %d of %s: %w", n, f.path, err)
	}
	f.met.PageWritesTotal.Inc()
	f.unsynced++
	if n >= f.filePages {
		f.filePages = n + 1
	}
	if n >= f.pages {
		f.pages = n + 1
	}

	if old, ok := f.dirty[n]; ok {
		delete(f.dirty, n)
		f.met.PagesStaged.Dec()
		f.pool.Put(old)
	}
	f.cache.Put(n, p)
	return nil
}

// DirtyPage returns a staged, mutable copy of page n, creating it on
// first touch. Mutations are visible to reads immediately but reach
// the file only on CompletePage or Flush. A page at or past the end of
// the file starts zeroed.
func (f *PagedFile) DirtyPage(n uint64) ([]byte, error) {
	if f.closed {
		return nil, ErrClosed
	}
	if f.ro != nil {
		return nil, ErrReadOnly
	}
	if p, ok := f.dirty[n]; ok {
		return p, nil
	}

	var p []byte
	if n < f.filePages {
		cur, err := f.ReadPage(n)
		if err != nil {
			return nil, err
		}
		p = f.pool.Get()
		copy(p, cur)
	} else {
		p = f.pool.GetZeroed()
	}

	f.dirty[n] = p
	if n >= f.pages {
		f.pages = n + 1
	}
	f.met.PagesStaged.Inc()
	return p, nil
}

// CompletePage writes staged page n to the file and drops the staging.
// Appenders call it when a page fills so that staging stays bounded by
// the number of partially filled tails. A no-op if n is not staged.
func (f *PagedFile) CompletePage(n uint64) error {
	if f.closed {
		return ErrClosed
	}
	if f.ro != nil {
		return ErrReadOnly
	}
	p, ok := f.dirty[n]
	if !ok {
		return nil
	}

	if _, err := f.file.WriteAt(p, int64(n)*addr.PageSize); err != nil {
		return fmt.Errorf("failed to write page %d of %s: %w", n, f.path, err)
	}
	f.met.PageWritesTotal.Inc()
	f.unsynced++
	delete(f.dirty, n)
	f.met.PagesStaged.Dec()
	if n >= f.filePages {
		f.filePages = n + 1
	}

	// Ownership moves to the cache; the buffer is no longer pooled.
	f.cache.Put(n, p)
	return nil
}

// Flush writes every staged page in ascending order and syncs the
// file. After Flush returns nil, every page written since the previous
// Flush is durable. Returns the number of pages made durable.
func (f *PagedFile) Flush() (int, error) {
	if f.closed {
		return 0, ErrClosed
	}
	if f.ro != nil {
		return 0, ErrReadOnly
	}

	staged := make([]uint64, 0, len(f.dirty))
	for n := range f.dirty {
		staged = append(staged, n)
	}
	sort.Slice(staged, func(i, j int) bool { return staged[i] < staged[j] })

	for _, n := range staged {
		p := f.dirty[n]
		if _, err := f.file.WriteAt(p, int64(n)*addr.PageSize); err != nil {
			return 0, fmt.Errorf("failed to write page %d of %s: %w", n, f.path, err)
		}
		f.met.PageWritesTotal.Inc()
		f.unsynced++
		delete(f.dirty, n)
		f.met.PagesStaged.Dec()
		if n >= f.filePages {
			f.filePages = n + 1
		}
		f.cache.Put(n, p)
	}

	flushed := f.unsynced
	if err := f.file.Sync(); err != nil {
		return 0, fmt.Errorf("failed to sync %s: %w", f.path, err)
	}
	f.unsynced = 0
	return flushed, nil
}

// Truncate resizes the file to exactly pages whole pages. Extending
// materializes zero pages without writing them.
func (f *PagedFile) Truncate(pages uint64) error {
	if f.closed {
		return ErrClosed
	}
	if f.ro != nil {
		return ErrReadOnly
	}
	if err := f.file.Truncate(int64(pages) * addr.PageSize); err != nil {
		return fmt.Errorf("failed to truncate %s: %w", f.path, err)
	}
	if pages < f.filePages {
		f.cache.Clear()
	}
	f.filePages = pages
	if f.pages < pages {
		f.pages = pages
	}
	return nil
}

// PageCount returns the logical page count, including staged tails
// that have not reached the file yet.
func (f *PagedFile) PageCount() uint64 {
	return f.pages
}

// StagedPages returns how many staged pages would be lost without a Flush.
func (f *PagedFile) StagedPages() int {
	return len(f.dirty)
}

// Path returns the file path.
func (f *PagedFile) Path() string {
	return f.path
}

// CacheStats returns clean-page cache statistics.
func (f *PagedFile) CacheStats() (hits, misses int64, hitRate float64) {
	if f.cache == nil {
		return 0, 0, 0
	}
	return f.cache.Stats()
}

// Close releases the file handle. Staged pages are discarded; callers
// that need them must Flush first.
func (f *PagedFile) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true

	for n, p := range f.dirty {
		delete(f.dirty, n)
		f.met.PagesStaged.Dec()
		f.pool.Put(p)
	}

	if f.ro != nil {
		if err := f.ro.Close(); err != nil {
			return fmt.Errorf("failed to close %s: %w", f.path, err)
		}
		return nil
	}
	if err := f.file.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", f.path, err)
	}
	return nil
}
