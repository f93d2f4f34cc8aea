// Package hashindex implements the hash index over the data log: a
// fixed bucket table addressed by key hash, each bucket heading a
// prepend-only chain of links through an append-only arena.
package hashindex

import (
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/packdb/packdb/pkg/addr"
	"github.com/packdb/packdb/pkg/logging"
	"github.com/packdb/packdb/pkg/pagefile"
)

// Create initializes a new index at path with an empty bucket table.
// A bucketCount of zero selects DefaultBucketCount; the count is fixed
// for the life of the index.
func Create(path string, id uuid.UUID, bucketCount uint64, cfg Config) (*Index, error) {
	cfg = cfg.withDefaults()
	if bucketCount == 0 {
		bucketCount = DefaultBucketCount
	}

	f, err := pagefile.Open(path, cfg.CachePages, cfg.Metrics)
	if err != nil {
		return nil, err
	}
	if f.PageCount() != 0 {
		f.Close()
		return nil, fmt.Errorf("index %s is not empty: %w", path, ErrHeader)
	}

	tablePages := (bucketCount + SlotsPerPage - 1) / SlotsPerPage

	if err := f.WritePage(0, buildHeader(id, bucketCount)); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write index header: %w", err)
	}
	// The empty table is materialized as holes; zero slots are empty buckets.
	if err := f.Truncate(1 + tablePages); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.Flush(); err != nil {
		f.Close()
		return nil, err
	}

	ix := &Index{
		file:        f,
		id:          id,
		bucketCount: bucketCount,
		tablePages:  tablePages,
		arenaStart:  addr.PageStart(1 + tablePages),
		end:         addr.PageStart(1 + tablePages),
		bucketDirty: make(map[uint64][]byte),
		log:         cfg.Logger,
		met:         cfg.Metrics,
	}

	ix.log.Info("created index",
		logging.Path(path),
		logging.String("store", id.String()),
		logging.Uint64("buckets", bucketCount))
	return ix, nil
}

// Open opens an existing index. Fresh links start on a fresh page, so
// the slack at the end of the last link page becomes padding.
func Open(path string, cfg Config) (*Index, error) {
	cfg = cfg.withDefaults()

	f, err := pagefile.Open(path, cfg.CachePages, cfg.Metrics)
	if err != nil {
		return nil, err
	}
	ix, err := fromFile(f, path, cfg)
	if err != nil {
		f.Close()
		return nil, err
	}
	return ix, nil
}

// OpenReadOnly opens the index memory-mapped for reads.
func OpenReadOnly(path string, cfg Config) (*Index, error) {
	cfg = cfg.withDefaults()

	f, err := pagefile.OpenReadOnly(path, cfg.Metrics)
	if err != nil {
		return nil, err
	}
	ix, err := fromFile(f, path, cfg)
	if err != nil {
		f.Close()
		return nil, err
	}
	return ix, nil
}

func fromFile(f *pagefile.PagedFile, path string, cfg Config) (*Index, error) {
	hdr, err := f.ReadPage(0)
	if err != nil {
		return nil, fmt.Errorf("failed to read index header: %w", err)
	}
	id, bucketCount, err := parseHeader(hdr)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", path, err)
	}

	tablePages := (bucketCount + SlotsPerPage - 1) / SlotsPerPage
	if f.PageCount() < 1+tablePages {
		return nil, fmt.Errorf("index %s: bucket table truncated (%d of %d pages): %w",
			path, f.PageCount(), 1+tablePages, ErrHeader)
	}

	return &Index{
		file:        f,
		id:          id,
		bucketCount: bucketCount,
		tablePages:  tablePages,
		arenaStart:  addr.PageStart(1 + tablePages),
		end:         addr.PageStart(f.PageCount()),
		bucketDirty: make(map[uint64][]byte),
		log:         cfg.Logger,
		met:         cfg.Metrics,
	}, nil
}

// Bucket returns the bucket number for key.
func (ix *Index) Bucket(key []byte) uint64 {
	return xxhash.Sum64(key) % ix.bucketCount
}

// Insert prepends a link for key's newest record: the link carries the
// previous chain head as its next pointer, then the bucket slot moves
// to the new link. Earlier versions stay reachable behind it.
func (ix *Index) Insert(key []byte, recordOff addr.Offset) error {
	b := ix.Bucket(key)
	oldHead, err := ix.readSlot(b)
	if err != nil {
		return err
	}

	linkOff := ix.end
	newEnd, err := ix.end.Add(LinkLen)
	if err != nil {
		return fmt.Errorf("link arena full at offset %d: %w", ix.end, err)
	}

	var img [LinkLen]byte
	addr.PutOffset(img[:addr.OffsetLen], recordOff)
	addr.PutOffset(img[addr.OffsetLen:], oldHead)
	if err := ix.writeTail(img[:]); err != nil {
		return err
	}
	ix.end = newEnd

	if err := ix.writeSlot(b, linkOff); err != nil {
		return err
	}
	ix.met.IndexLinksTotal.Inc()
	return nil
}

// writeTail lays img down at the arena tail, staging the partial page
// and completing every page it fills. Links may straddle pages.
func (ix *Index) writeTail(img []byte) error {
	cur := ix.end
	for len(img) > 0 {
		n := cur.PageNumber()
		p, err := ix.file.DirtyPage(n)
		if err != nil {
			return err
		}
		in := cur.InPagePos()
		w := copy(p[in:], img)
		img = img[w:]
		if in+w == addr.PageSize {
			if err := ix.file.CompletePage(n); err != nil {
				return err
			}
		}
		cur += addr.Offset(w)
	}
	return nil
}

func (ix *Index) readSlot(b uint64) (addr.Offset, error) {
	page := 1 + b/SlotsPerPage
	in := int(b%SlotsPerPage) * SlotLen

	if p, ok := ix.bucketDirty[page]; ok {
		return addr.DecodeOffset(p[in : in+SlotLen])
	}
	p, err := ix.file.ReadPage(page)
	if err != nil {
		return 0, err
	}
	return addr.DecodeOffset(p[in : in+SlotLen])
}

func (ix *Index) writeSlot(b uint64, off addr.Offset) error {
	page := 1 + b/SlotsPerPage
	in := int(b%SlotsPerPage) * SlotLen

	p, ok := ix.bucketDirty[page]
	if !ok {
		cur, err := ix.file.ReadPage(page)
		if err != nil {
			return err
		}
		p = make([]byte, addr.PageSize)
		copy(p, cur)
		ix.bucketDirty[page] = p
		ix.met.PagesStaged.Inc()
	}
	addr.PutOffset(p[in:in+SlotLen], off)
	return nil
}

// readLink fetches the link at off, validating that it lies inside
// the arena and references a plausible record.
func (ix *Index) readLink(off addr.Offset) (recordOff, next addr.Offset, err error) {
	if off < ix.arenaStart || uint64(off)+LinkLen > uint64(ix.end) {
		return 0, 0, fmt.Errorf("link at %d outside arena [%d,%d): %w", off, ix.arenaStart, ix.end, ErrCorrupt)
	}
	b, err := ix.file.ReadRange(off, LinkLen)
	if err != nil {
		return 0, 0, err
	}
	recordOff, err = addr.DecodeOffset(b[:addr.OffsetLen])
	if err != nil {
		return 0, 0, err
	}
	next, err = addr.DecodeOffset(b[addr.OffsetLen:])
	if err != nil {
		return 0, 0, err
	}
	if recordOff < addr.PageSize {
		return 0, 0, fmt.Errorf("link at %d references offset %d inside the data header: %w", off, recordOff, ErrCorrupt)
	}
	return recordOff, next, nil
}

// arenaLinks returns how many links the arena currently holds, the
// bound any legitimate chain walk must respect.
func (ix *Index) arenaLinks() uint64 {
	return (uint64(ix.end) - uint64(ix.arenaStart)) / LinkLen
}

// FlushLinks writes the staged link pages and syncs the file. Bucket
// pages stay held in memory until FlushBuckets.
func (ix *Index) FlushLinks() (int, error) {
	return ix.file.Flush()
}

// FlushBuckets writes every staged bucket page in ascending order and
// syncs the file. The commit ordering calls this last, after the data
// and link fsyncs, so every slot written here references durable
// chains over durable records.
func (ix *Index) FlushBuckets() (int, error) {
	pages := make([]uint64, 0, len(ix.bucketDirty))
	for n := range ix.bucketDirty {
		pages = append(pages, n)
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i] < pages[j] })

	for _, n := range pages {
		if err := ix.file.WritePage(n, ix.bucketDirty[n]); err != nil {
			return 0, err
		}
		delete(ix.bucketDirty, n)
		ix.met.PagesStaged.Dec()
	}
	if _, err := ix.file.Flush(); err != nil {
		return 0, err
	}
	return len(pages), nil
}

// UsedBuckets scans the table and counts non-empty buckets.
func (ix *Index) UsedBuckets() (uint64, error) {
	var used uint64
	remaining := ix.bucketCount
	for page := uint64(1); page <= ix.tablePages; page++ {
		p, ok := ix.bucketDirty[page]
		if !ok {
			var err error
			p, err = ix.file.ReadPage(page)
			if err != nil {
				return 0, err
			}
		}

		slots := uint64(SlotsPerPage)
		if remaining < slots {
			slots = remaining
		}
		for s := uint64(0); s < slots; s++ {
			in := int(s) * SlotLen
			for _, c := range p[in : in+SlotLen] {
				if c != 0 {
					used++
					break
				}
			}
		}
		remaining -= slots
	}

	ix.met.IndexBucketsUsed.Set(float64(used))
	return used, nil
}

// UUID returns the store identity stamped at creation.
func (ix *Index) UUID() uuid.UUID {
	return ix.id
}

// BucketCount returns the fixed number of buckets.
func (ix *Index) BucketCount() uint64 {
	return ix.bucketCount
}

// ArenaSize returns the link arena size in bytes, padding included.
func (ix *Index) ArenaSize() uint64 {
	return uint64(ix.end) - uint64(ix.arenaStart)
}

// StagedLinkPages returns the number of memory-resident link pages.
func (ix *Index) StagedLinkPages() int {
	return ix.file.StagedPages()
}

// StagedBucketPages returns the number of memory-resident bucket pages.
func (ix *Index) StagedBucketPages() int {
	return len(ix.bucketDirty)
}

// Path returns the backing file path.
func (ix *Index) Path() string {
	return ix.file.Path()
}

// CacheStats returns clean-page cache statistics for the backing file.
func (ix *Index) CacheStats() (hits, misses int64, hitRate float64) {
	return ix.file.CacheStats()
}

// Close releases the backing file without flushing.
func (ix *Index) Close() error {
	for n := range ix.bucketDirty {
		delete(ix.bucketDirty, n)
		ix.met.PagesStaged.Dec()
	}
	return ix.file.Close()
}
