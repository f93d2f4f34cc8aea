package hashindex

import (
	"errors"

	"github.com/google/uuid"

	"github.com/packdb/packdb/pkg/addr"
	"github.com/packdb/packdb/pkg/logging"
	"github.com/packdb/packdb/pkg/metrics"
	"github.com/packdb/packdb/pkg/pagefile"
)

// Magic identifies an index file.
const Magic = "PKDX"

// Version is the on-disk format version written to new indexes.
const Version = 1

// DefaultBucketCount is used when Options do not choose one.
const DefaultBucketCount = 1 << 20

// SlotLen is the width of one bucket slot, a single record Offset.
const SlotLen = addr.OffsetLen

// LinkLen is the width of one chain link: record Offset plus the
// Offset of the next link.
const LinkLen = 2 * addr.OffsetLen

// SlotsPerPage is how many bucket slots fit in a table page. Slots
// never straddle pages, so a slot update is a single-page write; the
// last four bytes of each table page are padding.
const SlotsPerPage = addr.PageSize / SlotLen

// Header layout inside page 0. The checksum covers every field before it.
const (
	headerMagicOff   = 0
	headerVersionOff = 4
	headerUUIDOff    = 6
	headerBucketsOff = 22
	headerCRCOff     = 30
)

// Common sentinel errors
var (
	ErrHeader  = errors.New("malformed index header")
	ErrCorrupt = errors.New("index structure out of bounds")
)

// Config carries the shared knobs for Create and Open.
type Config struct {
	CachePages int
	Metrics    *metrics.Registry
	Logger     logging.Logger
}

func (c Config) withDefaults() Config {
	if c.Metrics == nil {
		c.Metrics = metrics.DefaultRegistry()
	}
	if c.Logger == nil {
		c.Logger = logging.DefaultLogger()
	}
	return c
}

// Index maps key hashes to chains of record Offsets (index.pdb).
// Page 0 is the header; a fixed bucket table follows, one 6-byte slot
// per bucket, zero meaning empty. The rest of the file is an
// append-only arena of links; each link carries a record Offset and
// the previous head of its chain, so a bucket's chain lists every
// version of its keys newest-first.
//
// Link appends stage through the paged file like data records. Bucket
// pages are staged here instead and reach the file only in
// FlushBuckets: the commit ordering requires that no bucket page can
// hit the disk, even unsynced, before the data and link fsyncs.
// Callers serialize all calls.
type Index struct {
	file *pagefile.PagedFile

	id          uuid.UUID
	bucketCount uint64
	tablePages  uint64
	arenaStart  addr.Offset
	end         addr.Offset // next link position, includes staged links

	bucketDirty map[uint64][]byte // staged bucket table pages

	log logging.Logger
	met *metrics.Registry
}
