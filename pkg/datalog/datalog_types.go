package datalog

import (
	"errors"

	"github.com/google/uuid"

	"github.com/packdb/packdb/pkg/addr"
	"github.com/packdb/packdb/pkg/logging"
	"github.com/packdb/packdb/pkg/metrics"
	"github.com/packdb/packdb/pkg/pagefile"
)

// Magic identifies a data log file.
const Magic = "PKDB"

// Version is the on-disk format version written to new logs.
const Version = 1

// FlagSnappy marks every value in the log as snappy-compressed.
const FlagSnappy uint8 = 1 << 0

// Header layout inside page 0. The checksum covers every field before it.
const (
	headerMagicOff   = 0
	headerVersionOff = 4
	headerUUIDOff    = 6
	headerFlagsOff   = 22
	headerEndOff     = 23
	headerRecordsOff = 29
	headerCRCOff     = 37
)

// Common sentinel errors
var (
	ErrHeader        = errors.New("malformed data log header")
	ErrCorruptRecord = errors.New("record fields out of range")
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

// Log is the append-only record store. Records are laid out as a
// 3-byte key length, the key, a 3-byte value length, and the value;
// they never move once written, so a record's starting Offset is its
// identity for the life of the store.
//
// Appends stage into the tail page and are readable immediately.
// Durability is two calls: Flush makes the record bytes durable,
// CommitHeader makes them reachable after a reopen. Callers serialize
// all calls.
type Log struct {
	file *pagefile.PagedFile

	id    uuid.UUID
	flags uint8

	end       addr.Offset // next append position, includes staged records
	committed addr.Offset // end of log recorded in the durable header
	records   uint64      // record count, committed plus staged

	log logging.Logger
	met *metrics.Registry
}
