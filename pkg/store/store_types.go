package store

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/packdb/packdb/pkg/datalog"
	"github.com/packdb/packdb/pkg/hashindex"
	"github.com/packdb/packdb/pkg/logging"
	"github.com/packdb/packdb/pkg/metrics"
)

// File names inside a store directory.
const (
	DataFileName  = "data.pdb"
	IndexFileName = "index.pdb"
)

// Store is the embedded key-value engine: an append-only data log
// paired with a hash index, sharing one identity and one durability
// boundary. Puts stage; Batch makes everything staged durable; Get
// reads through the staged state, so a session always sees its own
// writes.
//
// A Store is a single-writer handle. One mutex serializes every
// operation; callers that want concurrency put their own layer in
// front of it.
type Store struct {
	mu sync.Mutex

	path string
	opts Options

	data  *datalog.Log
	index *hashindex.Index

	open     bool
	closed   bool
	readOnly bool

	puts    uint64
	gets    uint64
	batches uint64

	start time.Time
	log   logging.Logger
	met   *metrics.Registry
}

// Stats is a point-in-time snapshot of a store's counters.
type Stats struct {
	Path       string
	StoreID    uuid.UUID
	Compressed bool

	Records     uint64
	Puts        uint64
	Gets        uint64
	Batches     uint64
	BucketCount uint64

	LogBytes     uint64 // logical end of the data log
	IndexBytes   uint64 // link arena size, padding included
	PendingBytes uint64 // appended bytes a crash would lose
	StagedPages  int    // memory-resident pages across both files

	DataCacheHitRate  float64
	IndexCacheHitRate float64

	Uptime time.Duration
}

func (s *Store) dataPath() string {
	return filepath.Join(s.path, DataFileName)
}

func (s *Store) indexPath() string {
	return filepath.Join(s.path, IndexFileName)
}

func (s *Store) datalogConfig() datalog.Config {
	return datalog.Config{
		CachePages: s.opts.CachePages,
		Metrics:    s.met,
		Logger:     s.log,
	}
}

func (s *Store) indexConfig() hashindex.Config {
	return hashindex.Config{
		CachePages: s.opts.CachePages,
		Metrics:    s.met,
		Logger:     s.log,
	}
}
