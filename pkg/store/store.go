// Package store composes the data log and hash index into the
// embedded key-value engine: a single-writer handle with staged puts,
// immediate read-your-writes, and an explicit batch boundary that
// makes staged writes crash-recoverable.
package store

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/packdb/packdb/pkg/addr"
	"github.com/packdb/packdb/pkg/datalog"
	"github.com/packdb/packdb/pkg/hashindex"
	"github.com/packdb/packdb/pkg/logging"
	"github.com/packdb/packdb/pkg/metrics"
)

// New creates a handle for the store directory at path. No files are
// touched until Init, which creates the store on first use or recovers
// an existing one.
func New(path string, options ...Option) (*Store, error) {
	opts := DefaultOptions()
	for _, o := range options {
		o(&opts)
	}
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("invalid store options: %w", err)
	}
	if opts.Logger == nil {
		opts.Logger = logging.DefaultLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.DefaultRegistry()
	}

	return &Store{
		path: path,
		opts: opts,
		log:  opts.Logger.With(logging.Component("store"), logging.Path(path)),
		met:  opts.Metrics,
	}, nil
}

// Init opens the store, creating the data log and index on first use
// and recovering their committed state otherwise. Appends resume at
// the committed end of the log; a physical tail beyond it, left by a
// crash after the last batch, is dead space and gets overwritten.
// Init must run before Put, Get or Batch.
func (s *Store) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.open {
		return nil
	}

	_, dataErr := os.Stat(s.dataPath())
	_, indexErr := os.Stat(s.indexPath())

	switch {
	case dataErr == nil && indexErr == nil:
		if err := s.openExisting(); err != nil {
			return err
		}
	case os.IsNotExist(dataErr) && os.IsNotExist(indexErr):
		if err := s.create(); err != nil {
			return err
		}
	default:
		if dataErr != nil && !os.IsNotExist(dataErr) {
			return s.opErr("init", 0, dataErr)
		}
		if indexErr != nil && !os.IsNotExist(indexErr) {
			return s.opErr("init", 0, indexErr)
		}
		// One of the pair exists without the other.
		return s.opErr("init", 0, ErrIncomplete)
	}

	s.open = true
	s.start = time.Now()
	s.met.StoreRecordsTotal.Set(float64(s.data.Records()))

	s.log.Info("store initialized",
		logging.String("store", s.data.UUID().String()),
		logging.Records(s.data.Records()),
		logging.Offset(uint64(s.data.End())),
		logging.Uint64("buckets", s.index.BucketCount()),
		logging.Bool("compressed", s.data.Compressed()))
	return nil
}

func (s *Store) create() error {
	if err := os.MkdirAll(s.path, 0755); err != nil {
		return s.opErr("init", 0, err)
	}

	id := uuid.New()
	compress := s.opts.Compression == CompressionSnappy

	data, err := datalog.Create(s.dataPath(), id, compress, s.datalogConfig())
	if err != nil {
		return s.opErr("init", 0, err)
	}
	index, err := hashindex.Create(s.indexPath(), id, s.opts.BucketCount, s.indexConfig())
	if err != nil {
		data.Close()
		os.Remove(s.dataPath())
		return s.opErr("init", 0, err)
	}

	s.data = data
	s.index = index
	return nil
}

func (s *Store) openExisting() error {
	data, err := datalog.Open(s.dataPath(), s.datalogConfig())
	if err != nil {
		return s.opErr("init", 0, err)
	}
	index, err := hashindex.Open(s.indexPath(), s.indexConfig())
	if err != nil {
		data.Close()
		return s.opErr("init", 0, err)
	}
	if data.UUID() != index.UUID() {
		data.Close()
		index.Close()
		return s.opErr("init", 0, ErrStoreMismatch)
	}

	s.data = data
	s.index = index
	return nil
}

// Put stages one record: an append to the data log and a prepended
// index entry for the key. The write is visible to Get immediately but
// survives a crash only after the next successful Batch.
func (s *Store) Put(key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guardWrite(); err != nil {
		return err
	}
	start := time.Now()

	off, err := s.data.Append(key, value)
	if err != nil {
		return s.opErr("put", 0, err)
	}
	if err := s.index.Insert(key, off); err != nil {
		return s.opErr("put", off, err)
	}

	s.puts++
	s.met.RecordPut(time.Since(start))
	return nil
}

// Get returns the most recent value written for key, staged or
// durable. A key that was never put is reported as absent, not as an
// error.
func (s *Store) Get(key []byte) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guard(); err != nil {
		return nil, false, err
	}
	start := time.Now()

	value, found, err := s.lookup(key)
	if err != nil {
		return nil, false, err
	}

	s.gets++
	s.met.RecordGet(found, time.Since(start))
	return value, found, nil
}

// lookup walks key's bucket chain newest-first, comparing stored keys
// against the data log, and returns the value of the first match.
func (s *Store) lookup(key []byte) ([]byte, bool, error) {
	chain, err := s.index.Chain(key)
	if err != nil {
		return nil, false, s.opErr("get", 0, err)
	}

	for {
		off, ok, err := chain.Next()
		if err != nil {
			return nil, false, s.opErr("get", 0, err)
		}
		if !ok {
			break
		}
		candidate, err := s.data.ReadKey(off)
		if err != nil {
			return nil, false, s.opErr("get", off, err)
		}
		if !bytes.Equal(candidate, key) {
			continue
		}

		_, value, err := s.data.ReadRecord(off)
		if err != nil {
			return nil, false, s.opErr("get", off, err)
		}
		s.met.RecordChainWalk(chain.Steps())
		return value, true, nil
	}

	s.met.RecordChainWalk(chain.Steps())
	return nil, false, nil
}

// Batch makes every staged write durable. The flush order is the
// engine's core invariant: record pages first, then the data header,
// then link pages, then bucket pages. A bucket slot therefore never
// reaches the disk before the chain and record it leads to, and never
// before the header that makes the record reachable, so a crash at any
// point between the steps leaves at worst committed records that no
// bucket references yet.
func (s *Store) Batch() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guardWrite(); err != nil {
		return err
	}
	start := time.Now()

	stepStart := start
	dataPages, err := s.data.Flush()
	if err != nil {
		return s.opErr("batch", 0, err)
	}
	if err := s.data.CommitHeader(); err != nil {
		return s.opErr("batch", 0, err)
	}
	s.met.RecordFlush("data", dataPages, time.Since(stepStart))

	stepStart = time.Now()
	linkPages, err := s.index.FlushLinks()
	if err != nil {
		return s.opErr("batch", 0, err)
	}
	bucketPages, err := s.index.FlushBuckets()
	if err != nil {
		return s.opErr("batch", 0, err)
	}
	s.met.RecordFlush("index", linkPages+bucketPages, time.Since(stepStart))

	s.batches++
	s.met.RecordBatch(time.Since(start))

	s.log.Debug("batch committed",
		logging.Int("data_pages", dataPages),
		logging.Int("link_pages", linkPages),
		logging.Int("bucket_pages", bucketPages),
		logging.Records(s.data.Records()),
		logging.Latency(time.Since(start)))
	return nil
}

// Shutdown releases the file handles. Staged writes are not flushed;
// anything put since the last Batch is discarded, and a warning names
// how much. Callers that need those writes call Batch first. Shutdown
// is idempotent.
func (s *Store) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if !s.open {
		return nil
	}
	s.open = false

	if !s.readOnly {
		if pending := s.data.PendingBytes(); pending > 0 {
			s.log.Warn("shutting down with unbatched writes, discarding",
				logging.Bytes(int64(pending)),
				logging.Int("staged_data_pages", s.data.StagedPages()),
				logging.Int("staged_bucket_pages", s.index.StagedBucketPages()))
		}
	}

	records := s.data.Records()
	dataErr := s.data.Close()
	indexErr := s.index.Close()

	s.log.Info("store shut down",
		logging.Records(records),
		logging.Uint64("puts", s.puts),
		logging.Uint64("gets", s.gets),
		logging.Uint64("batches", s.batches))

	if dataErr != nil {
		return s.opErr("shutdown", 0, dataErr)
	}
	if indexErr != nil {
		return s.opErr("shutdown", 0, indexErr)
	}
	return nil
}

// Stats snapshots the store's counters.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return Stats{Path: s.path}
	}

	_, _, dataRate := s.data.CacheStats()
	_, _, indexRate := s.index.CacheStats()

	return Stats{
		Path:       s.path,
		StoreID:    s.data.UUID(),
		Compressed: s.data.Compressed(),

		Records:     s.data.Records(),
		Puts:        s.puts,
		Gets:        s.gets,
		Batches:     s.batches,
		BucketCount: s.index.BucketCount(),

		LogBytes:     uint64(s.data.End()),
		IndexBytes:   s.index.ArenaSize(),
		PendingBytes: s.data.PendingBytes(),
		StagedPages:  s.data.StagedPages() + s.index.StagedLinkPages() + s.index.StagedBucketPages(),

		DataCacheHitRate:  dataRate,
		IndexCacheHitRate: indexRate,

		Uptime: time.Since(s.start),
	}
}

// UUID returns the store identity, or the zero UUID before Init.
func (s *Store) UUID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return uuid.UUID{}
	}
	return s.data.UUID()
}

// Path returns the store directory.
func (s *Store) Path() string {
	return s.path
}

// UsedBuckets counts index buckets with at least one entry, a
// measure of hash spread across the fixed table.
func (s *Store) UsedBuckets() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guard(); err != nil {
		return 0, err
	}
	used, err := s.index.UsedBuckets()
	if err != nil {
		return 0, s.opErr("stat", 0, err)
	}
	return used, nil
}

func (s *Store) guard() error {
	if s.closed {
		return ErrClosed
	}
	if !s.open {
		return ErrNotOpen
	}
	return nil
}

func (s *Store) guardWrite() error {
	if err := s.guard(); err != nil {
		return err
	}
	if s.readOnly {
		return ErrReadOnly
	}
	return nil
}

func (s *Store) opErr(op string, off addr.Offset, err error) error {
	return &StoreError{Op: op, Path: s.path, Offset: off, Cause: err}
}
