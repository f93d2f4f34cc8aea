// Package datalog implements the append-only record log backing a
// store. The log hands out stable Offsets; the hash index gives them
// meaning.
package datalog

import (
	"fmt"

	"github.com/golang/snappy"
	"github.com/google/uuid"

	"github.com/packdb/packdb/pkg/addr"
	"github.com/packdb/packdb/pkg/logging"
	"github.com/packdb/packdb/pkg/pagefile"
	"github.com/packdb/packdb/pkg/pools"
)

// Create initializes a new data log at path with a durable header.
// The first record will land at Offset addr.PageSize.
func Create(path string, id uuid.UUID, compress bool, cfg Config) (*Log, error) {
	cfg = cfg.withDefaults()

	f, err := pagefile.Open(path, cfg.CachePages, cfg.Metrics)
	if err != nil {
		return nil, err
	}
	if f.PageCount() != 0 {
		f.Close()
		return nil, fmt.Errorf("data log %s is not empty: %w", path, ErrHeader)
	}

	var flags uint8
	if compress {
		flags |= FlagSnappy
	}

	l := &Log{
		file:  f,
		id:    id,
		flags: flags,
		end:   addr.PageSize,
		log:   cfg.Logger,
		met:   cfg.Metrics,
	}
	if err := l.CommitHeader(); err != nil {
		f.Close()
		return nil, err
	}

	l.log.Info("created data log",
		logging.Path(path),
		logging.String("store", id.String()),
		logging.Bool("compressed", compress))
	return l, nil
}

// Open opens an existing data log and resumes at the committed end.
// Bytes beyond it, left behind by a crash between batches, are dead
// space and are overwritten by the next appends.
func Open(path string, cfg Config) (*Log, error) {
	cfg = cfg.withDefaults()

	f, err := pagefile.Open(path, cfg.CachePages, cfg.Metrics)
	if err != nil {
		return nil, err
	}
	l, err := fromFile(f, path, cfg)
	if err != nil {
		f.Close()
		return nil, err
	}
	return l, nil
}

// OpenReadOnly opens the data log memory-mapped for reads.
func OpenReadOnly(path string, cfg Config) (*Log, error) {
	cfg = cfg.withDefaults()

	f, err := pagefile.OpenReadOnly(path, cfg.Metrics)
	if err != nil {
		return nil, err
	}
	l, err := fromFile(f, path, cfg)
	if err != nil {
		f.Close()
		return nil, err
	}
	return l, nil
}

func fromFile(f *pagefile.PagedFile, path string, cfg Config) (*Log, error) {
	hdr, err := f.ReadPage(0)
	if err != nil {
		return nil, fmt.Errorf("failed to read data log header: %w", err)
	}
	id, flags, end, records, err := parseHeader(hdr)
	if err != nil {
		return nil, fmt.Errorf("data log %s: %w", path, err)
	}
	if uint64(end) > f.PageCount()*addr.PageSize {
		return nil, fmt.Errorf("data log %s: end of log %d past file of %d pages: %w",
			path, end, f.PageCount(), ErrHeader)
	}

	cfg.Metrics.LogSizeBytes.Set(float64(end))
	return &Log{
		file:      f,
		id:        id,
		flags:     flags,
		end:       end,
		committed: end,
		records:   records,
		log:       cfg.Logger,
		met:       cfg.Metrics,
	}, nil
}

// Append stages one record at the end of the log and returns its
// Offset. The record reads back immediately; it becomes durable and
// reachable after the next Flush and CommitHeader.
func (l *Log) Append(key, value []byte) (addr.Offset, error) {
	keySize, err := addr.CheckSize(len(key))
	if err != nil {
		return 0, fmt.Errorf("key of %d bytes: %w", len(key), err)
	}

	if l.Compressed() {
		raw := len(value)
		scratch := pools.GetBytesSized(snappy.MaxEncodedLen(raw))
		defer pools.PutBytes(scratch)
		value = snappy.Encode(scratch, value)
		l.met.RecordCompression(raw, len(value))
	}
	valSize, err := addr.CheckSize(len(value))
	if err != nil {
		return 0, fmt.Errorf("value of %d bytes: %w", len(value), err)
	}

	recordLen := uint64(addr.SizeLen) + uint64(len(key)) + uint64(addr.SizeLen) + uint64(len(value))
	newEnd, err := l.end.Add(recordLen)
	if err != nil {
		return 0, fmt.Errorf("log full at offset %d: %w", l.end, err)
	}

	b := pools.NewBufferBuilder(int(recordLen))
	defer b.Release()
	b.WriteSize(keySize)
	b.Write(key)
	b.WriteSize(valSize)
	b.Write(value)

	off := l.end
	if err := l.writeTail(b.Bytes()); err != nil {
		return 0, err
	}
	l.end = newEnd
	l.records++
	l.met.RecordAppend(int(recordLen), uint64(l.end))
	return off, nil
}

// writeTail lays img down starting at the current end, staging the
// partial tail page and completing every page it fills.
func (l *Log) writeTail(img []byte) error {
	cur := l.end
	for len(img) > 0 {
		n := cur.PageNumber()
		p, err := l.file.DirtyPage(n)
		if err != nil {
			return err
		}
		in := cur.InPagePos()
		w := copy(p[in:], img)
		img = img[w:]
		if in+w == addr.PageSize {
			if err := l.file.CompletePage(n); err != nil {
				return err
			}
		}
		cur += addr.Offset(w)
	}
	return nil
}

// readSize decodes the 3-byte length field at pos, first checking the
// field itself lies inside the log.
func (l *Log) readSize(pos uint64) (uint64, error) {
	if pos+addr.SizeLen > uint64(l.end) {
		return 0, fmt.Errorf("length field at %d past end of log %d: %w", pos, l.end, ErrCorruptRecord)
	}
	b, err := l.file.ReadRange(addr.NewOffset(pos), addr.SizeLen)
	if err != nil {
		return 0, err
	}
	s, err := addr.DecodeSize(b)
	if err != nil {
		return 0, err
	}
	return uint64(s), nil
}

// ReadKey returns the key of the record at off. Chain walks use it to
// compare keys without touching the value bytes.
func (l *Log) ReadKey(off addr.Offset) ([]byte, error) {
	pos := uint64(off)
	if pos < addr.PageSize {
		return nil, fmt.Errorf("record offset %d inside header page: %w", off, ErrCorruptRecord)
	}
	keyLen, err := l.readSize(pos)
	if err != nil {
		return nil, err
	}
	keyOff := pos + addr.SizeLen
	if keyOff+keyLen+addr.SizeLen > uint64(l.end) {
		return nil, fmt.Errorf("key of %d bytes at %d past end of log %d: %w", keyLen, keyOff, l.end, ErrCorruptRecord)
	}
	return l.file.ReadRange(addr.NewOffset(keyOff), int(keyLen))
}

// ReadRecord returns the key and value of the record at off. Every
// length field is validated against the logical end of the log before
// any bytes are fetched, so a corrupt offset can never trigger an
// unbounded read.
func (l *Log) ReadRecord(off addr.Offset) ([]byte, []byte, error) {
	pos := uint64(off)
	if pos < addr.PageSize {
		return nil, nil, fmt.Errorf("record offset %d inside header page: %w", off, ErrCorruptRecord)
	}
	keyLen, err := l.readSize(pos)
	if err != nil {
		return nil, nil, err
	}
	keyOff := pos + addr.SizeLen
	valLen, err := l.readSize(keyOff + keyLen)
	if err != nil {
		return nil, nil, err
	}
	valOff := keyOff + keyLen + addr.SizeLen
	if valOff+valLen > uint64(l.end) {
		return nil, nil, fmt.Errorf("value of %d bytes at %d past end of log %d: %w", valLen, valOff, l.end, ErrCorruptRecord)
	}

	key, err := l.file.ReadRange(addr.NewOffset(keyOff), int(keyLen))
	if err != nil {
		return nil, nil, err
	}
	value, err := l.file.ReadRange(addr.NewOffset(valOff), int(valLen))
	if err != nil {
		return nil, nil, err
	}
	if l.Compressed() {
		value, err = snappy.Decode(nil, value)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to decompress value at %d: %w", off, ErrCorruptRecord)
		}
	}
	return key, value, nil
}

// Flush writes the staged tail and syncs the file, returning the
// number of pages made durable. The records stay unreachable after a
// crash until CommitHeader records the new end of log.
func (l *Log) Flush() (int, error) {
	return l.file.Flush()
}

// CommitHeader persists the current end of log and record count in the
// header page and syncs. Callers flush the record pages first so the
// header never points past durable bytes.
func (l *Log) CommitHeader() error {
	if err := l.file.WritePage(0, buildHeader(l.id, l.flags, l.end, l.records)); err != nil {
		return fmt.Errorf("failed to write data log header: %w", err)
	}
	if _, err := l.file.Flush(); err != nil {
		return err
	}
	l.committed = l.end
	return nil
}

// UUID returns the store identity stamped at creation.
func (l *Log) UUID() uuid.UUID {
	return l.id
}

// Compressed reports whether values are stored snappy-encoded.
func (l *Log) Compressed() bool {
	return l.flags&FlagSnappy != 0
}

// End returns the next append position, including staged records.
func (l *Log) End() addr.Offset {
	return l.end
}

// CommittedEnd returns the end of log recorded in the durable header.
func (l *Log) CommittedEnd() addr.Offset {
	return l.committed
}

// Records returns the record count, including staged appends.
func (l *Log) Records() uint64 {
	return l.records
}

// PendingBytes returns how many appended bytes a crash would lose.
func (l *Log) PendingBytes() uint64 {
	return uint64(l.end) - uint64(l.committed)
}

// StagedPages returns the number of memory-resident tail pages.
func (l *Log) StagedPages() int {
	return l.file.StagedPages()
}

// Path returns the backing file path.
func (l *Log) Path() string {
	return l.file.Path()
}

// CacheStats returns clean-page cache statistics for the backing file.
func (l *Log) CacheStats() (hits, misses int64, hitRate float64) {
	return l.file.CacheStats()
}

// Close releases the backing file without flushing.
func (l *Log) Close() error {
	return l.file.Close()
}
