package store

import (
	"fmt"
	"time"

	"github.com/packdb/packdb/pkg/datalog"
	"github.com/packdb/packdb/pkg/hashindex"
	"github.com/packdb/packdb/pkg/logging"
	"github.com/packdb/packdb/pkg/metrics"
)

// OpenReadOnly opens an existing store for inspection. Both files are
// memory-mapped; Get, History and Stats work, every mutating call
// fails with ErrReadOnly, and the store on disk is never touched. The
// returned handle is ready to use; no Init is needed.
func OpenReadOnly(path string, options ...Option) (*Store, error) {
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

	s := &Store{
		path:     path,
		opts:     opts,
		readOnly: true,
		log:      opts.Logger.With(logging.Component("store"), logging.Path(path)),
		met:      opts.Metrics,
	}

	data, err := datalog.OpenReadOnly(s.dataPath(), s.datalogConfig())
	if err != nil {
		return nil, s.opErr("open", 0, err)
	}
	index, err := hashindex.OpenReadOnly(s.indexPath(), s.indexConfig())
	if err != nil {
		data.Close()
		return nil, s.opErr("open", 0, err)
	}
	if data.UUID() != index.UUID() {
		data.Close()
		index.Close()
		return nil, s.opErr("open", 0, ErrStoreMismatch)
	}

	s.data = data
	s.index = index
	s.open = true
	s.start = time.Now()

	s.log.Info("store opened read-only",
		logging.String("store", data.UUID().String()),
		logging.Records(data.Records()))
	return s, nil
}

// ReadOnly reports whether the handle was opened with OpenReadOnly.
func (s *Store) ReadOnly() bool {
	return s.readOnly
}
