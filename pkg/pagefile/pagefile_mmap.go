package pagefile

import (
	"fmt"

	"golang.org/x/exp/mmap"

	"github.com/packdb/packdb/pkg/addr"
	"github.com/packdb/packdb/pkg/metrics"
)

// OpenReadOnly opens the paged file memory-mapped for reads. Every
// mutating call fails with ErrReadOnly. Mapped reads bypass the page
// cache; the kernel's page cache already serves repeat reads.
func OpenReadOnly(path string, met *metrics.Registry) (*PagedFile, error) {
	if met == nil {
		met = metrics.DefaultRegistry()
	}

	reader, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to map paged file: %w", err)
	}

	filePages := uint64(reader.Len()) / addr.PageSize

	return &PagedFile{
		path:      path,
		ro:        reader,
		dirty:     make(map[uint64][]byte),
		filePages: filePages,
		pages:     filePages,
		met:       met,
	}, nil
}

func (f *PagedFile) readPageMapped(n uint64) ([]byte, error) {
	if n >= f.filePages {
		return nil, fmt.Errorf("failed to read page %d of %s: %w", n, f.path, ErrPageRange)
	}
	buf := make([]byte, addr.PageSize)
	if _, err := f.ro.ReadAt(buf, int64(n)*addr.PageSize); err != nil {
		return nil, fmt.Errorf("failed to read page %d of %s: %w", n, f.path, err)
	}
	f.met.PageReadsTotal.Inc()
	return buf, nil
}
