package pagefile

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/packdb/packdb/pkg/addr"
)

func openTestFile(t *testing.T) *PagedFile {
	t.Helper()

	path := filepath.Join(t.TempDir(), "pages.pdb")
	f, err := Open(path, 16, nil)
	if err != nil {
		t.Fatalf("Failed to open paged file: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestOpen_CreatesEmptyFile(t *testing.T) {
	f := openTestFile(t)

	if f.PageCount() != 0 {
		t.Errorf("Expected 0 pages in new file, got %d", f.PageCount())
	}
	if _, err := os.Stat(f.Path()); err != nil {
		t.Errorf("Expected file to exist: %v", err)
	}
}

func TestPagedFile_WriteReadPage(t *testing.T) {
	f := openTestFile(t)

	want := testPage(0x5A)
	if err := f.WritePage(0, want); err != nil {
		t.Fatalf("Failed to write page: %v", err)
	}

	got, err := f.ReadPage(0)
	if err != nil {
		t.Fatalf("Failed to read page: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Error("Read page does not match written content")
	}
	if f.PageCount() != 1 {
		t.Errorf("Expected 1 page, got %d", f.PageCount())
	}
}

func TestPagedFile_WritePageWrongSize(t *testing.T) {
	f := openTestFile(t)

	if err := f.WritePage(0, make([]byte, 100)); !errors.Is(err, ErrPageSize) {
		t.Errorf("Expected ErrPageSize for short buffer, got %v", err)
	}
	if err := f.WritePage(0, make([]byte, addr.PageSize+1)); !errors.Is(err, ErrPageSize) {
		t.Errorf("Expected ErrPageSize for long buffer, got %v", err)
	}
}

func TestPagedFile_ReadBeyondEnd(t *testing.T) {
	f := openTestFile(t)

	if _, err := f.ReadPage(0); !errors.Is(err, ErrPageRange) {
		t.Errorf("Expected ErrPageRange reading empty file, got %v", err)
	}

	if err := f.WritePage(0, testPage(1)); err != nil {
		t.Fatalf("Failed to write page: %v", err)
	}
	if _, err := f.ReadPage(1); !errors.Is(err, ErrPageRange) {
		t.Errorf("Expected ErrPageRange past last page, got %v", err)
	}
}

func TestPagedFile_WriteSparse(t *testing.T) {
	f := openTestFile(t)

	if err := f.WritePage(3, testPage(0x33)); err != nil {
		t.Fatalf("Failed to write page 3: %v", err)
	}
	if f.PageCount() != 4 {
		t.Errorf("Expected 4 pages after writing page 3, got %d", f.PageCount())
	}

	// The skipped pages exist as holes and read back zeroed.
	got, err := f.ReadPage(1)
	if err != nil {
		t.Fatalf("Failed to read hole page: %v", err)
	}
	for i, b := range got {
		if b != 0 {
			t.Fatalf("Expected zero byte at %d in hole page, got 0x%02x", i, b)
		}
	}
}

func TestPagedFile_DirtyPageVisibleBeforeFlush(t *testing.T) {
	f := openTestFile(t)

	p, err := f.DirtyPage(0)
	if err != nil {
		t.Fatalf("Failed to stage page: %v", err)
	}
	copy(p, []byte("staged content"))

	got, err := f.ReadPage(0)
	if err != nil {
		t.Fatalf("Failed to read staged page: %v", err)
	}
	if !bytes.HasPrefix(got, []byte("staged content")) {
		t.Error("Expected read to observe staged content")
	}

	// Nothing has reached the file yet.
	info, err := os.Stat(f.Path())
	if err != nil {
		t.Fatalf("Failed to stat file: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("Expected empty file while page is staged, got %d bytes", info.Size())
	}
	if f.StagedPages() != 1 {
		t.Errorf("Expected 1 staged page, got %d", f.StagedPages())
	}
}

func TestPagedFile_DirtyPageCopiesExisting(t *testing.T) {
	f := openTestFile(t)

	if err := f.WritePage(0, testPage(0x77)); err != nil {
		t.Fatalf("Failed to write page: %v", err)
	}

	p, err := f.DirtyPage(0)
	if err != nil {
		t.Fatalf("Failed to stage page: %v", err)
	}
	if p[100] != 0x77 {
		t.Errorf("Expected staged page to start from current content, got 0x%02x", p[100])
	}

	p[100] = 0xEE
	got, err := f.ReadPage(0)
	if err != nil {
		t.Fatalf("Failed to read page: %v", err)
	}
	if got[100] != 0xEE {
		t.Errorf("Expected mutation to be read-visible, got 0x%02x", got[100])
	}
}

func TestPagedFile_DirtyPageStableAcrossCalls(t *testing.T) {
	f := openTestFile(t)

	p1, err := f.DirtyPage(2)
	if err != nil {
		t.Fatalf("Failed to stage page: %v", err)
	}
	p1[0] = 0xAA

	p2, err := f.DirtyPage(2)
	if err != nil {
		t.Fatalf("Failed to stage page again: %v", err)
	}
	if p2[0] != 0xAA {
		t.Error("Expected second DirtyPage call to return the same staging")
	}
	if f.StagedPages() != 1 {
		t.Errorf("Expected 1 staged page, got %d", f.StagedPages())
	}
}

func TestPagedFile_CompletePage(t *testing.T) {
	f := openTestFile(t)

	p, err := f.DirtyPage(0)
	if err != nil {
		t.Fatalf("Failed to stage page: %v", err)
	}
	copy(p, []byte("completed"))

	if err := f.CompletePage(0); err != nil {
		t.Fatalf("Failed to complete page: %v", err)
	}
	if f.StagedPages() != 0 {
		t.Errorf("Expected 0 staged pages after complete, got %d", f.StagedPages())
	}

	info, err := os.Stat(f.Path())
	if err != nil {
		t.Fatalf("Failed to stat file: %v", err)
	}
	if info.Size() != addr.PageSize {
		t.Errorf("Expected one page in file after complete, got %d bytes", info.Size())
	}

	got, err := f.ReadPage(0)
	if err != nil {
		t.Fatalf("Failed to read completed page: %v", err)
	}
	if !bytes.HasPrefix(got, []byte("completed")) {
		t.Error("Completed page content does not match")
	}

	// Completing a page that is not staged is a no-op.
	if err := f.CompletePage(5); err != nil {
		t.Errorf("Expected no-op completing unstaged page, got %v", err)
	}
}

func TestPagedFile_FlushWritesStagedPages(t *testing.T) {
	f := openTestFile(t)

	for n := uint64(0); n < 3; n++ {
		p, err := f.DirtyPage(n)
		if err != nil {
			t.Fatalf("Failed to stage page %d: %v", n, err)
		}
		p[0] = byte(n + 1)
	}

	flushed, err := f.Flush()
	if err != nil {
		t.Fatalf("Failed to flush: %v", err)
	}
	if flushed != 3 {
		t.Errorf("Expected 3 pages flushed, got %d", flushed)
	}
	if f.StagedPages() != 0 {
		t.Errorf("Expected 0 staged pages after flush, got %d", f.StagedPages())
	}

	// A second flush with nothing pending reports zero pages.
	flushed, err = f.Flush()
	if err != nil {
		t.Fatalf("Failed to flush empty: %v", err)
	}
	if flushed != 0 {
		t.Errorf("Expected 0 pages on empty flush, got %d", flushed)
	}
}

func TestPagedFile_FlushCountsEagerWrites(t *testing.T) {
	f := openTestFile(t)

	if err := f.WritePage(0, testPage(1)); err != nil {
		t.Fatalf("Failed to write page: %v", err)
	}
	if err := f.WritePage(1, testPage(2)); err != nil {
		t.Fatalf("Failed to write page: %v", err)
	}

	flushed, err := f.Flush()
	if err != nil {
		t.Fatalf("Failed to flush: %v", err)
	}
	if flushed != 2 {
		t.Errorf("Expected 2 pages made durable, got %d", flushed)
	}
}

func TestPagedFile_ContentSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pages.pdb")

	f, err := Open(path, 16, nil)
	if err != nil {
		t.Fatalf("Failed to open paged file: %v", err)
	}
	if err := f.WritePage(0, testPage(0x11)); err != nil {
		t.Fatalf("Failed to write page: %v", err)
	}
	p, err := f.DirtyPage(1)
	if err != nil {
		t.Fatalf("Failed to stage page: %v", err)
	}
	p[0] = 0x22
	if _, err := f.Flush(); err != nil {
		t.Fatalf("Failed to flush: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Failed to close: %v", err)
	}

	f, err = Open(path, 16, nil)
	if err != nil {
		t.Fatalf("Failed to reopen paged file: %v", err)
	}
	defer f.Close()

	if f.PageCount() != 2 {
		t.Errorf("Expected 2 pages after reopen, got %d", f.PageCount())
	}
	got, err := f.ReadPage(0)
	if err != nil {
		t.Fatalf("Failed to read page 0: %v", err)
	}
	if got[0] != 0x11 {
		t.Errorf("Expected page 0 content 0x11, got 0x%02x", got[0])
	}
	got, err = f.ReadPage(1)
	if err != nil {
		t.Fatalf("Failed to read page 1: %v", err)
	}
	if got[0] != 0x22 {
		t.Errorf("Expected page 1 content 0x22, got 0x%02x", got[0])
	}
}

func TestPagedFile_StagedPagesLostWithoutFlush(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pages.pdb")

	f, err := Open(path, 16, nil)
	if err != nil {
		t.Fatalf("Failed to open paged file: %v", err)
	}
	p, err := f.DirtyPage(0)
	if err != nil {
		t.Fatalf("Failed to stage page: %v", err)
	}
	p[0] = 0x99
	if err := f.Close(); err != nil {
		t.Fatalf("Failed to close: %v", err)
	}

	f, err = Open(path, 16, nil)
	if err != nil {
		t.Fatalf("Failed to reopen paged file: %v", err)
	}
	defer f.Close()

	if f.PageCount() != 0 {
		t.Errorf("Expected staged page to be discarded on close, got %d pages", f.PageCount())
	}
}

func TestPagedFile_IgnoresTornTrailingFragment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pages.pdb")

	f, err := Open(path, 16, nil)
	if err != nil {
		t.Fatalf("Failed to open paged file: %v", err)
	}
	if err := f.WritePage(0, testPage(0x44)); err != nil {
		t.Fatalf("Failed to write page: %v", err)
	}
	if _, err := f.Flush(); err != nil {
		t.Fatalf("Failed to flush: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Failed to close: %v", err)
	}

	// Simulate a torn write by appending half a page.
	raw, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		t.Fatalf("Failed to open file raw: %v", err)
	}
	if _, err := raw.Write(make([]byte, addr.PageSize/2)); err != nil {
		t.Fatalf("Failed to append fragment: %v", err)
	}
	raw.Close()

	f, err = Open(path, 16, nil)
	if err != nil {
		t.Fatalf("Failed to reopen paged file: %v", err)
	}
	defer f.Close()

	if f.PageCount() != 1 {
		t.Errorf("Expected fragment to be ignored, got %d pages", f.PageCount())
	}
	if _, err := f.ReadPage(1); !errors.Is(err, ErrPageRange) {
		t.Errorf("Expected ErrPageRange for fragment page, got %v", err)
	}
}

func TestPagedFile_ReadRange(t *testing.T) {
	f := openTestFile(t)

	// Lay out recognizable content across two pages.
	p0 := make([]byte, addr.PageSize)
	p1 := make([]byte, addr.PageSize)
	for i := range p0 {
		p0[i] = 0xA0
		p1[i] = 0xB1
	}
	if err := f.WritePage(0, p0); err != nil {
		t.Fatalf("Failed to write page 0: %v", err)
	}
	if err := f.WritePage(1, p1); err != nil {
		t.Fatalf("Failed to write page 1: %v", err)
	}

	// A range spanning the page boundary.
	got, err := f.ReadRange(addr.PageStart(0)+addr.Offset(addr.PageSize-10), 20)
	if err != nil {
		t.Fatalf("Failed to read range: %v", err)
	}
	if len(got) != 20 {
		t.Fatalf("Expected 20 bytes, got %d", len(got))
	}
	for i := 0; i < 10; i++ {
		if got[i] != 0xA0 {
			t.Fatalf("Expected byte %d from page 0, got 0x%02x", i, got[i])
		}
	}
	for i := 10; i < 20; i++ {
		if got[i] != 0xB1 {
			t.Fatalf("Expected byte %d from page 1, got 0x%02x", i, got[i])
		}
	}
}

func TestPagedFile_ReadRangeObservesStagedTail(t *testing.T) {
	f := openTestFile(t)

	if err := f.WritePage(0, testPage(0xC0)); err != nil {
		t.Fatalf("Failed to write page 0: %v", err)
	}
	p, err := f.DirtyPage(1)
	if err != nil {
		t.Fatalf("Failed to stage page 1: %v", err)
	}
	copy(p, []byte{0xD1, 0xD2, 0xD3})

	got, err := f.ReadRange(addr.PageStart(0)+addr.Offset(addr.PageSize-2), 5)
	if err != nil {
		t.Fatalf("Failed to read range: %v", err)
	}
	want := []byte{0xC0, 0xC0, 0xD1, 0xD2, 0xD3}
	if !bytes.Equal(got, want) {
		t.Errorf("Expected % x, got % x", want, got)
	}
}

func TestPagedFile_ReadRangeEmpty(t *testing.T) {
	f := openTestFile(t)

	got, err := f.ReadRange(0, 0)
	if err != nil {
		t.Fatalf("Failed to read empty range: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected empty slice, got %d bytes", len(got))
	}
}

func TestPagedFile_Truncate(t *testing.T) {
	f := openTestFile(t)

	if err := f.Truncate(5); err != nil {
		t.Fatalf("Failed to truncate: %v", err)
	}
	if f.PageCount() != 5 {
		t.Errorf("Expected 5 pages after extend, got %d", f.PageCount())
	}

	got, err := f.ReadPage(4)
	if err != nil {
		t.Fatalf("Failed to read extended page: %v", err)
	}
	for i, b := range got {
		if b != 0 {
			t.Fatalf("Expected zero byte at %d in extended page, got 0x%02x", i, b)
		}
	}
}

func TestPagedFile_CacheServesRepeatReads(t *testing.T) {
	f := openTestFile(t)

	if err := f.WritePage(0, testPage(0x01)); err != nil {
		t.Fatalf("Failed to write page: %v", err)
	}

	for i := 0; i < 5; i++ {
		if _, err := f.ReadPage(0); err != nil {
			t.Fatalf("Failed to read page: %v", err)
		}
	}

	hits, _, _ := f.CacheStats()
	if hits < 5 {
		t.Errorf("Expected at least 5 cache hits, got %d", hits)
	}
}

func TestPagedFile_Closed(t *testing.T) {
	f := openTestFile(t)
	if err := f.Close(); err != nil {
		t.Fatalf("Failed to close: %v", err)
	}

	if _, err := f.ReadPage(0); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed on read, got %v", err)
	}
	if err := f.WritePage(0, testPage(0)); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed on write, got %v", err)
	}
	if _, err := f.Flush(); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed on flush, got %v", err)
	}

	// Double close is harmless.
	if err := f.Close(); err != nil {
		t.Errorf("Expected nil on double close, got %v", err)
	}
}

func TestOpenReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pages.pdb")

	f, err := Open(path, 16, nil)
	if err != nil {
		t.Fatalf("Failed to open paged file: %v", err)
	}
	if err := f.WritePage(0, testPage(0x66)); err != nil {
		t.Fatalf("Failed to write page: %v", err)
	}
	if err := f.WritePage(1, testPage(0x67)); err != nil {
		t.Fatalf("Failed to write page: %v", err)
	}
	if _, err := f.Flush(); err != nil {
		t.Fatalf("Failed to flush: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Failed to close: %v", err)
	}

	ro, err := OpenReadOnly(path, nil)
	if err != nil {
		t.Fatalf("Failed to open read-only: %v", err)
	}
	defer ro.Close()

	if ro.PageCount() != 2 {
		t.Errorf("Expected 2 pages, got %d", ro.PageCount())
	}

	got, err := ro.ReadPage(1)
	if err != nil {
		t.Fatalf("Failed to read mapped page: %v", err)
	}
	if got[0] != 0x67 {
		t.Errorf("Expected 0x67, got 0x%02x", got[0])
	}

	span, err := ro.ReadRange(addr.PageStart(0)+addr.Offset(addr.PageSize-1), 2)
	if err != nil {
		t.Fatalf("Failed to read mapped range: %v", err)
	}
	if span[0] != 0x66 || span[1] != 0x67 {
		t.Errorf("Expected 66 67, got % x", span)
	}

	if _, err := ro.ReadPage(2); !errors.Is(err, ErrPageRange) {
		t.Errorf("Expected ErrPageRange, got %v", err)
	}

	if err := ro.WritePage(0, testPage(0)); !errors.Is(err, ErrReadOnly) {
		t.Errorf("Expected ErrReadOnly on write, got %v", err)
	}
	if _, err := ro.DirtyPage(0); !errors.Is(err, ErrReadOnly) {
		t.Errorf("Expected ErrReadOnly on stage, got %v", err)
	}
	if _, err := ro.Flush(); !errors.Is(err, ErrReadOnly) {
		t.Errorf("Expected ErrReadOnly on flush, got %v", err)
	}
}
