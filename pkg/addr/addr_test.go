package addr

import (
	"bytes"
	"errors"
	"testing"
)

func TestOffset_Masking(t *testing.T) {
	o := NewOffset(1<<63 | 42)
	if o != 42 {
		t.Errorf("Expected high bits masked away, got %d", uint64(o))
	}

	if NewOffset(MaxOffset) != MaxOffset {
		t.Errorf("Expected MaxOffset to survive construction")
	}
}

func TestOffset_RoundTrip(t *testing.T) {
	values := []uint64{0, 1, PageSize - 1, PageSize, PageSize + 1, 1 << 24, MaxOffset}

	for _, v := range values {
		o := NewOffset(v)
		buf := AppendOffset(nil, o)
		if len(buf) != OffsetLen {
			t.Fatalf("Expected %d encoded bytes, got %d", OffsetLen, len(buf))
		}

		got, err := DecodeOffset(buf)
		if err != nil {
			t.Fatalf("Failed to decode offset %d: %v", v, err)
		}
		if got != o {
			t.Errorf("Round trip of %d: got %d", v, uint64(got))
		}
	}
}

func TestOffset_KnownEncoding(t *testing.T) {
	// 0x010203040506 spelled out so the byte order is pinned down
	buf := AppendOffset(nil, NewOffset(0x010203040506))
	want := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06}
	if !bytes.Equal(buf, want) {
		t.Errorf("Expected big-endian bytes %x, got %x", want, buf)
	}
}

func TestDecodeOffset_ShortBuffer(t *testing.T) {
	for n := 0; n < OffsetLen; n++ {
		_, err := DecodeOffset(make([]byte, n))
		if !errors.Is(err, ErrFormat) {
			t.Errorf("Expected ErrFormat for %d-byte buffer, got %v", n, err)
		}
	}
}

func TestPutOffset(t *testing.T) {
	b := make([]byte, OffsetLen)
	PutOffset(b, NewOffset(0xABCDEF0123))

	got, err := DecodeOffset(b)
	if err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if got != 0xABCDEF0123 {
		t.Errorf("Expected 0xABCDEF0123, got %x", uint64(got))
	}
}

func TestOffset_PageArithmetic(t *testing.T) {
	tests := []struct {
		off      uint64
		thisPage uint64
		nextPage uint64
		pageNum  uint64
		inPage   int
	}{
		{0, 0, PageSize, 0, 0},
		{1, 0, PageSize, 0, 1},
		{PageSize - 1, 0, PageSize, 0, PageSize - 1},
		{PageSize, PageSize, 2 * PageSize, 1, 0},
		{PageSize + 1, PageSize, 2 * PageSize, 1, 1},
		{10*PageSize + 17, 10 * PageSize, 11 * PageSize, 10, 17},
	}

	for _, tt := range tests {
		o := NewOffset(tt.off)
		if got := o.ThisPage(); uint64(got) != tt.thisPage {
			t.Errorf("ThisPage(%d): expected %d, got %d", tt.off, tt.thisPage, uint64(got))
		}
		if got := o.NextPage(); uint64(got) != tt.nextPage {
			t.Errorf("NextPage(%d): expected %d, got %d", tt.off, tt.nextPage, uint64(got))
		}
		if got := o.PageNumber(); got != tt.pageNum {
			t.Errorf("PageNumber(%d): expected %d, got %d", tt.off, tt.pageNum, got)
		}
		if got := o.InPagePos(); got != tt.inPage {
			t.Errorf("InPagePos(%d): expected %d, got %d", tt.off, tt.inPage, got)
		}
	}
}

func TestPageStart(t *testing.T) {
	for _, n := range []uint64{0, 1, 7, 1 << 20} {
		o := PageStart(n)
		if o.PageNumber() != n {
			t.Errorf("PageStart(%d).PageNumber(): got %d", n, o.PageNumber())
		}
		if o.InPagePos() != 0 {
			t.Errorf("PageStart(%d) not page aligned", n)
		}
	}
}

func TestOffset_Add(t *testing.T) {
	o, err := NewOffset(100).Add(28)
	if err != nil {
		t.Fatalf("Failed to advance offset: %v", err)
	}
	if o != 128 {
		t.Errorf("Expected 128, got %d", uint64(o))
	}

	if _, err := NewOffset(MaxOffset).Add(1); !errors.Is(err, ErrCapacity) {
		t.Errorf("Expected ErrCapacity past 48 bits, got %v", err)
	}
}

func TestCheckOffset(t *testing.T) {
	if _, err := CheckOffset(MaxOffset); err != nil {
		t.Errorf("Expected MaxOffset to pass, got %v", err)
	}
	if _, err := CheckOffset(MaxOffset + 1); !errors.Is(err, ErrCapacity) {
		t.Errorf("Expected ErrCapacity, got %v", err)
	}
}

func TestSize_RoundTrip(t *testing.T) {
	for _, v := range []uint32{0, 1, 300, 1 << 16, MaxSize} {
		s := NewSize(v)
		buf := AppendSize(nil, s)
		if len(buf) != SizeLen {
			t.Fatalf("Expected %d encoded bytes, got %d", SizeLen, len(buf))
		}

		got, err := DecodeSize(buf)
		if err != nil {
			t.Fatalf("Failed to decode size %d: %v", v, err)
		}
		if got != s {
			t.Errorf("Round trip of %d: got %d", v, uint32(got))
		}
	}
}

func TestEncodeSize_Capacity(t *testing.T) {
	buf, err := EncodeSize(nil, MaxSize)
	if err != nil {
		t.Fatalf("Failed to encode max size: %v", err)
	}
	if !bytes.Equal(buf, []byte{0xFF, 0xFF, 0xFF}) {
		t.Errorf("Expected FF FF FF, got %x", buf)
	}

	if _, err := EncodeSize(nil, MaxSize+1); !errors.Is(err, ErrCapacity) {
		t.Errorf("Expected ErrCapacity for oversized length, got %v", err)
	}
	if _, err := EncodeSize(nil, -1); !errors.Is(err, ErrCapacity) {
		t.Errorf("Expected ErrCapacity for negative length, got %v", err)
	}
}

func TestDecodeSize_ShortBuffer(t *testing.T) {
	for n := 0; n < SizeLen; n++ {
		_, err := DecodeSize(make([]byte, n))
		if !errors.Is(err, ErrFormat) {
			t.Errorf("Expected ErrFormat for %d-byte buffer, got %v", n, err)
		}
	}
}
