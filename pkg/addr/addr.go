// Package addr defines the fixed-width address types shared by every
// on-disk region of a store: 48-bit byte offsets and 24-bit record
// lengths, both encoded big-endian, plus the page arithmetic derived
// from them.
package addr

import (
	"errors"
)

// PageSize is the fixed page size shared by every file region.
// It is the unit of I/O and of alignment for the data log and the
// hash index alike.
const PageSize = 4096

const (
	OffsetLen = 6 // bytes in an encoded Offset
	SizeLen   = 3 // bytes in an encoded Size

	MaxOffset = 1<<48 - 1 // largest addressable byte position
	MaxSize   = 1<<24 - 1 // largest encodable record length
)

// Common sentinel errors
var (
	ErrFormat   = errors.New("truncated fixed-width field")
	ErrCapacity = errors.New("value out of field range")
)

// Offset is a 48-bit byte address into a store file. Offsets are
// comparable, usable as map keys, and ordered numerically. The zero
// Offset doubles as the empty/none marker in bucket slots and chain
// links, since no record ever starts at byte 0 (page 0 is a header).
type Offset uint64

// NewOffset masks v to 48 bits. Truncation of higher bits is documented
// behavior for in-range use; call sites that can produce out-of-range
// values must guard with CheckOffset first.
func NewOffset(v uint64) Offset {
	return Offset(v & MaxOffset)
}

// CheckOffset returns v as an Offset, or ErrCapacity when v needs more
// than 48 bits.
func CheckOffset(v uint64) (Offset, error) {
	if v > MaxOffset {
		return 0, ErrCapacity
	}
	return Offset(v), nil
}

// Add advances o by n bytes, failing with ErrCapacity past the 48-bit
// range.
func (o Offset) Add(n uint64) (Offset, error) {
	v := uint64(o) + n
	if v < uint64(o) || v > MaxOffset {
		return 0, ErrCapacity
	}
	return Offset(v), nil
}

// ThisPage rounds o down to the boundary of the page containing it.
func (o Offset) ThisPage() Offset {
	return o &^ (PageSize - 1)
}

// NextPage returns the boundary of the page after the one containing o.
// At the very top of the address space the result overflows 48 bits;
// the log capacity guard keeps real appends from ever getting there.
func (o Offset) NextPage() Offset {
	return o.ThisPage() + PageSize
}

// PageNumber returns the zero-based index of the page containing o.
func (o Offset) PageNumber() uint64 {
	return uint64(o) / PageSize
}

// InPagePos returns o's byte position within its page.
func (o Offset) InPagePos() int {
	return int(uint64(o) % PageSize)
}

// PageStart returns the Offset of the first byte of page n.
func PageStart(n uint64) Offset {
	return Offset(n * PageSize)
}

// Size is a 24-bit record length.
type Size uint32

// NewSize masks v to 24 bits. As with NewOffset, truncation is
// documented behavior; guard with CheckSize where oversized input is
// possible.
func NewSize(v uint32) Size {
	return Size(v & MaxSize)
}

// CheckSize returns n as a Size, or ErrCapacity when n does not fit in
// 24 bits.
func CheckSize(n int) (Size, error) {
	if n < 0 || n > MaxSize {
		return 0, ErrCapacity
	}
	return Size(n), nil
}
