package addr

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestAddressCodecProperties verifies the algebraic guarantees of the
// fixed-width codec over the full value ranges
func TestAddressCodecProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	// Offsets round-trip under the 48-bit mask for any u64 source
	properties.Property("offset round-trip under mask", prop.ForAll(
		func(v uint64) bool {
			o := NewOffset(v)
			buf := AppendOffset(nil, o)
			got, err := DecodeOffset(buf)
			if err != nil {
				return false
			}
			return got == Offset(v&MaxOffset)
		},
		gen.UInt64(),
	))

	// Sizes round-trip exactly for any in-range length
	properties.Property("size round-trip", prop.ForAll(
		func(n int) bool {
			buf, err := EncodeSize(nil, n)
			if err != nil {
				return false
			}
			got, decErr := DecodeSize(buf)
			return decErr == nil && int(got) == n
		},
		gen.IntRange(0, MaxSize),
	))

	// Encoding never silently truncates an oversized length
	properties.Property("oversized size is rejected", prop.ForAll(
		func(excess int) bool {
			_, err := EncodeSize(nil, MaxSize+excess)
			return err == ErrCapacity
		},
		gen.IntRange(1, 1<<30),
	))

	// Every offset sits inside the page bracket its arithmetic names
	properties.Property("page bracket contains offset", prop.ForAll(
		func(v uint64) bool {
			o := NewOffset(v)
			return o.ThisPage() <= o && o < o.NextPage()
		},
		gen.UInt64(),
	))

	// Page brackets are exactly one page wide
	properties.Property("page bracket is one page wide", prop.ForAll(
		func(v uint64) bool {
			o := NewOffset(v)
			return o.NextPage()-o.ThisPage() == PageSize
		},
		gen.UInt64(),
	))

	// PageNumber and InPagePos decompose an offset losslessly
	properties.Property("page decomposition is lossless", prop.ForAll(
		func(v uint64) bool {
			o := NewOffset(v)
			return uint64(o) == o.PageNumber()*PageSize+uint64(o.InPagePos())
		},
		gen.UInt64(),
	))

	properties.TestingRun(t)
}
