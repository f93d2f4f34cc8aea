package addr

// AppendOffset appends o's 6-byte big-endian encoding to dst.
func AppendOffset(dst []byte, o Offset) []byte {
	return append(dst,
		byte(o>>40), byte(o>>32), byte(o>>24),
		byte(o>>16), byte(o>>8), byte(o),
	)
}

// PutOffset writes o's 6-byte big-endian encoding at the start of b.
// b must hold at least OffsetLen bytes.
func PutOffset(b []byte, o Offset) {
	_ = b[OffsetLen-1]
	b[0] = byte(o >> 40)
	b[1] = byte(o >> 32)
	b[2] = byte(o >> 24)
	b[3] = byte(o >> 16)
	b[4] = byte(o >> 8)
	b[5] = byte(o)
}

// DecodeOffset decodes a 6-byte big-endian Offset from the start of b.
// A buffer shorter than OffsetLen fails with ErrFormat, never a
// zero-padded partial value.
func DecodeOffset(b []byte) (Offset, error) {
	if len(b) < OffsetLen {
		return 0, ErrFormat
	}
	v := uint64(b[0])<<40 | uint64(b[1])<<32 | uint64(b[2])<<24 |
		uint64(b[3])<<16 | uint64(b[4])<<8 | uint64(b[5])
	return Offset(v), nil
}

// AppendSize appends s's 3-byte big-endian encoding to dst.
func AppendSize(dst []byte, s Size) []byte {
	return append(dst, byte(s>>16), byte(s>>8), byte(s))
}

// EncodeSize appends the 3-byte big-endian encoding of the length n to
// dst. Lengths outside the 24-bit range fail with ErrCapacity rather
// than truncating.
func EncodeSize(dst []byte, n int) ([]byte, error) {
	s, err := CheckSize(n)
	if err != nil {
		return dst, err
	}
	return AppendSize(dst, s), nil
}

// DecodeSize decodes a 3-byte big-endian Size from the start of b.
// A buffer shorter than SizeLen fails with ErrFormat.
func DecodeSize(b []byte) (Size, error) {
	if len(b) < SizeLen {
		return 0, ErrFormat
	}
	return Size(uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])), nil
}
