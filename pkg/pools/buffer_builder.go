package pools

import (
	"github.com/packdb/packdb/pkg/addr"
)

// BufferBuilder assembles record and header images with pooled backing.
type BufferBuilder struct {
	buf  []byte
	pool *BytePool
}

// NewBufferBuilder creates a new buffer builder with the given initial capacity.
func NewBufferBuilder(initialCap int) *BufferBuilder {
	return &BufferBuilder{
		buf:  defaultBytePool.Get(initialCap),
		pool: defaultBytePool,
	}
}

// Write appends bytes to the buffer.
func (b *BufferBuilder) Write(p []byte) {
	b.buf = append(b.buf, p...)
}

// WriteByte appends a single byte.
func (b *BufferBuilder) WriteByte(c byte) error {
	b.buf = append(b.buf, c)
	return nil
}

// WriteOffset appends a 6-byte big-endian file offset.
func (b *BufferBuilder) WriteOffset(o addr.Offset) {
	b.buf = addr.AppendOffset(b.buf, o)
}

// WriteSize appends a 3-byte big-endian length field.
func (b *BufferBuilder) WriteSize(s addr.Size) {
	b.buf = addr.AppendSize(b.buf, s)
}

// WriteUint32BE appends a uint32 in big-endian order (checksum fields).
func (b *BufferBuilder) WriteUint32BE(v uint32) {
	b.buf = append(b.buf,
		byte(v>>24),
		byte(v>>16),
		byte(v>>8),
		byte(v),
	)
}

// Bytes returns the built buffer. After calling Bytes, the builder should not be used.
func (b *BufferBuilder) Bytes() []byte {
	return b.buf
}

// Len returns the current length of the buffer.
func (b *BufferBuilder) Len() int {
	return len(b.buf)
}

// Reset resets the buffer for reuse.
func (b *BufferBuilder) Reset() {
	b.buf = b.buf[:0]
}

// Release returns the buffer to the pool. After Release, the builder should not be used.
func (b *BufferBuilder) Release() {
	if b.pool != nil && b.buf != nil {
		b.pool.Put(b.buf)
	}
	b.buf = nil
}
