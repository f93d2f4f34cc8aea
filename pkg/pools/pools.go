// Package pools provides object pooling for reducing GC pressure.
//
// This package contains the pool implementations the storage engine
// leans on for its hot paths:
//
//   - BytePool: size-class based pooling for key and value buffers
//   - PagePool: fixed-size pooling for file pages
//   - BufferBuilder: record and header assembly with pooled backing
package pools
