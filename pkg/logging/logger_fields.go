package logging

import (
	"encoding/hex"
	"time"
)

// Common field constructors
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

func Uint64(key string, value uint64) Field {
	return Field{Key: key, Value: value}
}

func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Field helpers for the storage engine's common log dimensions
func Component(name string) Field {
	return String("component", name)
}

func Operation(op string) Field {
	return String("operation", op)
}

// Offset logs a 48-bit file offset as its numeric value.
func Offset(v uint64) Field {
	return Uint64("offset", v)
}

// Page logs a page number.
func Page(n uint64) Field {
	return Uint64("page", n)
}

// Bucket logs a hash index bucket number.
func Bucket(n uint64) Field {
	return Uint64("bucket", n)
}

// Key logs a record key hex-encoded, since keys are arbitrary bytes.
func Key(k []byte) Field {
	return String("key", hex.EncodeToString(k))
}

func Records(n uint64) Field {
	return Uint64("records", n)
}

func Bytes(n int64) Field {
	return Int64("bytes", n)
}

func Latency(d time.Duration) Field {
	return Duration("latency", d)
}

func Count(n int) Field {
	return Int("count", n)
}

func Path(p string) Field {
	return String("path", p)
}
