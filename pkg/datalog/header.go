package datalog

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/google/uuid"

	"github.com/packdb/packdb/pkg/addr"
)

func buildHeader(id uuid.UUID, flags uint8, end addr.Offset, records uint64) []byte {
	p := make([]byte, addr.PageSize)
	copy(p[headerMagicOff:], Magic)
	binary.BigEndian.PutUint16(p[headerVersionOff:], Version)
	copy(p[headerUUIDOff:], id[:])
	p[headerFlagsOff] = flags
	addr.PutOffset(p[headerEndOff:headerRecordsOff], end)
	binary.BigEndian.PutUint64(p[headerRecordsOff:], records)
	binary.BigEndian.PutUint32(p[headerCRCOff:], crc32.ChecksumIEEE(p[:headerCRCOff]))
	return p
}

func parseHeader(p []byte) (id uuid.UUID, flags uint8, end addr.Offset, records uint64, err error) {
	if string(p[headerMagicOff:headerMagicOff+4]) != Magic {
		return id, 0, 0, 0, fmt.Errorf("bad magic %q: %w", p[headerMagicOff:headerMagicOff+4], ErrHeader)
	}
	if v := binary.BigEndian.Uint16(p[headerVersionOff:]); v != Version {
		return id, 0, 0, 0, fmt.Errorf("unsupported format version %d: %w", v, ErrHeader)
	}
	if sum := crc32.ChecksumIEEE(p[:headerCRCOff]); sum != binary.BigEndian.Uint32(p[headerCRCOff:]) {
		return id, 0, 0, 0, fmt.Errorf("header checksum mismatch: %w", ErrHeader)
	}

	copy(id[:], p[headerUUIDOff:headerUUIDOff+16])
	flags = p[headerFlagsOff]
	end, err = addr.DecodeOffset(p[headerEndOff:headerRecordsOff])
	if err != nil {
		return id, 0, 0, 0, fmt.Errorf("failed to decode end of log: %w", err)
	}
	if end < addr.PageSize {
		return id, 0, 0, 0, fmt.Errorf("end of log %d inside header page: %w", end, ErrHeader)
	}
	records = binary.BigEndian.Uint64(p[headerRecordsOff:])
	return id, flags, end, records, nil
}
