package jumpinfo

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/ecmwf/gribjump/pkg/accessor"
	"github.com/ecmwf/gribjump/pkg/block"
)

// EnumerateMessages walks acc from front to back and returns the byte
// offset of every GRIB message it contains, by reading each message's
// own declared length and jumping straight to the next "GRIB" magic
// rather than scanning byte by byte. Grounded on GribHandle's message
// iteration used by InfoCache::scan(path) (scan-the-whole-file mode).
func EnumerateMessages(ctx context.Context, acc accessor.Accessor) ([]uint64, error) {
	size, err := acc.Size(ctx)
	if err != nil {
		return nil, fmt.Errorf("jumpinfo: enumerate: accessor size: %w", err)
	}

	var offsets []uint64
	var pos uint64
	for pos+16 <= size {
		header, err := acc.Read(ctx, block.Span{Offset: pos, Size: 16})
		if err != nil {
			return nil, fmt.Errorf("jumpinfo: enumerate: read header at %d: %w", pos, err)
		}
		if string(header[0:4]) != "GRIB" {
			return nil, fmt.Errorf("jumpinfo: enumerate: missing GRIB magic at offset %d", pos)
		}
		offsets = append(offsets, pos)

		edition := header[7]
		var totalLength uint64
		switch edition {
		case 2:
			totalLength = binary.BigEndian.Uint64(header[8:16])
		case 1:
			totalLength = uint64(header[4])<<16 | uint64(header[5])<<8 | uint64(header[6])
		default:
			return nil, fmt.Errorf("jumpinfo: enumerate: unsupported edition %d at offset %d", edition, pos)
		}
		if totalLength == 0 {
			return nil, fmt.Errorf("jumpinfo: enumerate: zero-length message at offset %d", pos)
		}
		pos += totalLength
	}
	return offsets, nil
}
