package jumpinfo

import (
	"context"
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/ecmwf/gribjump/pkg/accessor"
	"github.com/ecmwf/gribjump/pkg/block"
)

// scanEdition1 parses a GRIB1 message: Section 0 (8 bytes), Section 1
// (Product Definition), an optional Section 2 (Grid Description),
// an optional Section 3 (Bit Map), and Section 4 (Binary Data). GRIB1
// fields do not carry a CCSDS representation in practice, so every
// GRIB1 message is either grid_simple or unsupported.
func scanEdition1(ctx context.Context, acc accessor.Accessor, msgOffset uint64, header []byte) (*JumpInfo, error) {
	totalLength := uint64(header[4])<<16 | uint64(header[5])<<8 | uint64(header[6])

	raw, err := acc.Read(ctx, block.Span{Offset: msgOffset, Size: totalLength})
	if err != nil {
		return nil, fmt.Errorf("jumpinfo: read edition-1 message body: %w", err)
	}

	j := &JumpInfo{
		Edition:            1,
		TotalLength:        totalLength,
		MessageStartOffset: msgOffset,
	}

	off := 8
	if off+3 > len(raw) {
		return nil, fmt.Errorf("jumpinfo: edition-1 message too short for section 1")
	}
	pdsLen := int(raw[off])<<16 | int(raw[off+1])<<8 | int(raw[off+2])
	if off+pdsLen > len(raw) {
		return nil, fmt.Errorf("jumpinfo: section 1 length %d overflows message", pdsLen)
	}
	pds := raw[off : off+pdsLen]
	hasGDS := pdsLen > 7 && pds[7]&0x80 != 0
	hasBMS := pdsLen > 7 && pds[7]&0x40 != 0
	off += pdsLen

	var gds []byte
	if hasGDS {
		if off+3 > len(raw) {
			return nil, fmt.Errorf("jumpinfo: edition-1 message too short for section 2")
		}
		gdsLen := int(raw[off])<<16 | int(raw[off+1])<<8 | int(raw[off+2])
		if off+gdsLen > len(raw) {
			return nil, fmt.Errorf("jumpinfo: section 2 length %d overflows message", gdsLen)
		}
		gds = raw[off : off+gdsLen]
		if len(gds) < 7 {
			return nil, fmt.Errorf("jumpinfo: section 2 too short")
		}
		j.NumberOfDataPoints = uint64(binary.BigEndian.Uint16(gds[6:8]))
		off += gdsLen
	}

	gridBytes := gds
	if gridBytes == nil {
		gridBytes = pds
	}
	sum := md5.Sum(gridBytes)
	j.MD5GridSection = hex.EncodeToString(sum[:])

	var bitmapOffset uint64
	if hasBMS {
		if off+3 > len(raw) {
			return nil, fmt.Errorf("jumpinfo: edition-1 message too short for section 3")
		}
		bmsLen := int(raw[off])<<16 | int(raw[off+1])<<8 | int(raw[off+2])
		if off+bmsLen > len(raw) {
			return nil, fmt.Errorf("jumpinfo: section 3 length %d overflows message", bmsLen)
		}
		bms := raw[off : off+bmsLen]
		if len(bms) < 6 {
			return nil, fmt.Errorf("jumpinfo: section 3 too short")
		}
		bitmapOffset = msgOffset + uint64(off) + 6
		off += bmsLen
	}

	if off+11 > len(raw) {
		return nil, fmt.Errorf("jumpinfo: edition-1 message too short for section 4")
	}
	bdsLen := int(raw[off])<<16 | int(raw[off+1])<<8 | int(raw[off+2])
	if off+bdsLen > len(raw) {
		return nil, fmt.Errorf("jumpinfo: section 4 length %d overflows message", bdsLen)
	}
	bds := raw[off : off+bdsLen]
	flags := bds[3]
	if flags&0x30 != 0 {
		// Complex or second-order packing: not supported by this core.
		j.PackingType = PackingUnsupported
	} else {
		j.PackingType = PackingSimple
	}
	binaryScale := int(int16(binary.BigEndian.Uint16(bds[4:6])))
	refValue := decodeIBM32(bds[6:10])
	bitsPerValue := uint(bds[10])

	j.BinaryScaleFactor = binaryScale
	j.ReferenceValue = refValue
	j.BitsPerValue = bitsPerValue
	// GRIB1 carries the decimal scale factor in PDS octets 27-28, as a
	// sign-and-magnitude 16-bit integer.
	if len(pds) >= 28 {
		d := int(pds[26]&0x7f)<<8 | int(pds[27])
		if pds[26]&0x80 != 0 {
			d = -d
		}
		j.DecimalScaleFactor = d
	}

	j.OffsetBeforeData = msgOffset + uint64(off) + 11
	j.OffsetAfterData = msgOffset + uint64(off) + uint64(bdsLen)
	j.OffsetBeforeBitmap = bitmapOffset

	if j.NumberOfDataPoints == 0 {
		// No GDS grid-point count available; fall back to however many
		// values fit the declared bits-per-value, as gribjump's eccodes
		// fallback does.
		if bitsPerValue > 0 {
			j.NumberOfDataPoints = (j.OffsetAfterData - j.OffsetBeforeData) * 8 / uint64(bitsPerValue)
		}
	}
	j.NumberOfValues = j.NumberOfDataPoints
	if j.OffsetBeforeBitmap != 0 {
		bmsStart := j.OffsetBeforeBitmap - msgOffset
		present, err := countBitmapPresent(raw[bmsStart:], j.NumberOfDataPoints)
		if err != nil {
			return nil, err
		}
		j.NumberOfValues = present
	}

	if err := j.Validate(); err != nil {
		return nil, err
	}
	return j, nil
}

// decodeIBM32 decodes a 4-byte IBM System/360 hexadecimal floating
// point value, the reference-value encoding used by GRIB1's BDS.
func decodeIBM32(b []byte) float64 {
	sign := 1.0
	if b[0]&0x80 != 0 {
		sign = -1.0
	}
	exponent := int(b[0]&0x7f) - 64
	mantissa := float64(uint32(b[1])<<16|uint32(b[2])<<8|uint32(b[3])) / float64(1<<24)
	return sign * mantissa * pow16(exponent)
}

func pow16(n int) float64 {
	result := 1.0
	base := 16.0
	if n < 0 {
		base = 1.0 / 16.0
		n = -n
	}
	for i := 0; i < n; i++ {
		result *= base
	}
	return result
}
