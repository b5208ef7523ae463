package jumpinfo

import (
	"context"
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/ecmwf/gribjump/pkg/accessor"
	"github.com/ecmwf/gribjump/pkg/block"
)

// section is one parsed GRIB2 section: its number and raw bytes
// (including the 4-byte length + 1-byte number header).
type section struct {
	number uint8
	data   []byte
	offset uint64 // absolute offset of this section's first byte
}

// Scan reads the GRIB message starting at msgOffset within acc and
// builds its JumpInfo, grounded on JumpInfo::JumpInfo(GribHandle) and
// JumpInfo::update() in GribInfo.cc. It supports editions 1 and 2 with
// grid_simple and grid_ccsds packing; any other packing yields a JumpInfo
// with PackingType == PackingUnsupported rather than an error, so a
// caller scanning a whole file can skip unsupported messages. Any other
// edition is an error.
func Scan(ctx context.Context, acc accessor.Accessor, msgOffset uint64) (*JumpInfo, error) {
	header, err := acc.Read(ctx, block.Span{Offset: msgOffset, Size: 16})
	if err != nil {
		return nil, fmt.Errorf("jumpinfo: read indicator section: %w", err)
	}
	if string(header[0:4]) != "GRIB" {
		return nil, fmt.Errorf("jumpinfo: missing GRIB magic at offset %d", msgOffset)
	}
	edition := header[7]

	switch edition {
	case 2:
		return scanEdition2(ctx, acc, msgOffset, header)
	case 1:
		return scanEdition1(ctx, acc, msgOffset, header)
	default:
		return nil, fmt.Errorf("jumpinfo: unsupported GRIB edition %d", edition)
	}
}

func scanEdition2(ctx context.Context, acc accessor.Accessor, msgOffset uint64, header []byte) (*JumpInfo, error) {
	totalLength := binary.BigEndian.Uint64(header[8:16])

	raw, err := acc.Read(ctx, block.Span{Offset: msgOffset, Size: totalLength})
	if err != nil {
		return nil, fmt.Errorf("jumpinfo: read message body: %w", err)
	}

	sections, err := splitSections2(raw, msgOffset)
	if err != nil {
		return nil, fmt.Errorf("jumpinfo: split sections: %w", err)
	}

	j := &JumpInfo{
		Edition:            2,
		TotalLength:        totalLength,
		MessageStartOffset: msgOffset,
	}

	sec3 := findSection(sections, 3)
	sec5 := findSection(sections, 5)
	sec6 := findSection(sections, 6)
	sec7 := findSection(sections, 7)
	if sec3 == nil || sec5 == nil || sec6 == nil || sec7 == nil {
		return nil, fmt.Errorf("jumpinfo: message missing required sections (3,5,6,7)")
	}

	sum := md5.Sum(sec3.data)
	j.MD5GridSection = hex.EncodeToString(sum[:])

	if len(sec3.data) < 6+4 {
		return nil, fmt.Errorf("jumpinfo: section 3 too short")
	}
	j.NumberOfDataPoints = uint64(binary.BigEndian.Uint32(sec3.data[6:10]))

	templateNumber := binary.BigEndian.Uint16(sec3.data[12:14])
	j.SphericalHarmonics = templateNumber == 50 || templateNumber == 51 || templateNumber == 52

	if err := parseSection5(sec5.data, j); err != nil {
		return nil, err
	}

	// A bit-map indicator octet of 0 means this section carries a bitmap
	// inline; 255 means no bitmap; 1-254 reference a predefined bitmap
	// (not supported here, treated as absent).
	if sec6.data[5] == 0 {
		j.OffsetBeforeBitmap = sec6.offset + 6
	} else {
		j.OffsetBeforeBitmap = 0
	}

	// Section 7 starts with the 4-byte length + 1-byte number header;
	// the packed data begins immediately after.
	j.OffsetBeforeData = sec7.offset + 5
	j.OffsetAfterData = sec7.offset + uint64(len(sec7.data))

	j.NumberOfValues = j.NumberOfDataPoints
	if j.OffsetBeforeBitmap != 0 {
		present, err := countBitmapPresent(sec6.data[6:], j.NumberOfDataPoints)
		if err != nil {
			return nil, err
		}
		j.NumberOfValues = present
	}

	if j.PackingType == PackingCCSDS && !j.SphericalHarmonics {
		if err := updateCCSDSOffsets(ctx, acc, j); err != nil {
			return nil, err
		}
	}

	if err := j.Validate(); err != nil {
		return nil, err
	}
	return j, nil
}

// parseSection5 reads the Data Representation Section (template 5.0 for
// grid_simple, 5.3 for grid_ccsds) and fills the packing fields of j.
func parseSection5(data []byte, j *JumpInfo) error {
	if len(data) < 11 {
		return fmt.Errorf("jumpinfo: section 5 too short")
	}
	templateNumber := binary.BigEndian.Uint16(data[9:11])
	body := data[11:]

	switch templateNumber {
	case 0: // grid_simple
		if len(body) < 11 {
			return fmt.Errorf("jumpinfo: DRS 5.0 too short")
		}
		j.PackingType = PackingSimple
		j.ReferenceValue = float64(math.Float32frombits(binary.BigEndian.Uint32(body[0:4])))
		j.BinaryScaleFactor = int(int16(binary.BigEndian.Uint16(body[4:6])))
		j.DecimalScaleFactor = int(int16(binary.BigEndian.Uint16(body[6:8])))
		j.BitsPerValue = uint(body[8])
	case 3: // grid_ccsds
		if len(body) < 14 {
			return fmt.Errorf("jumpinfo: DRS 5.3 too short")
		}
		j.PackingType = PackingCCSDS
		j.ReferenceValue = float64(math.Float32frombits(binary.BigEndian.Uint32(body[0:4])))
		j.BinaryScaleFactor = int(int16(binary.BigEndian.Uint16(body[4:6])))
		j.DecimalScaleFactor = int(int16(binary.BigEndian.Uint16(body[6:8])))
		j.BitsPerValue = uint(body[8])
		// body[9]: type of original field, skip.
		j.CcsdsFlags = uint(body[10])
		j.CcsdsBlockSize = uint(body[11])
		j.CcsdsRSI = uint(binary.BigEndian.Uint16(body[12:14]))
	default:
		j.PackingType = PackingUnsupported
	}
	return nil
}

// countBitmapPresent counts set bits (present values) in an MSB-first
// packed bitmap of n bits.
func countBitmapPresent(raw []byte, n uint64) (uint64, error) {
	need := (n + 7) / 8
	if uint64(len(raw)) < need {
		return 0, fmt.Errorf("jumpinfo: bitmap data too short: have %d, need %d", len(raw), need)
	}
	var count uint64
	for i := uint64(0); i < n; i++ {
		byteVal := raw[i/8]
		if (byteVal>>(7-i%8))&1 == 1 {
			count++
		}
	}
	return count, nil
}

// updateCCSDSOffsets performs Phase A (offset discovery): it decodes
// the packed samples once, recording per-RSI byte offsets relative to
// the start of the data section, and caches them on j. Grounded on
// JumpInfo::updateCcsdsOffsets.
func updateCCSDSOffsets(ctx context.Context, acc accessor.Accessor, j *JumpInfo) error {
	raw, err := acc.Read(ctx, block.Span{Offset: j.OffsetBeforeData, Size: j.OffsetAfterData - j.OffsetBeforeData})
	if err != nil {
		return fmt.Errorf("jumpinfo: read ccsds data section: %w", err)
	}
	// ccsdsOffsets only needs the byte offset at which each RSI's encoded
	// bytes begin; walking the stream's own per-block width headers
	// sequentially recovers that without re-encoding, the same
	// information the real AEC "collect offsets" pass extracts while
	// decoding.
	rsiValues := uint64(j.CcsdsRSI) * uint64(j.CcsdsBlockSize)
	if rsiValues == 0 {
		return fmt.Errorf("jumpinfo: ccsds rsi/blockSize must be non-zero")
	}
	nRSI := (j.NumberOfValues + rsiValues - 1) / rsiValues

	offsets := make([]uint64, 0, nRSI)
	pos := uint64(0)
	remaining := j.NumberOfValues
	for i := uint64(0); i < nRSI; i++ {
		offsets = append(offsets, pos)
		nInRSI := rsiValues
		if nInRSI > remaining {
			nInRSI = remaining
		}
		advance, err := skipRSI(raw, pos, nInRSI, j.CcsdsBlockSize)
		if err != nil {
			return fmt.Errorf("jumpinfo: scanning RSI %d: %w", i, err)
		}
		pos += advance
		remaining -= nInRSI
	}
	j.CcsdsOffsets = offsets
	return nil
}

// skipRSI walks the per-block headers of one RSI starting at byte pos
// in raw, without materialising samples, and returns the number of
// bytes the RSI occupies. It mirrors decodeRSIBytes' header walk in
// pkg/ccsds but only tracks byte position.
func skipRSI(raw []byte, pos uint64, nSamples uint64, blockSize uint) (uint64, error) {
	start := pos
	var decoded uint64
	for decoded < nSamples {
		if pos >= uint64(len(raw)) {
			return 0, fmt.Errorf("unexpected end of stream")
		}
		width := uint(raw[pos])
		pos++
		n := uint64(blockSize)
		if remaining := nSamples - decoded; n > remaining {
			n = remaining
		}
		nBytes := (n*uint64(width) + 7) / 8
		pos += nBytes
		decoded += n
	}
	return pos - start, nil
}

// splitSections2 walks a GRIB2 message's sections starting after the
// 16-byte indicator section, stopping at the "7777" end marker.
func splitSections2(raw []byte, msgOffset uint64) ([]section, error) {
	var sections []section
	off := 16
	for off < len(raw) {
		if off+4 <= len(raw) && string(raw[off:off+4]) == "7777" {
			break
		}
		if off+5 > len(raw) {
			return nil, fmt.Errorf("section header at %d out of bounds", off)
		}
		length := int(binary.BigEndian.Uint32(raw[off : off+4]))
		number := raw[off+4]
		if length < 5 || off+length > len(raw) {
			return nil, fmt.Errorf("section %d at %d: invalid length %d", number, off, length)
		}
		sections = append(sections, section{
			number: number,
			data:   raw[off : off+length],
			offset: msgOffset + uint64(off),
		})
		off += length
	}
	return sections, nil
}

func findSection(sections []section, number uint8) *section {
	for i := range sections {
		if sections[i].number == number {
			return &sections[i]
		}
	}
	return nil
}
