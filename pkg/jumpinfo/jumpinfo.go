// Package jumpinfo extracts and persists the per-message metadata the
// rest of the decode path needs to avoid a full GRIB decode. It is the
// Go counterpart of gribjump::JumpInfo, grounded on GribInfo.h/.cc.
package jumpinfo

import (
	"fmt"
)

// PackingType names the data-section packing scheme a message uses.
type PackingType string

const (
	PackingSimple      PackingType = "grid_simple"
	PackingCCSDS       PackingType = "grid_ccsds"
	PackingUnsupported PackingType = "unsupported"
)

// currentVersion numbers the encoding implemented in codec.go. Encode
// does not write it into its output; pkg/cache's index files carry their
// own version byte.
const currentVersion uint8 = 1

// JumpInfo is immutable per-message metadata, created once by Scan and
// never mutated afterwards. OffsetBeforeData, OffsetAfterData and
// OffsetBeforeBitmap are absolute byte positions in the file that holds
// the message (MessageStartOffset is already added in), not positions
// relative to the message start.
type JumpInfo struct {
	Edition     uint8
	PackingType PackingType

	BitsPerValue       uint
	ReferenceValue     float64
	BinaryScaleFactor  int
	DecimalScaleFactor int

	OffsetBeforeData   uint64
	OffsetAfterData    uint64
	OffsetBeforeBitmap uint64 // 0 means no bitmap

	NumberOfDataPoints uint64
	NumberOfValues     uint64

	TotalLength        uint64
	MessageStartOffset uint64

	MD5GridSection     string // 32 hex chars
	SphericalHarmonics bool

	// CCSDS-only fields.
	CcsdsFlags     uint
	CcsdsBlockSize uint
	CcsdsRSI       uint
	CcsdsOffsets   []uint64 // one per RSI, byte offsets relative to data start
}

// Ready reports whether this JumpInfo describes a field with any values
// at all, mirroring JumpInfo::ready().
func (j *JumpInfo) Ready() bool { return j.NumberOfValues > 0 }

// Validate checks the invariants of §3: offset ordering, bitmap sizing,
// and the CCSDS offsets-per-RSI count.
func (j *JumpInfo) Validate() error {
	if j.OffsetBeforeData >= j.OffsetAfterData || j.OffsetAfterData > j.MessageStartOffset+j.TotalLength {
		return fmt.Errorf("jumpinfo: invalid data offsets before=%d after=%d total=%d",
			j.OffsetBeforeData, j.OffsetAfterData, j.TotalLength)
	}
	if j.OffsetBeforeBitmap != 0 {
		need := (j.NumberOfDataPoints + 7) / 8
		have := j.OffsetBeforeData - j.OffsetBeforeBitmap
		if need > have {
			return fmt.Errorf("jumpinfo: bitmap region too small: need %d bytes, have %d", need, have)
		}
	}
	if j.PackingType == PackingCCSDS {
		rsiValues := uint64(j.CcsdsRSI) * uint64(j.CcsdsBlockSize)
		if rsiValues == 0 {
			return fmt.Errorf("jumpinfo: ccsds rsi/blockSize must be non-zero")
		}
		want := (j.NumberOfValues + rsiValues - 1) / rsiValues
		if uint64(len(j.CcsdsOffsets)) != want {
			return fmt.Errorf("jumpinfo: ccsdsOffsets has %d entries, want %d", len(j.CcsdsOffsets), want)
		}
	}
	return nil
}
