// Package jumper orchestrates a single message's extraction: reject
// unsupported fields, short-circuit constant fields, shift logical
// intervals through the bitmap into physical ones, call the
// packing-specific decoder, and reassemble logical output with missing
// sentinels. Grounded on gribjump::Jumper (Jumper.h/.cc).
package jumper

import (
	"context"
	"fmt"
	"math"

	"github.com/ecmwf/gribjump/pkg/accessor"
	"github.com/ecmwf/gribjump/pkg/bitmap"
	"github.com/ecmwf/gribjump/pkg/block"
	"github.com/ecmwf/gribjump/pkg/griberrors"
	"github.com/ecmwf/gribjump/pkg/jumpinfo"
)

// missingValue is GRIB's convention for an unrepresented value: NaN.
// GRIB does not specify a single canonical missing-value sentinel; this
// matches eccodes' default.
var missingValue = math.NaN()

// Result is one interval's decoded output: Values carries missingValue
// at every position where Mask is false.
type Result struct {
	Values []float64
	Mask   []bool
}

// valueReader reads physical (bitmap-shifted) value intervals from a
// data section windowed accessor. Simple and Ccsds each implement it.
type valueReader interface {
	readValues(ctx context.Context, dataAcc accessor.Accessor, info *jumpinfo.JumpInfo, intervals []block.Span) ([][]float64, error)
}

// Jumper extracts value ranges for one packing type. It is stateless
// and safe to share across goroutines; one instance per packing type
// suffices, matching the source's "todo: avoid rebuilding jumpers" note
// taken to its conclusion.
type Jumper struct {
	reader valueReader
}

// ForPacking returns the Jumper for info's packing type, or a
// BadJumpInfo error if info names an unsupported packing.
func ForPacking(t jumpinfo.PackingType) (*Jumper, error) {
	switch t {
	case jumpinfo.PackingSimple:
		return &Jumper{reader: simpleReader{}}, nil
	case jumpinfo.PackingCCSDS:
		return &Jumper{reader: ccsdsReader{}}, nil
	default:
		return nil, griberrors.New(griberrors.BadJumpInfo, fmt.Sprintf("unsupported packing type %q", t))
	}
}

// Extract decodes intervals (sorted, non-overlapping logical index
// ranges) out of the message described by info, read through acc
// (which must span the whole message; Extract windows it itself).
// expectedMD5, if non-empty, must match info.MD5GridSection or a
// GridHashMismatch error is returned before any decode I/O.
func (j *Jumper) Extract(ctx context.Context, acc accessor.Accessor, info *jumpinfo.JumpInfo, intervals []block.Span, expectedMD5 string) ([]Result, error) {
	if info.SphericalHarmonics {
		return nil, griberrors.New(griberrors.BadGrib, "spherical harmonic fields are not supported")
	}
	if !block.CheckSorted(intervals, info.NumberOfDataPoints) {
		return nil, griberrors.New(griberrors.IndexOutOfRange, "intervals must be sorted, non-overlapping, and within numberOfDataPoints")
	}
	if expectedMD5 != "" && expectedMD5 != info.MD5GridSection {
		return nil, griberrors.New(griberrors.GridHashMismatch, fmt.Sprintf("grid hash mismatch: want %s, have %s", expectedMD5, info.MD5GridSection))
	}

	if info.BitsPerValue == 0 {
		return j.extractConstant(info, intervals), nil
	}

	dataAcc := accessor.NewWindow(acc, info.OffsetBeforeData, info.OffsetAfterData-info.OffsetBeforeData)

	if info.OffsetBeforeBitmap == 0 {
		return j.extractNoMask(ctx, dataAcc, info, intervals)
	}
	return j.extractMasked(ctx, acc, dataAcc, info, intervals)
}

func (j *Jumper) extractConstant(info *jumpinfo.JumpInfo, intervals []block.Span) []Result {
	out := make([]Result, len(intervals))
	for i, iv := range intervals {
		values := make([]float64, iv.Size)
		mask := make([]bool, iv.Size)
		for k := range values {
			values[k] = info.ReferenceValue
			mask[k] = true
		}
		out[i] = Result{Values: values, Mask: mask}
	}
	return out
}

func (j *Jumper) extractNoMask(ctx context.Context, dataAcc accessor.Accessor, info *jumpinfo.JumpInfo, intervals []block.Span) ([]Result, error) {
	decoded, err := j.reader.readValues(ctx, dataAcc, info, intervals)
	if err != nil {
		return nil, err
	}
	out := make([]Result, len(intervals))
	for i, values := range decoded {
		mask := make([]bool, len(values))
		for k := range mask {
			mask[k] = true
		}
		out[i] = Result{Values: values, Mask: mask}
	}
	return out, nil
}

func (j *Jumper) extractMasked(ctx context.Context, acc, dataAcc accessor.Accessor, info *jumpinfo.JumpInfo, intervals []block.Span) ([]Result, error) {
	bitmapAcc := accessor.NewWindow(acc, info.OffsetBeforeBitmap, info.OffsetBeforeData-info.OffsetBeforeBitmap)
	presence, err := bitmap.Full(ctx, bitmapAcc, info.NumberOfDataPoints, defaultBitmapChunks)
	if err != nil {
		return nil, fmt.Errorf("jumper: build bitmap: %w", err)
	}

	physical := make([]block.Span, len(intervals))
	for i, iv := range intervals {
		missingBeforeStart, err := presence.CountMissingsBeforePos(iv.Offset)
		if err != nil {
			return nil, fmt.Errorf("jumper: %w", err)
		}
		missingBeforeEnd, err := presence.CountMissingsBeforePos(iv.End())
		if err != nil {
			return nil, fmt.Errorf("jumper: %w", err)
		}
		physical[i] = block.Span{
			Offset: iv.Offset - missingBeforeStart,
			Size:   (iv.End() - missingBeforeEnd) - (iv.Offset - missingBeforeStart),
		}
	}

	decoded, err := j.reader.readValues(ctx, dataAcc, info, physical)
	if err != nil {
		return nil, err
	}

	out := make([]Result, len(intervals))
	for i, iv := range intervals {
		values := make([]float64, iv.Size)
		mask := make([]bool, iv.Size)
		physIdx := 0
		for k := uint64(0); k < iv.Size; k++ {
			present, err := presence.At(iv.Offset + k)
			if err != nil {
				return nil, fmt.Errorf("jumper: %w", err)
			}
			if present {
				values[k] = decoded[i][physIdx]
				mask[k] = true
				physIdx++
			} else {
				values[k] = missingValue
				mask[k] = false
			}
		}
		out[i] = Result{Values: values, Mask: mask}
	}
	return out, nil
}

// defaultBitmapChunks is how many chunks Extract splits a bitmap into
// when it has no cached prefix sum to hand bitmap.ForIntervals, so it
// falls back to eagerly unpacking the whole mask via bitmap.Full. An
// InfoCache sitting in front of Extract can instead keep a bitmap's
// chunkSize and per-chunk missing counts alongside its JumpInfo and
// call bitmap.ForIntervals itself to avoid that full unpack.
const defaultBitmapChunks = 16
