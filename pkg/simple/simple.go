// Package simple implements range-restricted decoding of GRIB
// grid_simple packing: fixed-width unsigned integers under an affine
// scale. It is the Go counterpart of mc::SimpleDecompressor, grounded on
// Simple.cc and algorithms/SimplePacking.h.
package simple

import (
	"context"
	"fmt"
	"math"

	"github.com/ecmwf/gribjump/pkg/accessor"
	"github.com/ecmwf/gribjump/pkg/block"
)

// Params are the per-message simple-packing parameters read from GRIB
// section 5, mirroring mc::SimpleParams.
type Params struct {
	BitsPerValue       uint
	ReferenceValue     float64
	BinaryScaleFactor  int
	DecimalScaleFactor int
}

// Decoder decodes value ranges out of a simple-packed data section
// without decoding the whole section.
type Decoder struct {
	Params
	acc accessor.Accessor
	// dataOffset is the byte offset of the start of the packed values
	// within acc (section 7 data start, past the length/flags octets).
	dataOffset uint64
}

// NewDecoder builds a Decoder reading from acc, whose packed values
// begin at dataOffset.
func NewDecoder(acc accessor.Accessor, dataOffset uint64, params Params) *Decoder {
	return &Decoder{Params: params, acc: acc, dataOffset: dataOffset}
}

// chunkNVals is the number of values per byte-aligned chunk: the first
// value of every 8-value group starts on a byte boundary regardless of
// bits-per-value, since 8*bitsPerValue is always a multiple of 8.
const chunkNVals = 8

// binPos returns the byte offset of the first bit of value valueIdx,
// rounded down to the start of its chunk.
func binPos(valueIdx uint64, bitsPerValue uint) uint64 {
	chunkIdx := valueIdx / chunkNVals
	firstInChunk := chunkIdx * chunkNVals
	return firstInChunk * uint64(bitsPerValue) / 8
}

// DecodeRange decodes values [span.Offset, span.End()) (value indices,
// not bytes) and returns them as float64s, already affine-scaled.
func (d *Decoder) DecodeRange(ctx context.Context, span block.Span) ([]float64, error) {
	if span.Size == 0 {
		return nil, nil
	}
	if d.BitsPerValue == 0 {
		// Constant field: every value equals the reference value.
		out := make([]float64, span.Size)
		v := d.ReferenceValue
		for i := range out {
			out[i] = v
		}
		return out, nil
	}

	offset := span.Offset
	end := span.End()
	newOffset := offset / chunkNVals * chunkNVals
	newEnd := (end + chunkNVals - 1) / chunkNVals * chunkNVals
	newSize := newEnd - newOffset

	startByte := binPos(newOffset, d.BitsPerValue)
	endByte := binPos(newEnd, d.BitsPerValue)

	eof, err := d.acc.Size(ctx)
	if err != nil {
		return nil, fmt.Errorf("simple: accessor size: %w", err)
	}
	readSize := endByte - startByte
	if d.dataOffset+startByte+readSize > eof {
		if d.dataOffset+startByte > eof {
			return nil, fmt.Errorf("simple: byte range out of file bounds")
		}
		readSize = eof - d.dataOffset - startByte
	}

	raw, err := d.acc.Read(ctx, block.Span{Offset: d.dataOffset + startByte, Size: readSize})
	if err != nil {
		return nil, fmt.Errorf("simple: read packed bytes: %w", err)
	}

	decoded := d.unpack(raw, newSize)
	shift := offset - newOffset
	if shift+span.Size > uint64(len(decoded)) {
		return nil, fmt.Errorf("simple: decoded window too short for requested range")
	}
	return decoded[shift : shift+span.Size], nil
}

// unpack reads n values of BitsPerValue bits each, MSB-first, from raw,
// and applies the affine scale to each.
func (d *Decoder) unpack(raw []byte, n uint64) []float64 {
	out := make([]float64, n)
	br := bitReader{buf: raw}
	for i := uint64(0); i < n; i++ {
		u := br.read(d.BitsPerValue)
		out[i] = d.applyScale(u)
	}
	return out
}

// applyScale computes (u * 2^binaryScaleFactor + referenceValue) *
// 10^-decimalScaleFactor, the GRIB simple-packing affine transform.
func (d *Decoder) applyScale(u uint64) float64 {
	v := float64(u)*math.Pow(2, float64(d.BinaryScaleFactor)) + d.ReferenceValue
	return v * math.Pow(10, -float64(d.DecimalScaleFactor))
}

// bitReader reads fixed-width unsigned integers MSB-first out of a byte
// slice, advancing a running bit cursor.
type bitReader struct {
	buf    []byte
	bitPos uint64
}

func (r *bitReader) read(nbits uint) uint64 {
	var v uint64
	for i := uint(0); i < nbits; i++ {
		byteIdx := r.bitPos / 8
		bitIdx := 7 - (r.bitPos % 8)
		var bit uint64
		if byteIdx < uint64(len(r.buf)) {
			bit = uint64((r.buf[byteIdx] >> bitIdx) & 1)
		}
		v = (v << 1) | bit
		r.bitPos++
	}
	return v
}
