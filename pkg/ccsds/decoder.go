package ccsds

import (
	"context"
	"fmt"
	"math"

	"github.com/ecmwf/gribjump/pkg/accessor"
	"github.com/ecmwf/gribjump/pkg/block"
)

// DecodeParams are the affine-scale parameters layered on top of the
// raw AEC samples, mirroring CcsdsParams' reference/binary/decimal
// scale fields.
type DecodeParams struct {
	AEC                Params
	ReferenceValue     float64
	BinaryScaleFactor  int
	DecimalScaleFactor int
	NumberOfValues     uint64
}

// Decoder decodes value ranges out of a grid_ccsds-packed data section.
type Decoder struct {
	DecodeParams
	acc        accessor.Accessor
	dataOffset uint64
	offsets    []uint64
}

// NewDecoder builds a Decoder reading from acc. offsets is the RSI
// offset table previously collected by EncodeCollectOffsets (or loaded
// from a cached JumpInfo).
func NewDecoder(acc accessor.Accessor, dataOffset uint64, offsets []uint64, params DecodeParams) *Decoder {
	return &Decoder{DecodeParams: params, acc: acc, dataOffset: dataOffset, offsets: offsets}
}

// DecodeRange decodes values [span.Offset, span.End()) and applies the
// affine scale, matching CcsdsDecompressor::decode_range_.
func (d *Decoder) DecodeRange(ctx context.Context, span block.Span) ([]float64, error) {
	samples, err := DecodeRange(ctx, d.acc, d.dataOffset, d.offsets, d.AEC, d.NumberOfValues, span)
	if err != nil {
		return nil, fmt.Errorf("ccsds: decode range: %w", err)
	}
	bscale := math.Pow(2, float64(d.BinaryScaleFactor))
	dscale := math.Pow(10, -float64(d.DecimalScaleFactor))
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = (float64(s)*bscale + d.ReferenceValue) * dscale
	}
	return out, nil
}
