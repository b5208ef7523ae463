package jumper

import (
	"context"

	"github.com/ecmwf/gribjump/pkg/accessor"
	"github.com/ecmwf/gribjump/pkg/block"
	"github.com/ecmwf/gribjump/pkg/ccsds"
	"github.com/ecmwf/gribjump/pkg/jumpinfo"
	"github.com/ecmwf/gribjump/pkg/simple"
)

// simpleReader adapts pkg/simple's Decoder to valueReader.
type simpleReader struct{}

func (simpleReader) readValues(ctx context.Context, dataAcc accessor.Accessor, info *jumpinfo.JumpInfo, intervals []block.Span) ([][]float64, error) {
	dec := simple.NewDecoder(dataAcc, 0, simple.Params{
		BitsPerValue:       info.BitsPerValue,
		ReferenceValue:     info.ReferenceValue,
		BinaryScaleFactor:  info.BinaryScaleFactor,
		DecimalScaleFactor: info.DecimalScaleFactor,
	})
	out := make([][]float64, len(intervals))
	for i, iv := range intervals {
		values, err := dec.DecodeRange(ctx, iv)
		if err != nil {
			return nil, err
		}
		out[i] = values
	}
	return out, nil
}

// ccsdsReader adapts pkg/ccsds's Decoder to valueReader.
type ccsdsReader struct{}

func (ccsdsReader) readValues(ctx context.Context, dataAcc accessor.Accessor, info *jumpinfo.JumpInfo, intervals []block.Span) ([][]float64, error) {
	dec := ccsds.NewDecoder(dataAcc, 0, info.CcsdsOffsets, ccsds.DecodeParams{
		AEC: ccsds.Params{
			// ccsds.Params.RSI counts samples; JumpInfo.CcsdsRSI counts blocks.
			RSI:           info.CcsdsRSI * info.CcsdsBlockSize,
			BlockSize:     info.CcsdsBlockSize,
			BitsPerSample: info.BitsPerValue,
		},
		ReferenceValue:     info.ReferenceValue,
		BinaryScaleFactor:  info.BinaryScaleFactor,
		DecimalScaleFactor: info.DecimalScaleFactor,
		NumberOfValues:     info.NumberOfValues,
	})
	out := make([][]float64, len(intervals))
	for i, iv := range intervals {
		values, err := dec.DecodeRange(ctx, iv)
		if err != nil {
			return nil, err
		}
		out[i] = values
	}
	return out, nil
}
