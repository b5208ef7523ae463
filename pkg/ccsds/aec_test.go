package ccsds

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecmwf/gribjump/pkg/accessor"
	"github.com/ecmwf/gribjump/pkg/block"
)

func TestEncodeDecodeRangeRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	samples := make([]uint64, 777)
	for i := range samples {
		samples[i] = uint64(rng.Intn(4000))
	}
	p := Params{RSI: 64, BlockSize: 16, BitsPerSample: 16}

	encoded, offsets, err := EncodeCollectOffsets(samples, p)
	require.NoError(t, err)
	require.NotEmpty(t, offsets)

	acc := accessor.NewMemory(encoded)
	ctx := context.Background()

	for _, span := range []block.Span{
		{Offset: 0, Size: 10},
		{Offset: 60, Size: 10}, // crosses an RSI boundary
		{Offset: 700, Size: 77},
		{Offset: 5, Size: 1},
	} {
		got, err := DecodeRange(ctx, acc, 0, offsets, p, uint64(len(samples)), span)
		require.NoError(t, err)
		require.Len(t, got, int(span.Size))
		assert.Equal(t, samples[span.Offset:span.End()], got)
	}
}

func TestDecoderAppliesAffineScale(t *testing.T) {
	samples := []uint64{0, 1, 2, 3, 4, 5, 6, 7}
	p := Params{RSI: 8, BlockSize: 4, BitsPerSample: 8}
	encoded, offsets, err := EncodeCollectOffsets(samples, p)
	require.NoError(t, err)

	dec := NewDecoder(accessor.NewMemory(encoded), 0, offsets, DecodeParams{
		AEC:                p,
		ReferenceValue:     10,
		BinaryScaleFactor:  1,
		DecimalScaleFactor: 0,
		NumberOfValues:     uint64(len(samples)),
	})

	got, err := dec.DecodeRange(context.Background(), block.Span{Offset: 2, Size: 3})
	require.NoError(t, err)
	want := []float64{2*2 + 10, 3*2 + 10, 4*2 + 10}
	assert.Equal(t, want, got)
}

func TestEncodeRejectsZeroParams(t *testing.T) {
	_, _, err := EncodeCollectOffsets([]uint64{1, 2, 3}, Params{})
	assert.Error(t, err)
}
