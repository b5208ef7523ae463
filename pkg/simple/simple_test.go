package simple

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecmwf/gribjump/pkg/accessor"
	"github.com/ecmwf/gribjump/pkg/block"
)

// packValues packs raw unsigned values into an MSB-first bit stream of
// bitsPerValue bits each, the encoder-side counterpart of bitReader.
func packValues(values []uint64, bitsPerValue uint) []byte {
	totalBits := uint64(len(values)) * uint64(bitsPerValue)
	out := make([]byte, (totalBits+7)/8)
	var bitPos uint64
	for _, v := range values {
		for i := int(bitsPerValue) - 1; i >= 0; i-- {
			bit := (v >> uint(i)) & 1
			if bit == 1 {
				out[bitPos/8] |= 1 << (7 - bitPos%8)
			}
			bitPos++
		}
	}
	return out
}

func TestDecodeRangeMatchesFullDecode(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	const bpv = 12
	const n = 40
	maxVal := uint64(1)<<bpv - 1
	raw := make([]uint64, n)
	for i := range raw {
		raw[i] = uint64(rng.Intn(int(maxVal) + 1))
	}
	packed := packValues(raw, bpv)

	params := Params{BitsPerValue: bpv, ReferenceValue: 10.0, BinaryScaleFactor: -2, DecimalScaleFactor: 1}
	dec := NewDecoder(accessor.NewMemory(packed), 0, params)

	full, err := dec.DecodeRange(context.Background(), block.Span{Offset: 0, Size: n})
	require.NoError(t, err)
	require.Len(t, full, n)

	for _, tc := range []block.Span{{Offset: 3, Size: 5}, {Offset: 0, Size: 1}, {Offset: 35, Size: 5}, {Offset: 9, Size: 17}} {
		got, err := dec.DecodeRange(context.Background(), tc)
		require.NoError(t, err)
		require.Len(t, got, int(tc.Size))
		for i, v := range got {
			assert.InDelta(t, full[tc.Offset+uint64(i)], v, 1e-9)
		}
	}
}

func TestDecodeRangeByteAligned(t *testing.T) {
	const bpv = 16
	raw := []uint64{0, 1, 2, 65535, 100, 200, 3, 4}
	packed := packValues(raw, bpv)
	params := Params{BitsPerValue: bpv, ReferenceValue: 0, BinaryScaleFactor: 0, DecimalScaleFactor: 0}
	dec := NewDecoder(accessor.NewMemory(packed), 0, params)

	got, err := dec.DecodeRange(context.Background(), block.Span{Offset: 2, Size: 3})
	require.NoError(t, err)
	want := []float64{2, 65535, 100}
	assert.Equal(t, want, got)
}

func TestConstantField(t *testing.T) {
	params := Params{BitsPerValue: 0, ReferenceValue: 42.5, DecimalScaleFactor: 0, BinaryScaleFactor: 0}
	dec := NewDecoder(accessor.NewMemory(nil), 0, params)
	got, err := dec.DecodeRange(context.Background(), block.Span{Offset: 0, Size: 5})
	require.NoError(t, err)
	for _, v := range got {
		assert.True(t, math.Abs(v-42.5) < 1e-9)
	}
}
