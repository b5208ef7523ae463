package bitmap

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecmwf/gribjump/pkg/accessor"
	"github.com/ecmwf/gribjump/pkg/block"
)

// packBits packs a []bool into MSB-first bytes, the on-disk bitmap layout.
func packBits(bits []bool) []byte {
	out := make([]byte, (len(bits)+7)/8)
	for i, v := range bits {
		if v {
			out[i/8] |= 1 << (7 - uint(i%8))
		}
	}
	return out
}

func naiveMissingBefore(bits []bool, pos int) uint64 {
	var count uint64
	for _, v := range bits[:pos] {
		if !v {
			count++
		}
	}
	return count
}

func TestFullMatchesNaiveCount(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	bits := make([]bool, 137)
	for i := range bits {
		bits[i] = rng.Intn(4) != 0
	}
	acc := accessor.NewMemory(packBits(bits))
	ctx := context.Background()

	b, err := Full(ctx, acc, uint64(len(bits)), 10)
	require.NoError(t, err)

	for _, pos := range []int{0, 1, 17, 64, 100, 136, 137} {
		got, err := b.CountMissingsBeforePos(uint64(pos))
		require.NoError(t, err)
		assert.Equal(t, naiveMissingBefore(bits, pos), got, "pos=%d", pos)
	}
}

func TestForIntervalsMatchesFull(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	bits := make([]bool, 500)
	for i := range bits {
		bits[i] = rng.Intn(3) != 0
	}
	raw := packBits(bits)
	ctx := context.Background()

	full, err := Full(ctx, accessor.NewMemory(raw), uint64(len(bits)), 16)
	require.NoError(t, err)

	intervals := []block.Span{
		{Offset: 5, Size: 20},
		{Offset: 200, Size: 50},
		{Offset: 480, Size: 20},
	}
	partial, err := ForIntervals(ctx, accessor.NewMemory(raw), uint64(len(bits)), full.ChunkSize(), full.MissingBeforeChunk(), intervals)
	require.NoError(t, err)

	for _, iv := range intervals {
		for pos := iv.Offset; pos <= iv.End(); pos++ {
			want, err := full.CountMissingsBeforePos(pos)
			require.NoError(t, err)
			got, err := partial.CountMissingsBeforePos(pos)
			require.NoError(t, err)
			assert.Equal(t, want, got, "pos=%d", pos)
		}
	}
}

func TestCountMissingsBeforePosUncachedFails(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	bits := make([]bool, 100)
	for i := range bits {
		bits[i] = rng.Intn(2) == 0
	}
	raw := packBits(bits)
	ctx := context.Background()

	full, err := Full(ctx, accessor.NewMemory(raw), uint64(len(bits)), 10)
	require.NoError(t, err)

	partial, err := ForIntervals(ctx, accessor.NewMemory(raw), uint64(len(bits)), full.ChunkSize(), full.MissingBeforeChunk(), []block.Span{{Offset: 0, Size: 5}})
	require.NoError(t, err)

	_, err = partial.CountMissingsBeforePos(95)
	assert.Error(t, err)
}
