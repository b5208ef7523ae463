package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecmwf/gribjump/pkg/accessor"
	"github.com/ecmwf/gribjump/pkg/block"
	"github.com/ecmwf/gribjump/pkg/cache"
	"github.com/ecmwf/gribjump/pkg/griberrors"
)

// packValuesMSB packs raw values into an MSB-first bitstream, width bits
// each, matching pkg/simple's on-disk layout.
func packValuesMSB(values []uint64, width uint) []byte {
	totalBits := uint64(len(values)) * uint64(width)
	out := make([]byte, (totalBits+7)/8)
	var pos uint64
	for _, v := range values {
		for i := int(width) - 1; i >= 0; i-- {
			if (v>>uint(i))&1 == 1 {
				out[pos/8] |= 1 << (7 - pos%8)
			}
			pos++
		}
	}
	return out
}

// buildSection2 builds one GRIB2 section: a 4-byte big-endian length, a
// 1-byte section number, then body.
func buildSection2(number byte, body []byte) []byte {
	total := 5 + len(body)
	out := make([]byte, total)
	out[0] = byte(total >> 24)
	out[1] = byte(total >> 16)
	out[2] = byte(total >> 8)
	out[3] = byte(total)
	out[4] = number
	copy(out[5:], body)
	return out
}

// buildSimpleGrib2Message is a minimal synthetic single-message GRIB2
// file with no bitmap, used to exercise the engine end-to-end without a
// real GRIB fixture on disk.
func buildSimpleGrib2Message(ndp uint32, bpv uint8, values []uint64) []byte {
	sec1 := buildSection2(1, make([]byte, 16))

	sec3Body := make([]byte, 9)
	sec3Body[1], sec3Body[2], sec3Body[3], sec3Body[4] = byte(ndp>>24), byte(ndp>>16), byte(ndp>>8), byte(ndp)
	sec3 := buildSection2(3, sec3Body)

	sec5Body := make([]byte, 17)
	sec5Body[0], sec5Body[1], sec5Body[2], sec5Body[3] = byte(ndp>>24), byte(ndp>>16), byte(ndp>>8), byte(ndp)
	refBody := sec5Body[6:]
	// reference value 0.0, binary/decimal scale 0, bitsPerValue = bpv.
	refBody[8] = bpv
	sec5 := buildSection2(5, sec5Body)

	sec6 := buildSection2(6, []byte{255}) // no bitmap

	packed := packValuesMSB(values, uint(bpv))
	sec7 := buildSection2(7, packed)

	body := append([]byte{}, sec1...)
	body = append(body, sec3...)
	body = append(body, sec5...)
	body = append(body, sec6...)
	body = append(body, sec7...)
	body = append(body, []byte("7777")...)

	totalLength := 16 + len(body)
	msg := make([]byte, totalLength)
	copy(msg[0:4], "GRIB")
	msg[7] = 2
	for i := 0; i < 8; i++ {
		msg[15-i] = byte(totalLength >> (8 * i))
	}
	copy(msg[16:], body)
	return msg
}

func memoryOpener(files map[string][]byte) Opener {
	return func(path string) (accessor.Accessor, error) {
		return accessor.NewMemory(files[path]), nil
	}
}

func TestEngineExtractSingleFile(t *testing.T) {
	msg := buildSimpleGrib2Message(8, 8, []uint64{10, 20, 30, 40, 50, 60, 70, 80})
	files := map[string][]byte{"a.grib": msg}

	e := New(nil, memoryOpener(files), 2)
	results, err := e.Extract(context.Background(), []Request{
		{Path: "a.grib", Offset: 0, Intervals: []block.Span{{Offset: 2, Size: 3}}},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	require.Len(t, results[0].Values, 1)
	assert.Equal(t, []float64{30, 40, 50}, results[0].Values[0].Values)
}

func TestEngineExtractMultipleFilesConcurrently(t *testing.T) {
	msgA := buildSimpleGrib2Message(4, 8, []uint64{1, 2, 3, 4})
	msgB := buildSimpleGrib2Message(4, 8, []uint64{5, 6, 7, 8})
	files := map[string][]byte{"a.grib": msgA, "b.grib": msgB}

	e := New(nil, memoryOpener(files), 4)
	results, err := e.Extract(context.Background(), []Request{
		{Path: "a.grib", Offset: 0, Intervals: []block.Span{{Offset: 0, Size: 2}}},
		{Path: "b.grib", Offset: 0, Intervals: []block.Span{{Offset: 0, Size: 2}}},
		{Path: "a.grib", Offset: 0, Intervals: []block.Span{{Offset: 2, Size: 2}}},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		require.NoError(t, r.Err)
	}
	assert.Equal(t, []float64{1, 2}, results[0].Values[0].Values)
	assert.Equal(t, []float64{5, 6}, results[1].Values[0].Values)
	assert.Equal(t, []float64{3, 4}, results[2].Values[0].Values)
}

func TestEngineExtractReportsPerRequestFailure(t *testing.T) {
	e := New(nil, memoryOpener(map[string][]byte{}), 2)
	results, err := e.Extract(context.Background(), []Request{
		{Path: "missing.grib", Offset: 0, Intervals: []block.Span{{Offset: 0, Size: 1}}},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Error(t, results[0].Err)
}

func TestEngineExtractFailsOnMissWhenLazyExtractionDisabled(t *testing.T) {
	msg := buildSimpleGrib2Message(4, 8, []uint64{1, 2, 3, 4})
	files := map[string][]byte{"a.grib": msg}

	infoCache, err := cache.New(cache.Options{Dir: t.TempDir(), LazyExtraction: false})
	require.NoError(t, err)

	e := New(infoCache, memoryOpener(files), 2)
	results, err := e.Extract(context.Background(), []Request{
		{Path: "a.grib", Offset: 0, Intervals: []block.Span{{Offset: 0, Size: 2}}},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Error(t, results[0].Err)
	assert.True(t, griberrors.Is(results[0].Err, griberrors.CacheMissLazyOff))
}
