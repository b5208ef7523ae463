package jumpinfo

import (
	"context"
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecmwf/gribjump/pkg/accessor"
	"github.com/ecmwf/gribjump/pkg/block"
)

// buildSection2 builds one GRIB2 section: a 4-byte big-endian length, a
// 1-byte section number, then body. length is computed automatically.
func buildSection2(number byte, body []byte) []byte {
	total := 5 + len(body)
	out := make([]byte, total)
	binary.BigEndian.PutUint32(out[0:4], uint32(total))
	out[4] = number
	copy(out[5:], body)
	return out
}

// packValuesMSB packs raw values into an MSB-first bitstream, width
// bits each -- the same layout pkg/simple expects.
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

func buildSimpleGrib2Message(t *testing.T, ndp uint32, bpv uint8, refValue float32, bsf, dsf int16, bitmapIndicator byte, values []uint64) []byte {
	t.Helper()

	sec1 := buildSection2(1, make([]byte, 16))

	sec3Body := make([]byte, 9)
	sec3Body[0] = 0 // source
	binary.BigEndian.PutUint32(sec3Body[1:5], ndp)
	sec3Body[5] = 0 // optional list octet count
	sec3Body[6] = 0 // interpretation
	binary.BigEndian.PutUint16(sec3Body[7:9], 0) // template 3.0: lat/lon
	sec3 := buildSection2(3, sec3Body)

	sec5Body := make([]byte, 17)
	binary.BigEndian.PutUint32(sec5Body[0:4], ndp)
	binary.BigEndian.PutUint16(sec5Body[4:6], 0) // template 5.0: simple
	refBody := sec5Body[6:]
	binary.BigEndian.PutUint32(refBody[0:4], math.Float32bits(refValue))
	binary.BigEndian.PutUint16(refBody[4:6], uint16(bsf))
	binary.BigEndian.PutUint16(refBody[6:8], uint16(dsf))
	refBody[8] = bpv
	refBody[9] = 0
	refBody[10] = 0
	sec5 := buildSection2(5, sec5Body)

	sec6Body := []byte{bitmapIndicator}
	if bitmapIndicator == 0 {
		bitmapBytes := make([]byte, (ndp+7)/8)
		for i := range bitmapBytes {
			bitmapBytes[i] = 0b10101010 // alternating present/missing
		}
		sec6Body = append(sec6Body, bitmapBytes...)
	}
	sec6 := buildSection2(6, sec6Body)

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
	binary.BigEndian.PutUint64(msg[8:16], uint64(totalLength))
	copy(msg[16:], body)
	return msg
}

func TestScanEdition2SimplePackingNoBitmap(t *testing.T) {
	values := []uint64{1, 2, 3, 4, 5, 6, 7, 8}
	msg := buildSimpleGrib2Message(t, 8, 12, 10.0, -2, 1, 255, values)

	ctx := context.Background()
	acc := accessor.NewMemory(msg)
	j, err := Scan(ctx, acc, 0)
	require.NoError(t, err)

	assert.Equal(t, uint8(2), j.Edition)
	assert.Equal(t, PackingSimple, j.PackingType)
	assert.EqualValues(t, 12, j.BitsPerValue)
	assert.InDelta(t, 10.0, j.ReferenceValue, 1e-6)
	assert.Equal(t, -2, j.BinaryScaleFactor)
	assert.Equal(t, 1, j.DecimalScaleFactor)
	assert.EqualValues(t, 8, j.NumberOfDataPoints)
	assert.EqualValues(t, 8, j.NumberOfValues)
	assert.EqualValues(t, 0, j.OffsetBeforeBitmap)
	assert.EqualValues(t, len(msg), j.TotalLength)
	assert.False(t, j.SphericalHarmonics)

	packedBytes, err := acc.Read(ctx, block.Span{Offset: j.OffsetBeforeData, Size: j.OffsetAfterData - j.OffsetBeforeData})
	require.NoError(t, err)
	assert.Equal(t, packValuesMSB(values, 12), packedBytes)
}

func TestScanEdition2WithBitmap(t *testing.T) {
	values := []uint64{1, 2, 3, 4}
	msg := buildSimpleGrib2Message(t, 8, 12, 0, 0, 0, 0, values)

	ctx := context.Background()
	acc := accessor.NewMemory(msg)
	j, err := Scan(ctx, acc, 0)
	require.NoError(t, err)

	assert.NotZero(t, j.OffsetBeforeBitmap)
	assert.Less(t, j.OffsetBeforeBitmap, j.OffsetBeforeData)
}
