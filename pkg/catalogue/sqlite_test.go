package catalogue

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildSection(number byte, body []byte) []byte {
	total := 5 + len(body)
	out := make([]byte, total)
	binary.BigEndian.PutUint32(out[0:4], uint32(total))
	out[4] = number
	copy(out[5:], body)
	return out
}

// buildMinimalMessage builds a GRIB2 message carrying only the sections
// this package's scanFields reads (1 and 4) plus a trailing 7777, for
// testing the catalogue independently of a full decodable message.
func buildMinimalMessage(discipline byte, year uint16, month, day, hour, minute byte, category, number byte) []byte {
	sec1Body := make([]byte, 13)
	binary.BigEndian.PutUint16(sec1Body[7:9], year)
	sec1Body[9], sec1Body[10], sec1Body[11], sec1Body[12] = month, day, hour, minute
	sec1 := buildSection(1, sec1Body)

	sec4Body := make([]byte, 6)
	binary.BigEndian.PutUint16(sec4Body[2:4], 0) // template 4.0
	sec4Body[4], sec4Body[5] = category, number
	sec4 := buildSection(4, sec4Body)

	body := append([]byte{}, sec1...)
	body = append(body, sec4...)
	body = append(body, []byte("7777")...)

	totalLength := 16 + len(body)
	msg := make([]byte, totalLength)
	copy(msg[0:4], "GRIB")
	msg[6] = discipline
	msg[7] = 2
	binary.BigEndian.PutUint64(msg[8:16], uint64(totalLength))
	copy(msg[16:], body)
	return msg
}

func TestSQLiteListerScanAndList(t *testing.T) {
	dir := t.TempDir()
	msg1 := buildMinimalMessage(0, 2026, 8, 1, 0, 0, 0, 2) // 0.0.2: temperature-ish
	msg2 := buildMinimalMessage(0, 2026, 8, 1, 12, 0, 0, 2)
	file := append(append([]byte{}, msg1...), msg2...)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "field.grib"), file, 0o644))

	l, err := NewSQLiteLister(filepath.Join(dir, "index.db"))
	require.NoError(t, err)
	defer l.Close()

	require.NoError(t, l.Scan(context.Background(), dir))

	entries, err := l.List(context.Background(), Query{Param: "0.0.2"})
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	entries, err = l.List(context.Background(), Query{Time: "1200"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.EqualValues(t, len(msg1), entries[0].Offset)

	axes, err := l.Axes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"0.0.2"}, axes["param"])
	assert.ElementsMatch(t, []string{"0000", "1200"}, axes["time"])
}
