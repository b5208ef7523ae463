package cache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInfoCacheInsertGetFlushReload(t *testing.T) {
	dir := t.TempDir()
	c, err := New(Options{Dir: dir, Capacity: 4})
	require.NoError(t, err)

	require.NoError(t, c.Insert("/data/a.grib", 0, sampleInfo(10)))
	require.NoError(t, c.Flush("/data/a.grib"))

	c.Clear()

	info, ok, err := c.Get("/data/a.grib", 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 10, info.NumberOfDataPoints)
}

func TestInfoCacheMissReturnsFalse(t *testing.T) {
	dir := t.TempDir()
	c, err := New(Options{Dir: dir, Capacity: 4})
	require.NoError(t, err)

	_, ok, err := c.Get("/data/missing.grib", 0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInfoCacheShadowModeWritesAlongsideSource(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "field.grib")
	c, err := New(Options{Shadow: true, Capacity: 4})
	require.NoError(t, err)

	require.NoError(t, c.Insert(srcPath, 3, sampleInfo(7)))
	require.NoError(t, c.Flush(srcPath))

	assert.FileExists(t, srcPath+".gribjump.idx")
}
