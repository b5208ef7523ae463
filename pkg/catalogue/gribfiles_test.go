package catalogue

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasGribExtension(t *testing.T) {
	assert.True(t, HasGribExtension("a.grib"))
	assert.True(t, HasGribExtension("a.GRIB2"))
	assert.True(t, HasGribExtension("a.grib1"))
	assert.False(t, HasGribExtension("a.txt"))
}

func TestGribFilesListsOnlyGribExtensions(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.grib2"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "c.grib"), []byte("x"), 0o644))

	files, err := GribFiles(dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "a.grib2"),
		filepath.Join(dir, "sub", "c.grib"),
	}, files)
}
