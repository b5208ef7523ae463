package accessor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecmwf/gribjump/pkg/block"
)

func TestMemoryReadAndRange(t *testing.T) {
	a := NewMemory([]byte("0123456789"))
	ctx := context.Background()

	buf, err := a.Read(ctx, block.Span{Offset: 2, Size: 4})
	require.NoError(t, err)
	assert.Equal(t, []byte("2345"), buf)

	size, err := a.Size(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 10, size)

	_, err = a.Read(ctx, block.Span{Offset: 8, Size: 4})
	assert.Error(t, err)
}

func TestFileReadAndRange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")
	require.NoError(t, os.WriteFile(path, []byte("abcdefghij"), 0o644))

	a, err := NewFile(path)
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	buf, err := a.Read(ctx, block.Span{Offset: 3, Size: 3})
	require.NoError(t, err)
	assert.Equal(t, []byte("def"), buf)

	size, err := a.Size(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 10, size)

	all, err := a.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("abcdefghij"), all)

	_, err = a.Read(ctx, block.Span{Offset: 5, Size: 100})
	assert.Error(t, err)
}
