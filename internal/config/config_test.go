package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithNoConfigFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 256, cfg.CacheCapacity)
	assert.False(t, cfg.Shadow)
	assert.True(t, cfg.Compressed)
}

func TestLoadReadsExplicitConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gribjump.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache_capacity: 42\nshadow: true\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.CacheCapacity)
	assert.True(t, cfg.Shadow)
}

func TestLoadEnvOverridesConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gribjump.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 4\n"), 0o644))
	t.Setenv("GRIBJUMP_WORKERS", "9")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Workers)
}
