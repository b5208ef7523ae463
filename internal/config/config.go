// Package config loads gribjump's runtime settings: where the on-disk
// JumpInfo cache lives, how big it is allowed to grow, and how many
// workers the engine should run. Grounded on the mcap CLI's
// cmd/root.go initConfig, reworked from a cobra-flag-only setup into a
// viper layer so the same settings can come from a config file or the
// environment, the environment taking precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const envPrefix = "GRIBJUMP"

// Config holds every setting the engine and cache need at startup.
type Config struct {
	// CacheDir is where index files are written when Shadow is false.
	CacheDir string
	// Shadow, when true, writes each file's index next to the source
	// file (path+".gribjump.idx") instead of under CacheDir.
	Shadow bool
	// Compressed zstd-compresses index files on disk.
	Compressed bool
	// CacheCapacity bounds how many files' JumpInfo the in-memory LRU
	// holds at once.
	CacheCapacity int
	// Workers bounds how many files Engine.Extract processes
	// concurrently. Zero means unbounded.
	Workers int
	// LazyExtraction, when true, lets a cache miss fall back to a live
	// scan; when false, a miss is a CacheMissLazyOff error.
	LazyExtraction bool
}

// Defaults returns the settings used when nothing else is configured.
func Defaults() Config {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return Config{
		CacheDir:       filepath.Join(dir, "gribjump"),
		Shadow:         false,
		Compressed:     true,
		CacheCapacity:  256,
		Workers:        0,
		LazyExtraction: true,
	}
}

// Load reads settings from, in increasing order of precedence: built-in
// defaults, a config file (cfgFile if non-empty, else
// $HOME/.gribjump.yaml), and GRIBJUMP_-prefixed environment variables.
// A missing config file is not an error; a malformed one is.
func Load(cfgFile string) (Config, error) {
	v := viper.New()

	d := Defaults()
	v.SetDefault("cache_dir", d.CacheDir)
	v.SetDefault("shadow", d.Shadow)
	v.SetDefault("compressed", d.Compressed)
	v.SetDefault("cache_capacity", d.CacheCapacity)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("lazy_extraction", d.LazyExtraction)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
		v.SetConfigType("yaml")
		v.SetConfigName(".gribjump")
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return Config{}, fmt.Errorf("config: read config file: %w", err)
		}
	}

	return Config{
		CacheDir:       v.GetString("cache_dir"),
		Shadow:         v.GetBool("shadow"),
		Compressed:     v.GetBool("compressed"),
		CacheCapacity:  v.GetInt("cache_capacity"),
		Workers:        v.GetInt("workers"),
		LazyExtraction: v.GetBool("lazy_extraction"),
	}, nil
}
