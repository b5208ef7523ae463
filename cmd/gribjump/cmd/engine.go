package cmd

import (
	"github.com/ecmwf/gribjump/pkg/cache"
	"github.com/ecmwf/gribjump/pkg/engine"
)

// newEngine builds an Engine and its backing InfoCache from the loaded
// config. noCache disables the InfoCache entirely, for commands that
// should always read straight off disk.
func newEngine(noCache bool) (*engine.Engine, error) {
	if noCache {
		return engine.New(nil, nil, cfg.Workers), nil
	}
	infoCache, err := cache.New(cache.Options{
		Dir:            cfg.CacheDir,
		Shadow:         cfg.Shadow,
		Compressed:     cfg.Compressed,
		Capacity:       cfg.CacheCapacity,
		LazyExtraction: cfg.LazyExtraction,
	})
	if err != nil {
		return nil, err
	}
	return engine.New(infoCache, nil, cfg.Workers), nil
}
