// Package cache persists JumpInfo scans to disk so repeat extractions
// against the same GRIB file skip re-scanning its sections. It is the Go
// counterpart of gribjump::InfoCache, grounded on InfoCache.h/.cc and
// GribInfoCache.h/.cc.
package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ecmwf/gribjump/pkg/accessor"
	"github.com/ecmwf/gribjump/pkg/jumpinfo"
)

// Options configures an InfoCache.
type Options struct {
	// Dir is the directory index files are written to and read from. It
	// is ignored when Shadow is true.
	Dir string
	// Shadow, when true, writes each file's index next to the source
	// file itself (path+".gribjump.idx") instead of under Dir -- the
	// layout FDB plugins use so the index travels with the data.
	Shadow bool
	// Compressed enables zstd compression of index files on disk.
	Compressed bool
	// Capacity bounds how many IndexFiles are held in memory at once.
	Capacity int
	// LazyExtraction, when false, makes a cache miss an error
	// (CacheMissLazyOff) instead of triggering an on-the-fly scan.
	LazyExtraction bool
}

// InfoCache is an in-memory LRU of IndexFiles, each backed by its own
// on-disk sidecar. It is safe for concurrent use.
type InfoCache struct {
	opts Options

	mu    sync.Mutex
	files *lru[string, *IndexFile]
}

// New builds an InfoCache. Dir is created if it does not already exist
// and Shadow is false.
func New(opts Options) (*InfoCache, error) {
	if opts.Capacity <= 0 {
		opts.Capacity = 64
	}
	if !opts.Shadow && opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("cache: create cache dir %s: %w", opts.Dir, err)
		}
	}
	return &InfoCache{
		opts:  opts,
		files: newLRU[string, *IndexFile](opts.Capacity),
	}, nil
}

// Get returns the cached JumpInfo for (path, offset), loading path's
// index file from disk first if it is not already in memory. ok is false
// on a cache miss; when LazyExtraction is false the caller should treat
// a miss as CacheMissLazyOff rather than scanning on the fly.
func (c *InfoCache) Get(path string, offset uint64) (info *jumpinfo.JumpInfo, ok bool, err error) {
	f, err := c.fileCache(path)
	if err != nil {
		return nil, false, err
	}
	info, ok = f.Get(offset)
	return info, ok, nil
}

// GetMany returns the cached JumpInfo for each of offsets, loading
// path's index file from disk first if it is not already in memory.
// missing lists the offsets that were not found, in the order given.
func (c *InfoCache) GetMany(path string, offsets []uint64) (found map[uint64]*jumpinfo.JumpInfo, missing []uint64, err error) {
	f, err := c.fileCache(path)
	if err != nil {
		return nil, nil, err
	}
	found = make(map[uint64]*jumpinfo.JumpInfo, len(offsets))
	for _, offset := range offsets {
		if info, ok := f.Get(offset); ok {
			found[offset] = info
		} else {
			missing = append(missing, offset)
		}
	}
	return found, missing, nil
}

// LazyExtraction reports whether a cache miss should fall back to a live
// scan (true) or be treated as an error (false).
func (c *InfoCache) LazyExtraction() bool { return c.opts.LazyExtraction }

// Insert records info for (path, offset) in memory, merging against
// whatever is already on disk for path so a later Flush or Append
// never silently drops previously persisted entries -- including when
// path's IndexFile is being created fresh because it was evicted from
// the in-memory LRU or this is a new process. It does not write to
// disk; call Flush or Append to persist.
func (c *InfoCache) Insert(path string, offset uint64, info *jumpinfo.JumpInfo) error {
	f, err := c.fileCache(path)
	if err != nil {
		return err
	}
	f.Insert(offset, info)
	return nil
}

// Flush persists path's in-memory IndexFile to disk with a full,
// atomic rewrite.
func (c *InfoCache) Flush(path string) error {
	f, err := c.fileCache(path)
	if err != nil {
		return err
	}
	return f.Flush(c.opts.Compressed)
}

// Append persists path's in-memory IndexFile to disk incrementally,
// writing only the entries inserted since the last Load, Flush, or
// Append -- the cheap counterpart to Flush for the common case of a
// handful of lazily-scanned entries being added to an otherwise
// complete, already-persisted index.
func (c *InfoCache) Append(path string) error {
	f, err := c.fileCache(path)
	if err != nil {
		return err
	}
	return f.Append(c.opts.Compressed)
}

// Scan ensures path's IndexFile has an entry for every offset in
// offsets, extracting whichever are missing via jumpinfo.Scan against
// acc and persisting the result with Append. A nil offsets enumerates
// every message in the file with jumpinfo.EnumerateMessages and scans
// it in one pass, draining the file once, mirroring
// GribInfoCache::scan(path) / scan(path, offsets).
func (c *InfoCache) Scan(ctx context.Context, path string, acc accessor.Accessor, offsets []uint64) error {
	f, err := c.fileCache(path)
	if err != nil {
		return err
	}

	if offsets == nil {
		offsets, err = jumpinfo.EnumerateMessages(ctx, acc)
		if err != nil {
			return fmt.Errorf("cache: enumerate messages in %s: %w", path, err)
		}
	}

	for _, offset := range offsets {
		if _, ok := f.Get(offset); ok {
			continue
		}
		info, err := jumpinfo.Scan(ctx, acc, offset)
		if err != nil {
			return fmt.Errorf("cache: scan %s at offset %d: %w", path, offset, err)
		}
		f.Insert(offset, info)
	}

	return f.Append(c.opts.Compressed)
}

// Clear drops every in-memory IndexFile without touching disk.
func (c *InfoCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files.Clear()
}

// fileCache returns the IndexFile for path, loading whatever is
// already on disk the first time it is created so inserts against a
// freshly-created in-memory instance merge with, rather than clobber,
// prior persisted entries.
func (c *InfoCache) fileCache(path string) (*IndexFile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if f, ok := c.files.Get(path); ok {
		return f, nil
	}

	f := NewIndexFile(c.indexPath(path))
	if err := f.Load(c.opts.Compressed); err != nil {
		return nil, err
	}
	c.files.Put(path, f)
	return f, nil
}

// indexPath returns the on-disk location of path's index file, either
// alongside path (shadow mode) or under opts.Dir keyed by a hash of
// path's absolute form, grounded on InfoCache::cacheFilePath.
func (c *InfoCache) indexPath(path string) string {
	if c.opts.Shadow {
		return path + ".gribjump.idx"
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	sum := sha1.Sum([]byte(abs))
	return filepath.Join(c.opts.Dir, hex.EncodeToString(sum[:])+".idx")
}
