package engine

import (
	"context"
	"fmt"

	"github.com/ecmwf/gribjump/pkg/accessor"
	"github.com/ecmwf/gribjump/pkg/block"
	"github.com/ecmwf/gribjump/pkg/cache"
	"github.com/ecmwf/gribjump/pkg/griberrors"
	"github.com/ecmwf/gribjump/pkg/jumper"
	"github.com/ecmwf/gribjump/pkg/jumpinfo"
)

// Request describes one message's worth of extraction work: the source
// file, the byte offset of the GRIB message within it, the logical value
// intervals to decode, and an optional grid hash the caller expects.
type Request struct {
	Path        string
	Offset      uint64
	Intervals   []block.Span
	ExpectedMD5 string
}

// Result is the outcome of one Request: either Values is populated, or
// Err explains why it was not.
type Result struct {
	Values []jumper.Result
	Err    error
}

// Opener constructs the Accessor engine should use to read Path. The
// default, openFile, wraps os.Open; tests and remote deployments can
// substitute an S3/GCS/memory opener.
type Opener func(path string) (accessor.Accessor, error)

// Engine groups requests by file and extracts each file's requests
// serially against one shared accessor and JumpInfo cache, while
// different files run concurrently across a bounded worker pool.
// Grounded on Engine::extract's per-file FileExtractionTask fan-out.
type Engine struct {
	infoCache *cache.InfoCache
	opener    Opener
	workers   int
}

// New builds an Engine. infoCache may be nil, in which case every
// request re-scans its message's JumpInfo from scratch. opener may be
// nil, in which case openFile opens local files directly.
func New(infoCache *cache.InfoCache, opener Opener, workers int) *Engine {
	if opener == nil {
		opener = openFile
	}
	return &Engine{infoCache: infoCache, opener: opener, workers: workers}
}

// Extract runs every request, grouped by Path, and returns one Result
// per request in the same order as requests. It never returns early on
// a per-request failure; failures are reported in that request's Result.
func (e *Engine) Extract(ctx context.Context, requests []Request) ([]Result, error) {
	results := make([]Result, len(requests))
	groups := groupByPath(requests)

	tg := NewTaskGroup(e.workers)
	for path, idxs := range groups {
		path, idxs := path, idxs
		tg.Go(func() error {
			e.extractFile(ctx, path, requests, idxs, results)
			return nil
		})
	}
	if err := tg.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// extractFile handles every request against one file, writing directly
// into results at the original request indices. Per-request errors are
// stored in that Result, never propagated to the caller of Extract.
func (e *Engine) extractFile(ctx context.Context, path string, requests []Request, idxs []int, results []Result) {
	acc, err := e.opener(path)
	if err != nil {
		fail := griberrors.Wrap(griberrors.IOError, fmt.Sprintf("open %s", path), err)
		for _, i := range idxs {
			results[i] = Result{Err: fail}
		}
		return
	}
	defer acc.Close()

	for _, i := range idxs {
		req := requests[i]
		info, err := e.jumpInfo(ctx, path, acc, req.Offset)
		if err != nil {
			results[i] = Result{Err: err}
			continue
		}
		j, err := jumper.ForPacking(info.PackingType)
		if err != nil {
			results[i] = Result{Err: err}
			continue
		}
		values, err := j.Extract(ctx, acc, info, req.Intervals, req.ExpectedMD5)
		results[i] = Result{Values: values, Err: err}
	}
}

// jumpInfo returns the JumpInfo for the message at offset, consulting
// and populating the InfoCache when one is configured.
func (e *Engine) jumpInfo(ctx context.Context, path string, acc accessor.Accessor, offset uint64) (*jumpinfo.JumpInfo, error) {
	if e.infoCache != nil {
		info, ok, err := e.infoCache.Get(path, offset)
		if err != nil {
			return nil, err
		}
		if ok {
			return info, nil
		}
		if !e.infoCache.LazyExtraction() {
			return nil, griberrors.New(griberrors.CacheMissLazyOff, fmt.Sprintf("%s at offset %d: not cached and lazy extraction is disabled", path, offset))
		}
	}

	info, err := jumpinfo.Scan(ctx, acc, offset)
	if err != nil {
		return nil, griberrors.Wrap(griberrors.BadGrib, fmt.Sprintf("scan %s at offset %d", path, offset), err)
	}
	if e.infoCache != nil {
		if err := e.infoCache.Insert(path, offset, info); err != nil {
			return nil, err
		}
		// Append rather than Flush: a lazy scan adds one entry at a
		// time, so an incremental write keeps this cheap and still
		// makes the scan's cost amortise across process restarts.
		if err := e.infoCache.Append(path); err != nil {
			return nil, err
		}
	}
	return info, nil
}

func groupByPath(requests []Request) map[string][]int {
	groups := make(map[string][]int)
	for i, r := range requests {
		groups[r.Path] = append(groups[r.Path], i)
	}
	return groups
}

func openFile(path string) (accessor.Accessor, error) {
	return accessor.NewFile(path)
}
