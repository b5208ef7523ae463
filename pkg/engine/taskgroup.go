// Package engine fans a batch of extraction requests out across a
// bounded worker pool, one task per source file so that a single file's
// requests share its scan, then aggregates per-task failures without
// letting one bad file abort the batch. Grounded on Task.h/.cc and
// Engine.h/.cc, reworked from the original's mutex/condvar-counted
// TaskGroup into the idiomatic Go shape: a semaphore-bounded WaitGroup.
package engine

import (
	"sync"

	"github.com/ecmwf/gribjump/pkg/griberrors"
)

// TaskGroup runs work items across at most `workers` goroutines at once,
// waiting for all of them and collecting every error raised, the same
// report-and-continue semantics as gribjump::TaskGroup::notifyError.
type TaskGroup struct {
	sem chan struct{}
	wg  sync.WaitGroup

	mu     sync.Mutex
	errors griberrors.List
}

// NewTaskGroup returns a TaskGroup that runs at most workers goroutines
// concurrently. workers <= 0 means unbounded.
func NewTaskGroup(workers int) *TaskGroup {
	var sem chan struct{}
	if workers > 0 {
		sem = make(chan struct{}, workers)
	}
	return &TaskGroup{sem: sem}
}

// Go schedules fn to run, blocking only if the worker pool is full. The
// error fn returns, if any, is recorded and does not stop other tasks.
func (g *TaskGroup) Go(fn func() error) {
	g.wg.Add(1)
	if g.sem != nil {
		g.sem <- struct{}{}
	}
	go func() {
		defer g.wg.Done()
		if g.sem != nil {
			defer func() { <-g.sem }()
		}
		if err := fn(); err != nil {
			g.mu.Lock()
			g.errors.Add(err)
			g.mu.Unlock()
		}
	}()
}

// Wait blocks until every scheduled task has completed and returns the
// aggregated error, or nil if every task succeeded.
func (g *TaskGroup) Wait() error {
	g.wg.Wait()
	return g.errors.AsError()
}

// Errors returns every error recorded so far. Call after Wait.
func (g *TaskGroup) Errors() []error {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]error, len(g.errors.Errors))
	copy(out, g.errors.Errors)
	return out
}
