package search

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"

	"hybridsearch/internal/gpu"
)

// Session is the state of one search from submission to terminal status:
// Running, then exactly one of Completed, Cancelled or Failed. Failed is
// reserved for conditions that make continuing meaningless; per-file and
// per-directory problems only move counters.
type Session struct {
	engine  *Engine
	req     Request
	pattern *compiledPattern
	matcher *cpuMatcher
	exclude map[string]bool
	device  gpu.Device

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	status  atomic.Int32
	failMsg atomic.Value // string
	results *aggregator

	scanned      atomic.Int64
	matched      atomic.Int64
	skippedDirs  atomic.Int64
	skippedFiles atomic.Int64
	tooLarge     atomic.Int64
	cpuBatches   atomic.Int64
	gpuBatches   atomic.Int64
	gpuLost      atomic.Bool // device failed mid-session
	gpuNotice    atomic.Bool // surfaced in Progress.GPUUnavailable
}

// run is the control goroutine: it pulls candidates from the walker,
// filters them, forms batches and dispatches each batch exactly once. GPU
// batches execute here, serialized; CPU batches go to the bounded worker
// pool, whose blocking Submit is the backpressure that keeps the set of
// loaded batches finite on arbitrarily large trees.
func (s *Session) run() {
	defer close(s.done)
	defer s.releaseDevice()

	pool, err := ants.NewPool(s.req.Workers)
	if err != nil {
		s.fail(fmt.Sprintf("worker pool: %v", err))
		return
	}
	defer pool.Release()

	out := make(chan candidate, candidateBuffer)
	w := &walker{
		ctx:      s.ctx,
		exclude:  s.exclude,
		hidden:   s.req.IncludeHidden,
		dirErrs:  &s.skippedDirs,
		fileErrs: &s.skippedFiles,
	}
	walkErr := make(chan error, 1)
	go func() { walkErr <- w.run(s.req.Root, out) }()

	var wg sync.WaitGroup
	var batch []candidate
	var batchBytes int64

	flush := func() {
		if len(batch) == 0 {
			return
		}
		b, size := batch, batchBytes
		batch, batchBytes = nil, 0

		if s.useGPU(size) {
			s.runBatchGPU(b)
			return
		}
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			s.runBatchCPU(b)
		}); err != nil {
			// pool released under us, run inline
			s.runBatchCPU(b)
			wg.Done()
		}
	}

	cancelled := false
	for c := range out {
		if s.ctx.Err() != nil {
			cancelled = true
			break
		}
		s.scanned.Add(1)

		if !s.accept(c) {
			continue
		}
		if s.pattern.content == nil {
			// pure name/metadata search, no content read at all
			s.emit(Result{Path: c.path, Size: c.size, ModTime: c.modTime})
			continue
		}
		if c.size > s.req.MaxScanBytes {
			s.tooLarge.Add(1)
			continue
		}

		batch = append(batch, c)
		batchBytes += c.size
		if len(batch) >= s.engine.batchFiles || batchBytes >= s.engine.batchBytes {
			flush()
		}
	}

	if !cancelled {
		flush()
	}
	wg.Wait()

	if cancelled {
		// unblock the walker and let it exit before we finish
		for range out {
		}
		<-walkErr
		s.status.Store(int32(StatusCancelled))
		return
	}
	if err := <-walkErr; err != nil {
		s.fail(fmt.Sprintf("root unreadable: %v", err))
		return
	}
	if s.ctx.Err() != nil {
		s.status.Store(int32(StatusCancelled))
		return
	}
	s.status.Store(int32(StatusCompleted))
}

// accept applies the name, extension, size and date filters.
func (s *Session) accept(c candidate) bool {
	if !s.pattern.matchName(filepath.Base(c.path), c.ext) {
		return false
	}
	if s.req.MinSize > 0 && c.size < s.req.MinSize {
		return false
	}
	if s.req.MaxSize > 0 && c.size > s.req.MaxSize {
		return false
	}
	if !s.req.ModifiedAfter.IsZero() && c.modTime.Before(s.req.ModifiedAfter) {
		return false
	}
	if !s.req.ModifiedBefore.IsZero() && c.modTime.After(s.req.ModifiedBefore) {
		return false
	}
	return true
}

func (s *Session) emit(r Result) {
	if s.results.add(r) {
		s.matched.Add(1)
	}
}

func (s *Session) emitContent(c candidate, matches []Match) {
	if len(matches) == 0 {
		return
	}
	s.emit(Result{Path: c.path, Size: c.size, ModTime: c.modTime, Matches: matches})
}

func (s *Session) fail(reason string) {
	s.failMsg.Store(reason)
	s.status.Store(int32(StatusFailed))
	logError("search failed: %s", reason)
}

// Cancel requests a cooperative stop. The walker stops between directory
// listings and the dispatcher between batches; batches already dispatched
// run to completion, so their results may still appear.
func (s *Session) Cancel() { s.cancel() }

// Wait blocks until the session reaches a terminal status and returns it.
func (s *Session) Wait() Status {
	<-s.done
	return s.Status()
}

// Status returns the current lifecycle state.
func (s *Session) Status() Status { return Status(s.status.Load()) }

// Poll returns a progress snapshot. Safe to call at any time from any
// goroutine; zero matches with StatusCompleted is distinguishable from any
// failure.
func (s *Session) Poll() Progress {
	p := Progress{
		Status:         s.Status(),
		Scanned:        s.scanned.Load(),
		Matched:        s.matched.Load(),
		SkippedDirs:    s.skippedDirs.Load(),
		SkippedFiles:   s.skippedFiles.Load(),
		TooLarge:       s.tooLarge.Load(),
		CPUBatches:     s.cpuBatches.Load(),
		GPUBatches:     s.gpuBatches.Load(),
		GPUUnavailable: s.gpuNotice.Load(),
	}
	if msg, ok := s.failMsg.Load().(string); ok {
		p.FailReason = msg
	}
	return p
}

// Results returns the matches found so far in discovery order.
func (s *Session) Results() []Result { return s.results.snapshot() }

// ResultsByPath returns the matches sorted by path for reproducible output.
func (s *Session) ResultsByPath() []Result { return s.results.sortedByPath() }
