package search

import (
	"context"
	"os"
	"runtime"
	"sync"

	"hybridsearch/internal/gpu"
)

// deviceMu grants the GPU to one session at a time; concurrent context use
// is unsafe. A session that cannot take the lock immediately runs CPU-only
// instead of waiting.
var deviceMu sync.Mutex

// Engine starts search sessions. One engine can serve many sequential or
// concurrent sessions; it holds only tunables and hooks.
type Engine struct {
	batchFiles  int
	batchBytes  int64
	gpuMinBytes int64
	onResult    func(Result)
	probe       func() (gpu.Device, error)
}

// Option configures an Engine.
type Option func(*Engine)

// WithBatchLimits bounds one matcher batch by file count and total bytes.
func WithBatchLimits(files int, bytes int64) Option {
	return func(e *Engine) {
		if files > 0 {
			e.batchFiles = files
		}
		if bytes > 0 {
			e.batchBytes = bytes
		}
	}
}

// WithGPUMinBytes sets the smallest aggregate batch size offloaded to the
// device.
func WithGPUMinBytes(n int64) Option {
	return func(e *Engine) {
		if n > 0 {
			e.gpuMinBytes = n
		}
	}
}

// WithOnResult installs a callback invoked once per accepted result, from
// whichever goroutine produced it. Used for progressive display.
func WithOnResult(fn func(Result)) Option {
	return func(e *Engine) { e.onResult = fn }
}

// WithDeviceProbe overrides hardware discovery. Tests inject mock devices;
// the default is gpu.Probe, re-run for every session so driver changes are
// observed.
func WithDeviceProbe(probe func() (gpu.Device, error)) Option {
	return func(e *Engine) {
		if probe != nil {
			e.probe = probe
		}
	}
}

// New returns an Engine with the documented defaults.
func New(opts ...Option) *Engine {
	e := &Engine{
		batchFiles:  DefaultBatchFiles,
		batchBytes:  DefaultBatchBytes,
		gpuMinBytes: DefaultGPUMinBytes,
		probe:       gpu.Probe,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Start validates the request, compiles its patterns, probes the GPU and
// launches the search. Malformed patterns and unusable roots are reported
// here, synchronously, before any session exists; everything after this
// point is recovered per file or per directory.
func (e *Engine) Start(req Request) (*Session, error) {
	if req.MinSize > 0 && req.MaxSize > 0 && req.MinSize > req.MaxSize {
		return nil, ErrSizeBounds
	}

	pattern, err := compilePatterns(req)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(req.Root)
	if err != nil || !info.IsDir() {
		if err != nil && !os.IsNotExist(err) {
			return nil, ErrRootNotReadable
		}
		return nil, ErrRootNotFound
	}
	if _, err := os.ReadDir(req.Root); err != nil {
		return nil, ErrRootNotReadable
	}

	if req.Workers <= 0 {
		req.Workers = runtime.NumCPU()
	}
	if req.MaxScanBytes <= 0 {
		req.MaxScanBytes = DefaultMaxScanBytes
	}

	exclude := make(map[string]bool, len(req.ExcludeDirs))
	for _, d := range req.ExcludeDirs {
		exclude[d] = true
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		engine:  e,
		req:     req,
		pattern: pattern,
		matcher: &cpuMatcher{re: pattern.content, maxScan: req.MaxScanBytes},
		exclude: exclude,
		ctx:     ctx,
		cancel:  cancel,
		results: newAggregator(e.onResult),
		done:    make(chan struct{}),
	}

	if req.EnableGPU {
		s.acquireDevice()
	}

	s.status.Store(int32(StatusRunning))
	go s.run()
	return s, nil
}

// acquireDevice probes the hardware and takes session-exclusive ownership.
// Every failure path just leaves the session on CPU with the notice set.
func (s *Session) acquireDevice() {
	if s.pattern.needle == nil {
		// nothing the kernel could run; skip the probe entirely
		s.gpuNotice.Store(true)
		return
	}
	if !deviceMu.TryLock() {
		logWarn("gpu busy with another session, staying on cpu")
		s.gpuNotice.Store(true)
		return
	}
	dev, err := s.engine.probe()
	if err != nil {
		deviceMu.Unlock()
		logWarn("gpu probe: %v", err)
		s.gpuNotice.Store(true)
		return
	}
	s.device = dev
	logInfo("gpu acquired: %s", dev.Name())
}

func (s *Session) releaseDevice() {
	if s.device == nil {
		return
	}
	if err := s.device.Close(); err != nil {
		logWarn("gpu close: %v", err)
	}
	s.device = nil
	deviceMu.Unlock()
}

// markGPULost retires the device after a mid-session failure. The notice
// is surfaced to the caller once; the search itself keeps going on CPU.
func (s *Session) markGPULost(err error) {
	if s.gpuLost.CompareAndSwap(false, true) {
		logWarn("gpu failed, falling back to cpu: %v", err)
	}
	s.gpuNotice.Store(true)
}
