package search

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hybridsearch/internal/gpu"
	"hybridsearch/internal/gpu/gpumock"
)

func resultPaths(root string, results []Result) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		rel, _ := filepath.Rel(root, r.Path)
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

func runSearch(t *testing.T, e *Engine, req Request) (*Session, Status) {
	t.Helper()
	s, err := e.Start(req)
	require.NoError(t, err)
	return s, s.Wait()
}

func TestStartValidation(t *testing.T) {
	e := New()
	root := t.TempDir()

	t.Run("invalid content pattern", func(t *testing.T) {
		_, err := e.Start(Request{Root: root, ContentPattern: "(["})
		var perr *PatternError
		assert.True(t, errors.As(err, &perr))
	})

	t.Run("size bounds", func(t *testing.T) {
		_, err := e.Start(Request{Root: root, MinSize: 10, MaxSize: 5})
		assert.ErrorIs(t, err, ErrSizeBounds)
	})

	t.Run("missing root", func(t *testing.T) {
		_, err := e.Start(Request{Root: filepath.Join(root, "missing")})
		assert.ErrorIs(t, err, ErrRootNotFound)
	})

	t.Run("root is a file", func(t *testing.T) {
		f := filepath.Join(root, "f.txt")
		require.NoError(t, os.WriteFile(f, []byte("x"), 0o644))
		_, err := e.Start(Request{Root: f})
		assert.ErrorIs(t, err, ErrRootNotFound)
	})
}

// The canonical scenario: name and content filters compose.
func TestNameAndContentSearch(t *testing.T) {
	root := mkTree(t, map[string]string{
		"a.txt":     "foo bar",
		"b.log":     "foo",
		"sub/c.txt": "bar",
	})

	s, status := runSearch(t, New(), Request{
		Root:           root,
		NamePattern:    "*.txt",
		ContentPattern: "foo",
	})
	assert.Equal(t, StatusCompleted, status)
	assert.Equal(t, []string{"a.txt"}, resultPaths(root, s.Results()))

	results := s.Results()
	require.Len(t, results[0].Matches, 1)
	assert.Equal(t, 1, results[0].Matches[0].Line)
	assert.Equal(t, "foo bar", results[0].Matches[0].Excerpt)
}

func TestNameOnlySearch(t *testing.T) {
	root := mkTree(t, map[string]string{
		"a.txt":     "anything",
		"b.txt":     "anything",
		"c.log":     "anything",
		"sub/d.txt": "anything",
	})

	t.Run("results equal the filter set, no content read", func(t *testing.T) {
		s, status := runSearch(t, New(), Request{Root: root, NamePattern: "*.txt"})
		assert.Equal(t, StatusCompleted, status)
		assert.ElementsMatch(t, []string{"a.txt", "b.txt", "sub/d.txt"}, resultPaths(root, s.Results()))
		for _, r := range s.Results() {
			assert.Empty(t, r.Matches)
		}
		p := s.Poll()
		assert.Zero(t, p.CPUBatches)
		assert.Zero(t, p.GPUBatches)
	})

	t.Run("extension filter", func(t *testing.T) {
		s, _ := runSearch(t, New(), Request{Root: root, Extensions: []string{"log"}})
		assert.Equal(t, []string{"c.log"}, resultPaths(root, s.Results()))
	})
}

func TestSizeAndDateFilters(t *testing.T) {
	root := mkTree(t, map[string]string{
		"small.txt": "ab",
		"large.txt": "abcdefghijklmnop",
	})
	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(filepath.Join(root, "small.txt"), old, old))
	cutoff := time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("min size", func(t *testing.T) {
		s, _ := runSearch(t, New(), Request{Root: root, MinSize: 10})
		assert.Equal(t, []string{"large.txt"}, resultPaths(root, s.Results()))
	})

	t.Run("max size", func(t *testing.T) {
		s, _ := runSearch(t, New(), Request{Root: root, MaxSize: 10})
		assert.Equal(t, []string{"small.txt"}, resultPaths(root, s.Results()))
	})

	t.Run("modified after keeps the newer file", func(t *testing.T) {
		s, _ := runSearch(t, New(), Request{Root: root, ModifiedAfter: cutoff})
		assert.Equal(t, []string{"large.txt"}, resultPaths(root, s.Results()))
	})

	t.Run("modified before keeps the older file", func(t *testing.T) {
		s, _ := runSearch(t, New(), Request{Root: root, ModifiedBefore: cutoff})
		assert.Equal(t, []string{"small.txt"}, resultPaths(root, s.Results()))
	})

	t.Run("date window composes", func(t *testing.T) {
		s, _ := runSearch(t, New(), Request{
			Root:           root,
			ModifiedAfter:  time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC),
			ModifiedBefore: cutoff,
		})
		assert.Equal(t, []string{"small.txt"}, resultPaths(root, s.Results()))
	})
}

func TestScanCap(t *testing.T) {
	root := mkTree(t, map[string]string{
		"small.txt": "foo",
		"big.txt":   "padpadpad foo", // 13 bytes, above the tiny cap
	})

	t.Run("capped file never matches content", func(t *testing.T) {
		s, status := runSearch(t, New(), Request{
			Root:           root,
			ContentPattern: "foo",
			MaxScanBytes:   4,
		})
		assert.Equal(t, StatusCompleted, status)
		assert.Equal(t, []string{"small.txt"}, resultPaths(root, s.Results()))
		assert.Equal(t, int64(1), s.Poll().TooLarge)
	})

	t.Run("capped file still qualifies for name-only results", func(t *testing.T) {
		s, _ := runSearch(t, New(), Request{
			Root:         root,
			NamePattern:  "*.txt",
			MaxScanBytes: 4,
		})
		assert.ElementsMatch(t, []string{"small.txt", "big.txt"}, resultPaths(root, s.Results()))
	})
}

func TestExcludedDirectory(t *testing.T) {
	root := mkTree(t, map[string]string{
		"a.txt":            "foo",
		"skipme/b.txt":     "foo",
		"skipme/sub/c.txt": "foo",
	})

	s, status := runSearch(t, New(), Request{
		Root:           root,
		ContentPattern: "foo",
		ExcludeDirs:    []string{"skipme"},
	})
	assert.Equal(t, StatusCompleted, status)
	assert.Equal(t, []string{"a.txt"}, resultPaths(root, s.Results()))
	// the excluded subtree was never even listed
	assert.Equal(t, int64(1), s.Poll().Scanned)
}

func TestBinaryFilesSkippedForContent(t *testing.T) {
	root := mkTree(t, map[string]string{"text.txt": "foo"})
	require.NoError(t, os.WriteFile(filepath.Join(root, "blob.bin"), []byte("foo\x00foo"), 0o644))

	s, _ := runSearch(t, New(), Request{Root: root, ContentPattern: "foo"})
	assert.Equal(t, []string{"text.txt"}, resultPaths(root, s.Results()))
}

func TestIdempotence(t *testing.T) {
	root := mkTree(t, map[string]string{
		"a.txt":     "foo a",
		"b.txt":     "foo b",
		"sub/c.txt": "foo c",
		"sub/d.log": "foo d",
	})
	req := Request{Root: root, NamePattern: "*.txt", ContentPattern: "foo"}

	first, status := runSearch(t, New(), req)
	require.Equal(t, StatusCompleted, status)
	second, status := runSearch(t, New(), req)
	require.Equal(t, StatusCompleted, status)

	assert.Equal(t, first.ResultsByPath(), second.ResultsByPath())
}

func TestCancellation(t *testing.T) {
	files := make(map[string]string, 64)
	for i := 0; i < 64; i++ {
		files[filepath.Join("d", string(rune('a'+i%26))+".txt")] = "x"
	}
	root := mkTree(t, files)

	var once sync.Once
	ready := make(chan *Session, 1)

	e := New(WithOnResult(func(Result) {
		once.Do(func() { (<-ready).Cancel() })
	}))

	s, err := e.Start(Request{Root: root, NamePattern: "*.txt"})
	require.NoError(t, err)
	ready <- s

	// name-only results are emitted from the control goroutine, so the
	// cancel above is observed before the next candidate is processed
	assert.Equal(t, StatusCancelled, s.Wait())
}

func TestGPUDispatch(t *testing.T) {
	root := mkTree(t, map[string]string{
		"a.txt":     "foo bar",
		"b.txt":     "nothing",
		"sub/c.txt": "more foo\nand foo again",
	})
	// case-sensitive literal pattern: device-eligible
	req := Request{Root: root, ContentPattern: "foo", CaseSensitive: true, EnableGPU: true}

	mockProbe := func() (gpu.Device, error) { return gpumock.New(), nil }

	t.Run("gpu and cpu runs return identical results", func(t *testing.T) {
		gpuEngine := New(WithDeviceProbe(mockProbe), WithGPUMinBytes(1))
		gpuRun, status := runSearch(t, gpuEngine, req)
		require.Equal(t, StatusCompleted, status)
		require.Greater(t, gpuRun.Poll().GPUBatches, int64(0))

		cpuReq := req
		cpuReq.EnableGPU = false
		cpuRun, _ := runSearch(t, New(), cpuReq)

		assert.Equal(t, cpuRun.ResultsByPath(), gpuRun.ResultsByPath())
	})

	t.Run("no hardware degrades to cpu with one notice", func(t *testing.T) {
		e := New(WithDeviceProbe(func() (gpu.Device, error) { return nil, gpu.ErrNoDevice }))
		s, status := runSearch(t, e, req)
		assert.Equal(t, StatusCompleted, status)
		assert.ElementsMatch(t, []string{"a.txt", "sub/c.txt"}, resultPaths(root, s.Results()))

		p := s.Poll()
		assert.True(t, p.GPUUnavailable)
		assert.Zero(t, p.GPUBatches)
	})

	t.Run("device failure mid-session falls back transparently", func(t *testing.T) {
		e := New(
			WithDeviceProbe(func() (gpu.Device, error) { return gpumock.NewFailing(0), nil }),
			WithGPUMinBytes(1),
		)
		s, status := runSearch(t, e, req)
		assert.Equal(t, StatusCompleted, status)
		assert.ElementsMatch(t, []string{"a.txt", "sub/c.txt"}, resultPaths(root, s.Results()))
		assert.True(t, s.Poll().GPUUnavailable)
	})

	t.Run("case-insensitive pattern never probes the device", func(t *testing.T) {
		probed := false
		e := New(WithDeviceProbe(func() (gpu.Device, error) {
			probed = true
			return gpumock.New(), nil
		}))
		insensitive := req
		insensitive.CaseSensitive = false
		s, status := runSearch(t, e, insensitive)
		assert.Equal(t, StatusCompleted, status)
		assert.False(t, probed)
		assert.Greater(t, s.Poll().CPUBatches, int64(0))
	})
}

func TestUnreadableSubdirectoryRecovered(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks are bypassed for root")
	}
	root := mkTree(t, map[string]string{
		"ok.txt":        "foo",
		"locked/no.txt": "foo",
	})
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { os.Chmod(locked, 0o755) })

	s, status := runSearch(t, New(), Request{Root: root, ContentPattern: "foo"})
	assert.Equal(t, StatusCompleted, status)
	assert.Equal(t, []string{"ok.txt"}, resultPaths(root, s.Results()))
	assert.Equal(t, int64(1), s.Poll().SkippedDirs)
}

func TestZeroMatchesIsNotFailure(t *testing.T) {
	root := mkTree(t, map[string]string{"a.txt": "nothing relevant"})
	s, status := runSearch(t, New(), Request{Root: root, ContentPattern: "absent"})
	assert.Equal(t, StatusCompleted, status)
	assert.Empty(t, s.Results())
	assert.Empty(t, s.Poll().FailReason)
}
