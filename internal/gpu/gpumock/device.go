// Package gpumock provides a pure-Go gpu.Device with the same matching
// semantics as the CUDA kernel: every occurrence of the needle, ascending,
// overlaps included. It exists for tests and hardware-less development.
package gpumock

import (
	"bytes"
	"runtime"
	"sort"
	"sync"

	"hybridsearch/internal/gpu"
)

// Device scans buffers with goroutine-level parallelism, sharding each
// buffer across workers the way the kernel shards it across thread blocks.
type Device struct {
	shards    int
	failAfter int // MatchBatch calls before it starts erroring; 0 = never
	calls     int
}

var _ gpu.Device = (*Device)(nil)

// New returns a device that never fails.
func New() *Device {
	return &Device{shards: runtime.NumCPU()}
}

// NewFailing returns a device whose MatchBatch succeeds `after` times and
// then returns gpu.ErrDeviceFailed, for exercising the CPU fallback.
func NewFailing(after int) *Device {
	return &Device{shards: runtime.NumCPU(), failAfter: after + 1}
}

func (d *Device) Name() string { return "gpumock" }

func (d *Device) MatchBatch(needle []byte, buffers [][]byte) ([][]int, error) {
	d.calls++
	if d.failAfter > 0 && d.calls >= d.failAfter {
		return nil, gpu.ErrDeviceFailed
	}

	out := make([][]int, len(buffers))
	for i, buf := range buffers {
		out[i] = d.scan(needle, buf)
	}
	return out, nil
}

func (d *Device) Close() error { return nil }

func (d *Device) scan(needle, haystack []byte) []int {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return nil
	}

	positions := len(haystack) - len(needle) + 1
	shards := d.shards
	if shards < 1 {
		shards = 1
	}
	per := (positions + shards - 1) / shards

	var mu sync.Mutex
	var offs []int
	var wg sync.WaitGroup

	for lo := 0; lo < positions; lo += per {
		hi := lo + per
		if hi > positions {
			hi = positions
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			// Shards overlap by len(needle)-1 so boundary hits are seen
			// by exactly one shard: the one owning the start position.
			var local []int
			window := haystack[lo : hi+len(needle)-1]
			for from := 0; ; {
				j := bytes.Index(window[from:], needle)
				if j < 0 {
					break
				}
				local = append(local, lo+from+j)
				from += j + 1
			}
			if len(local) > 0 {
				mu.Lock()
				offs = append(offs, local...)
				mu.Unlock()
			}
		}(lo, hi)
	}
	wg.Wait()

	sort.Ints(offs)
	return offs
}
