package search

import (
	"sort"
	"sync"

	"github.com/cespare/xxhash"
)

// aggregator accumulates results from all dispatch paths. Safe for
// concurrent add. Dedupes by path hash so a file seen by both the CPU and
// GPU paths is reported once, whatever the dispatch partitioning did.
type aggregator struct {
	mu      sync.Mutex
	seen    map[uint64]bool
	results []Result
	onAdd   func(Result) // progressive-display hook, may be nil
}

func newAggregator(onAdd func(Result)) *aggregator {
	return &aggregator{
		seen:  make(map[uint64]bool),
		onAdd: onAdd,
	}
}

// add appends the result unless its path was already recorded. It reports
// whether the result was kept.
func (a *aggregator) add(r Result) bool {
	key := xxhash.Sum64String(r.Path)

	a.mu.Lock()
	if a.seen[key] {
		a.mu.Unlock()
		return false
	}
	a.seen[key] = true
	a.results = append(a.results, r)
	cb := a.onAdd
	a.mu.Unlock()

	if cb != nil {
		cb(r)
	}
	return true
}

// snapshot returns the results in discovery order.
func (a *aggregator) snapshot() []Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Result, len(a.results))
	copy(out, a.results)
	return out
}

// sortedByPath returns a deterministic ordering for reproducible output.
func (a *aggregator) sortedByPath() []Result {
	out := a.snapshot()
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
