package search

import "sync"

// Tunable defaults. MaxScanBytes and Workers are overridden per request;
// batch bounds and the GPU threshold via engine options.
const (
	// DefaultMaxScanBytes caps how much of a file is read for content
	// matching. Files above the cap are never content-searched.
	DefaultMaxScanBytes = 100 * 1024 * 1024

	// DefaultBatchFiles and DefaultBatchBytes bound one matcher batch.
	DefaultBatchFiles = 128
	DefaultBatchBytes = 64 * 1024 * 1024

	// DefaultGPUMinBytes is the smallest aggregate batch size worth the
	// device transfer overhead; smaller batches stay on CPU.
	DefaultGPUMinBytes = 1024 * 1024

	mmapThreshold           = 1024 * 1024 // files at or above this are mmapped
	binarySniffLen          = 8192        // NUL probe window
	excerptLimit            = 160         // bytes of excerpt per match
	maxMatchesPerFile       = 32
	maxGPUPatternComplexity = 10
	candidateBuffer         = 1024 // walker -> engine channel depth
)

// Directories pruned on every walk, merged with the request's ExcludeDirs.
// Tool and cache trees dominate wall time on developer machines.
var skipDirs = map[string]bool{
	"node_modules": true, ".git": true, ".svn": true,
	"target": true, "__pycache__": true,
	".idea": true, ".vscode": true,
	"$RECYCLE.BIN": true, "System Volume Information": true,
}

// Read buffer pool for files below the mmap threshold.
var bufferPool = sync.Pool{
	New: func() interface{} {
		return make([]byte, mmapThreshold)
	},
}
