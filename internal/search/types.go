package search

import "time"

// Status is the lifecycle state of one search session.
type Status int32

const (
	StatusIdle Status = iota
	StatusRunning
	StatusCompleted
	StatusCancelled
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Request describes one search. Zero values mean "no constraint".
type Request struct {
	Root           string    // directory to search under
	NamePattern    string    // glob, or literal substring when it has no metacharacters
	Extensions     []string  // without dot, case-insensitive
	ContentPattern string    // regular expression; empty = names only, no content read
	CaseSensitive  bool      // applies to both name and content patterns
	MinSize        int64     // bytes
	MaxSize        int64     // bytes
	ModifiedAfter  time.Time
	ModifiedBefore time.Time
	MaxScanBytes   int64    // per-file content cap; DefaultMaxScanBytes when 0
	EnableGPU      bool     // opt in to device offload
	Workers        int      // CPU matcher pool size; NumCPU when 0
	ExcludeDirs    []string // directory basenames pruned before descending
	IncludeHidden  bool     // descend into dot-directories and match dot-files
}

// candidate is one regular file produced by the walker, not yet filtered.
type candidate struct {
	path    string
	size    int64
	modTime time.Time
	ext     string // lowercase, without dot
}

// Match is one content hit inside a file. Matches within a file are
// reported in offset order.
type Match struct {
	Line    int    // 1-based line number
	Offset  int64  // byte offset of the match start
	Excerpt string // matched line, trimmed and capped
}

// Result is one matched file. Matches is empty for name/metadata-only
// searches.
type Result struct {
	Path    string
	Size    int64
	ModTime time.Time
	Matches []Match
}

// Progress is a point-in-time snapshot of a running or finished session.
// Recoverable problems surface here as counters, never as errors.
type Progress struct {
	Status         Status
	Scanned        int64 // candidates pulled from the walker
	Matched        int64
	SkippedDirs    int64 // unreadable directories
	SkippedFiles   int64 // unreadable or vanished files
	TooLarge       int64 // files above the content scan cap
	CPUBatches     int64
	GPUBatches     int64
	GPUUnavailable bool   // GPU was requested but could not be used at some point
	FailReason     string // set when Status is StatusFailed
}
