package search

import (
	"errors"
	"fmt"
)

var (
	// ErrRootNotFound is returned from Start when the search root does
	// not exist or is not a directory.
	ErrRootNotFound = errors.New("search root does not exist")

	// ErrRootNotReadable is returned from Start when the search root
	// cannot be listed.
	ErrRootNotReadable = errors.New("search root is not readable")

	// ErrSizeBounds is returned from Start when MinSize exceeds MaxSize.
	ErrSizeBounds = errors.New("minimum size exceeds maximum size")
)

// PatternError reports a malformed name or content pattern. It is returned
// synchronously from Start, before any directory is touched.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid pattern %q: %v", e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error { return e.Err }
