package gpu

import "errors"

var (
	// ErrNoDevice is returned by Probe when no usable device exists.
	ErrNoDevice = errors.New("gpu: no device available")

	// ErrDeviceFailed is returned by MatchBatch when a memory copy or
	// kernel launch fails after the device was successfully probed.
	ErrDeviceFailed = errors.New("gpu: device failed")
)

// Device matches a literal byte needle against a batch of buffers in
// parallel. MatchBatch returns, per buffer, the byte offset of every
// occurrence of the needle in ascending order, including overlapping
// occurrences; callers are expected to normalize the offsets to whatever
// match semantics they need. The returned slice has one entry per input
// buffer, in input order.
//
// A Device is not safe for concurrent use. The search core serializes all
// submissions to a device within one session and never shares a device
// between sessions.
type Device interface {
	// Name identifies the device for logs and diagnostics.
	Name() string

	// MatchBatch scans every buffer for the needle.
	MatchBatch(needle []byte, buffers [][]byte) ([][]int, error)

	// Close releases the device context.
	Close() error
}
