//go:build !cuda || !cgo

package gpu

// Probe reports no device. This is the stub for builds without the cuda
// tag; the search core falls back to CPU matching.
func Probe() (Device, error) {
	return nil, ErrNoDevice
}
