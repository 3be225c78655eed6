// Package gpu isolates the CUDA pattern-matching device behind a small
// interface so the search core never links CUDA directly.
//
// The real backend lives in cuda.go and is only compiled with
//
//	go build -tags cuda
//
// which requires CGO, the CUDA runtime library and the match kernel built
// with nvcc (see cuda.go for the expected layout). Every other build gets
// the stub in cuda_stub.go, whose Probe reports that no device exists.
//
// The gpumock subpackage provides a pure-Go device with identical matching
// semantics for tests and hardware-less development.
package gpu
