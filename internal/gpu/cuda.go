//go:build cuda && cgo

package gpu

/*
#cgo CFLAGS: -I${SRCDIR}/kernel
#cgo LDFLAGS: -L${SRCDIR}/kernel/build -lmatchkernel -lcudart

#include "match_kernel.h"
#include <stdlib.h>
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// maxHitsPerBuffer bounds the offsets copied back per buffer. The search
// core caps reported matches per file well below this.
const maxHitsPerBuffer = 4096

// cudaDevice drives the literal-search kernel in kernel/match_kernel.cu.
// One thread per candidate position, one kernel launch per buffer.
type cudaDevice struct {
	ctx  *C.MkContext
	name string
}

// Probe initializes the first CUDA device, if any.
func Probe() (Device, error) {
	ctx := C.mk_open()
	if ctx == nil {
		return nil, ErrNoDevice
	}
	return &cudaDevice{
		ctx:  ctx,
		name: C.GoString(C.mk_device_name(ctx)),
	}, nil
}

func (d *cudaDevice) Name() string { return d.name }

func (d *cudaDevice) MatchBatch(needle []byte, buffers [][]byte) ([][]int, error) {
	if d.ctx == nil {
		return nil, ErrDeviceFailed
	}

	hits := make([]C.long, maxHitsPerBuffer)
	out := make([][]int, len(buffers))

	for i, buf := range buffers {
		if len(buf) < len(needle) || len(needle) == 0 {
			continue
		}
		n := C.mk_match(
			d.ctx,
			(*C.char)(unsafe.Pointer(&needle[0])), C.long(len(needle)),
			(*C.char)(unsafe.Pointer(&buf[0])), C.long(len(buf)),
			&hits[0], C.long(len(hits)),
		)
		if n < 0 {
			return nil, fmt.Errorf("%w: kernel launch returned %d", ErrDeviceFailed, int(n))
		}
		offs := make([]int, int(n))
		for j := range offs {
			offs[j] = int(hits[j])
		}
		out[i] = offs
	}
	return out, nil
}

func (d *cudaDevice) Close() error {
	if d.ctx != nil {
		C.mk_close(d.ctx)
		d.ctx = nil
	}
	return nil
}
