package abi

import (
	"unsafe"

	"github.com/wippyai/efi-runtime/status"
)

// Out is storage the firmware writes a result into. Its content is
// meaningful only after the call reported success; Assume is the one read.
type Out[T any] struct {
	v T
}

// NewOut allocates output storage pinned for the lifetime of f.
func NewOut[T any](f *Frame) *Out[T] {
	o := new(Out[T])
	f.pin(unsafe.Pointer(o), o)
	return o
}

// Ptr is the address handed to the firmware.
func (o *Out[T]) Ptr() uintptr {
	return uintptr(unsafe.Pointer(&o.v))
}

// Assume reads the output. Calling it when the call did not succeed reads
// whatever the firmware left behind.
func (o *Out[T]) Assume() T {
	return o.v
}

// Set primes the storage for in/out parameters such as buffer lengths.
func (o *Out[T]) Set(v T) {
	o.v = v
}

// Result gates the read of o on st being success.
func Result[T any](st status.Status, o *Out[T]) (T, error) {
	return status.ToResultWith(st, o.Assume)
}

// Optional splits a success-path handle that the firmware may legitimately
// leave null into a value and a presence flag.
func Optional[T ~uintptr](v T) (T, bool) {
	return v, v != 0
}
