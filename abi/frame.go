package abi

import (
	"runtime"
	"unsafe"

	efiruntime "github.com/wippyai/efi-runtime"
	"github.com/wippyai/efi-runtime/status"
	"github.com/wippyai/efi-runtime/ucs2"
)

// Frame holds every Go object whose address is handed to the firmware for
// one call. Objects stay pinned until Release, so the collector can neither
// move nor free them while the firmware may still dereference them.
//
// A Frame must not be copied. Typical use:
//
//	f := abi.NewFrame()
//	defer f.Release()
//	out := abi.NewOut[uintptr](f)
//	st := f.Call(caller, fn, abi.Ref(f, &arg), out.Ptr())
type Frame struct {
	pinner runtime.Pinner
	keep   []any
}

// NewFrame returns an empty frame.
func NewFrame() *Frame {
	return &Frame{}
}

// Release unpins everything pinned through f. The frame may be reused.
func (f *Frame) Release() {
	f.pinner.Unpin()
	f.keep = f.keep[:0]
}

// Call invokes fn through c and returns the raw status.
func (f *Frame) Call(c efiruntime.Caller, fn uintptr, args ...uintptr) status.Status {
	st := status.Status(c.Call(fn, args...))
	runtime.KeepAlive(f.keep)
	return st
}

// CallWord invokes fn through c and returns the native return word as is,
// for services that return a pointer or a BOOLEAN rather than a status.
func (f *Frame) CallWord(c efiruntime.Caller, fn uintptr, args ...uintptr) uintptr {
	w := c.Call(fn, args...)
	runtime.KeepAlive(f.keep)
	return w
}

func (f *Frame) pin(p unsafe.Pointer, owner any) uintptr {
	f.pinner.Pin(p)
	f.keep = append(f.keep, owner)
	return uintptr(p)
}

// Ref pins *p and returns its address. A nil p passes a null pointer.
func Ref[T any](f *Frame, p *T) uintptr {
	if p == nil {
		return 0
	}
	return f.pin(unsafe.Pointer(p), p)
}

// Buf pins the backing array of b and returns the address of its first
// element. An empty slice passes a null pointer.
func Buf[E any](f *Frame, b []E) uintptr {
	if len(b) == 0 {
		return 0
	}
	return f.pin(unsafe.Pointer(&b[0]), b)
}

// String16 encodes s as a NUL-terminated CHAR16 string and pins it.
func String16(f *Frame, s string) (uintptr, error) {
	units, err := ucs2.Encode(s)
	if err != nil {
		return 0, err
	}
	return Buf(f, units), nil
}

// StringArray16 builds a null-terminated array of CHAR16 string pointers.
// A nil slice passes a null pointer rather than an empty array.
func StringArray16(f *Frame, ss []string) (uintptr, error) {
	if ss == nil {
		return 0, nil
	}
	ptrs := make([]uintptr, len(ss)+1)
	for i, s := range ss {
		p, err := String16(f, s)
		if err != nil {
			return 0, err
		}
		ptrs[i] = p
	}
	return Buf(f, ptrs), nil
}

// Bool encodes a BOOLEAN argument.
func Bool(b bool) uintptr {
	if b {
		return 1
	}
	return 0
}
