package efiruntime

// Caller invokes a raw firmware function pointer using the platform's
// firmware calling convention. Arguments are passed position-for-position
// and the native return word is handed back uninterpreted.
type Caller interface {
	Call(fn uintptr, args ...uintptr) uintptr
}

// CallerFunc adapts an ordinary function to the Caller interface.
type CallerFunc func(fn uintptr, args ...uintptr) uintptr

// Call implements Caller.
func (f CallerFunc) Call(fn uintptr, args ...uintptr) uintptr {
	return f(fn, args...)
}

// Allocator hands out firmware pool memory. Addresses returned by Alloc are
// owned by the firmware and stay put until released with Free.
type Allocator interface {
	Alloc(size, align uintptr) (uintptr, error)
	Free(addr uintptr) error
}
