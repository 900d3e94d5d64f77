//go:build !unix

package emu

import "unsafe"

// Without mmap, blocks come from the Go heap as word slices. The pool keeps
// them reachable and the collector does not move heap objects.

func pageSize() uintptr {
	return 8
}

func mapBlock(size int) ([]byte, error) {
	words := make([]uint64, (size+7)/8)
	return unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), size), nil
}

func unmapBlock([]byte) error {
	return nil
}
