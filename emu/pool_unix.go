//go:build unix

package emu

import "golang.org/x/sys/unix"

func pageSize() uintptr {
	return uintptr(unix.Getpagesize())
}

func mapBlock(size int) ([]byte, error) {
	return unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
}

func unmapBlock(b []byte) error {
	return unix.Munmap(b)
}
