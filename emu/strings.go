package emu

import (
	"unsafe"

	"github.com/wippyai/efi-runtime/layout"
	"github.com/wippyai/efi-runtime/status"
	"github.com/wippyai/efi-runtime/ucs2"
)

// allocString copies s into pool memory as a NUL-terminated CHAR16 string.
func (fw *Firmware) allocString(s string) (uintptr, status.Status) {
	units, err := ucs2.Encode(s)
	if err != nil {
		return 0, status.InvalidParameter
	}
	addr, err := fw.pool.Alloc(uintptr(len(units))*2, 8)
	if err != nil {
		return 0, status.OutOfResources
	}
	copy(unsafe.Slice(layout.At[uint16](addr), len(units)), units)
	return addr, status.Success
}

// readString decodes a caller string argument. A null pointer is reported
// as absent.
func readString(addr uintptr) (string, bool, status.Status) {
	if addr == 0 {
		return "", false, status.Success
	}
	s, err := ucs2.FromPtr(addr)
	if err != nil {
		return "", false, status.InvalidParameter
	}
	return s, true, status.Success
}

// readStringArray decodes a null-terminated array of CHAR16 pointers.
func readStringArray(addr uintptr) ([]string, status.Status) {
	if addr == 0 {
		return nil, status.Success
	}
	out := []string{}
	for p := addr; ; p += unsafe.Sizeof(uintptr(0)) {
		s := readWord(p)
		if s == 0 {
			return out, status.Success
		}
		v, err := ucs2.FromPtr(s)
		if err != nil {
			return nil, status.InvalidParameter
		}
		out = append(out, v)
	}
}
