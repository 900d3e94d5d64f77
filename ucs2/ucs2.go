package ucs2

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"
	"unsafe"

	"golang.org/x/text/encoding/unicode"

	"github.com/wippyai/efi-runtime/errors"
)

// MaxLen bounds the number of CHAR16 units read from firmware memory when
// looking for a terminator.
const MaxLen = 1 << 16

var codec = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// Encode returns s as NUL-terminated CHAR16 units. Characters outside the
// Basic Multilingual Plane and embedded NULs are rejected.
func Encode(s string) ([]uint16, error) {
	if !utf8.ValidString(s) {
		return nil, errors.InvalidInput(errors.PhaseEncode, fmt.Sprintf("invalid UTF-8 in %q", s))
	}
	for i, r := range s {
		if r == 0 {
			return nil, errors.New(errors.PhaseEncode, errors.KindInvalidInput).
				Value(i).
				Detail("embedded NUL at byte %d", i).
				Build()
		}
		if r > 0xFFFF {
			return nil, errors.Overflow(errors.PhaseEncode, []string{fmt.Sprintf("byte %d", i)}, fmt.Sprintf("U+%04X", r), "CHAR16 range")
		}
	}

	raw, err := codec.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseEncode, errors.KindInvalidInput, err, "encode CHAR16")
	}

	units := make([]uint16, len(raw)/2+1)
	for i := 0; i+1 < len(raw); i += 2 {
		units[i/2] = binary.LittleEndian.Uint16(raw[i:])
	}
	return units, nil
}

// MustEncode is Encode for literals known to be valid.
func MustEncode(s string) []uint16 {
	u, err := Encode(s)
	if err != nil {
		panic(err)
	}
	return u
}

// Decode converts CHAR16 units to a Go string, stopping at the first NUL.
func Decode(units []uint16) (string, error) {
	n := 0
	for n < len(units) && units[n] != 0 {
		n++
	}
	if n == 0 {
		return "", nil
	}

	raw := make([]byte, n*2)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(raw[i*2:], units[i])
	}

	out, err := codec.NewDecoder().Bytes(raw)
	if err != nil {
		return "", errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "decode CHAR16")
	}
	return string(out), nil
}

// Len returns the number of CHAR16 units before the terminator of the
// string at addr. Ok is false when no terminator is found within MaxLen.
func Len(addr uintptr) (int, bool) {
	if addr == 0 {
		return 0, true
	}
	p := unsafe.Pointer(addr)
	for i := 0; i < MaxLen; i++ {
		if *(*uint16)(unsafe.Add(p, i*2)) == 0 {
			return i, true
		}
	}
	return MaxLen, false
}

// FromPtr decodes the NUL-terminated string at a firmware address. A zero
// address decodes to the empty string.
func FromPtr(addr uintptr) (string, error) {
	n, ok := Len(addr)
	if !ok {
		return "", errors.Overflow(errors.PhaseDecode, nil, n, "CHAR16 string limit")
	}
	if n == 0 {
		return "", nil
	}
	units := unsafe.Slice((*uint16)(unsafe.Pointer(addr)), n)
	return Decode(units)
}
