package guid

import (
	"github.com/google/uuid"

	"github.com/wippyai/efi-runtime/errors"
)

// GUID is a 128-bit identifier in EFI byte order: the first three groups are
// little-endian, the last eight bytes are stored as written.
type GUID [16]byte

// Nil is the all-zero identifier.
var Nil GUID

// New builds a GUID from its EFI_GUID fields.
func New(data1 uint32, data2, data3 uint16, data4 [8]byte) GUID {
	var g GUID
	g[0] = byte(data1)
	g[1] = byte(data1 >> 8)
	g[2] = byte(data1 >> 16)
	g[3] = byte(data1 >> 24)
	g[4] = byte(data2)
	g[5] = byte(data2 >> 8)
	g[6] = byte(data3)
	g[7] = byte(data3 >> 8)
	copy(g[8:], data4[:])
	return g
}

// Parse reads the registry text form, e.g.
// 6302d008-7f9b-4f30-87ac-60c9fef5da4e.
func Parse(s string) (GUID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return Nil, errors.New(errors.PhaseValidate, errors.KindInvalidInput).
			Value(s).
			Cause(err).
			Detail("parse GUID %q", s).
			Build()
	}
	return fromUUID(u), nil
}

// MustParse is Parse for package-level identifier tables.
func MustParse(s string) GUID {
	g, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return g
}

// String returns the registry text form in lower case.
func (g GUID) String() string {
	return g.uuid().String()
}

// Data1 returns the first field.
func (g GUID) Data1() uint32 {
	return uint32(g[0]) | uint32(g[1])<<8 | uint32(g[2])<<16 | uint32(g[3])<<24
}

// IsNil reports whether g is all zero.
func (g GUID) IsNil() bool {
	return g == Nil
}

// uuid.UUID is stored in text (big-endian) order.
func fromUUID(u uuid.UUID) GUID {
	var g GUID
	g[0], g[1], g[2], g[3] = u[3], u[2], u[1], u[0]
	g[4], g[5] = u[5], u[4]
	g[6], g[7] = u[7], u[6]
	copy(g[8:], u[8:])
	return g
}

func (g GUID) uuid() uuid.UUID {
	var u uuid.UUID
	u[0], u[1], u[2], u[3] = g[3], g[2], g[1], g[0]
	u[4], u[5] = g[5], g[4]
	u[6], u[7] = g[7], g[6]
	copy(u[8:], g[8:])
	return u
}
