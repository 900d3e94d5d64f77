package layout

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/wippyai/efi-runtime/errors"
	"github.com/wippyai/efi-runtime/guid"
)

// Protocol is implemented by mirror structs of identifier-keyed interface
// tables. The method is called on the zero value and must not touch fields.
type Protocol interface {
	ProtocolGUID() guid.GUID
}

// Reserved is a pointer-sized placeholder for a table slot that has no
// binding. It keeps every later field at its firmware offset.
type Reserved uintptr

// IdentifierOf returns the identifier declared by mirror type T.
func IdentifierOf[T Protocol]() guid.GUID {
	var zero T
	return zero.ProtocolGUID()
}

// At reinterprets a firmware address as *T. It is the only place raw
// addresses become typed references. A zero address yields nil. Nothing is
// checked: T must mirror the firmware layout exactly.
func At[T any](addr uintptr) *T {
	if addr == 0 {
		return nil
	}
	return (*T)(unsafe.Pointer(addr))
}

// AddrOf returns the address of p for passing back across the boundary.
func AddrOf[T any](p *T) uintptr {
	return uintptr(unsafe.Pointer(p))
}

// Contract is the declared binary layout of a firmware structure, keyed by
// its identifier when it is a protocol interface table.
type Contract struct {
	Name   string
	GUID   guid.GUID
	Fields []Field
}

// Layout computes the contract's layout with calc.
func (c Contract) Layout(calc *Calculator) Info {
	return calc.Record(c.Fields)
}

// Verify checks that the Go mirror T has exactly the declared fields, in
// order, at the declared offsets and sizes for the running target.
func Verify[T any](c Contract) error {
	typ := reflect.TypeFor[T]()
	if typ.Kind() != reflect.Struct {
		return errors.LayoutMismatch(c.Name, nil, fmt.Sprintf("mirror %s is not a struct", typ))
	}
	return verifyStruct(NewCalculator(), c.Name, nil, typ, c.Fields)
}

func verifyStruct(calc *Calculator, protocol string, path []string, typ reflect.Type, fields []Field) error {
	info := calc.Record(fields)

	if typ.NumField() != len(fields) {
		return errors.LayoutMismatch(protocol, path,
			fmt.Sprintf("mirror %s has %d fields, contract declares %d", typ, typ.NumField(), len(fields)))
	}

	for i, decl := range fields {
		sf := typ.Field(i)
		fieldPath := append(append([]string(nil), path...), decl.Name)

		if sf.Name != decl.Name {
			return errors.LayoutMismatch(protocol, fieldPath,
				fmt.Sprintf("field %d is %s in mirror", i, sf.Name))
		}

		want := info.FieldOffs[decl.Name]
		if sf.Offset != want {
			return errors.LayoutMismatch(protocol, fieldPath,
				fmt.Sprintf("offset %d, want %d", sf.Offset, want))
		}

		size := calc.Calculate(decl).Size
		if sf.Type.Size() != size {
			return errors.LayoutMismatch(protocol, fieldPath,
				fmt.Sprintf("size %d, want %d", sf.Type.Size(), size))
		}

		if decl.Kind == KindStruct {
			if sf.Type.Kind() != reflect.Struct {
				return errors.LayoutMismatch(protocol, fieldPath,
					fmt.Sprintf("mirror %s is not a struct", sf.Type))
			}
			if err := verifyStruct(calc, protocol, fieldPath, sf.Type, decl.Fields); err != nil {
				return err
			}
		}
	}

	if typ.Size() != info.Size {
		return errors.LayoutMismatch(protocol, path,
			fmt.Sprintf("total size %d, want %d", typ.Size(), info.Size))
	}

	return nil
}
