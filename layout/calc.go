package layout

import "unsafe"

// Kind is the C representation of a declared field.
type Kind uint8

const (
	KindU8 Kind = iota
	KindU16
	KindU32
	KindU64
	KindBool
	KindUintN    // UINTN, pointer-sized
	KindPtr      // data pointer
	KindFunc     // function pointer, firmware calling convention
	KindReserved // unused slot kept for offsets
	KindHandle   // EFI_HANDLE
	KindEvent    // EFI_EVENT
	KindStatus   // EFI_STATUS
	KindGUID     // EFI_GUID
	KindStruct
	KindArray
)

var kindNames = [...]string{
	KindU8:       "u8",
	KindU16:      "u16",
	KindU32:      "u32",
	KindU64:      "u64",
	KindBool:     "bool",
	KindUintN:    "uintn",
	KindPtr:      "ptr",
	KindFunc:     "func",
	KindReserved: "reserved",
	KindHandle:   "handle",
	KindEvent:    "event",
	KindStatus:   "status",
	KindGUID:     "guid",
	KindStruct:   "struct",
	KindArray:    "array",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Field is one declared member of a firmware structure.
type Field struct {
	Elem   *Field
	Name   string
	Fields []Field
	Len    int
	Kind   Kind
}

// Info is the computed size, alignment and member offsets of a field.
type Info struct {
	FieldOffs map[string]uintptr
	Size      uintptr
	Align     uintptr
}

// Calculator lays out declared fields under the C ABI for a fixed pointer
// width.
type Calculator struct {
	PtrSize uintptr
}

// NewCalculator returns a calculator for the running target.
func NewCalculator() *Calculator {
	return &Calculator{PtrSize: unsafe.Sizeof(uintptr(0))}
}

// NewCalculatorFor returns a calculator for a target with the given pointer
// width in bytes.
func NewCalculatorFor(ptrSize uintptr) *Calculator {
	return &Calculator{PtrSize: ptrSize}
}

func (c *Calculator) Calculate(f Field) Info {
	switch f.Kind {
	case KindU8, KindBool:
		return Info{Size: 1, Align: 1}
	case KindU16:
		return Info{Size: 2, Align: 2}
	case KindU32:
		return Info{Size: 4, Align: 4}
	case KindU64:
		// u64 is 8-aligned on every UEFI target, including IA32
		return Info{Size: 8, Align: 8}
	case KindUintN, KindPtr, KindFunc, KindReserved, KindHandle, KindEvent, KindStatus:
		return Info{Size: c.PtrSize, Align: c.PtrSize}
	case KindGUID:
		return Info{Size: 16, Align: 4}
	case KindStruct:
		return c.Record(f.Fields)
	case KindArray:
		return c.calculateArray(f)
	default:
		return Info{Size: 0, Align: 1}
	}
}

// Record lays out fields sequentially with C padding rules.
func (c *Calculator) Record(fields []Field) Info {
	if len(fields) == 0 {
		return Info{Size: 0, Align: 1}
	}

	fieldOffs := make(map[string]uintptr, len(fields))
	maxAlign := uintptr(1)
	offset := uintptr(0)

	for _, field := range fields {
		fieldLayout := c.Calculate(field)

		offset = AlignTo(offset, fieldLayout.Align)
		fieldOffs[field.Name] = offset

		if fieldLayout.Align > maxAlign {
			maxAlign = fieldLayout.Align
		}

		offset += fieldLayout.Size
	}

	totalSize := AlignTo(offset, maxAlign)

	return Info{
		Size:      totalSize,
		Align:     maxAlign,
		FieldOffs: fieldOffs,
	}
}

func (c *Calculator) calculateArray(f Field) Info {
	if f.Elem == nil || f.Len == 0 {
		return Info{Size: 0, Align: 1}
	}
	elem := c.Calculate(*f.Elem)
	stride := AlignTo(elem.Size, elem.Align)
	return Info{
		Size:  stride * uintptr(f.Len),
		Align: elem.Align,
	}
}

// AlignTo rounds offset up to a multiple of align, which must be a power of
// two.
func AlignTo(offset, align uintptr) uintptr {
	if align == 0 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}
