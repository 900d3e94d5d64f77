package layout

// Constructors for declared fields keep contract tables readable:
//
//	layout.Fn("Execute"), layout.Slot("GetEnv"), layout.U32("MajorVersion")

func U8(name string) Field { return Field{Name: name, Kind: KindU8} }

func U16(name string) Field { return Field{Name: name, Kind: KindU16} }

func U32(name string) Field { return Field{Name: name, Kind: KindU32} }

func U64(name string) Field { return Field{Name: name, Kind: KindU64} }

func Bool(name string) Field { return Field{Name: name, Kind: KindBool} }

func UintN(name string) Field { return Field{Name: name, Kind: KindUintN} }

func Ptr(name string) Field { return Field{Name: name, Kind: KindPtr} }

func Fn(name string) Field { return Field{Name: name, Kind: KindFunc} }

func Slot(name string) Field { return Field{Name: name, Kind: KindReserved} }

func Handle(name string) Field { return Field{Name: name, Kind: KindHandle} }

func Event(name string) Field { return Field{Name: name, Kind: KindEvent} }

func Status(name string) Field { return Field{Name: name, Kind: KindStatus} }

func GUID(name string) Field { return Field{Name: name, Kind: KindGUID} }

// Struct declares a nested structure.
func Struct(name string, fields ...Field) Field {
	return Field{Name: name, Kind: KindStruct, Fields: fields}
}

// Array declares n consecutive elements.
func Array(name string, elem Field, n int) Field {
	return Field{Name: name, Kind: KindArray, Elem: &elem, Len: n}
}
