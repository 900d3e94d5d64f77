// Package layout is the binary layout contract between Go mirror structs
// and firmware memory.
//
// A protocol declares its identifier and a mirror struct whose fields
// follow the firmware definition exactly: function pointers as uintptr,
// data fields at their C widths, and unused slots as Reserved. Reserved
// slots are never dropped, since every later offset depends on them.
//
// # Reinterpretation
//
// At is the single point where a raw address becomes a typed reference:
//
//	sh := layout.At[shell.Protocol](addr)
//
// No runtime validation happens there. Correctness rests on the mirror
// matching the firmware definition.
//
// # Verification
//
// Contracts restate the firmware definition as a field list. Verify compares
// it with the mirror's reflected layout so that drift is caught in tests:
//
//	if err := layout.Verify[shell.Protocol](shell.Contract); err != nil {
//	    t.Fatal(err)
//	}
//
// # Layout Rules
//
//   - Integers: size equals alignment (u8=1, u16=2, u32=4, u64=8)
//   - UINTN, pointers, handles, events and statuses: native pointer width
//   - EFI_GUID: 16 bytes, 4-aligned
//   - Structs: fields in order with padding, size rounded to max alignment
package layout
