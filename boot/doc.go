// Package boot binds the EFI boot services the protocol layer depends on:
// handle lookup, protocol open and close, and pool memory.
//
// Services reinterprets the boot services table once and calls its entries
// through an efiruntime.Caller. Open, Find and Locate turn a protocol mirror
// type into a Scoped binding; the identifier comes from the type, never from
// runtime data:
//
//	sh, err := boot.Find[shell.Protocol](bs)
//	if err != nil {
//	    return err
//	}
//	defer sh.Close()
package boot
