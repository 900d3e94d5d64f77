// Package efiruntime provides typed, memory-safe Go bindings for UEFI
// firmware protocols.
//
// Firmware publishes interface tables at addresses found by a 128-bit
// identifier. This library reinterprets those addresses as Go mirror structs,
// marshals calls through their function-pointer fields and turns native
// status codes into Go errors.
//
// # Architecture Overview
//
//	efiruntime/          Root package with the Caller and Allocator interfaces
//	├── status/          Status codes, categories and result combinators
//	├── guid/            Protocol identifiers
//	├── layout/          Binary layout contract and the reinterpretation point
//	├── abi/             Call frames, pinned arguments and output storage
//	├── ucs2/            CHAR16 string encoding
//	├── list/            Iteration over firmware-owned linked lists
//	├── boot/            Boot services binding and protocol scopes
//	├── proto/shell/     EFI Shell protocol
//	├── proto/shellparams/ EFI Shell Parameters protocol
//	├── emu/             Hosted firmware emulator
//	├── internal/handle/ Handle table behind the emulator's handle database
//	├── errors/          Structured error types for debugging
//	└── cmd/efish/       CLI and interactive browser over the emulator
//
// # Quick Start
//
// Open the shell on the first handle that exposes it and list files:
//
//	bs := boot.New(caller, bootServicesAddr, imageHandle)
//
//	sh, err := shell.Locate(bs)
//	if err != nil {
//	    return err
//	}
//	defer sh.Close()
//
//	files, err := sh.FindFiles("*.efi")
//	if err != nil || files == nil {
//	    return err
//	}
//	defer files.Free()
//
//	for entry := range files.All() {
//	    fmt.Println(entry.Name())
//	}
//
// # Memory Model
//
// Interface tables and file lists are owned by the firmware. Bindings hold
// non-owning references and never free them; lists are released through the
// protocol's own free call. Go memory that crosses the boundary is pinned
// for the duration of the call.
//
// # Thread Safety
//
// Firmware services are single-threaded. Bindings perform no locking and must
// be used from one goroutine.
package efiruntime
