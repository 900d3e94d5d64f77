// Package emu hosts an emulated UEFI firmware in the Go process.
//
// Firmware implements efiruntime.Caller. It publishes a boot services table
// and an EFI_SHELL_PROTOCOL in pool memory that lives outside the Go heap,
// so the bindings in boot, proto/shell and proto/shellparams run against it
// unchanged:
//
//	fw, err := emu.New(ctx, emu.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer fw.Close()
//
//	sh, err := shell.Find(fw.Services())
//
// The shell serves an in-memory volume seeded from Config.Files. Execute
// runs WASI command modules stored on that volume; echo, set and cd are
// built in.
//
// Tests use Inject to make a service fail and scribble over its output
// pointers, and Outstanding to check that every pool block and file list
// handed to the caller was released.
package emu
