// Package handle provides the handle tables behind the firmware emulator:
// the EFI handle database and the shell's open file table.
//
// Handles are opaque non-zero words. Each table issues values above its own
// base so handles from different tables never collide, which lets the
// emulator reject a file handle passed where an EFI handle is expected.
// Observers see every insert and removal.
package handle
