// Package errors provides structured error types for the efi-runtime library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: field path, protocol name, and cause chain.
//
// Firmware failures themselves are *status.Error values. This package adds
// the context around them and covers failures that never reach firmware,
// such as strings that cannot be encoded as CHAR16 or a list used after it
// was freed.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseCall, errors.KindFirmware).
//		Protocol("shell").
//		Path("ReadFile").
//		Cause(st.Err()).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Closed(errors.PhaseIterate, "file list")
//	err := errors.LayoutMismatch("shell", []string{"FindFiles"}, "offset 344, want 352")
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
