// Package shell binds EFI_SHELL_PROTOCOL.
//
// The bound services cover the environment, the current directory, page
// break control, command execution and file access by name or by handle.
// File searches return a FileList that points into firmware memory; iterate
// it, decode what you need with Files, then release it with Free.
//
// Failures are returned as errors wrapping a *status.Error, so
//
//	errors.Is(err, status.ErrAccessDenied)
//
// holds for a write on a handle opened read-only. Services that can succeed
// without producing a handle return (value, ok, err) and never report the
// missing handle as an error.
package shell
