// Package status converts firmware status codes into Go results.
//
// Every firmware service returns a native word. Zero is EFI_SUCCESS; the
// top bit marks errors; other non-zero values are warnings. Any non-zero
// code is treated as a failure and surfaced as a *Error that keeps the raw
// code, so unrecognized values survive classification.
//
// Two combinators cover every call site:
//
//	err := status.ToResult(st)
//	n, err := status.ToResultWith(st, out.Assume)
//
// ToResultWith calls its producer only after success is confirmed, which is
// what keeps uninitialized output storage from ever being read.
package status
