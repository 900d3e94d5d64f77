// Package abi marshals arguments and results across the firmware call
// boundary.
//
// Every argument is a native word. Go values whose address is passed are
// pinned in a Frame for the duration of the call:
//
//   - Ref and Buf pass existing values and slices by address
//   - String16 and StringArray16 encode strings as CHAR16 and pin them
//   - NewOut reserves storage the firmware fills; its content is read only
//     through Result, which consults the status first
//
// Optional handles null on success are reported with Optional, never as an
// error.
package abi
