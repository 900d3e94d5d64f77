// Package ucs2 converts between Go strings and firmware CHAR16 strings.
//
// Firmware strings are NUL-terminated UCS-2: little-endian 16-bit units
// limited to the Basic Multilingual Plane. Encode produces a terminated
// []uint16 ready to be pinned and passed by address; FromPtr reads a string
// the firmware owns without retaining it.
package ucs2
