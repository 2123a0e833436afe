// Package bytesutil collects the small byte-slice helpers used throughout
// the import pipeline for root conversion and truncated-hex logging.
// Kept from the teacher's shared/encoding bytesutil package (its shape is
// stable across Prysm's history; referenced by nearly every kept v5 test
// file via bytesutil.ToBytes32/PadTo/Trunc).
package bytesutil

import "fmt"

// ToBytes32 copies up to 32 bytes of b into a fixed array, left-padding
// with zeros implicitly by leaving the rest of the array untouched.
func ToBytes32(b []byte) [32]byte {
	var a [32]byte
	copy(a[:], b)
	return a
}

// ToBytes48 copies up to 48 bytes of b into a fixed array.
func ToBytes48(b []byte) [48]byte {
	var a [48]byte
	copy(a[:], b)
	return a
}

// PadTo right-pads (or truncates) b to exactly length l.
func PadTo(b []byte, l int) []byte {
	if len(b) >= l {
		return b[:l]
	}
	padded := make([]byte, l)
	copy(padded, b)
	return padded
}

// Trunc returns the first 4 bytes of b (or all of b if shorter), for
// compact hex logging of roots and hashes.
func Trunc(b []byte) []byte {
	if len(b) < 4 {
		return b
	}
	return b[:4]
}

// ToBytes8 encodes i as the first 8 bytes of a fixed array (for payload
// IDs), matching the engine API's [8]byte PayloadID wire shape.
func ToBytes8(b []byte) [8]byte {
	var a [8]byte
	copy(a[:], b)
	return a
}

// SafeCopyRootAt32Byte copies b into a new fixed-size root, for callers
// that must not alias the caller's backing array.
func SafeCopyRootAt32Byte(b []byte) [32]byte {
	var a [32]byte
	copy(a[:], b)
	return a
}

// SafeCopyBytes returns a copy of b, or nil if b is nil, so a caller never
// aliases a slice it doesn't own (signatures, commitments, wire payloads
// handed off across goroutine boundaries).
func SafeCopyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}

// Hex formats b as a short debug string ("0x" + first 8 hex chars + "...").
func Hex(b []byte) string {
	t := Trunc(b)
	return fmt.Sprintf("%#x", t)
}
