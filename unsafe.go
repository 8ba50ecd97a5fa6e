//go:build unsafe || tinygo

package mqtt

import "unsafe"

// rtSlice is the runtime representation of a []byte header, mirroring the
// private layout of the runtime's own slice type. Its Data field alone is
// enough to keep the referenced memory alive, unlike reflect.SliceHeader, so
// it is safe to build one that aliases a string's backing array.
type rtSlice struct {
	Data unsafe.Pointer
	Len  int
	Cap  int
}

// rtString is the runtime representation of a string header.
type rtString struct {
	Data unsafe.Pointer
	Len  int
}

// bytesFromString aliases s's backing array instead of copying it, for
// builds that trade the immutability guarantee for one fewer allocation per
// encoded topic/payload string. The caller must not retain the returned
// slice past the lifetime of s, nor write through it.
func bytesFromString(s string) []byte {
	var b []byte
	hdr := (*rtSlice)(unsafe.Pointer(&b))
	hdr.Data = (*rtString)(unsafe.Pointer(&s)).Data
	hdr.Cap = len(s)
	hdr.Len = len(s)
	return b
}
