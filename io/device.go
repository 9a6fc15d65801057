// Package io provides the memory bus of the μCOMP model: an address map of
// memory-mapped devices, RAM, and flash.
package io

// Device defines the interface for memory-mapped devices. Offsets are
// relative to the base address the device is mapped at; size is 1, 2 or 4
// bytes and values are little-endian.
type Device interface {
	// Reset returns the device to its power-on state.
	Reset()
	// Load reads size bytes at offset.
	Load(offset uint32, size int) (value uint32, err error)
	// Store writes the low size bytes of value at offset.
	Store(offset uint32, size int, value uint32) (err error)
}

// Mapping is a device decoded over [Base, Base+Size).
type Mapping struct {
	Base   uint32
	Size   uint32
	Device Device
}

// Contains reports whether the access [addr, addr+size) lies in the mapping.
func (m Mapping) Contains(addr uint32, size int) bool {
	return addr >= m.Base && uint64(addr)+uint64(size) <= uint64(m.Base)+uint64(m.Size)
}

func validSize(size int) bool {
	return size == 1 || size == 2 || size == 4
}
