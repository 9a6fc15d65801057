package io

import (
	"cmp"
	"slices"
)

// Bus decodes addresses to mapped devices.
type Bus struct {
	Mappings []Mapping
}

// Map attaches a device at [base, base+size).
func (bus *Bus) Map(base uint32, size uint32, dev Device) (err error) {
	m := Mapping{Base: base, Size: size, Device: dev}
	for _, other := range bus.Mappings {
		if uint64(m.Base) < uint64(other.Base)+uint64(other.Size) &&
			uint64(other.Base) < uint64(m.Base)+uint64(m.Size) {
			err = ErrBusOverlap
			return
		}
	}

	bus.Mappings = append(bus.Mappings, m)
	slices.SortFunc(bus.Mappings, func(a, b Mapping) int {
		return cmp.Compare(a.Base, b.Base)
	})
	return
}

// Reset resets every mapped device.
func (bus *Bus) Reset() {
	for _, m := range bus.Mappings {
		m.Device.Reset()
	}
}

func (bus *Bus) decode(addr uint32, size int) (m Mapping, err error) {
	if !validSize(size) {
		err = ErrBusAlignment
		return
	}
	for _, m = range bus.Mappings {
		if m.Contains(addr, size) {
			return
		}
	}

	err = ErrUnmapped(addr)
	return
}

// Load reads size bytes at addr.
func (bus *Bus) Load(addr uint32, size int) (value uint32, err error) {
	m, err := bus.decode(addr, size)
	if err != nil {
		return
	}

	return m.Device.Load(addr-m.Base, size)
}

// Store writes the low size bytes of value at addr.
func (bus *Bus) Store(addr uint32, size int, value uint32) (err error) {
	m, err := bus.decode(addr, size)
	if err != nil {
		return
	}

	return m.Device.Store(addr-m.Base, size, value)
}

// Load8 reads a byte.
func (bus *Bus) Load8(addr uint32) (value uint8, err error) {
	v, err := bus.Load(addr, 1)
	return uint8(v), err
}

// Load16 reads a halfword.
func (bus *Bus) Load16(addr uint32) (value uint16, err error) {
	v, err := bus.Load(addr, 2)
	return uint16(v), err
}

// Load32 reads a word.
func (bus *Bus) Load32(addr uint32) (value uint32, err error) {
	return bus.Load(addr, 4)
}

// Store8 writes a byte.
func (bus *Bus) Store8(addr uint32, value uint8) error {
	return bus.Store(addr, 1, uint32(value))
}

// Store16 writes a halfword.
func (bus *Bus) Store16(addr uint32, value uint16) error {
	return bus.Store(addr, 2, uint32(value))
}

// Store32 writes a word.
func (bus *Bus) Store32(addr uint32, value uint32) error {
	return bus.Store(addr, 4, value)
}
