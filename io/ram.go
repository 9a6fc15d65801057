package io

import (
	"encoding/binary"
)

// Ram is a byte-addressable read/write memory.
type Ram struct {
	Data []byte
}

var _ Device = (*Ram)(nil)

// NewRam creates a zeroed memory of size bytes.
func NewRam(size uint32) *Ram {
	return &Ram{Data: make([]byte, size)}
}

// Reset zeroes the memory.
func (ram *Ram) Reset() {
	clear(ram.Data)
}

// Load reads a little-endian value.
func (ram *Ram) Load(offset uint32, size int) (value uint32, err error) {
	if !validSize(size) {
		err = ErrBusAlignment
		return
	}
	if uint64(offset)+uint64(size) > uint64(len(ram.Data)) {
		err = ErrBusFault
		return
	}

	return load(ram.Data[offset:], size), nil
}

// Store writes a little-endian value.
func (ram *Ram) Store(offset uint32, size int, value uint32) (err error) {
	if !validSize(size) {
		err = ErrBusAlignment
		return
	}
	if uint64(offset)+uint64(size) > uint64(len(ram.Data)) {
		err = ErrBusFault
		return
	}

	store(ram.Data[offset:], size, value)
	return
}

func load(data []byte, size int) (value uint32) {
	switch size {
	case 1:
		value = uint32(data[0])
	case 2:
		value = uint32(binary.LittleEndian.Uint16(data))
	case 4:
		value = binary.LittleEndian.Uint32(data)
	}
	return
}

func store(data []byte, size int, value uint32) {
	switch size {
	case 1:
		data[0] = uint8(value)
	case 2:
		binary.LittleEndian.PutUint16(data, uint16(value))
	case 4:
		binary.LittleEndian.PutUint32(data, value)
	}
}
