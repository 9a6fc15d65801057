package io

// Rom is a flash memory: loads behave as RAM, program stores are rejected.
// The image linker writes it through Program.
type Rom struct {
	Ram
}

var _ Device = (*Rom)(nil)

// NewRom creates an erased flash of size bytes.
func NewRom(size uint32) *Rom {
	rom := &Rom{Ram: Ram{Data: make([]byte, size)}}
	rom.Reset()
	return rom
}

// Reset erases the flash to all ones.
func (rom *Rom) Reset() {
	for n := range rom.Data {
		rom.Data[n] = 0xff
	}
}

// Store rejects all writes from the bus.
func (rom *Rom) Store(offset uint32, size int, value uint32) (err error) {
	return ErrReadOnly
}

// Program writes data at offset, bypassing the bus.
func (rom *Rom) Program(offset uint32, data []byte) (err error) {
	if uint64(offset)+uint64(len(data)) > uint64(len(rom.Data)) {
		err = ErrBusFault
		return
	}

	copy(rom.Data[offset:], data)
	return
}
