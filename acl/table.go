package acl

import (
	"encoding/binary"
)

// MAX_TABLE_ENTRIES bounds the size of one flash-resident table.
const MAX_TABLE_ENTRIES = 1024

// Memory is the read side of the bus that tables are decoded from.
type Memory interface {
	Load(addr uint32, size int) (value uint32, err error)
}

// EncodeTable returns the flash layout of a table:
// {size:u32, (start:u32, end:u32)[size]}.
func EncodeTable(table []Interval) (data []byte) {
	data = make([]byte, 0, 4+8*len(table))
	data = binary.LittleEndian.AppendUint32(data, uint32(len(table)))
	for _, iv := range table {
		data = binary.LittleEndian.AppendUint32(data, iv.Start)
		data = binary.LittleEndian.AppendUint32(data, iv.End)
	}
	return
}

// DecodeTable reads one table at addr.
func DecodeTable(mem Memory, addr uint32) (table []Interval, err error) {
	size, err := mem.Load(addr, 4)
	if err != nil {
		return
	}
	if size > MAX_TABLE_ENTRIES {
		err = ErrTableSize
		return
	}

	table = make([]Interval, size)
	for n := range table {
		entry := addr + 4 + 8*uint32(n)
		table[n].Start, err = mem.Load(entry, 4)
		if err != nil {
			return
		}
		table[n].End, err = mem.Load(entry+4, 4)
		if err != nil {
			return
		}
		if table[n].Start >= table[n].End {
			err = ErrTableInterval
			return
		}
	}

	return
}

// LoadTables builds an Enforcer from the lookup table at lut: count words,
// indexed by compartment id, each the address of that compartment's table
// or zero for none.
func LoadTables(mem Memory, lut uint32, count int) (enf *Enforcer, err error) {
	enf = NewEnforcer()
	for id := range count {
		var ptr uint32
		ptr, err = mem.Load(lut+4*uint32(id), 4)
		if err != nil {
			return
		}
		if ptr == 0 {
			continue
		}
		var table []Interval
		table, err = DecodeTable(mem, ptr)
		if err != nil {
			return
		}
		enf.Set(uint8(id), table)
	}

	return
}
