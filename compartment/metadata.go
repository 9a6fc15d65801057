package compartment

import (
	"encoding/binary"
	"fmt"
)

// MAX_DESTINATIONS bounds the destinations of one call site.
const MAX_DESTINATIONS = 64

// Memory is the read side of the bus.
type Memory interface {
	Load(addr uint32, size int) (value uint32, err error)
}

// Destination pairs a call target with the policy of its compartment.
type Destination struct {
	Id     uint32 // Call target address, with the Thumb bit.
	Policy uint32 // Address of the destination policy.
}

// Metadata is the transition table of one call site:
// {return:u32, count:u32, (id:u32, policy:u32)[count]}.
type Metadata struct {
	Return uint32 // Address of the policy returned to.
	Dests  []Destination
}

// DecodeMetadata reads call site metadata at addr.
func DecodeMetadata(mem Memory, addr uint32) (md Metadata, err error) {
	md.Return, err = mem.Load(addr, 4)
	if err != nil {
		return
	}
	count, err := mem.Load(addr+4, 4)
	if err != nil {
		return
	}
	if count > MAX_DESTINATIONS {
		err = ErrMetadataSize
		return
	}

	md.Dests = make([]Destination, count)
	for n := range md.Dests {
		entry := addr + 8 + 8*uint32(n)
		md.Dests[n].Id, err = mem.Load(entry, 4)
		if err != nil {
			return
		}
		md.Dests[n].Policy, err = mem.Load(entry+4, 4)
		if err != nil {
			return
		}
	}

	return
}

// Encode returns the binary layout read by DecodeMetadata.
func (md *Metadata) Encode() (data []byte) {
	data = make([]byte, 0, 8+8*len(md.Dests))
	data = binary.LittleEndian.AppendUint32(data, md.Return)
	data = binary.LittleEndian.AppendUint32(data, uint32(len(md.Dests)))
	for _, dest := range md.Dests {
		data = binary.LittleEndian.AppendUint32(data, dest.Id)
		data = binary.LittleEndian.AppendUint32(data, dest.Policy)
	}
	return
}

// Lookup returns the policy of the first destination matching target.
func (md *Metadata) Lookup(target uint32) (policy uint32, ok bool) {
	for _, dest := range md.Dests {
		if dest.Id == target {
			return dest.Policy, true
		}
	}
	return
}

func (md *Metadata) String() (text string) {
	text = fmt.Sprintf("ret=%08x", md.Return)
	for _, dest := range md.Dests {
		text += fmt.Sprintf(" %08x:%08x", dest.Id, dest.Policy)
	}
	return
}
