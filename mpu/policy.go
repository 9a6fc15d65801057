package mpu

import (
	"encoding/binary"
	"fmt"
)

// POLICY_SIZE is the size of an encoded Policy:
// {count:u16, id:u8, privileged:u8, regions:{base:u32, attr:u32}[AVAILABLE_REGIONS]}.
const POLICY_SIZE = 4 + 8*AVAILABLE_REGIONS

// Memory is the read side of the bus that policies are decoded from.
type Memory interface {
	Load(addr uint32, size int) (value uint32, err error)
}

// Policy is the static protection configuration of one compartment.
// Regions are indexed by hardware region number.
type Policy struct {
	Count      uint16                    // Number of regions the generator described.
	Id         uint8                     // Dense compartment identifier.
	Privileged bool                      // Run the compartment privileged.
	Regions    [AVAILABLE_REGIONS]Region // Region descriptors.
}

// Validate checks the region count and every region encoding.
func (p *Policy) Validate() (err error) {
	if int(p.Count) > len(p.Regions) {
		err = ErrPolicyCount
		return
	}

	for n, region := range p.Regions {
		err = region.Validate()
		if err != nil {
			err = ErrRegion{Index: n, Err: err}
			return
		}
	}

	return
}

// Encode returns the binary layout consumed by DecodePolicy.
func (p *Policy) Encode() (data []byte) {
	data = make([]byte, 0, POLICY_SIZE)
	data = binary.LittleEndian.AppendUint16(data, p.Count)
	data = append(data, p.Id)
	if p.Privileged {
		data = append(data, 1)
	} else {
		data = append(data, 0)
	}
	for _, region := range p.Regions {
		data = binary.LittleEndian.AppendUint32(data, region.Base)
		data = binary.LittleEndian.AppendUint32(data, region.Attr)
	}

	return
}

// ParsePolicy decodes a policy from its binary layout.
func ParsePolicy(data []byte) (p Policy, err error) {
	if len(data) < POLICY_SIZE {
		err = ErrPolicyShort
		return
	}

	p.Count = binary.LittleEndian.Uint16(data[0:])
	p.Id = data[2]
	p.Privileged = data[3] != 0
	for n := range p.Regions {
		offset := 4 + 8*n
		p.Regions[n].Base = binary.LittleEndian.Uint32(data[offset:])
		p.Regions[n].Attr = binary.LittleEndian.Uint32(data[offset+4:])
	}

	if int(p.Count) > len(p.Regions) {
		err = ErrPolicyCount
	}

	return
}

// DecodePolicy reads a policy image at addr.
func DecodePolicy(mem Memory, addr uint32) (p Policy, err error) {
	data := make([]byte, POLICY_SIZE)
	for n := 0; n < POLICY_SIZE; n += 4 {
		var word uint32
		word, err = mem.Load(addr+uint32(n), 4)
		if err != nil {
			return
		}
		binary.LittleEndian.PutUint32(data[n:], word)
	}

	return ParsePolicy(data)
}

// String summarizes the policy.
func (p *Policy) String() (text string) {
	text = fmt.Sprintf("id=%d priv=%v", p.Id, p.Privileged)
	for n, region := range p.Regions {
		if region.Enabled() {
			text += fmt.Sprintf(" [%d]%v", n, region)
		}
	}
	return
}
