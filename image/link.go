package image

import (
	"encoding/binary"
	"log"

	"github.com/ezrec/ucomp/acl"
	"github.com/ezrec/ucomp/compartment"
	"github.com/ezrec/ucomp/io"
)

// Code stub layout.
const (
	THUMB_NOP   = 0xbf00
	THUMB_BX_LR = 0x4770

	CONTROL_STUB_SIZE = 4 // svc #imm; bx lr
	CALL_STUB_SIZE    = 8 // nop; svc #100; metadata pointer
)

// svc returns the encoding of svc #imm.
func svc(imm uint8) uint16 {
	return compartment.SVC_OPCODE | uint16(imm)
}

// Link validates the image and lays it out in rom, which the bus decodes at base, and
// records the linked addresses. The layout is: control stubs, call site
// stubs, policies, ACL tables, the ACL lookup table indexed by id, and
// call site metadata.
func (img *Image) Link(rom *io.Rom, base uint32) (err error) {
	err = img.Validate()
	if err != nil {
		return
	}

	var data []byte

	addr := func() uint32 {
		return base + uint32(len(data))
	}

	// Control stubs.
	for _, control := range []struct {
		imm  uint8
		addr *uint32
	}{
		{compartment.SVC_EXIT, &img.ExitStub},
		{compartment.SVC_START, &img.StartStub},
		{compartment.SVC_STOP, &img.StopStub},
	} {
		*control.addr = addr()
		data = binary.LittleEndian.AppendUint16(data, svc(control.imm))
		data = binary.LittleEndian.AppendUint16(data, THUMB_BX_LR)
	}

	// Call site stubs. The metadata pointer is patched below.
	patch := make([]int, len(img.Callsites))
	for n, site := range img.Callsites {
		data = binary.LittleEndian.AppendUint16(data, THUMB_NOP)
		site.Stub = addr()
		data = binary.LittleEndian.AppendUint16(data, svc(compartment.SVC_ENTRY))
		patch[n] = len(data)
		data = binary.LittleEndian.AppendUint32(data, 0)
	}

	// Policies.
	for _, comp := range img.Compartments {
		comp.Address = addr()
		data = append(data, comp.Policy.Encode()...)
	}

	// ACL tables and their lookup table.
	lut := make([]uint32, len(img.Compartments))
	for _, comp := range img.Compartments {
		comp.Table = 0
		if len(comp.Acl) == 0 {
			continue
		}
		comp.Table = addr()
		lut[comp.Policy.Id] = comp.Table
		data = append(data, acl.EncodeTable(comp.Acl)...)
	}
	img.Lut = addr()
	for _, ptr := range lut {
		data = binary.LittleEndian.AppendUint32(data, ptr)
	}

	// Call site metadata.
	for n, site := range img.Callsites {
		md := compartment.Metadata{}
		ret, ok := img.Compartment(site.Return)
		if !ok {
			err = ErrInvalid{Name: site.Name, Err: ErrCompartmentUnknown(site.Return)}
			return
		}
		md.Return = ret.Address
		for _, dest := range site.Dests {
			comp, ok := img.Compartment(dest.Compartment)
			if !ok {
				err = ErrInvalid{Name: site.Name, Err: ErrCompartmentUnknown(dest.Compartment)}
				return
			}
			md.Dests = append(md.Dests, compartment.Destination{Id: dest.Target, Policy: comp.Address})
		}
		site.Metadata = addr()
		binary.LittleEndian.PutUint32(data[patch[n]:], site.Metadata)
		data = append(data, md.Encode()...)

		if img.Verbose {
			log.Printf("link: %v svc %08x %v", site.Name, site.Stub, &md)
		}
	}

	if len(data) > len(rom.Data) {
		err = ErrImageSize
		return
	}

	img.Size = uint32(len(data))
	return rom.Program(0, data)
}
