package image

import (
	"fmt"
	"iter"
	"slices"

	"github.com/ezrec/ucomp/acl"
	"github.com/ezrec/ucomp/compartment"
	"github.com/ezrec/ucomp/mpu"
)

// Compartment is one compartment of the image.
type Compartment struct {
	Name   string
	LineNo int
	Policy mpu.Policy
	Acl    []acl.Interval

	Address uint32 // Linked policy address.
	Table   uint32 // Linked ACL table address, zero for none.
}

// Dest is one destination of a call site.
type Dest struct {
	Target      uint32 // Call target, with the Thumb bit.
	Compartment string
}

// Callsite is a compartment-crossing call site.
type Callsite struct {
	Name   string
	LineNo int
	Return string // Compartment returned to.
	Dests  []Dest

	Stub     uint32 // Linked address of the svc instruction.
	Metadata uint32 // Linked metadata address.
}

// Image is a protection image.
type Image struct {
	Verbose bool // If set, linking and runtimes built from the image are logged.

	Default      string
	Compartments []*Compartment
	Callsites    []*Callsite
	Equate       map[string]string // Equates defined by the image text.

	// Linked addresses.
	Lut       uint32
	ExitStub  uint32
	StartStub uint32
	StopStub  uint32
	Size      uint32
}

// Compartment returns the named compartment.
func (img *Image) Compartment(name string) (comp *Compartment, ok bool) {
	n := slices.IndexFunc(img.Compartments, func(c *Compartment) bool { return c.Name == name })
	if n < 0 {
		return
	}
	return img.Compartments[n], true
}

// CompartmentById returns the compartment with the given id.
func (img *Image) CompartmentById(id uint8) (comp *Compartment, ok bool) {
	n := slices.IndexFunc(img.Compartments, func(c *Compartment) bool { return c.Policy.Id == id })
	if n < 0 {
		return
	}
	return img.Compartments[n], true
}

// Callsite returns the named call site.
func (img *Image) Callsite(name string) (site *Callsite, ok bool) {
	n := slices.IndexFunc(img.Callsites, func(c *Callsite) bool { return c.Name == name })
	if n < 0 {
		return
	}
	return img.Callsites[n], true
}

// CallsiteAt returns the call site whose linked stub is at addr.
func (img *Image) CallsiteAt(addr uint32) (site *Callsite, ok bool) {
	n := slices.IndexFunc(img.Callsites, func(c *Callsite) bool { return c.Stub == addr })
	if n < 0 {
		return
	}
	return img.Callsites[n], true
}

// Symbols returns the linked address of every compartment policy and call
// site stub, by name.
func (img *Image) Symbols() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, comp := range img.Compartments {
			if !yield(comp.Name, fmt.Sprintf("%#x", comp.Address)) {
				return
			}
		}
		for _, site := range img.Callsites {
			if !yield(site.Name, fmt.Sprintf("%#x", site.Stub)) {
				return
			}
		}
	}
}

// Validate checks the image for consistency.
func (img *Image) Validate() (err error) {
	if _, ok := img.Compartment(img.Default); !ok {
		err = ErrDefaultMissing
		return
	}

	names := map[string]bool{}
	ids := make([]int, 0, len(img.Compartments))
	for _, comp := range img.Compartments {
		if names[comp.Name] {
			err = ErrInvalid{Name: comp.Name, Err: ErrCompartmentDuplicate}
			return
		}
		names[comp.Name] = true
		ids = append(ids, int(comp.Policy.Id))

		err = comp.Policy.Validate()
		if err != nil {
			err = ErrInvalid{Name: comp.Name, Err: err}
			return
		}
		if comp.Name != img.Default {
			// Transitions only rewrite the stack of the reserved regions.
			for n := range mpu.RESERVED_REGIONS {
				if n != mpu.STACK_REGION && comp.Policy.Regions[n] != (mpu.Region{}) {
					err = ErrInvalid{Name: comp.Name, Err: ErrRegionReserved}
					return
				}
			}
		}
		for _, iv := range comp.Acl {
			if iv.Start >= iv.End {
				err = ErrInvalid{Name: comp.Name, Err: ErrAclInterval}
				return
			}
		}
	}

	slices.Sort(ids)
	for n, id := range ids {
		if id != n || id >= compartment.MAX_COMPARTMENTS {
			err = ErrCompartmentId
			return
		}
	}

	sites := map[string]bool{}
	for _, site := range img.Callsites {
		if sites[site.Name] {
			err = ErrInvalid{Name: site.Name, Err: ErrCallsiteDuplicate}
			return
		}
		sites[site.Name] = true

		if !names[site.Return] {
			err = ErrInvalid{Name: site.Name, Err: ErrCompartmentUnknown(site.Return)}
			return
		}
		if len(site.Dests) == 0 {
			err = ErrInvalid{Name: site.Name, Err: ErrCallsiteEmpty}
			return
		}
		if len(site.Dests) > compartment.MAX_DESTINATIONS {
			err = ErrInvalid{Name: site.Name, Err: compartment.ErrMetadataSize}
			return
		}
		for _, dest := range site.Dests {
			if !names[dest.Compartment] {
				err = ErrInvalid{Name: site.Name, Err: ErrCompartmentUnknown(dest.Compartment)}
				return
			}
		}
	}

	return
}
