package mpu

import (
	"fmt"
	"iter"
	"maps"
	"math/bits"
)

// Hardware region layout.
const (
	REGION_COUNT      = 8                              // Regions implemented by the MPU.
	DEFAULT_REGIONS   = 0                              // Regions owned by the boot configuration.
	AVAILABLE_REGIONS = REGION_COUNT - DEFAULT_REGIONS // Regions a policy describes.
	RESERVED_REGIONS  = 3                              // Code, read-only RAM, stack: kept across transitions.
	STACK_REGION      = 2                              // Region whose subregions track the stack watermark.
	SUBREGIONS        = 8                              // Subregions per region.
	MIN_REGION_SIZE   = 32                             // Smallest encodable region.
)

// Region attribute and base register fields.
const (
	RASR_ENABLE     = uint32(1 << 0)
	RASR_SIZE_SHIFT = 1
	RASR_SIZE_MASK  = uint32(0x1f << RASR_SIZE_SHIFT)
	RASR_SRD_SHIFT  = 8
	RASR_SRD_MASK   = uint32(0xff << RASR_SRD_SHIFT)
	RASR_AP_SHIFT   = 24
	RASR_AP_MASK    = uint32(0x7 << RASR_AP_SHIFT)
	RASR_XN         = uint32(1 << 28)

	RBAR_REGION_MASK = uint32(0xf)
	RBAR_VALID       = uint32(1 << 4)
	RBAR_ADDR_MASK   = ^uint32(0x1f)
)

// Access permission encodings.
const (
	AP_NONE            = 0 // No access.
	AP_PRIV_RW         = 1 // Privileged read/write.
	AP_PRIV_RW_USER_RO = 2 // Privileged read/write, unprivileged read-only.
	AP_FULL            = 3 // Read/write.
	AP_PRIV_RO         = 5 // Privileged read-only.
	AP_RO              = 6 // Read-only.
	AP_RO_ALT          = 7 // Read-only.
)

var _region_defines = map[string]string{
	"REGION_COUNT":       fmt.Sprintf("%d", REGION_COUNT),
	"AVAILABLE_REGIONS":  fmt.Sprintf("%d", AVAILABLE_REGIONS),
	"RESERVED_REGIONS":   fmt.Sprintf("%d", RESERVED_REGIONS),
	"STACK_REGION":       fmt.Sprintf("%d", STACK_REGION),
	"RASR_ENABLE":        fmt.Sprintf("%#x", RASR_ENABLE),
	"RASR_XN":            fmt.Sprintf("%#x", RASR_XN),
	"AP_NONE":            fmt.Sprintf("%d", AP_NONE),
	"AP_PRIV_RW":         fmt.Sprintf("%d", AP_PRIV_RW),
	"AP_PRIV_RW_USER_RO": fmt.Sprintf("%d", AP_PRIV_RW_USER_RO),
	"AP_FULL":            fmt.Sprintf("%d", AP_FULL),
	"AP_PRIV_RO":         fmt.Sprintf("%d", AP_PRIV_RO),
	"AP_RO":              fmt.Sprintf("%d", AP_RO),
}

// Defines returns the encoding constants as equates.
func Defines() iter.Seq2[string, string] {
	return maps.All(_region_defines)
}

// Region is one MPU region as written to RBAR/RASR.
type Region struct {
	Base uint32 // Base address, aligned to the region size.
	Attr uint32 // RASR attribute word.
}

// Attr encodes an attribute word for an enabled region of size bytes.
func Attr(size uint64, ap uint32, srd uint8, xn bool) (attr uint32, err error) {
	if size < MIN_REGION_SIZE {
		err = ErrRegionSize
		return
	}
	if size > 1<<32 || bits.OnesCount64(size) != 1 {
		err = ErrAttrSize
		return
	}

	field := uint32(bits.TrailingZeros64(size) - 1)
	attr = RASR_ENABLE |
		(field << RASR_SIZE_SHIFT) |
		(uint32(srd) << RASR_SRD_SHIFT) |
		((ap << RASR_AP_SHIFT) & RASR_AP_MASK)
	if xn {
		attr |= RASR_XN
	}
	return
}

// SizeField returns the encoded SIZE field (size is 2^(SIZE+1) bytes).
func (r Region) SizeField() uint32 {
	return (r.Attr & RASR_SIZE_MASK) >> RASR_SIZE_SHIFT
}

// Size returns the region size in bytes.
func (r Region) Size() uint64 {
	return uint64(1) << (r.SizeField() + 1)
}

// Enabled reports whether the region is enabled.
func (r Region) Enabled() bool {
	return r.Attr&RASR_ENABLE != 0
}

// Subregions returns the subregion-disable mask.
func (r Region) Subregions() uint8 {
	return uint8((r.Attr & RASR_SRD_MASK) >> RASR_SRD_SHIFT)
}

// WithSubregions returns the region with a replaced subregion-disable mask.
func (r Region) WithSubregions(mask uint8) Region {
	r.Attr = (r.Attr &^ RASR_SRD_MASK) | (uint32(mask) << RASR_SRD_SHIFT)
	return r
}

// AccessPermission returns the AP field.
func (r Region) AccessPermission() uint32 {
	return (r.Attr & RASR_AP_MASK) >> RASR_AP_SHIFT
}

// Writable reports whether AP permits a write at the given privilege.
func (r Region) Writable(privileged bool) bool {
	switch r.AccessPermission() {
	case AP_FULL:
		return true
	case AP_PRIV_RW, AP_PRIV_RW_USER_RO:
		return privileged
	}
	return false
}

// Contains reports whether addr is decoded by the region: the region is
// enabled, addr is inside it and its subregion is not disabled.
func (r Region) Contains(addr uint32) bool {
	if !r.Enabled() {
		return false
	}
	size := r.Size()
	if addr < r.Base || uint64(addr) >= uint64(r.Base)+size {
		return false
	}
	sub := (uint64(addr-r.Base) * SUBREGIONS) / size
	return r.Subregions()&(1<<sub) == 0
}

// Validate checks the encoding of an enabled region.
func (r Region) Validate() (err error) {
	if !r.Enabled() {
		return
	}
	size := r.Size()
	if size < MIN_REGION_SIZE {
		err = ErrRegionSize
		return
	}
	if uint64(r.Base)%size != 0 {
		err = ErrRegionAlign
		return
	}
	return
}

// String returns the region in register form.
func (r Region) String() string {
	if !r.Enabled() {
		return "-"
	}
	return fmt.Sprintf("%08x+%x ap=%d srd=%08b", r.Base, r.Size(), r.AccessPermission(), r.Subregions())
}

// StackMask returns region with a subregion mask disabling every subregion
// that lies wholly above the subregion containing sp. A stack pointer
// below the region disables all subregions; one at or above its end
// disables none. The subregion holding sp stays enabled, so at most one
// subregion's worth of the caller's frame remains writable.
func StackMask(region Region, sp uint32) Region {
	if !region.Enabled() {
		return region
	}

	var mask uint8
	size := region.Size()
	switch {
	case sp < region.Base:
		mask = 0xff
	case uint64(sp) >= uint64(region.Base)+size:
		mask = 0
	default:
		shift := region.SizeField() + 1 - 3
		used := ((sp - region.Base) >> shift) & 0x7
		mask = uint8((uint32(0xff00) >> (7 - used)) & 0xff)
	}

	return region.WithSubregions(mask)
}
