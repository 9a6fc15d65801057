package mpu

import (
	"log"

	"github.com/ezrec/ucomp/io"
)

// Sim models the MPU, the fault status registers, the debug and trace
// control registers and the cycle counter as a device on the private
// peripheral bus, mapped at io.PPB_BASE. It also models the core state
// the driver touches, and so implements both io.Device and Core.
type Sim struct {
	Verbose bool // Set to enable verbose logging.

	Regions [REGION_COUNT]Region
	Rnr     uint32
	Ctrl    uint32
	Cfsr    uint32
	Mmar    uint32
	Shcsr   uint32
	Demcr   uint32
	DwtCtrl uint32
	Cyccnt  uint32

	Privileged bool // Thread mode privilege.
	Primask    bool // Interrupts masked.
	Barriers   int  // Barrier pairs issued.
}

var _ io.Device = (*Sim)(nil)
var _ Core = (*Sim)(nil)

// Reset returns every register to its power-on value.
func (sim *Sim) Reset() {
	verbose := sim.Verbose
	*sim = Sim{Verbose: verbose, Privileged: true}
}

// Load implements io.Device.
func (sim *Sim) Load(offset uint32, size int) (value uint32, err error) {
	if size != 4 {
		err = io.ErrBusAlignment
		return
	}

	switch io.PPB_BASE + offset {
	case MPU_TYPE:
		value = REGION_COUNT << 8
	case MPU_CTRL:
		value = sim.Ctrl
	case MPU_RNR:
		value = sim.Rnr
	case MPU_RBAR:
		value = sim.Regions[sim.Rnr].Base | sim.Rnr
	case MPU_RASR:
		value = sim.Regions[sim.Rnr].Attr
	case SCB_CFSR:
		value = sim.Cfsr
	case SCB_MMAR:
		value = sim.Mmar
	case SCB_SHCSR:
		value = sim.Shcsr
	case SCB_DEMCR:
		value = sim.Demcr
	case DWT_CTRL:
		value = sim.DwtCtrl
	case DWT_CYCCNT:
		value = sim.Cyccnt
	case DWT_EXCCNT:
		value = 0
	default:
		err = io.ErrUnmapped(io.PPB_BASE + offset)
	}

	return
}

// Store implements io.Device.
func (sim *Sim) Store(offset uint32, size int, value uint32) (err error) {
	if size != 4 {
		err = io.ErrBusAlignment
		return
	}

	switch io.PPB_BASE + offset {
	case MPU_CTRL:
		sim.Ctrl = value & (CTRL_ENABLE | CTRL_HFNMIENA | CTRL_PRIVDEFENA)
	case MPU_RNR:
		if value >= REGION_COUNT {
			err = ErrRegionIndex
			return
		}
		sim.Rnr = value
	case MPU_RBAR:
		if value&RBAR_VALID != 0 {
			rnr := value & RBAR_REGION_MASK
			if rnr >= REGION_COUNT {
				err = ErrRegionIndex
				return
			}
			sim.Rnr = rnr
		}
		sim.Regions[sim.Rnr].Base = value & RBAR_ADDR_MASK
	case MPU_RASR:
		sim.Regions[sim.Rnr].Attr = value
	case SCB_CFSR:
		sim.Cfsr &^= value
	case SCB_MMAR:
		sim.Mmar = value
	case SCB_SHCSR:
		sim.Shcsr = value
	case SCB_DEMCR:
		sim.Demcr = value
	case DWT_CTRL:
		sim.DwtCtrl = value
	case DWT_CYCCNT:
		sim.Cyccnt = value
	case MPU_TYPE:
		err = io.ErrReadOnly
	default:
		err = io.ErrUnmapped(io.PPB_BASE + offset)
	}

	return
}

// MaskInterrupts implements Core.
func (sim *Sim) MaskInterrupts() (primask bool) {
	primask = sim.Primask
	sim.Primask = true
	return
}

// RestoreInterrupts implements Core.
func (sim *Sim) RestoreInterrupts(primask bool) {
	sim.Primask = primask
}

// Barrier implements Core.
func (sim *Sim) Barrier() {
	sim.Barriers++
}

// SetPrivileged implements Core.
func (sim *Sim) SetPrivileged(privileged bool) {
	sim.Privileged = privileged
}

// Enabled reports whether the MPU is enabled.
func (sim *Sim) Enabled() bool {
	return sim.Ctrl&CTRL_ENABLE != 0
}

// Writable reports whether the current privilege level may write addr.
// The highest numbered region that decodes addr decides; an address no
// region decodes is writable only by privileged code when the default
// map is enabled.
func (sim *Sim) Writable(addr uint32) bool {
	if !sim.Enabled() {
		return true
	}
	if addr >= io.PPB_BASE && addr-io.PPB_BASE < io.PPB_SIZE {
		return sim.Privileged
	}

	for n := REGION_COUNT - 1; n >= 0; n-- {
		region := sim.Regions[n]
		if region.Contains(addr) {
			return region.Writable(sim.Privileged)
		}
	}

	return sim.Privileged && sim.Ctrl&CTRL_PRIVDEFENA != 0
}

// Permits reports whether a size byte write at addr is allowed; the first
// and last byte must both be writable.
func (sim *Sim) Permits(addr uint32, size int) bool {
	return sim.Writable(addr) && sim.Writable(addr+uint32(size)-1)
}

// RaiseMemFault latches a precise data access violation at addr.
func (sim *Sim) RaiseMemFault(addr uint32) {
	if sim.Verbose {
		log.Printf("mpu: memfault %#08x", addr)
	}
	sim.Cfsr |= CFSR_DATA
	sim.Mmar = addr
}

// Tick advances the cycle counter when it is enabled.
func (sim *Sim) Tick(cycles uint32) {
	if sim.DwtCtrl&DWT_CTRL_CYCCNTENA != 0 && sim.Demcr&DEMCR_TRCENA != 0 {
		sim.Cyccnt += cycles
	}
}
