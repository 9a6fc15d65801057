package mpu

import (
	"log"
)

// Bus is the memory-mapped register interface the driver programs.
type Bus interface {
	Memory
	Store(addr uint32, size int, value uint32) (err error)
}

// Core is the processor state that is not memory-mapped.
type Core interface {
	// MaskInterrupts disables maskable interrupts, returning the prior mask.
	MaskInterrupts() (primask bool)
	// RestoreInterrupts restores a mask returned by MaskInterrupts.
	RestoreInterrupts(primask bool)
	// Barrier issues the data and instruction synchronization barriers.
	Barrier()
	// SetPrivileged selects thread-mode privilege.
	SetPrivileged(privileged bool)
}

// Driver programs the MPU from policies.
type Driver struct {
	Verbose bool // Set to enable verbose logging.

	Bus  Bus
	Core Core
}

func (drv *Driver) load32(addr uint32) (uint32, error) {
	return drv.Bus.Load(addr, 4)
}

func (drv *Driver) store32(addr uint32, value uint32) error {
	return drv.Bus.Store(addr, 4, value)
}

func (drv *Driver) setBits(addr uint32, mask uint32) (err error) {
	value, err := drv.load32(addr)
	if err != nil {
		return
	}
	return drv.store32(addr, value|mask)
}

// Commit runs fn with interrupts masked and the MPU disabled, then issues
// the barriers and re-enables the MPU. The MPU is re-enabled even if fn
// fails, so a failed update never leaves protection off.
func (drv *Driver) Commit(fn func() error) (err error) {
	primask := drv.Core.MaskInterrupts()
	defer drv.Core.RestoreInterrupts(primask)

	err = drv.store32(MPU_CTRL, CTRL_DISABLE)
	if err != nil {
		return
	}

	err = fn()

	drv.Core.Barrier()
	if cerr := drv.store32(MPU_CTRL, CTRL_ACTIVE); err == nil {
		err = cerr
	}

	return
}

// WriteRegion selects region n and writes its base and attributes.
func (drv *Driver) WriteRegion(n int, region Region) (err error) {
	if n < 0 || n >= REGION_COUNT {
		err = ErrRegionIndex
		return
	}

	err = drv.store32(MPU_RNR, uint32(n))
	if err != nil {
		return
	}
	err = drv.store32(MPU_RBAR, region.Base&RBAR_ADDR_MASK)
	if err != nil {
		return
	}
	return drv.store32(MPU_RASR, region.Attr)
}

// ReadRegion selects region n and reads back its base and attributes.
func (drv *Driver) ReadRegion(n int) (region Region, err error) {
	if n < 0 || n >= REGION_COUNT {
		err = ErrRegionIndex
		return
	}

	err = drv.store32(MPU_RNR, uint32(n))
	if err != nil {
		return
	}
	base, err := drv.load32(MPU_RBAR)
	if err != nil {
		return
	}
	attr, err := drv.load32(MPU_RASR)
	if err != nil {
		return
	}

	region = Region{Base: base & RBAR_ADDR_MASK, Attr: attr}
	return
}

// load writes the non-reserved regions of p and sets the privilege level.
// The caller must hold a Commit.
func (drv *Driver) load(p *Policy) (err error) {
	for n := RESERVED_REGIONS; n < AVAILABLE_REGIONS; n++ {
		err = drv.WriteRegion(DEFAULT_REGIONS+n, p.Regions[n])
		if err != nil {
			return
		}
	}

	drv.Core.SetPrivileged(p.Privileged)
	return
}

// SetInit programs every region of the boot policy.
func (drv *Driver) SetInit(p *Policy) (err error) {
	if drv.Verbose {
		log.Printf("mpu: init %v", p)
	}

	return drv.Commit(func() (err error) {
		for n := range AVAILABLE_REGIONS {
			err = drv.WriteRegion(DEFAULT_REGIONS+n, p.Regions[n])
			if err != nil {
				return
			}
		}
		drv.Core.SetPrivileged(p.Privileged)
		return
	})
}

// Apply reprograms the non-reserved regions to p.
func (drv *Driver) Apply(p *Policy) (err error) {
	if drv.Verbose {
		log.Printf("mpu: apply %v", p)
	}

	return drv.Commit(func() error { return drv.load(p) })
}

// Switch applies p and replaces the stack region in a single commit.
func (drv *Driver) Switch(p *Policy, stack Region) (err error) {
	if drv.Verbose {
		log.Printf("mpu: switch %v stack %v", p, stack)
	}

	return drv.Commit(func() (err error) {
		err = drv.load(p)
		if err != nil {
			return
		}
		return drv.WriteRegion(STACK_REGION, stack)
	})
}

// StackRegion reads back the live stack region.
func (drv *Driver) StackRegion() (region Region, err error) {
	return drv.ReadRegion(STACK_REGION)
}

// SetStack replaces the stack region.
func (drv *Driver) SetStack(region Region) (err error) {
	return drv.Commit(func() error { return drv.WriteRegion(STACK_REGION, region) })
}

// EnableFaults enables the MemManage exception and the debug monitor.
func (drv *Driver) EnableFaults() (err error) {
	err = drv.setBits(SCB_SHCSR, SHCSR_MEMFAULTENA)
	if err != nil {
		return
	}
	return drv.setBits(SCB_DEMCR, DEMCR_MON_EN)
}

// FaultStatus returns the fault status and fault address registers.
func (drv *Driver) FaultStatus() (cfsr uint32, mmar uint32, err error) {
	cfsr, err = drv.load32(SCB_CFSR)
	if err != nil {
		return
	}
	mmar, err = drv.load32(SCB_MMAR)
	return
}

// ClearFaultStatus clears the given write-one-to-clear status bits.
func (drv *Driver) ClearFaultStatus(cfsr uint32) (err error) {
	return drv.store32(SCB_CFSR, cfsr)
}

// StartCycleCounter zeroes and starts the cycle counter.
func (drv *Driver) StartCycleCounter() (err error) {
	err = drv.setBits(SCB_DEMCR, DEMCR_TRCENA)
	if err != nil {
		return
	}
	err = drv.store32(DWT_CYCCNT, 0)
	if err != nil {
		return
	}
	return drv.setBits(DWT_CTRL, DWT_CTRL_CYCCNTENA)
}

// Cycles reads the cycle counter.
func (drv *Driver) Cycles() (cycles uint32, err error) {
	return drv.load32(DWT_CYCCNT)
}
