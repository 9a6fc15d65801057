// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"errors"
	"fmt"
	"iter"
	"log"
	"maps"

	"github.com/ezrec/ucomp/acl"
	"github.com/ezrec/ucomp/compartment"
	"github.com/ezrec/ucomp/cpu"
	"github.com/ezrec/ucomp/image"
	"github.com/ezrec/ucomp/internal"
	"github.com/ezrec/ucomp/io"
	"github.com/ezrec/ucomp/mpu"
)

const (
	STORE_CYCLES     = 2  // Cost of a native store.
	EXCEPTION_CYCLES = 12 // Cost of exception entry.
	EMULATE_CYCLES   = 48 // Cost of decoding and emulating a store.
	SWITCH_CYCLES    = 96 // Cost of a compartment transition.

	RESET_PSR = 0x0100_0000 // Thumb state.
	RESET_LR  = 0xffff_ffff
)

var _runtime_defines = map[string]string{
	"RESET_SP": fmt.Sprintf("%#x", io.STACK_BASE+io.STACK_SIZE),
}

// Runtime is a μCOMP system: flash holding a linked image, RAM, the MPU
// and the enforcement runtime, with the thread registers of the program.
type Runtime struct {
	Verbose bool // If set, enables verbose logging.

	Image *image.Image
	Mode  acl.Mode

	Bus      io.Bus
	Rom      *io.Rom
	Ram      *io.Ram
	Mpu      mpu.Sim
	Driver   mpu.Driver
	Checker  acl.Checker
	Recorder *acl.Recorder // Set in recording mode.
	Cpu      cpu.Cpu
	Engine   compartment.Engine

	Regs cpu.Frame // Thread registers.

	halt error
}

// NewRuntime links img into a new system and resets it.
func NewRuntime(img *image.Image, mode acl.Mode) (rt *Runtime, err error) {
	rt = &Runtime{
		Verbose: img.Verbose,
		Image:   img,
		Mode:  mode,
		Rom:   io.NewRom(io.FLASH_SIZE),
		Ram:   io.NewRam(io.RAM_SIZE),
	}

	err = img.Link(rt.Rom, io.FLASH_BASE)
	if err != nil {
		return
	}

	for _, mapping := range []io.Mapping{
		{Base: io.FLASH_BASE, Size: io.FLASH_SIZE, Device: rt.Rom},
		{Base: io.RAM_BASE, Size: io.RAM_SIZE, Device: rt.Ram},
		{Base: io.PPB_BASE, Size: io.PPB_SIZE, Device: &rt.Mpu},
	} {
		err = rt.Bus.Map(mapping.Base, mapping.Size, mapping.Device)
		if err != nil {
			return
		}
	}

	switch mode {
	case acl.MODE_ENFORCE:
		rt.Checker, err = acl.LoadTables(&rt.Bus, img.Lut, len(img.Compartments))
		if err != nil {
			return
		}
	case acl.MODE_RECORD:
		rt.Recorder = acl.NewRecorder()
		rt.Checker = rt.Recorder
	default:
		err = fmt.Errorf("%v: %w", mode, ErrArguments)
		return
	}

	rt.Driver = mpu.Driver{Bus: &rt.Bus, Core: &rt.Mpu}
	rt.Cpu = cpu.Cpu{Bus: &rt.Bus, Checker: rt.Checker}
	rt.Engine = compartment.Engine{Bus: &rt.Bus, Driver: &rt.Driver}

	err = rt.Reset()
	return
}

// Defines returns an iterator over the runtime, memory map and image
// symbols.
func (rt *Runtime) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_runtime_defines),
		io.Defines(),
		maps.All(rt.Image.Equate),
		rt.Image.Symbols(),
	)
}

// Reset performs the start-up sequence: RAM and the MPU return to their
// power-on state, the default compartment is programmed and memory faults
// are enabled. Flash keeps the linked image.
func (rt *Runtime) Reset() (err error) {
	rt.Mpu.Verbose = rt.Verbose
	rt.Driver.Verbose = rt.Verbose
	rt.Cpu.Verbose = rt.Verbose
	rt.Engine.Verbose = rt.Verbose

	rt.Ram.Reset()
	rt.Mpu.Reset()
	if rt.Recorder != nil {
		rt.Recorder.Clear()
	}
	rt.Cpu.Calls = 0
	rt.halt = nil

	rt.Regs = cpu.Frame{}
	rt.Regs[cpu.REG_SP] = io.STACK_BASE + io.STACK_SIZE
	rt.Regs[cpu.REG_LR] = RESET_LR
	rt.Regs[cpu.REG_PC] = io.FLASH_BASE + rt.Image.Size
	rt.Regs[cpu.REG_PSR] = RESET_PSR

	def, ok := rt.Image.Compartment(rt.Image.Default)
	if !ok {
		err = image.ErrDefaultMissing
		return
	}

	err = rt.Engine.Start(def.Address)
	return
}

// Halted returns the halt error, or nil while the runtime runs.
func (rt *Runtime) Halted() error {
	return rt.halt
}

// stop halts the runtime on a fatal err.
func (rt *Runtime) stop(err error) error {
	if err == nil {
		return nil
	}

	halt := &ErrHalt{Halt: Classify(err), Err: err}
	log.Printf("runtime: %v", halt)
	if rt.Verbose {
		log.Printf("runtime: registers\n%v", &rt.Regs)
	}
	rt.halt = halt
	return halt
}

// Compartment returns the id of the running compartment.
func (rt *Runtime) Compartment() uint8 {
	return rt.Engine.Current().Id
}

// Exec executes the store instruction inst at the thread PC. Transfers the
// MPU permits complete natively; otherwise a memory management fault is
// taken and the store is emulated.
func (rt *Runtime) Exec(inst uint32) (err error) {
	if rt.halt != nil {
		return rt.halt
	}

	st, err := cpu.Decode(inst)
	if err != nil {
		// Not a store the core would complete; let the handler reject it.
		return rt.stop(rt.memManage(inst, rt.Regs[cpu.REG_PC]))
	}

	xfers, wback := st.Transfers(&rt.Regs)
	for _, xfer := range xfers {
		if !rt.Mpu.Permits(xfer.Addr, xfer.Size) {
			return rt.stop(rt.memManage(inst, xfer.Addr))
		}
	}

	for _, xfer := range xfers {
		err = rt.Bus.Store(xfer.Addr, xfer.Size, xfer.Value)
		if err != nil {
			return rt.stop(err)
		}
	}
	if st.Writeback {
		rt.Regs[st.Rn] = wback
	}
	rt.Regs[cpu.REG_PC] += uint32(st.Length)
	rt.Mpu.Tick(STORE_CYCLES)

	return
}

// memManage is the memory management fault handler for a store at the
// thread PC that faulted at addr.
func (rt *Runtime) memManage(inst uint32, addr uint32) (err error) {
	rt.Mpu.RaiseMemFault(addr)
	rt.Mpu.Tick(EXCEPTION_CYCLES)

	primask := rt.Mpu.MaskInterrupts()
	defer rt.Mpu.RestoreInterrupts(primask)

	err = rt.Engine.BeginException()
	if err != nil {
		return
	}

	cfsr, mmar, err := rt.Driver.FaultStatus()
	if err != nil {
		return
	}
	if cfsr != mpu.CFSR_DATA {
		err = fmt.Errorf("cfsr %#x: %w", cfsr, ErrFaultStatus)
		return
	}

	if rt.Verbose {
		log.Printf("runtime: memfault at %08x by %08x", mmar, rt.Regs[cpu.REG_PC])
	}

	snapshot := rt.Regs
	length, err := rt.Cpu.Emulate(inst, &snapshot, rt.Compartment())
	if err != nil {
		return
	}
	snapshot[cpu.REG_PC] += uint32(length)

	err = rt.Driver.ClearFaultStatus(cfsr)
	if err != nil {
		return
	}
	rt.Regs = snapshot

	rt.Mpu.Tick(EMULATE_CYCLES)
	return rt.Engine.EndEmulation()
}

// svc takes a supervisor call for the svc instruction at the thread PC.
func (rt *Runtime) svc() (err error) {
	rt.Mpu.Tick(EXCEPTION_CYCLES)

	err = rt.Engine.BeginException()
	if err != nil {
		return
	}

	sp := rt.Regs[cpu.REG_SP]
	frameAddr := sp - compartment.EXCEPTION_FRAME_SIZE
	fr := compartment.ExceptionFrame{
		R0:   rt.Regs[0],
		R1:   rt.Regs[1],
		R2:   rt.Regs[2],
		R3:   rt.Regs[3],
		R12:  rt.Regs[12],
		Lr:   rt.Regs[cpu.REG_LR],
		Pc:   rt.Regs[cpu.REG_PC] + 2,
		Xpsr: rt.Regs[cpu.REG_PSR],
	}
	err = compartment.WriteFrame(&rt.Bus, frameAddr, &fr)
	if err != nil {
		return
	}

	fr, err = compartment.ReadFrame(&rt.Bus, frameAddr)
	if err != nil {
		return
	}
	sw, err := rt.Engine.HandleSVC(&fr, frameAddr)
	if err != nil {
		return
	}
	err = compartment.WriteFrame(&rt.Bus, frameAddr, &fr)
	if err != nil {
		return
	}

	// Exception return.
	fr, err = compartment.ReadFrame(&rt.Bus, frameAddr)
	if err != nil {
		return
	}
	rt.Regs[0] = fr.R0
	rt.Regs[1] = fr.R1
	rt.Regs[2] = fr.R2
	rt.Regs[3] = fr.R3
	rt.Regs[12] = fr.R12
	rt.Regs[cpu.REG_LR] = fr.Lr
	rt.Regs[cpu.REG_PC] = fr.Pc
	rt.Regs[cpu.REG_PSR] = fr.Xpsr

	if rt.Verbose {
		log.Printf("runtime: %v -> compartment %d pc %08x", sw, rt.Compartment(), fr.Pc)
	}

	rt.Mpu.Tick(SWITCH_CYCLES)
	return rt.Engine.EndSwitch(sw)
}

// Call calls target through the named compartment-crossing call site.
func (rt *Runtime) Call(site string, target uint32) (err error) {
	if rt.halt != nil {
		return rt.halt
	}

	cs, ok := rt.Image.Callsite(site)
	if !ok {
		return ErrCallsite(site)
	}

	rt.Regs[cpu.REG_LR] = target | 1
	rt.Regs[cpu.REG_PC] = cs.Stub
	return rt.stop(rt.svc())
}

// Return returns from the running compartment to the thread LR.
func (rt *Runtime) Return() (err error) {
	if rt.halt != nil {
		return rt.halt
	}

	rt.Regs[cpu.REG_PC] = rt.Image.ExitStub
	return rt.stop(rt.svc())
}

// Control issues the start or stop control call. Execution continues
// after the call.
func (rt *Runtime) Control(imm uint8) (err error) {
	if rt.halt != nil {
		return rt.halt
	}

	var stub uint32
	switch imm {
	case compartment.SVC_START:
		stub = rt.Image.StartStub
	case compartment.SVC_STOP:
		stub = rt.Image.StopStub
	default:
		return rt.stop(compartment.ErrSvcUnknown)
	}

	pc := rt.Regs[cpu.REG_PC]
	rt.Regs[cpu.REG_PC] = stub
	err = rt.svc()
	rt.Regs[cpu.REG_PC] = pc
	return rt.stop(err)
}

// StoreWord executes str r1, [r0] with r0 set to addr and r1 to value.
func (rt *Runtime) StoreWord(addr uint32, value uint32) (err error) {
	rt.Regs[0] = addr
	rt.Regs[1] = value
	return rt.Exec(0x6001)
}

// Load reads size bytes of memory.
func (rt *Runtime) Load(addr uint32, size int) (value uint32, err error) {
	return rt.Bus.Load(addr, size)
}

// IsHalt reports whether err halted a runtime.
func IsHalt(err error) bool {
	var halt *ErrHalt
	return errors.As(err, &halt)
}
