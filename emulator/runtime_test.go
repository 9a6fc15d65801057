package emulator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/ucomp/acl"
	"github.com/ezrec/ucomp/compartment"
	"github.com/ezrec/ucomp/cpu"
	"github.com/ezrec/ucomp/image"
	"github.com/ezrec/ucomp/io"
	"github.com/ezrec/ucomp/mpu"
)

const testImage = `
; Two compartments sharing a global.
.equ GLOBAL $(RAM_BASE)
.equ STACK_ATTR $(rasr(STACK_SIZE, AP_FULL, xn=1))

default init

compartment init 0 1
region 0 FLASH_BASE $(rasr(FLASH_SIZE, AP_RO))
region 1 RAM_BASE $(rasr(RAM_SIZE, AP_RO, xn=1))
region 2 STACK_BASE STACK_ATTR
acl RAM_BASE $(RAM_BASE + RAM_SIZE)

compartment a 1 0
region 2 STACK_BASE STACK_ATTR
region 3 0x20001000 $(rasr(0x100, AP_FULL, xn=1))
acl GLOBAL $(GLOBAL + 8)

compartment b 2 0
region 3 0x20002000 $(rasr(0x100, AP_FULL, xn=1))
acl $(GLOBAL + 8) $(GLOBAL + 16)

callsite init_to_a init
dest 0x08000400 a
dest 0x08000500 b

callsite a_to_b a
dest 0x08000500 b
`

const (
	testGlobal  = io.RAM_BASE
	testTargetA = 0x08000400
	testTargetB = 0x08000500
	testPrivA   = 0x20001000
)

func newTestRuntime(t *testing.T, mode acl.Mode) *Runtime {
	ld := &image.Loader{}
	img, err := ld.Parse(strings.NewReader(testImage))
	if !assert.NoError(t, err) {
		t.FailNow()
	}

	rt, err := NewRuntime(img, mode)
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	return rt
}

func TestRuntime_Reset(t *testing.T) {
	assert := assert.New(t)

	rt := newTestRuntime(t, acl.MODE_ENFORCE)

	assert.Equal(uint8(0), rt.Compartment())
	assert.True(rt.Mpu.Enabled())
	assert.True(rt.Mpu.Privileged)
	assert.Equal(mpu.SHCSR_MEMFAULTENA, rt.Mpu.Shcsr&mpu.SHCSR_MEMFAULTENA)
	assert.Equal(uint32(io.STACK_BASE+io.STACK_SIZE), rt.Regs[cpu.REG_SP])
	assert.NoError(rt.Halted())

	inst, err := rt.Load(rt.Image.ExitStub, 2)
	assert.NoError(err)
	assert.Equal(uint32(0xdf65), inst)

	// Flash survives a reset.
	assert.NoError(rt.Reset())
	inst, err = rt.Load(rt.Image.ExitStub, 2)
	assert.NoError(err)
	assert.Equal(uint32(0xdf65), inst)
}

func TestRuntime_Verbose(t *testing.T) {
	assert := assert.New(t)

	ld := &image.Loader{Verbose: true}
	img, err := ld.Parse(strings.NewReader(testImage))
	assert.NoError(err)

	rt, err := NewRuntime(img, acl.MODE_ENFORCE)
	assert.NoError(err)
	assert.True(rt.Verbose)
	assert.True(rt.Mpu.Verbose)
	assert.True(rt.Driver.Verbose)
	assert.True(rt.Engine.Verbose)
}

func TestRuntime_InvalidImage(t *testing.T) {
	table := [](struct {
		name string
		img  *image.Image
		err  error
	}){
		{"sparse", &image.Image{
			Default:      "x",
			Compartments: []*image.Compartment{{Name: "x", Policy: mpu.Policy{Id: 3}}},
		}, image.ErrCompartmentId},
		{"return", &image.Image{
			Default:      "x",
			Compartments: []*image.Compartment{{Name: "x"}},
			Callsites: []*image.Callsite{{
				Name:   "s",
				Return: "nope",
				Dests:  []image.Dest{{Target: 0x08000401, Compartment: "x"}},
			}},
		}, image.ErrCompartmentUnknown("nope")},
	}

	for _, entry := range table {
		t.Run(entry.name, func(t *testing.T) {
			assert := assert.New(t)
			_, err := NewRuntime(entry.img, acl.MODE_ENFORCE)
			assert.ErrorIs(err, entry.err)
		})
	}
}

func TestRuntime_Emulate(t *testing.T) {
	assert := assert.New(t)

	rt := newTestRuntime(t, acl.MODE_ENFORCE)
	pc := rt.Regs[cpu.REG_PC]

	// RAM is read-only to the MPU; init's ACL grants all of it.
	assert.NoError(rt.StoreWord(testGlobal, 0x11))
	assert.Equal(1, rt.Cpu.Calls)
	assert.Equal(pc+2, rt.Regs[cpu.REG_PC])
	assert.Equal(uint32(0), rt.Mpu.Cfsr)
	value, err := rt.Load(testGlobal, 4)
	assert.NoError(err)
	assert.Equal(uint32(0x11), value)

	// Stack stores complete natively.
	rt.Regs[4] = 0x44
	assert.NoError(rt.Exec(0xb410)) // push {r4}
	assert.Equal(1, rt.Cpu.Calls)
	assert.Equal(uint32(io.STACK_BASE+io.STACK_SIZE-4), rt.Regs[cpu.REG_SP])
	value, err = rt.Load(rt.Regs[cpu.REG_SP], 4)
	assert.NoError(err)
	assert.Equal(uint32(0x44), value)
}

func TestRuntime_Enforce(t *testing.T) {
	assert := assert.New(t)

	rt := newTestRuntime(t, acl.MODE_ENFORCE)

	site, _ := rt.Image.Callsite("init_to_a")
	assert.NoError(rt.Call("init_to_a", testTargetA))
	assert.Equal(uint8(1), rt.Compartment())
	assert.False(rt.Mpu.Privileged)
	assert.Equal(uint32(testTargetA), rt.Regs[cpu.REG_PC])
	assert.Equal((site.Stub+6)|1, rt.Regs[cpu.REG_LR])

	// Private region: native.
	assert.NoError(rt.StoreWord(testPrivA, 5))
	assert.Equal(0, rt.Cpu.Calls)

	// Shared global: emulated under a's ACL.
	assert.NoError(rt.StoreWord(testGlobal+4, 7))
	assert.Equal(1, rt.Cpu.Calls)

	// Outside a's ACL: halt.
	err := rt.StoreWord(testGlobal+8, 9)
	assert.ErrorIs(err, acl.ErrViolation)
	assert.ErrorIs(err, acl.ErrDenied{Id: 1, Addr: testGlobal + 8})
	assert.Equal(HALT_VIOLATION, Classify(err))
	assert.True(IsHalt(err))
	value, _ := rt.Load(testGlobal+8, 4)
	assert.Equal(uint32(0), value)

	// Halts are sticky.
	assert.ErrorIs(rt.StoreWord(testPrivA, 1), acl.ErrViolation)
	assert.ErrorIs(rt.Return(), acl.ErrViolation)
	assert.Equal(err, rt.Halted())
}

func TestRuntime_Record(t *testing.T) {
	assert := assert.New(t)

	rt := newTestRuntime(t, acl.MODE_RECORD)
	assert.NotNil(rt.Recorder)

	assert.NoError(rt.Call("init_to_a", testTargetA))
	assert.NoError(rt.StoreWord(testGlobal+12, 1))
	assert.NoError(rt.StoreWord(testGlobal+8, 2))
	assert.NoError(rt.StoreWord(testGlobal+16, 3))
	assert.NoError(rt.Halted())

	assert.Equal([]acl.Interval{{Start: testGlobal + 8, End: testGlobal + 20}}, rt.Recorder.Intervals(1))
	assert.Equal([]uint8{1}, rt.Recorder.Compartments())

	assert.NoError(rt.Reset())
	assert.Empty(rt.Recorder.Compartments())
}

func TestRuntime_StackMask(t *testing.T) {
	assert := assert.New(t)

	rt := newTestRuntime(t, acl.MODE_ENFORCE)
	before := rt.Mpu.Regions

	sp := uint32(io.STACK_BASE + 0x2000)
	rt.Regs[cpu.REG_SP] = sp
	assert.NoError(rt.Call("init_to_a", testTargetA))
	assert.Equal(uint8(0xe0), rt.Mpu.Regions[mpu.STACK_REGION].Subregions())

	// Below the watermark: native.
	assert.NoError(rt.StoreWord(sp-4, 1))
	assert.Equal(0, rt.Cpu.Calls)

	// Return restores the protection state exactly.
	lr := rt.Regs[cpu.REG_LR]
	assert.NoError(rt.Return())
	assert.Equal(uint8(0), rt.Compartment())
	assert.Equal(lr&^1, rt.Regs[cpu.REG_PC])
	assert.Equal(before, rt.Mpu.Regions)
	assert.True(rt.Mpu.Privileged)
	assert.Equal(sp, rt.Regs[cpu.REG_SP])

	// Above the watermark: the caller's frames are not writable.
	assert.NoError(rt.Call("init_to_a", testTargetA))
	err := rt.StoreWord(io.STACK_BASE+0x3000, 1)
	assert.ErrorIs(err, acl.ErrViolation)
}

func TestRuntime_Transitions(t *testing.T) {
	table := [](struct {
		name string
		run  func(rt *Runtime) error
		err  error
		halt Halt
	}){
		{"underflow", func(rt *Runtime) error {
			return rt.Return()
		}, compartment.ErrUnderflow, HALT_VIOLATION},
		{"no-destination", func(rt *Runtime) error {
			return rt.Call("init_to_a", 0x08000600)
		}, compartment.ErrNoDestination, HALT_VIOLATION},
		{"mismatch", func(rt *Runtime) error {
			err := rt.Call("init_to_a", testTargetB)
			if err != nil {
				return err
			}
			rt.Regs[cpu.REG_LR] = 0x08001235
			return rt.Return()
		}, compartment.ErrReturnMismatch, HALT_VIOLATION},
		{"full", func(rt *Runtime) (err error) {
			for range compartment.STACK_LIMIT + 1 {
				err = rt.Call("init_to_a", testTargetA)
				if err != nil {
					return
				}
			}
			return
		}, compartment.ErrStackFull, HALT_LIMIT},
		{"stop", func(rt *Runtime) error {
			return rt.Control(compartment.SVC_STOP)
		}, compartment.ErrStopped, HALT_STOPPED},
		{"svc", func(rt *Runtime) error {
			return rt.Control(7)
		}, compartment.ErrSvcUnknown, HALT_VIOLATION},
		{"unsupported", func(rt *Runtime) error {
			return rt.Exec(0x4770) // bx lr
		}, cpu.ErrUnsupported, HALT_VIOLATION},
		{"fault-status", func(rt *Runtime) error {
			rt.Mpu.Cfsr = mpu.CFSR_IACCVIOL
			return rt.StoreWord(testGlobal, 1)
		}, ErrFaultStatus, HALT_VIOLATION},
		{"bus-fault", func(rt *Runtime) error {
			return rt.StoreWord(0x40000000, 1)
		}, io.ErrBusFault, HALT_LIMIT},
	}

	for _, entry := range table {
		t.Run(entry.name, func(t *testing.T) {
			assert := assert.New(t)
			rt := newTestRuntime(t, acl.MODE_ENFORCE)
			err := entry.run(rt)
			assert.ErrorIs(err, entry.err)
			assert.Equal(entry.halt, Classify(err))
			assert.Equal(err, rt.Halted())
		})
	}
}

func TestRuntime_Mismatch(t *testing.T) {
	assert := assert.New(t)

	rt := newTestRuntime(t, acl.MODE_ENFORCE)
	assert.NoError(rt.Call("init_to_a", testTargetB))
	top := rt.Engine.Stack.Peek()
	depth := rt.Engine.Stack.Depth()

	rt.Regs[cpu.REG_LR] = 0x08001235
	assert.ErrorIs(rt.Return(), compartment.ErrReturnMismatch)
	assert.Equal(depth, rt.Engine.Stack.Depth())
	assert.Equal(top, rt.Engine.Stack.Peek())
	assert.Equal(uint8(2), rt.Compartment())
}

func TestRuntime_Stats(t *testing.T) {
	assert := assert.New(t)

	rt := newTestRuntime(t, acl.MODE_ENFORCE)
	st := &rt.Engine.Stats

	assert.NoError(rt.Control(compartment.SVC_START))
	assert.NoError(rt.Call("init_to_a", testTargetA))
	assert.NoError(rt.StoreWord(testPrivA, 1))
	assert.NoError(rt.Return())
	assert.NoError(rt.StoreWord(testGlobal, 1))

	assert.Equal(uint32(EXCEPTION_CYCLES+SWITCH_CYCLES), st.InitCycles)
	assert.Equal(uint32(1), st.Entries)
	assert.Equal(uint32(SWITCH_CYCLES), st.EntryCycles)
	assert.Equal(uint32(1), st.Exits)
	assert.Equal(uint32(SWITCH_CYCLES), st.ExitCycles)

	assert.Equal(compartment.Counters{
		Entries: 1,
		Cycles:  STORE_CYCLES + EXCEPTION_CYCLES,
	}, st.Compartment[1])
	assert.Equal(compartment.Counters{
		Exits:     1,
		Cycles:    EXCEPTION_CYCLES,
		EmuCalls:  1,
		EmuCycles: EMULATE_CYCLES,
	}, st.Compartment[0])

	report := &strings.Builder{}
	assert.NoError(st.Report(report))
	assert.Contains(report.String(), "compartment 1: entries 1")
}
