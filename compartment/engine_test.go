package compartment

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/ucomp/io"
	"github.com/ezrec/ucomp/mpu"
)

// Test flash layout.
const (
	testDefault  = io.FLASH_BASE + 0x000
	testPolicyA  = io.FLASH_BASE + 0x080
	testPolicyB  = io.FLASH_BASE + 0x100
	testMetadata = io.FLASH_BASE + 0x180
	testSvcEntry = io.FLASH_BASE + 0x202
	testSvcExit  = io.FLASH_BASE + 0x20a
	testSvcStart = io.FLASH_BASE + 0x20e
	testSvcStop  = io.FLASH_BASE + 0x212
	testSvcBad   = io.FLASH_BASE + 0x216
	testNotSvc   = io.FLASH_BASE + 0x21a
	testTargetA  = io.FLASH_BASE + 0x401
	testTargetB  = io.FLASH_BASE + 0x501
	testTargetX  = io.FLASH_BASE + 0x601
)

func testRegion(t *testing.T, base uint32, size uint64, ap uint32) mpu.Region {
	attr, err := mpu.Attr(size, ap, 0, ap != mpu.AP_RO)
	assert.NoError(t, err)
	return mpu.Region{Base: base, Attr: attr}
}

func testPolicies(t *testing.T) (def, a, b mpu.Policy) {
	def.Count = 3
	def.Privileged = true
	def.Regions[0] = testRegion(t, io.FLASH_BASE, io.FLASH_SIZE, mpu.AP_RO)
	def.Regions[1] = testRegion(t, io.RAM_BASE, io.RAM_SIZE, mpu.AP_PRIV_RW_USER_RO)
	def.Regions[2] = testRegion(t, io.STACK_BASE, io.STACK_SIZE, mpu.AP_FULL)

	a = def
	a.Count = 4
	a.Id = 1
	a.Privileged = false
	a.Regions[3] = testRegion(t, io.RAM_BASE, 256, mpu.AP_FULL)

	b = def
	b.Count = 5
	b.Id = 2
	b.Privileged = false
	b.Regions[3] = testRegion(t, io.RAM_BASE+0x100, 256, mpu.AP_FULL)
	b.Regions[4] = testRegion(t, io.RAM_BASE, 32, mpu.AP_FULL)
	return
}

func newTestEngine(t *testing.T) (eng *Engine, sim *mpu.Sim, bus *io.Bus) {
	assert := assert.New(t)

	bus = &io.Bus{}
	rom := io.NewRom(0x1000)
	sim = &mpu.Sim{}
	sim.Reset()
	assert.NoError(bus.Map(io.FLASH_BASE, 0x1000, rom))
	assert.NoError(bus.Map(io.RAM_BASE, io.RAM_SIZE, io.NewRam(io.RAM_SIZE)))
	assert.NoError(bus.Map(io.PPB_BASE, io.PPB_SIZE, sim))

	def, a, b := testPolicies(t)
	assert.NoError(rom.Program(testDefault-io.FLASH_BASE, def.Encode()))
	assert.NoError(rom.Program(testPolicyA-io.FLASH_BASE, a.Encode()))
	assert.NoError(rom.Program(testPolicyB-io.FLASH_BASE, b.Encode()))

	md := Metadata{
		Return: testDefault,
		Dests: []Destination{
			{Id: testTargetA, Policy: testPolicyA},
			{Id: testTargetB, Policy: testPolicyB},
		},
	}
	assert.NoError(rom.Program(testMetadata-io.FLASH_BASE, md.Encode()))

	code := func(addr uint32, values ...uint16) {
		var data []byte
		for _, value := range values {
			data = binary.LittleEndian.AppendUint16(data, value)
		}
		assert.NoError(rom.Program(addr-io.FLASH_BASE, data))
	}
	mdAddr := uint32(testMetadata)
	code(testSvcEntry, SVC_OPCODE|SVC_ENTRY, uint16(mdAddr), uint16(mdAddr>>16))
	code(testSvcExit, SVC_OPCODE|SVC_EXIT)
	code(testSvcStart, SVC_OPCODE|SVC_START)
	code(testSvcStop, SVC_OPCODE|SVC_STOP)
	code(testSvcBad, SVC_OPCODE|5)
	code(testNotSvc, 0x4770)

	eng = &Engine{
		Bus:    bus,
		Driver: &mpu.Driver{Bus: bus, Core: sim},
	}
	assert.NoError(eng.Start(testDefault))
	return
}

func TestEngine_Start(t *testing.T) {
	assert := assert.New(t)

	eng, sim, _ := newTestEngine(t)
	def, _, _ := testPolicies(t)

	assert.Equal(def.Regions, sim.Regions)
	assert.True(sim.Privileged)
	assert.Equal(mpu.CTRL_ACTIVE, sim.Ctrl)
	assert.Equal(mpu.SHCSR_MEMFAULTENA, sim.Shcsr&mpu.SHCSR_MEMFAULTENA)
	assert.True(eng.Stack.Empty())
	assert.Equal(Entry{Policy: testDefault, Id: 0, Stack: def.Regions[2]}, eng.Current())
}

func TestEngine_Enter(t *testing.T) {
	assert := assert.New(t)

	eng, sim, _ := newTestEngine(t)
	_, a, b := testPolicies(t)

	assert.NoError(eng.Enter(testMetadata, testTargetA, 0x0800_0207, io.STACK_BASE+0x3000))
	assert.Equal(1, eng.Stack.Depth())
	assert.Equal(uint8(1), eng.Current().Id)
	assert.Equal(uint32(0x0800_0207), eng.Current().Return)
	assert.Equal(a.Regions[3], sim.Regions[3])
	assert.False(sim.Privileged)
	assert.Equal(uint8(0x80), sim.Regions[2].Subregions())
	assert.False(sim.Primask)

	assert.NoError(eng.Enter(testMetadata, testTargetB, 0x0800_0407, io.STACK_BASE+0x2000))
	assert.Equal(2, eng.Stack.Depth())
	assert.Equal(b.Regions[3], sim.Regions[3])
	assert.Equal(b.Regions[4], sim.Regions[4])
	assert.Equal(uint8(0xe0), sim.Regions[2].Subregions())

	assert.NoError(eng.Exit(0x0800_0407))
	assert.Equal(uint8(1), eng.Current().Id)
	assert.Equal(a.Regions[3], sim.Regions[3])
	assert.Equal(mpu.Region{}, sim.Regions[4])
	assert.Equal(uint8(0x80), sim.Regions[2].Subregions())
}

func TestEngine_NoDestination(t *testing.T) {
	assert := assert.New(t)

	eng, sim, _ := newTestEngine(t)
	before := sim.Regions

	err := eng.Enter(testMetadata, testTargetX, 0x0800_0207, io.STACK_BASE+0x3000)
	assert.ErrorIs(err, ErrNoDestination)
	assert.True(eng.Stack.Empty())
	assert.Equal(before, sim.Regions)
}

func TestEngine_ExitMismatch(t *testing.T) {
	assert := assert.New(t)

	eng, sim, _ := newTestEngine(t)

	assert.NoError(eng.Enter(testMetadata, testTargetA, 0x0800_0207, io.STACK_BASE+0x3000))
	top := eng.Current()
	regions := sim.Regions

	err := eng.Exit(0x0800_0301)
	assert.ErrorIs(err, ErrReturnMismatch)
	assert.Equal(1, eng.Stack.Depth())
	assert.Equal(top, eng.Current())
	assert.Equal(regions, sim.Regions)
}

func TestEngine_Underflow(t *testing.T) {
	assert := assert.New(t)

	eng, _, _ := newTestEngine(t)

	assert.ErrorIs(eng.Exit(0), ErrUnderflow)
	assert.True(eng.Stack.Empty())
}

func TestEngine_RoundTrip(t *testing.T) {
	assert := assert.New(t)

	eng, sim, _ := newTestEngine(t)

	regions := sim.Regions
	privileged := sim.Privileged

	sp := uint32(io.STACK_BASE + io.STACK_SIZE)
	for n := range STACK_LIMIT {
		target := uint32(testTargetA)
		if n%2 == 1 {
			target = testTargetB
		}
		sp -= 0x300
		assert.NoError(eng.Enter(testMetadata, target, 0x0800_1001+uint32(n)*4, sp))
	}
	assert.True(eng.Stack.Full())

	err := eng.Enter(testMetadata, testTargetA, 0x0800_2001, sp-0x100)
	assert.ErrorIs(err, ErrStackFull)
	assert.Equal(STACK_LIMIT, eng.Stack.Depth())

	for n := STACK_LIMIT - 1; n >= 0; n-- {
		assert.NoError(eng.Exit(0x0800_1001 + uint32(n)*4))
	}

	assert.True(eng.Stack.Empty())
	assert.Equal(regions, sim.Regions)
	assert.Equal(privileged, sim.Privileged)
}

func TestEngine_HandleSVC(t *testing.T) {
	assert := assert.New(t)

	eng, sim, bus := newTestEngine(t)

	frameAddr := uint32(io.STACK_BASE + 0x3000 - EXCEPTION_FRAME_SIZE)
	fr := ExceptionFrame{R0: 1, Lr: testTargetA, Pc: testSvcEntry + 2, Xpsr: 0x0100_0000}
	assert.NoError(WriteFrame(bus, frameAddr, &fr))

	stacked, err := ReadFrame(bus, frameAddr)
	assert.NoError(err)
	assert.Equal(fr, stacked)

	sw, err := eng.HandleSVC(&fr, frameAddr)
	assert.NoError(err)
	assert.Equal(SWITCH_ENTRY, sw)
	assert.Equal(uint32(testTargetA&^1), fr.Pc)
	assert.Equal(uint32(testSvcEntry+2+4)|1, fr.Lr)
	assert.Equal(uint8(1), eng.Current().Id)
	assert.Equal(uint8(0x80), sim.Regions[2].Subregions())
	assert.False(sim.Primask)

	ret := fr.Lr
	fr.Pc = testSvcExit + 2
	sw, err = eng.HandleSVC(&fr, frameAddr)
	assert.NoError(err)
	assert.Equal(SWITCH_EXIT, sw)
	assert.Equal(ret&^1, fr.Pc)
	assert.True(eng.Stack.Empty())

	eng.Stats.Entries = 7
	fr.Pc = testSvcStart + 2
	sw, err = eng.HandleSVC(&fr, frameAddr)
	assert.NoError(err)
	assert.Equal(SWITCH_START, sw)
	assert.Equal(uint32(0), eng.Stats.Entries)
	assert.NotZero(sim.DwtCtrl & mpu.DWT_CTRL_CYCCNTENA)

	fr.Pc = testSvcStop + 2
	sw, err = eng.HandleSVC(&fr, frameAddr)
	assert.ErrorIs(err, ErrStopped)
	assert.Equal(SWITCH_STOP, sw)

	fr.Pc = testSvcBad + 2
	sw, err = eng.HandleSVC(&fr, frameAddr)
	assert.ErrorIs(err, ErrSvcUnknown)
	assert.Equal(SWITCH_ERROR, sw)

	fr.Pc = testNotSvc + 2
	_, err = eng.HandleSVC(&fr, frameAddr)
	assert.ErrorIs(err, ErrSvcUnknown)

	fr.Lr = testTargetX
	fr.Pc = testSvcEntry + 2
	sw, err = eng.HandleSVC(&fr, frameAddr)
	assert.ErrorIs(err, ErrNoDestination)
	assert.Equal(SWITCH_ERROR, sw)
	assert.Equal(uint32(testTargetX), fr.Lr, "frame untouched")
	assert.False(sim.Primask)
}

func TestEngine_Timing(t *testing.T) {
	assert := assert.New(t)

	eng, sim, _ := newTestEngine(t)

	assert.NoError(eng.Driver.StartCycleCounter())

	sim.Tick(100)
	assert.NoError(eng.BeginException())
	assert.Equal(uint32(100), eng.Stats.InitCycles)

	assert.NoError(eng.Enter(testMetadata, testTargetA, 0x0800_0207, io.STACK_BASE+0x3000))
	sim.Tick(20)
	assert.NoError(eng.EndSwitch(SWITCH_ENTRY))
	assert.Equal(uint32(1), eng.Stats.Entries)
	assert.Equal(uint32(20), eng.Stats.EntryCycles)
	assert.Equal(uint32(1), eng.Stats.Compartment[1].Entries)

	sim.Tick(50)
	assert.NoError(eng.BeginException())
	sim.Tick(7)
	assert.NoError(eng.EndEmulation())
	assert.Equal(uint32(50), eng.Stats.Compartment[1].Cycles)
	assert.Equal(uint32(1), eng.Stats.Compartment[1].EmuCalls)
	assert.Equal(uint32(7), eng.Stats.Compartment[1].EmuCycles)

	assert.NoError(eng.Exit(0x0800_0207))
	sim.Tick(3)
	assert.NoError(eng.EndSwitch(SWITCH_EXIT))
	assert.Equal(uint32(1), eng.Stats.Compartment[0].Exits)

	var buf bytes.Buffer
	assert.NoError(eng.Stats.Report(&buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(lines, 3)
	assert.True(strings.HasPrefix(lines[1], "compartment 0:"))
	assert.True(strings.HasPrefix(lines[2], "compartment 1:"))
}

func TestStats_Unknown(t *testing.T) {
	assert := assert.New(t)

	var st Stats
	st.Charge(MAX_COMPARTMENTS, 9)
	st.Transition(SWITCH_ENTRY, MAX_COMPARTMENTS+1, 4)
	st.Emulation(200, 1)

	assert.Equal(uint32(9), st.UnknownCycles)
	assert.Equal(uint32(1), st.Entries)
	assert.Equal(uint32(4), st.EntryCycles)
	assert.Equal(Counters{}, st.Compartment[0])

	st.Reset()
	assert.Equal(Stats{}, st)
}
