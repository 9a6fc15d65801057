package compartment

import (
	"log"

	"github.com/ezrec/ucomp/mpu"
)

// Engine is the compartment transition state machine. Its state is the
// compartment stack; the top entry is the running compartment.
type Engine struct {
	Verbose bool // Set to enable verbose logging.

	Bus    Bus
	Driver *mpu.Driver
	Stack  Stack
	Stats  Stats

	started bool // A transition has happened since Start.
}

// Start resets the stack to the default compartment and programs its
// policy into every region.
func (eng *Engine) Start(policy uint32) (err error) {
	p, err := mpu.DecodePolicy(eng.Bus, policy)
	if err != nil {
		return
	}

	if eng.Verbose {
		log.Printf("engine: start %08x %v", policy, &p)
	}

	eng.Stack.Reset(Entry{Policy: policy, Id: p.Id, Stack: p.Regions[mpu.STACK_REGION]})
	eng.started = false

	err = eng.Driver.SetInit(&p)
	if err != nil {
		return
	}

	return eng.Driver.EnableFaults()
}

// Current returns the entry of the running compartment.
func (eng *Engine) Current() Entry {
	return eng.Stack.Peek()
}

// Enter switches to the compartment of target, as listed in the call site
// metadata at md. ret is the return address the callee owes and sp the
// stack pointer at the call.
func (eng *Engine) Enter(md uint32, target uint32, ret uint32, sp uint32) (err error) {
	meta, err := DecodeMetadata(eng.Bus, md)
	if err != nil {
		return
	}

	policy, ok := meta.Lookup(target)
	if !ok {
		err = ErrNoDestination
		return
	}
	if eng.Stack.Full() {
		err = ErrStackFull
		return
	}

	p, err := mpu.DecodePolicy(eng.Bus, policy)
	if err != nil {
		return
	}

	live, err := eng.Driver.StackRegion()
	if err != nil {
		return
	}

	stack := p.Regions[mpu.STACK_REGION]
	if !stack.Enabled() {
		stack = live
	}
	stack = mpu.StackMask(stack, sp)

	if eng.Verbose {
		log.Printf("engine: enter %08x -> %d ret %08x stack %v", target, p.Id, ret, stack)
	}

	err = eng.Driver.Switch(&p, stack)
	if err != nil {
		return
	}

	eng.Stack.Push(Entry{Return: ret, Policy: policy, Id: p.Id, Stack: live})
	eng.started = true
	return
}

// Exit returns from the running compartment. lr must equal the return
// address recorded on entry; otherwise the stack is left untouched.
func (eng *Engine) Exit(lr uint32) (err error) {
	if eng.Stack.Empty() {
		err = ErrUnderflow
		return
	}

	top := eng.Stack.Peek()
	if lr != top.Return {
		if eng.Verbose {
			log.Printf("engine: exit %08x expected %08x", lr, top.Return)
		}
		err = ErrReturnMismatch
		return
	}

	prev := eng.Stack.Data[eng.Stack.Top-1]
	p, err := mpu.DecodePolicy(eng.Bus, prev.Policy)
	if err != nil {
		return
	}

	if eng.Verbose {
		log.Printf("engine: exit %d -> %d stack %v", top.Id, prev.Id, top.Stack)
	}

	err = eng.Driver.Switch(&p, top.Stack)
	if err != nil {
		return
	}

	eng.Stack.Pop()
	return
}

// HandleSVC dispatches the supervisor call whose exception frame, stacked
// at frameAddr, is fr. The call number is taken from the svc instruction
// before the stacked PC. On entry the word at the stacked PC is the call
// site metadata address and the stacked LR the call target; on success the
// frame is rewritten to resume at the target with LR pointing past the
// metadata word. On exit the frame resumes at the stacked LR.
func (eng *Engine) HandleSVC(fr *ExceptionFrame, frameAddr uint32) (sw Switch, err error) {
	primask := eng.Driver.Core.MaskInterrupts()
	defer eng.Driver.Core.RestoreInterrupts(primask)

	sw = SWITCH_ERROR

	inst, err := eng.Bus.Load(fr.Pc-2, 2)
	if err != nil {
		return
	}
	if inst&SVC_MASK != SVC_OPCODE {
		err = ErrSvcUnknown
		return
	}

	switch inst &^ SVC_MASK {
	case SVC_ENTRY:
		var md uint32
		md, err = eng.Bus.Load(fr.Pc, 4)
		if err != nil {
			return
		}
		target := fr.Lr
		ret := (fr.Pc + 4) | 1
		err = eng.Enter(md, target, ret, frameAddr+EXCEPTION_FRAME_SIZE)
		if err != nil {
			return
		}
		fr.Lr = ret
		fr.Pc = target &^ 1
		sw = SWITCH_ENTRY
	case SVC_EXIT:
		err = eng.Exit(fr.Lr)
		if err != nil {
			return
		}
		fr.Pc = fr.Lr &^ 1
		sw = SWITCH_EXIT
	case SVC_START:
		eng.Stats.Reset()
		err = eng.Driver.StartCycleCounter()
		if err != nil {
			return
		}
		sw = SWITCH_START
	case SVC_STOP:
		sw = SWITCH_STOP
		err = ErrStopped
	default:
		err = ErrSvcUnknown
	}

	return
}

// BeginException charges the cycles since the last sample to the running
// compartment, or to initialization before the first transition.
func (eng *Engine) BeginException() (err error) {
	now, err := eng.Driver.Cycles()
	if err != nil {
		return
	}

	delta := eng.Stats.Sample(now)
	if !eng.started {
		eng.Stats.InitCycles += delta
	} else {
		eng.Stats.Charge(eng.Current().Id, delta)
	}
	return
}

// EndSwitch charges the cycles of a handled supervisor call.
func (eng *Engine) EndSwitch(sw Switch) (err error) {
	if sw != SWITCH_ENTRY && sw != SWITCH_EXIT {
		return
	}

	now, err := eng.Driver.Cycles()
	if err != nil {
		return
	}

	eng.Stats.Transition(sw, eng.Current().Id, eng.Stats.Sample(now))
	return
}

// EndEmulation charges the cycles of an emulated store.
func (eng *Engine) EndEmulation() (err error) {
	now, err := eng.Driver.Cycles()
	if err != nil {
		return
	}

	eng.Stats.Emulation(eng.Current().Id, eng.Stats.Sample(now))
	return
}
