package compartment

// Supervisor call protocol.
const (
	SVC_START  = 0
	SVC_ENTRY  = 100
	SVC_EXIT   = 101
	SVC_STOP   = 255
	SVC_OPCODE = 0xdf00 // svc #imm8
	SVC_MASK   = 0xff00

	EXCEPTION_FRAME_SIZE = 32
)

// Bus is the memory the engine reads tables from and stacks frames on.
type Bus interface {
	Memory
	Store(addr uint32, size int, value uint32) (err error)
}

// ExceptionFrame is the frame the core stacks on exception entry.
type ExceptionFrame struct {
	R0   uint32
	R1   uint32
	R2   uint32
	R3   uint32
	R12  uint32
	Lr   uint32
	Pc   uint32
	Xpsr uint32
}

func (fr *ExceptionFrame) words() [8]*uint32 {
	return [8]*uint32{&fr.R0, &fr.R1, &fr.R2, &fr.R3, &fr.R12, &fr.Lr, &fr.Pc, &fr.Xpsr}
}

// ReadFrame loads an exception frame stacked at addr.
func ReadFrame(mem Memory, addr uint32) (fr ExceptionFrame, err error) {
	for n, word := range fr.words() {
		*word, err = mem.Load(addr+4*uint32(n), 4)
		if err != nil {
			return
		}
	}
	return
}

// WriteFrame stores an exception frame at addr.
func WriteFrame(bus Bus, addr uint32, fr *ExceptionFrame) (err error) {
	for n, word := range fr.words() {
		err = bus.Store(addr+4*uint32(n), 4, *word)
		if err != nil {
			return
		}
	}
	return
}
