package cpu

import (
	"errors"
	"log"

	"github.com/ezrec/ucomp/acl"
)

// Bus is the memory the emulator writes through.
type Bus interface {
	Store(addr uint32, size int, value uint32) (err error)
}

// Cpu is the store emulator. It runs on behalf of the current compartment
// and writes with the fault handler's privilege, so every transfer must be
// authorized by Checker first.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Bus     Bus         // Memory written by emulated stores.
	Checker acl.Checker // Authorizes every written address.

	Calls int // Emulated instructions.
}

// Emulate decodes inst, authorizes and performs its transfers in order,
// then applies base register writeback to regs. It returns the encoding
// length in bytes. A failed authorization stops the instruction at that
// transfer; writeback is applied only when every transfer completed.
func (cpu *Cpu) Emulate(inst uint32, regs *Frame, id uint8) (length int, err error) {
	defer func() {
		if err != nil {
			err = errors.Join(ErrInstruction(inst), err)
		}
	}()

	st, err := Decode(inst)
	if err != nil {
		return
	}

	if cpu.Verbose {
		log.Printf("cpu: %08x: %v (compartment %d)", regs[REG_PC], st, id)
	}

	xfers, wback := st.Transfers(regs)
	for _, xfer := range xfers {
		err = cpu.Checker.Check(id, xfer.Addr)
		if err != nil {
			return
		}
		if xfer.Size > 1 {
			err = cpu.Checker.Check(id, xfer.Addr+uint32(xfer.Size)-1)
			if err != nil {
				return
			}
		}
		err = cpu.Bus.Store(xfer.Addr, xfer.Size, xfer.Value)
		if err != nil {
			return
		}
	}

	if st.Writeback {
		regs[st.Rn] = wback
	}

	cpu.Calls++
	length = st.Length
	return
}
