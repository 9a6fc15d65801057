package cpu

import (
	"fmt"
)

// Register snapshot indices.
const (
	REG_SP  = 13
	REG_LR  = 14
	REG_PC  = 15
	REG_PSR = 16

	FRAME_WORDS = 17
)

// Frame is the register snapshot captured by the fault handler:
// r0-r12, sp, lr, pc, psr.
type Frame [FRAME_WORDS]uint32

// RegisterName returns the assembler name of register n.
func RegisterName(n uint8) string {
	switch n {
	case REG_SP:
		return "sp"
	case REG_LR:
		return "lr"
	case REG_PC:
		return "pc"
	case REG_PSR:
		return "psr"
	}
	return fmt.Sprintf("r%d", n)
}

// String returns the snapshot as a register dump.
func (fr *Frame) String() (text string) {
	for n, value := range fr {
		text += fmt.Sprintf("%4s: %04X_%04X\n", RegisterName(uint8(n)), value>>16, value&0xffff)
	}
	return
}
