package cpu

import (
	"fmt"
	"math/bits"

	"github.com/ezrec/ucomp/internal"
)

//go:generate go tool stringer -linecomment -type=StoreClass

// StoreClass is the encoding family of a decoded store.
type StoreClass int

const (
	STORE_SP_IMM8     = StoreClass(iota) // str.sp
	STORE_IMM5                           // str.imm5
	STORE_REG                            // str.reg
	STORE_MULTIPLE                       // stmia
	STORE_PUSH                           // push
	STORE_IMM12                          // str.w.imm12
	STORE_IMM8                           // str.w.imm8
	STORE_SHIFTED                        // str.w.reg
	STORE_DUAL                           // strd
	STORE_MULTIPLE_IA                    // stmia.w
	STORE_MULTIPLE_DB                    // stmdb
)

// Store is a decoded store instruction.
type Store struct {
	Class  StoreClass
	Length int // Encoding length in bytes: 2 or 4.
	Size   int // Bytes per transfer.

	Rt  uint8  // Source register.
	Rt2 uint8  // Second source register of a dual store.
	Rn  uint8  // Base register.
	Rm  uint8  // Offset register.
	Imm uint32 // Byte offset, or register offset shift.

	Index     bool   // Address the transfer at the offset address.
	Add       bool   // Offset is added to the base.
	Writeback bool   // Base register is updated.
	List      uint16 // Register list of multiple stores.
}

// Transfer is one memory write of a store.
type Transfer struct {
	Addr  uint32
	Size  int
	Value uint32
}

func thumb32(hw1 uint32) bool {
	switch hw1 >> 11 {
	case 0b11101, 0b11110, 0b11111:
		return true
	}
	return false
}

// Decode decodes a store instruction. The first halfword of the encoding
// is in bits 15:0 of inst, the second (if any) in bits 31:16.
func Decode(inst uint32) (st Store, err error) {
	hw1 := inst & 0xffff
	if thumb32(hw1) {
		st, err = decode32(hw1, inst>>16)
	} else {
		st, err = decode16(hw1)
	}
	return
}

func decode16(hw1 uint32) (st Store, err error) {
	st = Store{Length: 2, Size: 4, Index: true, Add: true}

	switch {
	case hw1&0xf800 == 0x9000:
		st.Class = STORE_SP_IMM8
		st.Rt = internal.Low(hw1, 8)
		st.Rn = REG_SP
		st.Imm = internal.Field(hw1, 0, 8) << 2
	case hw1&0xf800 == 0x6000, hw1&0xf800 == 0x7000, hw1&0xf800 == 0x8000:
		st.Class = STORE_IMM5
		st.Rt = internal.Low(hw1, 0)
		st.Rn = internal.Low(hw1, 3)
		st.Imm = internal.Field(hw1, 6, 5)
		switch hw1 & 0xf800 {
		case 0x6000:
			st.Imm <<= 2
		case 0x7000:
			st.Size = 1
		case 0x8000:
			st.Size = 2
			st.Imm <<= 1
		}
	case hw1&0xf000 == 0x5000:
		st.Class = STORE_REG
		st.Rt = internal.Low(hw1, 0)
		st.Rn = internal.Low(hw1, 3)
		st.Rm = internal.Low(hw1, 6)
		switch internal.Field(hw1, 9, 3) {
		case 0b000:
			st.Size = 4
		case 0b001:
			st.Size = 2
		case 0b010:
			st.Size = 1
		default:
			err = ErrUnsupported
		}
	case hw1&0xf800 == 0xc000:
		st.Class = STORE_MULTIPLE
		st.Rn = internal.Low(hw1, 8)
		st.List = uint16(hw1 & 0xff)
		st.Writeback = true
		err = st.checkList()
	case hw1&0xfe00 == 0xb400:
		st.Class = STORE_PUSH
		st.Rn = REG_SP
		st.List = uint16(hw1 & 0xff)
		if internal.Bit(hw1, 8) {
			st.List |= 1 << REG_LR
		}
		st.Index = false
		st.Add = false
		st.Writeback = true
		if st.List == 0 {
			err = ErrRegisterList
		}
	default:
		err = ErrUnsupported
	}

	return
}

func decode32(hw1, hw2 uint32) (st Store, err error) {
	st = Store{Length: 4, Size: 4, Index: true, Add: true}
	st.Rn = internal.Reg(hw1, 0)

	switch {
	case hw1&0xfff0 == 0xf880, hw1&0xfff0 == 0xf8a0, hw1&0xfff0 == 0xf8c0:
		st.Class = STORE_IMM12
		st.Size = 1 << internal.Field(hw1, 5, 2)
		st.Rt = internal.Reg(hw2, 12)
		st.Imm = internal.Field(hw2, 0, 12)
	case hw1&0xfff0 == 0xf800, hw1&0xfff0 == 0xf820, hw1&0xfff0 == 0xf840:
		st.Size = 1 << internal.Field(hw1, 5, 2)
		st.Rt = internal.Reg(hw2, 12)
		switch {
		case internal.Bit(hw2, 11):
			st.Class = STORE_IMM8
			st.Index = internal.Bit(hw2, 10)
			st.Add = internal.Bit(hw2, 9)
			st.Writeback = internal.Bit(hw2, 8)
			st.Imm = internal.Field(hw2, 0, 8)
			switch {
			case st.Index && st.Add && !st.Writeback:
				err = ErrUnprivileged
				return
			case !st.Index && !st.Writeback:
				err = ErrUnsupported
				return
			}
		case internal.Field(hw2, 6, 6) == 0:
			st.Class = STORE_SHIFTED
			st.Rm = internal.Reg(hw2, 0)
			st.Imm = internal.Field(hw2, 4, 2)
			if st.Rm == REG_SP || st.Rm == REG_PC {
				err = ErrUnpredictable
				return
			}
		default:
			err = ErrUnsupported
			return
		}
	case hw1&0xfe50 == 0xe840:
		st.Class = STORE_DUAL
		st.Size = 4
		st.Index = internal.Bit(hw1, 8)
		st.Add = internal.Bit(hw1, 7)
		st.Writeback = internal.Bit(hw1, 5)
		st.Rt = internal.Reg(hw2, 12)
		st.Rt2 = internal.Reg(hw2, 8)
		st.Imm = internal.Field(hw2, 0, 8) << 2
		if !st.Index && !st.Writeback {
			err = ErrExclusive
			return
		}
		if st.Writeback && (st.Rn == st.Rt || st.Rn == st.Rt2) {
			err = ErrUnpredictable
			return
		}
		if st.Rt >= REG_SP || st.Rt2 >= REG_SP || st.Rn == REG_PC {
			err = ErrUnpredictable
			return
		}
		return
	case hw1&0xffd0 == 0xe880, hw1&0xffd0 == 0xe900:
		st.Class = STORE_MULTIPLE_IA
		if hw1&0xffd0 == 0xe900 {
			st.Class = STORE_MULTIPLE_DB
			st.Index = false
			st.Add = false
		}
		st.Writeback = internal.Bit(hw1, 5)
		st.List = uint16(hw2)
		if st.Rn == REG_PC {
			err = ErrUnpredictable
			return
		}
		if st.List&(1<<REG_SP|1<<REG_PC) != 0 || bits.OnesCount16(st.List) < 2 {
			err = ErrRegisterList
			return
		}
		err = st.checkList()
		return
	default:
		err = ErrUnsupported
		return
	}

	// Single register byte, halfword and word stores.
	switch {
	case st.Rn == REG_PC, st.Rt == REG_PC:
		err = ErrUnpredictable
	case st.Rt == REG_SP && st.Size != 4:
		err = ErrUnpredictable
	case st.Writeback && st.Rn == st.Rt:
		err = ErrUnpredictable
	}

	return
}

// checkList rejects empty lists and writeback into a listed base.
func (st Store) checkList() (err error) {
	if st.List == 0 {
		err = ErrRegisterList
		return
	}
	if st.Writeback && st.List&(1<<st.Rn) != 0 {
		err = ErrUnpredictable
	}
	return
}

// Count returns the number of transfers the store performs.
func (st Store) Count() int {
	switch st.Class {
	case STORE_MULTIPLE, STORE_PUSH, STORE_MULTIPLE_IA, STORE_MULTIPLE_DB:
		return bits.OnesCount16(st.List)
	case STORE_DUAL:
		return 2
	}
	return 1
}

func truncate(value uint32, size int) uint32 {
	switch size {
	case 1:
		return value & 0xff
	case 2:
		return value & 0xffff
	}
	return value
}

// Transfers computes the transfers of the store against the register
// snapshot, in the order they are performed, and the value written back to
// the base register when st.Writeback is set.
func (st Store) Transfers(regs *Frame) (xfers []Transfer, wback uint32) {
	base := regs[st.Rn]
	xfers = make([]Transfer, 0, st.Count())

	switch st.Class {
	case STORE_MULTIPLE, STORE_MULTIPLE_IA:
		addr := base
		for n := range 16 {
			if st.List&(1<<n) == 0 {
				continue
			}
			xfers = append(xfers, Transfer{Addr: addr, Size: 4, Value: regs[n]})
			addr += 4
		}
		wback = addr
	case STORE_PUSH, STORE_MULTIPLE_DB:
		addr := base
		for n := 15; n >= 0; n-- {
			if st.List&(1<<n) == 0 {
				continue
			}
			addr -= 4
			xfers = append(xfers, Transfer{Addr: addr, Size: 4, Value: regs[n]})
		}
		wback = addr
	default:
		offset := st.Imm
		if st.Class == STORE_REG || st.Class == STORE_SHIFTED {
			offset = regs[st.Rm] << st.Imm
		}
		target := base - offset
		if st.Add {
			target = base + offset
		}
		addr := base
		if st.Index {
			addr = target
		}
		xfers = append(xfers, Transfer{Addr: addr, Size: st.Size, Value: truncate(regs[st.Rt], st.Size)})
		if st.Class == STORE_DUAL {
			xfers = append(xfers, Transfer{Addr: addr + 4, Size: 4, Value: regs[st.Rt2]})
		}
		wback = target
	}

	return
}

var _size_suffix = map[int]string{1: "b", 2: "h", 4: ""}

func listString(list uint16) (text string) {
	for n := range 16 {
		if list&(1<<n) == 0 {
			continue
		}
		if text != "" {
			text += ", "
		}
		text += RegisterName(uint8(n))
	}
	return "{" + text + "}"
}

// String returns the store in assembler syntax.
func (st Store) String() string {
	rt := RegisterName(st.Rt)
	rn := RegisterName(st.Rn)
	op := "str" + _size_suffix[st.Size]
	if st.Length == 4 && st.Class != STORE_DUAL {
		op += ".w"
	}
	sign := "-"
	if st.Add {
		sign = ""
	}
	wb := ""
	if st.Writeback {
		wb = "!"
	}

	switch st.Class {
	case STORE_SP_IMM8, STORE_IMM5, STORE_IMM12:
		return fmt.Sprintf("%s %s, [%s, #%d]", op, rt, rn, st.Imm)
	case STORE_REG:
		return fmt.Sprintf("%s %s, [%s, %s]", op, rt, rn, RegisterName(st.Rm))
	case STORE_SHIFTED:
		return fmt.Sprintf("%s %s, [%s, %s, lsl #%d]", op, rt, rn, RegisterName(st.Rm), st.Imm)
	case STORE_IMM8:
		if st.Index {
			return fmt.Sprintf("%s %s, [%s, #%s%d]%s", op, rt, rn, sign, st.Imm, wb)
		}
		return fmt.Sprintf("%s %s, [%s], #%s%d", op, rt, rn, sign, st.Imm)
	case STORE_DUAL:
		if st.Index {
			return fmt.Sprintf("strd %s, %s, [%s, #%s%d]%s", rt, RegisterName(st.Rt2), rn, sign, st.Imm, wb)
		}
		return fmt.Sprintf("strd %s, %s, [%s], #%s%d", rt, RegisterName(st.Rt2), rn, sign, st.Imm)
	case STORE_PUSH:
		return "push " + listString(st.List)
	case STORE_MULTIPLE:
		return fmt.Sprintf("stmia %s!, %s", rn, listString(st.List))
	case STORE_MULTIPLE_IA:
		return fmt.Sprintf("stmia.w %s%s, %s", rn, wb, listString(st.List))
	case STORE_MULTIPLE_DB:
		return fmt.Sprintf("stmdb %s%s, %s", rn, wb, listString(st.List))
	}

	return st.Class.String()
}
