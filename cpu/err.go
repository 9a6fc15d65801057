package cpu

import (
	"errors"

	"github.com/ezrec/ucomp/translate"
)

var f = translate.From

var (
	// Decode errors
	ErrUnsupported   = errors.New(f("unsupported instruction"))
	ErrUnpredictable = errors.New(f("unpredictable register use"))
	ErrExclusive     = errors.New(f("exclusive store"))
	ErrUnprivileged  = errors.New(f("unprivileged store"))
	ErrRegisterList  = errors.New(f("invalid register list"))
)

// ErrInstruction tags an emulation failure with the instruction word.
type ErrInstruction uint32

func (ei ErrInstruction) Error() string {
	return f("instruction %#08x", uint32(ei))
}

func (ei ErrInstruction) Is(err error) (ok bool) {
	_, ok = err.(ErrInstruction)
	return
}
