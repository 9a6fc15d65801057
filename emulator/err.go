package emulator

import (
	"errors"

	"github.com/ezrec/ucomp/translate"
)

var f = translate.From

var (
	ErrFaultStatus = errors.New(f("unexpected fault status"))
	ErrCommand     = errors.New(f("trace command unknown"))
	ErrArguments   = errors.New(f("wrong number of arguments"))
)

// ErrRuntime indicates the location of a runtime error.
type ErrRuntime struct {
	LineNo int
	Err    error
}

func (err *ErrRuntime) Error() string {
	return f("line %d %v", err.LineNo, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}

// ErrHalt is the terminal state of a runtime. Every fatal condition halts;
// Halt only records which kind of condition it was.
type ErrHalt struct {
	Halt Halt
	Err  error
}

func (err *ErrHalt) Error() string {
	return f("halted (%v): %v", err.Halt, err.Err)
}

func (err *ErrHalt) Unwrap() error {
	return err.Err
}

// ErrRegister names an unknown register.
type ErrRegister string

func (err ErrRegister) Error() string {
	return f("register %v unknown", string(err))
}

// ErrCallsite names an unknown call site.
type ErrCallsite string

func (err ErrCallsite) Error() string {
	return f("call site %v unknown", string(err))
}
