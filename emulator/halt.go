package emulator

import (
	"errors"

	"github.com/ezrec/ucomp/acl"
	"github.com/ezrec/ucomp/compartment"
	"github.com/ezrec/ucomp/io"
)

//go:generate go tool stringer -linecomment -type=Halt

// Halt classifies why a runtime stopped.
type Halt int

const (
	HALT_NONE      = Halt(iota) // running
	HALT_VIOLATION              // violation
	HALT_LIMIT                  // limit
	HALT_STOPPED                // stopped
)

// Classify returns the halt class of err. Bookkeeping limits are told
// apart from violations for diagnostics only.
func Classify(err error) Halt {
	switch {
	case err == nil:
		return HALT_NONE
	case errors.Is(err, compartment.ErrStopped):
		return HALT_STOPPED
	case errors.Is(err, compartment.ErrStackFull),
		errors.Is(err, acl.ErrRecordFull),
		errors.Is(err, io.ErrBusFault):
		return HALT_LIMIT
	}
	return HALT_VIOLATION
}
