package compartment

import (
	"errors"

	"github.com/ezrec/ucomp/translate"
)

var f = translate.From

var (
	// Transition errors
	ErrNoDestination  = errors.New(f("no policy for call destination"))
	ErrReturnMismatch = errors.New(f("return address mismatch"))
	ErrUnderflow      = errors.New(f("compartment stack underflow"))
	ErrStackFull      = errors.New(f("compartment stack full"))

	// Supervisor call errors
	ErrSvcUnknown = errors.New(f("unknown supervisor call"))
	ErrStopped    = errors.New(f("stopped"))

	// Metadata errors
	ErrMetadataSize = errors.New(f("call site metadata too large"))
)
