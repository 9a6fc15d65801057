package acl

import (
	"errors"

	"github.com/ezrec/ucomp/translate"
)

var f = translate.From

var (
	// Check errors
	ErrViolation   = errors.New(f("access violation"))
	ErrRecordFull  = errors.New(f("recording buffer exhausted"))
	ErrRecordRange = errors.New(f("address beyond recordable range"))

	// Table errors
	ErrTableSize     = errors.New(f("acl table too large"))
	ErrTableInterval = errors.New(f("acl interval empty"))
)

// ErrDenied is returned when a compartment may not write an address.
type ErrDenied struct {
	Id   uint8
	Addr uint32
}

func (err ErrDenied) Error() string {
	return f("compartment %d denied write at %#08x", err.Id, err.Addr)
}

func (err ErrDenied) Unwrap() error {
	return ErrViolation
}
