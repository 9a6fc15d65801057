package io

import (
	"errors"

	"github.com/ezrec/ucomp/translate"
)

var f = translate.From

var (
	// Bus errors
	ErrBusFault     = errors.New(f("bus fault"))
	ErrBusAlignment = errors.New(f("unsupported access size"))
	ErrBusOverlap   = errors.New(f("mapping overlaps"))
	ErrReadOnly     = errors.New(f("read-only device"))
)

// ErrUnmapped is returned for an access that no device decodes.
type ErrUnmapped uint32

func (err ErrUnmapped) Error() string {
	return f("no device at %#08x", uint32(err))
}

func (err ErrUnmapped) Unwrap() error {
	return ErrBusFault
}
