package mpu

import (
	"errors"

	"github.com/ezrec/ucomp/translate"
)

var f = translate.From

var (
	// Region errors
	ErrRegionSize  = errors.New(f("region size below 32 bytes"))
	ErrRegionAlign = errors.New(f("region base not aligned to its size"))
	ErrRegionIndex = errors.New(f("region index out of range"))
	ErrAttrSize    = errors.New(f("region size not a power of two"))

	// Policy errors
	ErrPolicyCount = errors.New(f("policy region count exceeds capacity"))
	ErrPolicyShort = errors.New(f("policy image truncated"))
)

// ErrRegion locates a region error inside a policy.
type ErrRegion struct {
	Index int
	Err   error
}

func (err ErrRegion) Error() string {
	return f("region %d: %v", err.Index, err.Err)
}

func (err ErrRegion) Unwrap() error {
	return err.Err
}
