package acl

import (
	"cmp"
	"fmt"
	"slices"
)

// Interval is the half-open address range [Start, End).
type Interval struct {
	Start uint32
	End   uint32
}

// Contains reports whether addr lies in the interval.
func (iv Interval) Contains(addr uint32) bool {
	return iv.Start <= addr && addr < iv.End
}

// Covers reports whether other lies wholly in the interval.
func (iv Interval) Covers(other Interval) bool {
	return iv.Start <= other.Start && other.End <= iv.End
}

// Adjacent reports whether the two intervals overlap or touch.
func (iv Interval) Adjacent(other Interval) bool {
	return iv.Start <= other.End && other.Start <= iv.End
}

// Len returns the number of bytes in the interval.
func (iv Interval) Len() uint32 {
	return iv.End - iv.Start
}

func (iv Interval) String() string {
	return fmt.Sprintf("[%08x,%08x)", iv.Start, iv.End)
}

// Sort orders intervals by start address.
func Sort(ivs []Interval) {
	slices.SortFunc(ivs, func(a, b Interval) int {
		return cmp.Compare(a.Start, b.Start)
	})
}
