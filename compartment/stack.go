package compartment

import (
	"github.com/ezrec/ucomp/mpu"
)

const (
	STACK_LIMIT = 16 // Maximum stack depth
)

// Entry is one frame of the compartment stack.
type Entry struct {
	Return uint32     // Return address owed by the callee.
	Policy uint32     // Address of the compartment's policy.
	Id     uint8      // Compartment id of Policy.
	Stack  mpu.Region // Stack region live before the entry.
}

// Stack is the bounded compartment stack. The base entry, holding the
// default compartment, is always present; up to STACK_LIMIT entries sit
// above it.
type Stack struct {
	Data [STACK_LIMIT + 1]Entry
	Top  int // Index of the current entry.
}

// Reset empties the stack down to a new base entry.
func (s *Stack) Reset(base Entry) {
	clear(s.Data[:])
	s.Data[0] = base
	s.Top = 0
}

// Push adds an entry, failing when the stack is full.
func (s *Stack) Push(entry Entry) (ok bool) {
	if s.Full() {
		return
	}

	s.Top++
	s.Data[s.Top] = entry
	return true
}

// Pop removes the top entry, failing when only the base remains.
func (s *Stack) Pop() (entry Entry, ok bool) {
	if s.Empty() {
		return
	}

	entry = s.Data[s.Top]
	s.Data[s.Top] = Entry{}
	s.Top--
	return entry, true
}

// Peek returns the top entry, which is the base entry on an empty stack.
func (s *Stack) Peek() (entry Entry) {
	return s.Data[s.Top]
}

// Base returns the base entry.
func (s *Stack) Base() (entry Entry) {
	return s.Data[0]
}

// Depth returns the number of entries above the base.
func (s *Stack) Depth() int {
	return s.Top
}

func (s *Stack) Empty() bool {
	return s.Top == 0
}

func (s *Stack) Full() bool {
	return s.Top == STACK_LIMIT
}

// Entries returns the stack from the base up.
func (s *Stack) Entries() []Entry {
	return s.Data[:s.Top+1]
}
