package compartment

import (
	"fmt"
	"io"
)

// MAX_COMPARTMENTS is the number of compartments with their own counters.
const MAX_COMPARTMENTS = 50

// Counters are the statistics of one compartment.
type Counters struct {
	Entries   uint32 // Entries into the compartment.
	Exits     uint32 // Returns into the compartment.
	Cycles    uint32 // Cycles executing in the compartment.
	EmuCalls  uint32 // Stores emulated on its behalf.
	EmuCycles uint32 // Cycles spent emulating them.
}

// Stats are the diagnostic counters, zeroed by the start control call.
type Stats struct {
	Entries       uint32
	Exits         uint32
	EntryCycles   uint32
	ExitCycles    uint32
	InitCycles    uint32 // Cycles before the first transition.
	UnknownCycles uint32 // Cycles of compartments without counters.
	Total         uint32 // Cycle counter at the last sample.

	Compartment [MAX_COMPARTMENTS]Counters
}

// Reset zeroes every counter.
func (st *Stats) Reset() {
	*st = Stats{}
}

// Sample returns the cycles elapsed since the previous sample.
func (st *Stats) Sample(now uint32) (delta uint32) {
	delta = now - st.Total
	st.Total = now
	return
}

func (st *Stats) counters(id uint8) *Counters {
	if int(id) >= len(st.Compartment) {
		return nil
	}
	return &st.Compartment[id]
}

// Charge attributes cycles executed by compartment id.
func (st *Stats) Charge(id uint8, cycles uint32) {
	if c := st.counters(id); c != nil {
		c.Cycles += cycles
	} else {
		st.UnknownCycles += cycles
	}
}

// Transition counts a completed entry or exit into compartment id.
func (st *Stats) Transition(sw Switch, id uint8, cycles uint32) {
	c := st.counters(id)
	switch sw {
	case SWITCH_ENTRY:
		st.Entries++
		st.EntryCycles += cycles
		if c != nil {
			c.Entries++
		}
	case SWITCH_EXIT:
		st.Exits++
		st.ExitCycles += cycles
		if c != nil {
			c.Exits++
		}
	}
}

// Emulation counts a store emulated for compartment id.
func (st *Stats) Emulation(id uint8, cycles uint32) {
	if c := st.counters(id); c != nil {
		c.EmuCalls++
		c.EmuCycles += cycles
	}
}

// Report writes the counters of every compartment that ran.
func (st *Stats) Report(w io.Writer) (err error) {
	_, err = fmt.Fprintf(w, "entries %d (%d cycles), exits %d (%d cycles), init %d cycles, unknown %d cycles\n",
		st.Entries, st.EntryCycles, st.Exits, st.ExitCycles, st.InitCycles, st.UnknownCycles)
	if err != nil {
		return
	}

	for id, c := range st.Compartment {
		if c == (Counters{}) {
			continue
		}
		_, err = fmt.Fprintf(w, "compartment %d: entries %d exits %d cycles %d emulated %d (%d cycles)\n",
			id, c.Entries, c.Exits, c.Cycles, c.EmuCalls, c.EmuCycles)
		if err != nil {
			return
		}
	}

	return
}
