package acl

import (
	"log"
)

// Enforcer permits a write only when the address lies in one of the
// intervals of the writing compartment's table.
type Enforcer struct {
	Verbose bool // Set to enable verbose logging.

	Tables map[uint8][]Interval // Intervals per compartment id.
}

// NewEnforcer returns an enforcer with no tables; every check fails.
func NewEnforcer() *Enforcer {
	return &Enforcer{Tables: map[uint8][]Interval{}}
}

// Set installs the table of compartment id.
func (enf *Enforcer) Set(id uint8, table []Interval) {
	if enf.Tables == nil {
		enf.Tables = map[uint8][]Interval{}
	}
	enf.Tables[id] = table
}

// Check implements Checker.
func (enf *Enforcer) Check(id uint8, addr uint32) (err error) {
	for _, iv := range enf.Tables[id] {
		if iv.Contains(addr) {
			return
		}
	}

	if enf.Verbose {
		log.Printf("acl: deny %d %#08x", id, addr)
	}

	err = ErrDenied{Id: id, Addr: addr}
	return
}
