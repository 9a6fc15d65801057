package acl

// Checker authorizes a single-byte write by a compartment.
type Checker interface {
	Check(id uint8, addr uint32) (err error)
}

//go:generate go tool stringer -linecomment -type=Mode

// Mode selects the checker a runtime is built with.
type Mode int

const (
	MODE_ENFORCE = Mode(iota) // enforce
	MODE_RECORD               // record
)

var _ Checker = (*Enforcer)(nil)
var _ Checker = (*Recorder)(nil)
