package compartment

//go:generate go tool stringer -linecomment -type=Switch

// Switch is the kind of supervisor call handled.
type Switch int

const (
	SWITCH_ENTRY = Switch(iota) // entry
	SWITCH_EXIT                 // exit
	SWITCH_START                // start
	SWITCH_STOP                 // stop
	SWITCH_ERROR                // error
)
