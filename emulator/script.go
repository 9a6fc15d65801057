package emulator

import (
	"bufio"
	"io"
	"log"

	"github.com/ezrec/ucomp/compartment"
	"github.com/ezrec/ucomp/cpu"
	"github.com/ezrec/ucomp/image"
)

// Script drives a Runtime from a trace: one command per line, with the
// image's equates, its linked symbols and $(...) expressions available.
//
//	reg NAME VALUE      set a thread register
//	exec INST           execute a store instruction at the thread PC
//	store ADDR VALUE    execute str r1, [r0]
//	call SITE TARGET    call TARGET through call site SITE
//	return              return from the running compartment
//	start               start the statistics counters
//	stop                stop execution
type Script struct {
	Verbose  bool // If set, logs every command.
	Runtime  *Runtime
	Expander image.Expander

	Commands int // Commands executed.
}

// NewScript creates a script driver for rt.
func NewScript(rt *Runtime) (sc *Script) {
	sc = &Script{Runtime: rt}
	for equ, value := range rt.Defines() {
		sc.Expander.Predefine(equ, value)
	}
	return
}

// register returns the index of a register name.
func register(name string) (n int, err error) {
	for n = range cpu.FRAME_WORDS {
		if cpu.RegisterName(uint8(n)) == name {
			return
		}
	}
	err = ErrRegister(name)
	return
}

// Run runs every command of input. It stops at the first error, which is
// an *ErrHalt wrapped in an *ErrRuntime when the runtime halted.
func (sc *Script) Run(input io.Reader) (err error) {
	scanner := bufio.NewScanner(input)

	var lineno int

	defer func() {
		if err != nil {
			err = &ErrRuntime{LineNo: lineno, Err: err}
		}
	}()

	sc.Expander.Verbose = sc.Verbose
	sc.Expander.Reset()

	for scanner.Scan() {
		lineno += 1

		var words []string
		words, err = sc.Expander.Line(scanner.Text(), lineno)
		if err != nil {
			return
		}
		if len(words) == 0 {
			continue
		}

		if sc.Verbose {
			log.Printf("script: %v: %v", lineno, words)
		}

		err = sc.command(words)
		if err != nil {
			return
		}
		sc.Commands++
	}

	return scanner.Err()
}

// arity maps each command to its argument count.
var arity = map[string]int{
	"reg":    2,
	"exec":   1,
	"store":  2,
	"call":   2,
	"return": 0,
	"start":  0,
	"stop":   0,
}

// command executes one command.
func (sc *Script) command(words []string) (err error) {
	rt := sc.Runtime

	count, ok := arity[words[0]]
	if !ok {
		err = ErrCommand
		return
	}
	args := words[1:]
	if len(args) != count {
		err = ErrArguments
		return
	}

	// The call site of call is a name; every other argument is a value.
	values := make([]uint32, len(args))
	for n, word := range args {
		if words[0] == "reg" && n == 0 {
			continue
		}
		if words[0] == "call" && n == 0 {
			continue
		}
		values[n], err = sc.Expander.Value(word)
		if err != nil {
			return
		}
	}

	switch words[0] {
	case "reg":
		var n int
		n, err = register(args[0])
		if err != nil {
			return
		}
		rt.Regs[n] = values[1]
	case "exec":
		err = rt.Exec(values[0])
	case "store":
		err = rt.StoreWord(values[0], values[1])
	case "call":
		site := args[0]
		if _, ok := rt.Image.Callsite(site); !ok {
			// Call site names expand to their stub address.
			var stub uint32
			stub, err = sc.Expander.Value(site)
			if err != nil {
				return ErrCallsite(site)
			}
			cs, ok := rt.Image.CallsiteAt(stub)
			if !ok {
				return ErrCallsite(site)
			}
			site = cs.Name
		}
		err = rt.Call(site, values[1])
	case "return":
		err = rt.Return()
	case "start":
		err = rt.Control(compartment.SVC_START)
	case "stop":
		err = rt.Control(compartment.SVC_STOP)
	}

	return
}
