package image

import (
	"fmt"
	"log"
	"maps"
	"regexp"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ezrec/ucomp/internal"
	"github.com/ezrec/ucomp/io"
	"github.com/ezrec/ucomp/mpu"
)

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO": "0",
}

var reParen = regexp.MustCompile(`\$\([^\$]*\)`)

// Expander turns a line of image or trace text into words: comments are
// removed, $(...) expressions evaluated, .equ lines consumed and equates
// substituted.
type Expander struct {
	Verbose bool              // If set, verbosely logs expanded lines.
	Equate  map[string]string // Map of equates.

	predefine map[string]string // Predefines
}

// Predefine defines a new equate or redefines an existing equate. It
// takes effect at the next Reset.
func (exp *Expander) Predefine(equ string, value string) {
	if exp.predefine == nil {
		exp.predefine = map[string]string{equ: value}
	} else {
		exp.predefine[equ] = value
	}
}

// Reset restores the equates to the system and predefined set.
func (exp *Expander) Reset() {
	exp.Equate = maps.Clone(sysEquate)
	for attr, val := range internal.IterSeq2Concat(io.Defines(), mpu.Defines(), maps.All(exp.predefine)) {
		exp.Equate[attr] = val
	}
}

// Value returns the value of a simple word.
func (exp *Expander) Value(word string) (value uint32, err error) {
	if len(word) == 0 {
		err = ErrParseNumber(word)
		return
	}

	invert := false
	if word[0] == '~' {
		invert = true
		word = word[1:]
	}
	v64, err := strconv.ParseInt(word, 0, 33)
	if err != nil {
		err = ErrParseNumber(word)
		return
	}

	if v64 <= 0xffffffff && v64 >= -int64(0x80000000) {
		value = uint32(v64)
	}

	if invert {
		value = ^value
	}

	return
}

// rasr is the starlark rasr(size, ap, srd=0, xn=0) builtin.
func rasr(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var size starlark.Int
	var ap, srd int
	var xn starlark.Value = starlark.False
	err := starlark.UnpackArgs(b.Name(), args, kwargs, "size", &size, "ap", &ap, "srd?", &srd, "xn?", &xn)
	if err != nil {
		return nil, err
	}

	size64, ok := size.Uint64()
	if !ok || srd < 0 || srd > 0xff || ap < 0 {
		return nil, fmt.Errorf("%v: invalid arguments", b.Name())
	}

	attr, err := mpu.Attr(size64, uint32(ap), uint8(srd), bool(xn.Truth()))
	if err != nil {
		return nil, err
	}

	return starlark.MakeUint(uint(attr)), nil
}

// Eval does compile-time $(...) evaluations.
func (exp *Expander) Eval(expr string) (value uint32, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{
		"rasr": starlark.NewBuiltin("rasr", rasr),
	}
	for key, str := range exp.Equate {
		var value32 uint32
		value32, err = exp.Value(str)
		if err != nil {
			// Ignore non-integer equates.
			err = nil
			continue
		}
		pred[key] = starlark.MakeUint(uint(value32))
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value = uint32(st_int64)
	return
}

// Line expands a single line of text into words.
func (exp *Expander) Line(text string, lineno int) (words []string, err error) {
	if exp.Equate == nil {
		exp.Reset()
	}

	// Set line number.
	exp.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	line, _, _ := strings.Cut(text, ";")

	// Do $() evaluations
	line = reParen.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := exp.Eval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%#v", value)
	})
	if err != nil {
		return
	}

	words = strings.Fields(line)

	if len(words) == 0 {
		return
	}

	if exp.Verbose {
		log.Printf("expand: %v: %v", lineno, words)
	}

	// .equ CONST VALUE
	if words[0] == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := exp.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		exp.Equate[words[1]] = words[2]
		words = words[:0]
		return
	}

	for n, word := range words {
		equate, ok := exp.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	return
}
