package image

import (
	"bufio"
	"io"
	"log"
	"maps"

	"github.com/ezrec/ucomp/acl"
	"github.com/ezrec/ucomp/mpu"
)

// directives maps each directive to its argument count.
var directives = map[string]int{
	"default":     1,
	"compartment": 3,
	"region":      3,
	"acl":         2,
	"callsite":    2,
	"dest":        2,
}

// Loader parses the text form of an image.
type Loader struct {
	Verbose  bool // If set, verbosely logs the loader actions.
	Expander Expander

	img     *Image
	comp    *Compartment
	site    *Callsite
	regions map[*Compartment]uint8 // Regions declared per compartment.
}

// Parse parses an input stream into a validated Image.
func (ld *Loader) Parse(input io.Reader) (img *Image, err error) {
	img, err = ld.parse(input)
	if err != nil {
		return
	}

	err = img.Validate()
	if err != nil {
		img = nil
		return
	}

	return
}

// parse reads every line of input.
func (ld *Loader) parse(input io.Reader) (img *Image, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
			img = nil
		}
	}()

	ld.Expander.Verbose = ld.Verbose
	ld.Expander.Reset()
	ld.img = &Image{Verbose: ld.Verbose}
	ld.comp = nil
	ld.site = nil
	ld.regions = map[*Compartment]uint8{}

	for scanner.Scan() {
		line = scanner.Text()
		lineno += 1

		var words []string
		words, err = ld.Expander.Line(line, lineno)
		if err != nil {
			return
		}

		err = ld.parseWords(words, lineno)
		if err != nil {
			return
		}
	}
	err = scanner.Err()
	if err != nil {
		return
	}

	img = ld.img
	img.Equate = maps.Clone(ld.Expander.Equate)
	delete(img.Equate, "LINENO")
	return
}

// parseWords evaluates the words of one line.
func (ld *Loader) parseWords(words []string, lineno int) (err error) {
	if len(words) == 0 {
		return
	}

	args := words[1:]
	count, ok := directives[words[0]]
	if !ok {
		err = ErrDirective
		return
	}
	if len(args) != count {
		err = ErrArguments
		return
	}

	values := func(words ...string) (values []uint32, err error) {
		values = make([]uint32, len(words))
		for n, word := range words {
			values[n], err = ld.Expander.Value(word)
			if err != nil {
				return
			}
		}
		return
	}

	switch words[0] {
	case "default":
		ld.img.Default = args[0]
	case "compartment":
		var v []uint32
		v, err = values(args[1:]...)
		if err != nil {
			return
		}
		if v[0] > 0xff {
			err = ErrCompartmentId
			return
		}
		ld.comp = &Compartment{
			Name:   args[0],
			LineNo: lineno,
			Policy: mpu.Policy{Id: uint8(v[0]), Privileged: v[1] != 0},
		}
		ld.img.Compartments = append(ld.img.Compartments, ld.comp)
	case "region":
		if ld.comp == nil {
			err = ErrNoCompartment
			return
		}
		var v []uint32
		v, err = values(args...)
		if err != nil {
			return
		}
		if v[0] >= mpu.AVAILABLE_REGIONS {
			err = ErrRegionIndex
			return
		}
		bit := uint8(1) << v[0]
		if ld.regions[ld.comp]&bit != 0 {
			err = ErrRegionDuplicate
			return
		}
		ld.regions[ld.comp] |= bit
		ld.comp.Policy.Regions[v[0]] = mpu.Region{Base: v[1], Attr: v[2]}
		ld.comp.Policy.Count++
	case "acl":
		if ld.comp == nil {
			err = ErrNoCompartment
			return
		}
		var v []uint32
		v, err = values(args...)
		if err != nil {
			return
		}
		ld.comp.Acl = append(ld.comp.Acl, acl.Interval{Start: v[0], End: v[1]})
	case "callsite":
		ld.site = &Callsite{
			Name:   args[0],
			LineNo: lineno,
			Return: args[1],
		}
		ld.img.Callsites = append(ld.img.Callsites, ld.site)
	case "dest":
		if ld.site == nil {
			err = ErrNoCallsite
			return
		}
		var v []uint32
		v, err = values(args[0])
		if err != nil {
			return
		}
		ld.site.Dests = append(ld.site.Dests, Dest{Target: v[0] | 1, Compartment: args[1]})
	}

	if ld.Verbose {
		log.Printf("loader: %v: %v", lineno, words)
	}

	return
}
