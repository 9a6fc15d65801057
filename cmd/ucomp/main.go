// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/tebeka/atexit"

	"github.com/ezrec/ucomp/acl"
	"github.com/ezrec/ucomp/emulator"
	"github.com/ezrec/ucomp/image"
	"github.com/ezrec/ucomp/translate"
)

func main() {
	var config string
	var trace string
	var record bool
	var output string
	var verbose bool
	var lang string

	flag.StringVar(&config, "c", "", "Protection image to load")
	flag.StringVar(&trace, "t", "-", "Trace to run")
	flag.BoolVar(&record, "r", false, "Record accesses instead of enforcing")
	flag.StringVar(&output, "o", "", "Recorded interval output (default ucomp_record_<session>.csv)")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")
	flag.StringVar(&lang, "lang", "", "Message language (BCP 47)")

	flag.Parse()

	if flag.NArg() != 0 {
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	if len(lang) != 0 {
		err := translate.SetLanguage(lang)
		if err != nil {
			log.Fatalf("%v: %v", lang, err)
		}
	}

	if len(config) == 0 {
		log.Fatalf("%v: no image given (-c)", os.Args[0])
	}

	inf, err := os.Open(config)
	if err != nil {
		log.Fatalf("%v: %v", config, err)
	}
	ld := &image.Loader{Verbose: verbose}
	img, err := ld.Parse(inf)
	inf.Close()
	if err != nil {
		log.Fatalf("%v: %v", config, err)
	}

	mode := acl.MODE_ENFORCE
	if record {
		mode = acl.MODE_RECORD
	}

	rt, err := emulator.NewRuntime(img, mode)
	if err != nil {
		log.Fatalf("%v: %v", config, err)
	}

	if rt.Recorder != nil {
		if len(output) == 0 {
			output = rt.Recorder.DefaultExportPath()
		}
		rt.Recorder.ExportOnExit(output)
	}

	tf := os.Stdin
	if trace != "-" {
		tf, err = os.Open(trace)
		if err != nil {
			log.Printf("%v: %v", trace, err)
			atexit.Exit(1)
		}
		defer tf.Close()
	}

	sc := emulator.NewScript(rt)
	sc.Verbose = verbose
	err = sc.Run(tf)

	halt := emulator.Classify(rt.Halted())
	fmt.Printf("%v: %v (%d commands, %d emulated stores)\n", mode, halt, sc.Commands, rt.Cpu.Calls)
	rt.Engine.Stats.Report(os.Stdout)

	code := 0
	switch {
	case err != nil && !emulator.IsHalt(err):
		log.Printf("%v: %v", trace, err)
		code = 2
	case halt == emulator.HALT_VIOLATION, halt == emulator.HALT_LIMIT:
		log.Printf("%v: %v", trace, err)
		code = 1
	}

	atexit.Exit(code)
}
