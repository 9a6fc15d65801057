package io

import (
	"fmt"
	"iter"
	"maps"
)

// Memory map of the modelled microcontroller.
const (
	FLASH_BASE = 0x0800_0000 // Code and read-only tables.
	FLASH_SIZE = 0x0010_0000 // 1 MiB
	RAM_BASE   = 0x2000_0000 // Data and stack.
	RAM_SIZE   = 0x0002_0000 // 128 KiB
	STACK_SIZE = 0x0000_4000 // Shared stack, at the top of RAM.
	STACK_BASE = RAM_BASE + RAM_SIZE - STACK_SIZE
	PPB_BASE   = 0xE000_0000 // Private peripheral bus.
	PPB_SIZE   = 0x0010_0000
)

var _io_defines = map[string]string{
	"FLASH_BASE": fmt.Sprintf("%#x", FLASH_BASE),
	"FLASH_SIZE": fmt.Sprintf("%#x", FLASH_SIZE),
	"RAM_BASE":   fmt.Sprintf("%#x", RAM_BASE),
	"RAM_SIZE":   fmt.Sprintf("%#x", RAM_SIZE),
	"STACK_BASE": fmt.Sprintf("%#x", STACK_BASE),
	"STACK_SIZE": fmt.Sprintf("%#x", STACK_SIZE),
}

// Defines returns the memory map as equates.
func Defines() iter.Seq2[string, string] {
	return maps.All(_io_defines)
}
