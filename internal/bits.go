// Package internal holds small helpers shared by the decoder and the
// hardware models.
package internal

// Field extracts width bits of word starting at bit lo.
func Field(word uint32, lo uint, width uint) uint32 {
	return (word >> lo) & ((1 << width) - 1)
}

// Bit reports whether bit n of word is set.
func Bit(word uint32, n uint) bool {
	return (word>>n)&1 != 0
}

// Reg extracts a 4-bit register number at bit lo.
func Reg(word uint32, lo uint) uint8 {
	return uint8(Field(word, lo, 4))
}

// Low extracts a 3-bit low register number at bit lo.
func Low(word uint32, lo uint) uint8 {
	return uint8(Field(word, lo, 3))
}
