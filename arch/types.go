package arch

import "fmt"

// Byte is an 8-bit register cell. Every value stored in it is
// reduced modulo 256; overflow and underflow wrap silently.
//
// Bits are numbered the way the 8051 documentation draws them:
// bit 0 is the most significant bit, bit 7 the least significant.
type Byte uint8

// NewByte creates a Byte from v, modulo 256.
func NewByte(v int) Byte {
	return Byte(v & 0xff)
}

// Int returns the cell value as an int.
func (b Byte) Int() int {
	return int(b)
}

// Set stores v modulo 256.
func (b *Byte) Set(v int) {
	*b = NewByte(v)
}

// Bit returns the state (0 or 1) of bit n.
func (b Byte) Bit(n int) int {
	return int(b>>uint(7-n)) & 1
}

// SetBit sets bit n to v. Only the lowest bit of v is used.
func (b *Byte) SetBit(n, v int) {
	mask := Byte(1) << uint(7-n)
	if v&1 == 1 {
		*b |= mask
	} else {
		*b &^= mask
	}
}

// Add returns b+v modulo 256.
func (b Byte) Add(v int) Byte {
	return NewByte(int(b) + v)
}

// Sub returns b-v modulo 256.
func (b Byte) Sub(v int) Byte {
	return NewByte(int(b) - v)
}

// Mul returns the 16-bit product of b and o, split into its high and low byte.
func (b Byte) Mul(o Byte) (hi, lo Byte) {
	v := int(b) * int(o)
	return NewByte(v >> 8), NewByte(v)
}

// DivMod returns the quotient and remainder of b/o.
// It panics if o is zero.
func (b Byte) DivMod(o Byte) (q, r Byte) {
	return b / o, b % o
}

func (b Byte) And(o Byte) int { return int(b & o) }
func (b Byte) Or(o Byte) int  { return int(b | o) }
func (b Byte) Xor(o Byte) int { return int(b ^ o) }

// RotateLeft rotates the cell one bit to the left; bit 7 wraps into bit 0.
func (b *Byte) RotateLeft() {
	*b = *b<<1 | *b>>7
}

// RotateRight rotates the cell one bit to the right; bit 0 wraps into bit 7.
func (b *Byte) RotateRight() {
	*b = *b>>1 | *b<<7
}

func (b Byte) String() string {
	return fmt.Sprintf("%02X", uint8(b))
}

// Word is a 16-bit register cell, used for the program counter and DPTR.
// Values are reduced modulo 65536. Bit 0 is the most significant bit.
type Word uint16

// NewWord creates a Word from v, modulo 65536.
func NewWord(v int) Word {
	return Word(v & 0xffff)
}

// MakeWord combines a high and low byte.
func MakeWord(hi, lo Byte) Word {
	return Word(hi)<<8 | Word(lo)
}

// Int returns the cell value as an int.
func (w Word) Int() int {
	return int(w)
}

// Set stores v modulo 65536.
func (w *Word) Set(v int) {
	*w = NewWord(v)
}

// Bit returns the state (0 or 1) of bit n.
func (w Word) Bit(n int) int {
	return int(w>>uint(15-n)) & 1
}

// SetBit sets bit n to v.
func (w *Word) SetBit(n, v int) {
	mask := Word(1) << uint(15-n)
	if v&1 == 1 {
		*w |= mask
	} else {
		*w &^= mask
	}
}

// Add returns w+v modulo 65536.
func (w Word) Add(v int) Word {
	return NewWord(int(w) + v)
}

// Sub returns w-v modulo 65536.
func (w Word) Sub(v int) Word {
	return NewWord(int(w) - v)
}

// High returns the upper 8 bits.
func (w Word) High() Byte {
	return Byte(w >> 8)
}

// Low returns the lower 8 bits.
func (w Word) Low() Byte {
	return Byte(w)
}

func (w Word) String() string {
	return fmt.Sprintf("%04X", uint16(w))
}
