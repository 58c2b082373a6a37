package arch

import (
	"fmt"
	"strings"
)

// Special function register addresses in internal data memory.
const (
	P0   = 0x80
	SP   = 0x81
	DPL  = 0x82
	DPH  = 0x83
	PCON = 0x87
	TCON = 0x88
	TMOD = 0x89
	TL0  = 0x8a
	TL1  = 0x8b
	TH0  = 0x8c
	TH1  = 0x8d
	P1   = 0x90
	SCON = 0x98
	SBUF = 0x99
	P2   = 0xa0
	IE   = 0xa8
	P3   = 0xb0
	IP   = 0xb8
	PSW  = 0xd0
	ACC  = 0xe0
	B    = 0xf0
)

// Flag is the bit address of a single bit in the bit-addressable
// part of internal data memory.
type Flag uint8

// Known flags. Bit addresses 0x00-0x7f map onto bytes 0x20-0x2f;
// bit addresses 0x80-0xff map onto the SFRs whose address is a multiple of 8.
const (
	// PSW
	CY  Flag = 0xd7 // Carry.
	AC  Flag = 0xd6 // Auxiliary carry.
	F0  Flag = 0xd5 // User flag 0.
	RS1 Flag = 0xd4 // Register bank select, high bit.
	RS0 Flag = 0xd3 // Register bank select, low bit.
	OV  Flag = 0xd2 // Overflow.
	UD  Flag = 0xd1 // User defined.
	P   Flag = 0xd0 // Parity of the accumulator.

	// TCON
	TF1 Flag = 0x8f // Timer 1 overflow.
	TR1 Flag = 0x8e // Timer 1 run.
	TF0 Flag = 0x8d // Timer 0 overflow.
	TR0 Flag = 0x8c // Timer 0 run.
	IE1 Flag = 0x8b // External interrupt 1 request.
	IT1 Flag = 0x8a // External interrupt 1 edge triggered.
	IE0 Flag = 0x89 // External interrupt 0 request.
	IT0 Flag = 0x88 // External interrupt 0 edge triggered.

	// IE
	EA  Flag = 0xaf // Global interrupt enable.
	ET2 Flag = 0xad
	ES  Flag = 0xac
	ET1 Flag = 0xab
	EX1 Flag = 0xaa
	ET0 Flag = 0xa9
	EX0 Flag = 0xa8

	// IP
	PT2 Flag = 0xbd
	PS  Flag = 0xbc
	PT1 Flag = 0xbb
	PX1 Flag = 0xba
	PT0 Flag = 0xb9
	PX0 Flag = 0xb8

	// P3 alternate pin functions.
	RD   Flag = 0xb7
	WR   Flag = 0xb6
	T1   Flag = 0xb5 // Timer 1 external count input.
	T0   Flag = 0xb4 // Timer 0 external count input.
	INT1 Flag = 0xb3
	INT0 Flag = 0xb2
	TXD  Flag = 0xb1
	RXD  Flag = 0xb0
)

// Locate returns the byte address and the architecture bit index
// (0 = most significant) the flag refers to.
func (f Flag) Locate() (addr uint8, n int) {
	if f < 0x80 {
		return 0x20 + uint8(f)>>3, 7 - int(f&7)
	}
	return uint8(f) &^ 7, 7 - int(f&7)
}

func (f Flag) String() string {
	if name, ok := flagNames[f]; ok {
		return name
	}
	addr, n := f.Locate()
	return fmt.Sprintf("%02X.%d", addr, 7-n)
}

var registerNames = map[int]string{
	P0: "P0", SP: "SP", DPL: "DPL", DPH: "DPH", PCON: "PCON",
	TCON: "TCON", TMOD: "TMOD", TL0: "TL0", TL1: "TL1", TH0: "TH0", TH1: "TH1",
	P1: "P1", SCON: "SCON", SBUF: "SBUF", P2: "P2", IE: "IE", P3: "P3",
	IP: "IP", PSW: "PSW", ACC: "A", B: "B",
}

var flagNames = map[Flag]string{
	CY: "C", AC: "AC", F0: "F0", RS1: "RS1", RS0: "RS0", OV: "OV", UD: "UD", P: "P",
	TF1: "TF1", TR1: "TR1", TF0: "TF0", TR0: "TR0", IE1: "IE1", IT1: "IT1", IE0: "IE0", IT0: "IT0",
	EA: "EA", ET2: "ET2", ES: "ES", ET1: "ET1", EX1: "EX1", ET0: "ET0", EX0: "EX0",
	PT2: "PT2", PS: "PS", PT1: "PT1", PX1: "PX1", PT0: "PT0", PX0: "PX0",
	RD: "RD", WR: "WR", T1: "T1", T0: "T0", INT1: "INT1", INT0: "INT0", TXD: "TXD", RXD: "RXD",
}

// RegisterIndex returns the address for the given special function register.
// Returns -1 if the name is not recognized.
func RegisterIndex(name string) int {
	name = strings.ToUpper(name)
	if name == "ACC" {
		return ACC
	}
	for addr, v := range registerNames {
		if v == name {
			return addr
		}
	}
	return -1
}

// RegisterName returns the name of the special function register at addr.
// Returns "" if the address holds no named register.
func RegisterName(addr int) string {
	return registerNames[addr]
}

// FlagIndex returns the flag with the given name.
// Returns false if the name is not recognized.
func FlagIndex(name string) (Flag, bool) {
	name = strings.ToUpper(name)
	if name == "CY" {
		return CY, true
	}
	for f, v := range flagNames {
		if v == name {
			return f, true
		}
	}
	return 0, false
}

// Flags returns all named flags, ordered by descending bit address.
func Flags() []Flag {
	out := make([]Flag, 0, len(flagNames))
	for i := 0xff; i >= 0x80; i-- {
		if _, ok := flagNames[Flag(i)]; ok {
			out = append(out, Flag(i))
		}
	}
	return out
}
