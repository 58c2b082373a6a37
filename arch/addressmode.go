package arch

import "fmt"

// AddressMode defines how an instruction operand is encoded and rendered.
type AddressMode byte

// Known address modes.
const (
	Implied     AddressMode = iota // Fixed register or literal: A, @R0, DPTR, C, AB.
	Direct                         // x = mem[123]
	Immediate                      // x = #123
	Immediate16                    // x = #1234, two bytes, high first
	BitAddr                        // x = bit 96h
	NotBit                         // x = /bit 96h
	Relative                       // signed 8-bit jump offset
	Page                           // 11-bit address within the current 2K page
	Long                           // 16-bit code address, high first
)

// Operand describes one operand of an instruction's assembler form.
type Operand struct {
	Mode AddressMode // How the operand is rendered.
	Arg  int         // Index of the first argument byte the operand reads.
	Text string      // Literal text for Implied operands.
}

// Format renders the operand using the given instruction argument bytes.
func (o Operand) Format(args []byte) string {
	switch o.Mode {
	case Implied:
		return o.Text
	case Immediate:
		return fmt.Sprintf("#%d", args[o.Arg])
	case Immediate16:
		return fmt.Sprintf("#%d", int(args[o.Arg])<<8|int(args[o.Arg+1]))
	case NotBit:
		return fmt.Sprintf("/%Xh", args[o.Arg])
	case Long:
		return fmt.Sprintf("%Xh", int(args[o.Arg])<<8|int(args[o.Arg+1]))
	default:
		return fmt.Sprintf("%Xh", args[o.Arg])
	}
}

func lit(text string) Operand { return Operand{Mode: Implied, Text: text} }
func dir(arg int) Operand     { return Operand{Mode: Direct, Arg: arg} }
func imm(arg int) Operand     { return Operand{Mode: Immediate, Arg: arg} }
func imm16(arg int) Operand   { return Operand{Mode: Immediate16, Arg: arg} }
func bit(arg int) Operand     { return Operand{Mode: BitAddr, Arg: arg} }
func notbit(arg int) Operand  { return Operand{Mode: NotBit, Arg: arg} }
func rel(arg int) Operand     { return Operand{Mode: Relative, Arg: arg} }
func page(arg int) Operand    { return Operand{Mode: Page, Arg: arg} }
func long(arg int) Operand    { return Operand{Mode: Long, Arg: arg} }
func reg(n int) Operand       { return lit(fmt.Sprintf("R%d", n)) }
func indirect(n int) Operand  { return lit(fmt.Sprintf("@R%d", n)) }
