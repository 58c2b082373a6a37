// Package arch defines the 8051 instruction set along with
// some related helper functions.
package arch

// Opcodes referenced by name outside of the table.
const (
	NOP      = 0x00
	LJMP     = 0x02
	LCALL    = 0x12
	RET      = 0x22
	RETI     = 0x32
	MOVDPTR  = 0x90
	Reserved = 0xa5 // Undefined instruction.
)

// Definition describes the static properties of one opcode.
type Definition struct {
	Name     string    // Instruction mnemonic, e.g. "MOV".
	Size     int       // Encoded length in bytes, opcode included.
	Cycles   int       // Machine cycles consumed.
	Operands []Operand // Operands in assembler order.
}

var table [256]*Definition

// Lookup returns the definition for the given opcode.
// Returns false if the opcode is undefined.
func Lookup(opcode byte) (*Definition, bool) {
	d := table[opcode]
	return d, d != nil
}

// Name returns the mnemonic for the given opcode.
// Returns false if the opcode is not recognized.
func Name(opcode byte) (string, bool) {
	if d := table[opcode]; d != nil {
		return d.Name, true
	}
	return "", false
}

// Size returns the encoded length of the given instruction in bytes.
// Returns -1 if the opcode is not recognized.
func Size(opcode byte) int {
	if d := table[opcode]; d != nil {
		return d.Size
	}
	return -1
}

// Cycles returns the number of machine cycles the given instruction takes.
// Returns -1 if the opcode is not recognized.
func Cycles(opcode byte) int {
	if d := table[opcode]; d != nil {
		return d.Cycles
	}
	return -1
}

func def(opcode int, name string, size, cycles int, operands ...Operand) {
	if table[opcode] != nil {
		panic("arch: duplicate opcode definition")
	}
	table[opcode] = &Definition{
		Name:     name,
		Size:     size,
		Cycles:   cycles,
		Operands: operands,
	}
}

func init() {
	A := lit("A")
	C := lit("C")

	def(0x00, "NOP", 1, 1)
	def(0x02, "LJMP", 3, 2, long(0))
	def(0x03, "RR", 1, 1, A)
	def(0x10, "JBC", 3, 2, bit(0), rel(1))
	def(0x12, "LCALL", 3, 2, long(0))
	def(0x13, "RRC", 1, 1, A)
	def(0x20, "JB", 3, 2, bit(0), rel(1))
	def(0x22, "RET", 1, 2)
	def(0x23, "RL", 1, 1, A)
	def(0x30, "JNB", 3, 2, bit(0), rel(1))
	def(0x32, "RETI", 1, 2)
	def(0x33, "RLC", 1, 1, A)
	def(0x40, "JC", 2, 2, rel(0))
	def(0x50, "JNC", 2, 2, rel(0))
	def(0x60, "JZ", 2, 2, rel(0))
	def(0x70, "JNZ", 2, 2, rel(0))
	def(0x72, "ORL", 2, 2, C, bit(0))
	def(0x73, "JMP", 1, 2, lit("@A+DPTR"))
	def(0x80, "SJMP", 2, 2, rel(0))
	def(0x82, "ANL", 2, 2, C, bit(0))
	def(0x83, "MOVC", 1, 2, A, lit("@A+PC"))
	def(0x84, "DIV", 1, 4, lit("AB"))
	def(0x85, "MOV", 3, 2, dir(1), dir(0))
	def(0x90, "MOV", 3, 2, lit("DPTR"), imm16(0))
	def(0x92, "MOV", 2, 2, bit(0), C)
	def(0x93, "MOVC", 1, 2, A, lit("@A+DPTR"))
	def(0xa0, "ORL", 2, 2, C, notbit(0))
	def(0xa2, "MOV", 2, 1, C, bit(0))
	def(0xa3, "INC", 1, 2, lit("DPTR"))
	def(0xa4, "MUL", 1, 4, lit("AB"))
	def(0xb0, "ANL", 2, 2, C, notbit(0))
	def(0xb2, "CPL", 2, 1, bit(0))
	def(0xb3, "CPL", 1, 1, C)
	def(0xb4, "CJNE", 3, 2, A, imm(0), rel(1))
	def(0xb5, "CJNE", 3, 2, A, dir(0), rel(1))
	def(0xc0, "PUSH", 2, 2, dir(0))
	def(0xc2, "CLR", 2, 1, bit(0))
	def(0xc3, "CLR", 1, 1, C)
	def(0xc4, "SWAP", 1, 1, A)
	def(0xc5, "XCH", 2, 1, A, dir(0))
	def(0xd0, "POP", 2, 2, dir(0))
	def(0xd2, "SETB", 2, 1, bit(0))
	def(0xd3, "SETB", 1, 1, C)
	def(0xd4, "DA", 1, 1, A)
	def(0xd5, "DJNZ", 3, 2, dir(0), rel(1))
	def(0xe0, "MOVX", 1, 2, A, lit("@DPTR"))
	def(0xe4, "CLR", 1, 1, A)
	def(0xe5, "MOV", 2, 1, A, dir(0))
	def(0xf0, "MOVX", 1, 2, lit("@DPTR"), A)
	def(0xf4, "CPL", 1, 1, A)
	def(0xf5, "MOV", 2, 1, dir(0), A)

	// Accumulator, direct, immediate and direct,immediate forms
	// of the arithmetic and logic families.
	def(0x04, "INC", 1, 1, A)
	def(0x05, "INC", 2, 1, dir(0))
	def(0x14, "DEC", 1, 1, A)
	def(0x15, "DEC", 2, 1, dir(0))
	for _, f := range []struct {
		base int
		name string
	}{
		{0x20, "ADD"},
		{0x30, "ADDC"},
		{0x40, "ORL"},
		{0x50, "ANL"},
		{0x60, "XRL"},
		{0x90, "SUBB"},
	} {
		def(f.base+0x04, f.name, 2, 1, A, imm(0))
		def(f.base+0x05, f.name, 2, 1, A, dir(0))
	}
	for _, f := range []struct {
		base int
		name string
	}{
		{0x40, "ORL"},
		{0x50, "ANL"},
		{0x60, "XRL"},
	} {
		def(f.base+0x02, f.name, 2, 1, dir(0), A)
		def(f.base+0x03, f.name, 3, 2, dir(0), imm(1))
	}
	def(0x74, "MOV", 2, 1, A, imm(0))
	def(0x75, "MOV", 3, 2, dir(0), imm(1))

	// Absolute jumps and calls: the top three address bits live in the opcode.
	for p := 0; p < 8; p++ {
		def(p<<5|0x01, "AJMP", 2, 2, page(0))
		def(p<<5|0x11, "ACALL", 2, 2, page(0))
	}

	// @R0/@R1 forms.
	for i := 0; i < 2; i++ {
		ri := indirect(i)
		def(0x06+i, "INC", 1, 1, ri)
		def(0x16+i, "DEC", 1, 1, ri)
		def(0x26+i, "ADD", 1, 1, A, ri)
		def(0x36+i, "ADDC", 1, 1, A, ri)
		def(0x46+i, "ORL", 1, 1, A, ri)
		def(0x56+i, "ANL", 1, 1, A, ri)
		def(0x66+i, "XRL", 1, 1, A, ri)
		def(0x76+i, "MOV", 2, 1, ri, imm(0))
		def(0x86+i, "MOV", 2, 2, dir(0), ri)
		def(0x96+i, "SUBB", 1, 1, A, ri)
		def(0xa6+i, "MOV", 2, 2, ri, dir(0))
		def(0xb6+i, "CJNE", 3, 2, ri, imm(0), rel(1))
		def(0xc6+i, "XCH", 1, 1, A, ri)
		def(0xd6+i, "XCHD", 1, 1, A, ri)
		def(0xe2+i, "MOVX", 1, 2, A, ri)
		def(0xe6+i, "MOV", 1, 1, A, ri)
		def(0xf2+i, "MOVX", 1, 2, ri, A)
		def(0xf6+i, "MOV", 1, 1, ri, A)
	}

	// R0-R7 forms.
	for n := 0; n < 8; n++ {
		rn := reg(n)
		def(0x08+n, "INC", 1, 1, rn)
		def(0x18+n, "DEC", 1, 1, rn)
		def(0x28+n, "ADD", 1, 1, A, rn)
		def(0x38+n, "ADDC", 1, 1, A, rn)
		def(0x48+n, "ORL", 1, 1, A, rn)
		def(0x58+n, "ANL", 1, 1, A, rn)
		def(0x68+n, "XRL", 1, 1, A, rn)
		def(0x78+n, "MOV", 2, 1, rn, imm(0))
		def(0x88+n, "MOV", 2, 2, dir(0), rn)
		def(0x98+n, "SUBB", 1, 1, A, rn)
		def(0xa8+n, "MOV", 2, 2, rn, dir(0))
		def(0xb8+n, "CJNE", 3, 2, rn, imm(0), rel(1))
		def(0xc8+n, "XCH", 1, 1, A, rn)
		def(0xd8+n, "DJNZ", 2, 2, rn, rel(0))
		def(0xe8+n, "MOV", 1, 1, A, rn)
		def(0xf8+n, "MOV", 1, 1, rn, A)
	}
}
