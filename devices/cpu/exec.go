package cpu

import "github.com/hexaflex/sim51/arch"

// handler executes one opcode. The program counter already points
// past the instruction.
type handler func(c *CPU, opcode byte, args []byte)

// handlers maps every defined opcode to its implementation.
var handlers [256]handler

// family registers h for the opcodes base+lo through base+hi.
func family(base, lo, hi byte, h handler) {
	for i := lo; i <= hi; i++ {
		handlers[base+i] = h
	}
}

func init() {
	handlers[0x00] = opNOP

	// Absolute jumps and calls within the current 2K page.
	for op := 0x01; op < 0x100; op += 0x20 {
		handlers[op] = opAJMP
		handlers[op+0x10] = opACALL
	}

	handlers[0x02] = opLJMP
	handlers[0x12] = opLCALL
	handlers[0x22] = opRET
	handlers[0x32] = opRETI
	handlers[0x73] = opJMPIndirect
	handlers[0x80] = opSJMP

	handlers[0x10] = opJBC
	handlers[0x20] = opJB
	handlers[0x30] = opJNB
	handlers[0x40] = opJC
	handlers[0x50] = opJNC
	handlers[0x60] = opJZ
	handlers[0x70] = opJNZ
	handlers[0xb4] = opCJNEImmediate
	handlers[0xb5] = opCJNEDirect
	family(0xb0, 0x6, 0xf, opCJNE)
	handlers[0xd5] = opDJNZ
	family(0xd0, 0x8, 0xf, opDJNZ)

	handlers[0x03] = opRR
	handlers[0x13] = opRRC
	handlers[0x23] = opRL
	handlers[0x33] = opRLC
	handlers[0xc4] = opSWAP
	handlers[0xd4] = opDA
	handlers[0xe4] = opCLRA
	handlers[0xf4] = opCPLA

	handlers[0x04] = opINCA
	family(0x00, 0x5, 0xf, opINC)
	handlers[0x14] = opDECA
	family(0x10, 0x5, 0xf, opDEC)
	handlers[0xa3] = opINCDPTR

	family(0x20, 0x4, 0xf, opADD)
	family(0x30, 0x4, 0xf, opADDC)
	family(0x90, 0x4, 0xf, opSUBB)
	handlers[0xa4] = opMUL
	handlers[0x84] = opDIV

	family(0x40, 0x4, 0xf, opORL)
	family(0x50, 0x4, 0xf, opANL)
	family(0x60, 0x4, 0xf, opXRL)
	handlers[0x42] = logicDirect(orl, false)
	handlers[0x43] = logicDirect(orl, true)
	handlers[0x52] = logicDirect(anl, false)
	handlers[0x53] = logicDirect(anl, true)
	handlers[0x62] = logicDirect(xrl, false)
	handlers[0x63] = logicDirect(xrl, true)

	handlers[0x72] = opORLC
	handlers[0xa0] = opORLCNot
	handlers[0x82] = opANLC
	handlers[0xb0] = opANLCNot
	handlers[0x92] = opMOVBitC
	handlers[0xa2] = opMOVCBit
	handlers[0xb2] = opCPLBit
	handlers[0xb3] = opCPLC
	handlers[0xc2] = opCLRBit
	handlers[0xc3] = opCLRC
	handlers[0xd2] = opSETBBit
	handlers[0xd3] = opSETBC

	handlers[0x74] = opMOVAImmediate
	family(0x70, 0x5, 0xf, opMOVImmediate)
	handlers[0x85] = opMOVDirectDirect
	family(0x80, 0x6, 0xf, opMOVToDirect)
	family(0xa0, 0x6, 0xf, opMOVFromDirect)
	family(0xe0, 0x5, 0xf, opMOVToA)
	family(0xf0, 0x5, 0xf, opMOVFromA)
	handlers[0x90] = opMOVDPTR

	handlers[0x83] = opMOVCPC
	handlers[0x93] = opMOVCDPTR
	handlers[0xe0] = opMOVXReadDPTR
	handlers[0xe2] = opMOVXRead
	handlers[0xe3] = opMOVXRead
	handlers[0xf0] = opMOVXWriteDPTR
	handlers[0xf2] = opMOVXWrite
	handlers[0xf3] = opMOVXWrite

	handlers[0xc0] = opPUSH
	handlers[0xd0] = opPOP
	family(0xc0, 0x5, 0xf, opXCH)
	handlers[0xd6] = opXCHD
	handlers[0xd7] = opXCHD
}

// operand resolves the operand selected by the low opcode bits:
// 5 is a direct address taken from args, 6-7 is @R0/@R1 and 8-f is R0-R7.
// It returns the cell and the argument bytes not consumed.
func (c *CPU) operand(opcode byte, args []byte) (*arch.Byte, []byte) {
	switch n := opcode & 0xf; {
	case n == 5:
		return c.ram.Cell(args[0]), args[1:]
	case n < 8:
		return c.ram.Indirect(int(n & 1)), args
	default:
		return c.ram.R(int(n & 7)), args
	}
}

// source returns the value of the second operand of the accumulator
// arithmetic and logic families. Low opcode bits 4 select an immediate.
func (c *CPU) source(opcode byte, args []byte) int {
	if opcode&0xf == 4 {
		return int(args[0])
	}
	cell, _ := c.operand(opcode, args)
	return cell.Int()
}

// jump adds a signed relative offset to the program counter.
func (c *CPU) jump(rel byte) {
	c.pc = c.pc.Add(int(int8(rel)))
}

func (c *CPU) flag(f byte) int       { return c.ram.Flag(arch.Flag(f)) }
func (c *CPU) setFlag(f byte, v int) { c.ram.SetFlag(arch.Flag(f), v) }
func (c *CPU) carry() int            { return c.ram.Flag(arch.CY) }
func (c *CPU) setCarry(v int)        { c.ram.SetFlag(arch.CY, v) }

func bit(b bool) int {
	if b {
		return 1
	}
	return 0
}

func opNOP(*CPU, byte, []byte) {}

// Program branching

func opAJMP(c *CPU, opcode byte, args []byte) {
	c.pc.Set(c.page(opcode, args))
}

func opACALL(c *CPU, opcode byte, args []byte) {
	c.call(c.page(opcode, args))
}

// page returns the target of AJMP/ACALL: the upper 5 bits of the
// program counter, the upper 3 opcode bits and the argument byte.
func (c *CPU) page(opcode byte, args []byte) int {
	return c.pc.Int()&0xf800 | int(opcode>>5)<<8 | int(args[0])
}

func opLJMP(c *CPU, _ byte, args []byte) {
	c.pc = arch.MakeWord(arch.Byte(args[0]), arch.Byte(args[1]))
}

func opLCALL(c *CPU, _ byte, args []byte) {
	c.call(int(args[0])<<8 | int(args[1]))
}

func opRET(c *CPU, _ byte, _ []byte) {
	c.ret()
}

func opRETI(c *CPU, _ byte, _ []byte) {
	c.ret()
	level := c.ints.Pop()
	c.log.Trace("interrupt return", "level", level, "pc", c.pc)
}

func opJMPIndirect(c *CPU, _ byte, _ []byte) {
	c.pc = c.ram.DPTR().Add(c.ram.A().Int())
}

func opSJMP(c *CPU, _ byte, args []byte) {
	c.jump(args[0])
}

func opJBC(c *CPU, _ byte, args []byte) {
	if c.flag(args[0]) == 1 {
		c.setFlag(args[0], 0)
		c.jump(args[1])
	}
}

func opJB(c *CPU, _ byte, args []byte) {
	if c.flag(args[0]) == 1 {
		c.jump(args[1])
	}
}

func opJNB(c *CPU, _ byte, args []byte) {
	if c.flag(args[0]) == 0 {
		c.jump(args[1])
	}
}

func opJC(c *CPU, _ byte, args []byte) {
	if c.carry() == 1 {
		c.jump(args[0])
	}
}

func opJNC(c *CPU, _ byte, args []byte) {
	if c.carry() == 0 {
		c.jump(args[0])
	}
}

func opJZ(c *CPU, _ byte, args []byte) {
	if c.ram.A().Int() == 0 {
		c.jump(args[0])
	}
}

func opJNZ(c *CPU, _ byte, args []byte) {
	if c.ram.A().Int() != 0 {
		c.jump(args[0])
	}
}

// compare implements CJNE: C is set when left < right, and the jump
// is taken when they differ.
func (c *CPU) compare(left, right int, rel byte) {
	c.setCarry(bit(left < right))
	if left != right {
		c.jump(rel)
	}
}

func opCJNEImmediate(c *CPU, _ byte, args []byte) {
	c.compare(c.ram.A().Int(), int(args[0]), args[1])
}

func opCJNEDirect(c *CPU, _ byte, args []byte) {
	c.compare(c.ram.A().Int(), c.ram.Cell(args[0]).Int(), args[1])
}

func opCJNE(c *CPU, opcode byte, args []byte) {
	cell, rest := c.operand(opcode, args)
	c.compare(cell.Int(), int(rest[0]), rest[1])
}

func opDJNZ(c *CPU, opcode byte, args []byte) {
	cell, rest := c.operand(opcode, args)
	*cell = cell.Sub(1)
	if *cell != 0 {
		c.jump(rest[0])
	}
}

// Accumulator rotation and adjustment

func opRR(c *CPU, _ byte, _ []byte) { c.ram.A().RotateRight() }
func opRL(c *CPU, _ byte, _ []byte) { c.ram.A().RotateLeft() }

func opRRC(c *CPU, _ byte, _ []byte) {
	a := c.ram.A()
	cy := a.Bit(7)
	a.Set(a.Int()>>1 | c.carry()<<7)
	c.setCarry(cy)
}

func opRLC(c *CPU, _ byte, _ []byte) {
	a := c.ram.A()
	cy := a.Bit(0)
	a.Set(a.Int()<<1 | c.carry())
	c.setCarry(cy)
}

func opSWAP(c *CPU, _ byte, _ []byte) {
	a := c.ram.A()
	a.Set(a.Int()<<4 | a.Int()>>4)
}

// opDA adjusts the accumulator after a BCD addition.
// The carry flag is set, never cleared.
func opDA(c *CPU, _ byte, _ []byte) {
	a := c.ram.A().Int()

	if a&0xf > 9 || c.ram.Flag(arch.AC) == 1 {
		a += 0x06
		if a > 0xff {
			c.setCarry(1)
		}
	}

	if a>>4 > 9 || c.carry() == 1 {
		a += 0x60
		c.setCarry(1)
	}

	c.ram.A().Set(a)
}

func opCLRA(c *CPU, _ byte, _ []byte) { c.ram.A().Set(0) }
func opCPLA(c *CPU, _ byte, _ []byte) { c.ram.A().Set(^c.ram.A().Int()) }

// Increment and decrement

func opINCA(c *CPU, _ byte, _ []byte) { *c.ram.A() = c.ram.A().Add(1) }
func opDECA(c *CPU, _ byte, _ []byte) { *c.ram.A() = c.ram.A().Sub(1) }

func opINC(c *CPU, opcode byte, args []byte) {
	cell, _ := c.operand(opcode, args)
	*cell = cell.Add(1)
}

func opDEC(c *CPU, opcode byte, args []byte) {
	cell, _ := c.operand(opcode, args)
	*cell = cell.Sub(1)
}

func opINCDPTR(c *CPU, _ byte, _ []byte) {
	c.ram.SetDPTR(c.ram.DPTR().Int() + 1)
}

// Arithmetic

// add adds v and carry to the accumulator and updates CY, AC and OV.
func (c *CPU) add(v, carry int) {
	a := c.ram.A()
	x := a.Int()

	sum := x + v + carry
	signed := int(int8(x)) + int(int8(v)) + carry

	c.setCarry(bit(sum > 0xff))
	c.ram.SetFlag(arch.AC, bit(x&0xf+v&0xf+carry > 0xf))
	c.ram.SetFlag(arch.OV, bit(signed < -128 || signed > 127))
	a.Set(sum)
}

// subb subtracts v and the borrow in CY from the accumulator and
// updates CY, AC and OV.
func (c *CPU) subb(v int) {
	a := c.ram.A()
	x := a.Int()
	borrow := c.carry()

	diff := x - v - borrow
	signed := int(int8(x)) - int(int8(v)) - borrow

	c.setCarry(bit(diff < 0))
	c.ram.SetFlag(arch.AC, bit(x&0xf-v&0xf-borrow < 0))
	c.ram.SetFlag(arch.OV, bit(signed < -128 || signed > 127))
	a.Set(diff)
}

func opADD(c *CPU, opcode byte, args []byte)  { c.add(c.source(opcode, args), 0) }
func opADDC(c *CPU, opcode byte, args []byte) { c.add(c.source(opcode, args), c.carry()) }
func opSUBB(c *CPU, opcode byte, args []byte) { c.subb(c.source(opcode, args)) }

func opMUL(c *CPU, _ byte, _ []byte) {
	a, b := c.ram.A(), c.ram.B()
	hi, lo := a.Mul(*b)
	*a, *b = lo, hi
	c.setCarry(0)
	c.ram.SetFlag(arch.OV, bit(hi != 0))
}

// opDIV divides A by B. Division by zero sets OV and leaves A and B untouched.
func opDIV(c *CPU, _ byte, _ []byte) {
	a, b := c.ram.A(), c.ram.B()
	c.setCarry(0)

	if *b == 0 {
		c.ram.SetFlag(arch.OV, 1)
		return
	}

	*a, *b = a.DivMod(*b)
	c.ram.SetFlag(arch.OV, 0)
}

// Logic

func orl(x, y arch.Byte) int { return x.Or(y) }
func anl(x, y arch.Byte) int { return x.And(y) }
func xrl(x, y arch.Byte) int { return x.Xor(y) }

func opORL(c *CPU, opcode byte, args []byte) { logicA(c, orl, opcode, args) }
func opANL(c *CPU, opcode byte, args []byte) { logicA(c, anl, opcode, args) }
func opXRL(c *CPU, opcode byte, args []byte) { logicA(c, xrl, opcode, args) }

// logicA applies fn to the accumulator and the family operand.
func logicA(c *CPU, fn func(x, y arch.Byte) int, opcode byte, args []byte) {
	a := c.ram.A()
	a.Set(fn(*a, arch.NewByte(c.source(opcode, args))))
}

// logicDirect returns a handler applying fn to a direct address and
// either the accumulator or an immediate.
func logicDirect(fn func(x, y arch.Byte) int, immediate bool) handler {
	return func(c *CPU, _ byte, args []byte) {
		cell := c.ram.Cell(args[0])
		v := *c.ram.A()
		if immediate {
			v = arch.Byte(args[1])
		}
		cell.Set(fn(*cell, v))
	}
}

// Boolean

func opORLC(c *CPU, _ byte, args []byte)    { c.setCarry(c.carry() | c.flag(args[0])) }
func opORLCNot(c *CPU, _ byte, args []byte) { c.setCarry(c.carry() | (c.flag(args[0]) ^ 1)) }
func opANLC(c *CPU, _ byte, args []byte)    { c.setCarry(c.carry() & c.flag(args[0])) }
func opANLCNot(c *CPU, _ byte, args []byte) { c.setCarry(c.carry() & (c.flag(args[0]) ^ 1)) }
func opMOVBitC(c *CPU, _ byte, args []byte) { c.setFlag(args[0], c.carry()) }
func opMOVCBit(c *CPU, _ byte, args []byte) { c.setCarry(c.flag(args[0])) }
func opCPLBit(c *CPU, _ byte, args []byte)  { c.setFlag(args[0], c.flag(args[0])^1) }
func opCLRBit(c *CPU, _ byte, args []byte)  { c.setFlag(args[0], 0) }
func opSETBBit(c *CPU, _ byte, args []byte) { c.setFlag(args[0], 1) }
func opCPLC(c *CPU, _ byte, _ []byte)       { c.setCarry(c.carry() ^ 1) }
func opCLRC(c *CPU, _ byte, _ []byte)       { c.setCarry(0) }
func opSETBC(c *CPU, _ byte, _ []byte)      { c.setCarry(1) }

// Data transfer

func opMOVAImmediate(c *CPU, _ byte, args []byte) {
	c.ram.A().Set(int(args[0]))
}

func opMOVImmediate(c *CPU, opcode byte, args []byte) {
	cell, rest := c.operand(opcode, args)
	cell.Set(int(rest[0]))
}

// opMOVDirectDirect encodes its source address before its destination.
func opMOVDirectDirect(c *CPU, _ byte, args []byte) {
	*c.ram.Cell(args[1]) = *c.ram.Cell(args[0])
}

func opMOVToDirect(c *CPU, opcode byte, args []byte) {
	cell, rest := c.operand(opcode, args)
	*c.ram.Cell(rest[0]) = *cell
}

func opMOVFromDirect(c *CPU, opcode byte, args []byte) {
	cell, rest := c.operand(opcode, args)
	*cell = *c.ram.Cell(rest[0])
}

func opMOVToA(c *CPU, opcode byte, args []byte) {
	cell, _ := c.operand(opcode, args)
	*c.ram.A() = *cell
}

func opMOVFromA(c *CPU, opcode byte, args []byte) {
	cell, _ := c.operand(opcode, args)
	*cell = *c.ram.A()
}

func opMOVDPTR(c *CPU, _ byte, args []byte) {
	c.ram.SetDPTR(int(args[0])<<8 | int(args[1]))
}

// opMOVCPC reads code memory relative to the address of the next instruction.
func opMOVCPC(c *CPU, _ byte, _ []byte) {
	a := c.ram.A()
	a.Set(int(c.rom.U8(c.pc.Add(a.Int()))))
}

func opMOVCDPTR(c *CPU, _ byte, _ []byte) {
	a := c.ram.A()
	a.Set(int(c.rom.U8(c.ram.DPTR().Add(a.Int()))))
}

// external returns the MOVX address formed by P2 and @Ri.
func (c *CPU) external(opcode byte) arch.Word {
	return arch.MakeWord(*c.ram.P2(), *c.ram.R(int(opcode & 1)))
}

func opMOVXReadDPTR(c *CPU, _ byte, _ []byte)  { *c.ram.A() = *c.xram.Cell(c.ram.DPTR()) }
func opMOVXWriteDPTR(c *CPU, _ byte, _ []byte) { *c.xram.Cell(c.ram.DPTR()) = *c.ram.A() }
func opMOVXRead(c *CPU, opcode byte, _ []byte) { *c.ram.A() = *c.xram.Cell(c.external(opcode)) }
func opMOVXWrite(c *CPU, opcode byte, _ []byte) {
	*c.xram.Cell(c.external(opcode)) = *c.ram.A()
}

func opPUSH(c *CPU, _ byte, args []byte) {
	c.push(*c.ram.Cell(args[0]))
}

func opPOP(c *CPU, _ byte, args []byte) {
	*c.ram.Cell(args[0]) = c.pop()
}

func opXCH(c *CPU, opcode byte, args []byte) {
	a := c.ram.A()
	cell, _ := c.operand(opcode, args)
	*a, *cell = *cell, *a
}

// opXCHD exchanges the low nibbles of A and @Ri.
func opXCHD(c *CPU, opcode byte, _ []byte) {
	a := c.ram.A()
	cell := c.ram.Indirect(int(opcode & 1))
	x, y := a.Int(), cell.Int()
	a.Set(x&0xf0 | y&0x0f)
	cell.Set(y&0xf0 | x&0x0f)
}
