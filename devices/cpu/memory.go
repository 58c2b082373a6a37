package cpu

import (
	"github.com/hexaflex/sim51/arch"
	"github.com/hexaflex/sim51/devices"
	"github.com/pkg/errors"
)

const (
	MemoryCapacity         = 0x100   // Internal data memory: RAM plus special function registers.
	ExternalMemoryCapacity = 0x10000 // External data memory, reached through MOVX.
	ProgramMemoryCapacity  = 0x10000 // Program memory, reached through fetch and MOVC.
)

// Memory defines the internal data memory. Addresses 0x00-0x7f hold
// the register banks, bit-addressable area and scratch RAM; addresses
// 0x80-0xff hold the special function registers.
//
// Every accessor returns a pointer into the same array, so a named
// register and its raw address always observe the same cell.
type Memory [MemoryCapacity]arch.Byte

var _ devices.Memory = &Memory{}

// Reset returns all cells to their power-on values.
func (m *Memory) Reset() {
	for i := range m {
		m[i] = 0
	}
	m[arch.SP] = 7
	m[arch.P0] = 0xff
	m[arch.P1] = 0xff
	m[arch.P2] = 0xff
	m[arch.P3] = 0xff
}

// Cell returns the cell at the given address.
func (m *Memory) Cell(addr uint8) *arch.Byte {
	return &m[addr]
}

// U8 returns the unsigned 8-bit value at the given address.
// It panics if addr is out of range; use Peek for unchecked input.
func (m *Memory) U8(addr int) int {
	return int(m[addr])
}

// SetU8 sets the 8-bit value at the given address.
// It panics if addr is out of range; use Poke for unchecked input.
func (m *Memory) SetU8(addr, value int) {
	m[addr].Set(value)
}

// Flag returns the state of the bit at the given bit address.
func (m *Memory) Flag(f arch.Flag) int {
	addr, n := f.Locate()
	return m[addr].Bit(n)
}

// SetFlag sets the bit at the given bit address.
func (m *Memory) SetFlag(f arch.Flag, v int) {
	addr, n := f.Locate()
	m[addr].SetBit(n, v)
}

// Peek returns the value at the given address.
func (m *Memory) Peek(addr int) (int, error) {
	if addr < 0 || addr >= MemoryCapacity {
		return 0, errors.Wrapf(ErrAddressRange, "internal address %d", addr)
	}
	return int(m[addr]), nil
}

// Poke sets the value at the given address.
func (m *Memory) Poke(addr, value int) error {
	if addr < 0 || addr >= MemoryCapacity {
		return errors.Wrapf(ErrAddressRange, "internal address %d", addr)
	}
	m[addr].Set(value)
	return nil
}

func (m *Memory) A() *arch.Byte    { return &m[arch.ACC] }
func (m *Memory) B() *arch.Byte    { return &m[arch.B] }
func (m *Memory) SP() *arch.Byte   { return &m[arch.SP] }
func (m *Memory) PSW() *arch.Byte  { return &m[arch.PSW] }
func (m *Memory) P0() *arch.Byte   { return &m[arch.P0] }
func (m *Memory) P1() *arch.Byte   { return &m[arch.P1] }
func (m *Memory) P2() *arch.Byte   { return &m[arch.P2] }
func (m *Memory) P3() *arch.Byte   { return &m[arch.P3] }
func (m *Memory) TCON() *arch.Byte { return &m[arch.TCON] }
func (m *Memory) TMOD() *arch.Byte { return &m[arch.TMOD] }
func (m *Memory) TL0() *arch.Byte  { return &m[arch.TL0] }
func (m *Memory) TL1() *arch.Byte  { return &m[arch.TL1] }
func (m *Memory) TH0() *arch.Byte  { return &m[arch.TH0] }
func (m *Memory) TH1() *arch.Byte  { return &m[arch.TH1] }
func (m *Memory) IE() *arch.Byte   { return &m[arch.IE] }
func (m *Memory) IP() *arch.Byte   { return &m[arch.IP] }
func (m *Memory) DPL() *arch.Byte  { return &m[arch.DPL] }
func (m *Memory) DPH() *arch.Byte  { return &m[arch.DPH] }

// RegisterBank returns the selected register bank (0-3).
func (m *Memory) RegisterBank() int {
	return 2*m.Flag(arch.RS1) + m.Flag(arch.RS0)
}

// SetRegisterBank selects register bank b.
func (m *Memory) SetRegisterBank(b int) {
	m.SetFlag(arch.RS1, b>>1)
	m.SetFlag(arch.RS0, b)
}

// R returns register Rn in the selected bank.
func (m *Memory) R(n int) *arch.Byte {
	return &m[8*m.RegisterBank()+n&7]
}

// Indirect returns the cell addressed by @Ri.
func (m *Memory) Indirect(i int) *arch.Byte {
	return &m[*m.R(i&1)]
}

// DPTR returns the data pointer, composed of DPH:DPL.
func (m *Memory) DPTR() arch.Word {
	return arch.MakeWord(m[arch.DPH], m[arch.DPL])
}

// SetDPTR sets the data pointer, modulo 65536.
func (m *Memory) SetDPTR(v int) {
	w := arch.NewWord(v)
	m[arch.DPH] = w.High()
	m[arch.DPL] = w.Low()
}

// ExternalMemory defines the 64 KiB external data memory.
type ExternalMemory []arch.Byte

// NewExternalMemory creates zeroed external memory.
func NewExternalMemory() ExternalMemory {
	return make(ExternalMemory, ExternalMemoryCapacity)
}

// Cell returns the cell at the given address.
func (m ExternalMemory) Cell(addr arch.Word) *arch.Byte {
	return &m[addr]
}

// Reset zeroes all cells.
func (m ExternalMemory) Reset() {
	for i := range m {
		m[i] = 0
	}
}

// Peek returns the value at the given address.
func (m ExternalMemory) Peek(addr int) (int, error) {
	if addr < 0 || addr >= len(m) {
		return 0, errors.Wrapf(ErrAddressRange, "external address %d", addr)
	}
	return int(m[addr]), nil
}

// Poke sets the value at the given address.
func (m ExternalMemory) Poke(addr, value int) error {
	if addr < 0 || addr >= len(m) {
		return errors.Wrapf(ErrAddressRange, "external address %d", addr)
	}
	m[addr].Set(value)
	return nil
}

// ProgramMemory defines the 64 KiB code memory.
type ProgramMemory []byte

// NewProgramMemory creates zeroed program memory.
func NewProgramMemory() ProgramMemory {
	return make(ProgramMemory, ProgramMemoryCapacity)
}

// U8 returns the byte at the given address.
func (m ProgramMemory) U8(addr arch.Word) byte {
	return m[addr]
}

// Reset zeroes all cells.
func (m ProgramMemory) Reset() {
	for i := range m {
		m[i] = 0
	}
}

// Write writes len(p) bytes from p into memory, starting at the given address.
// Returns ErrAddressRange if any byte would land outside of program memory;
// nothing is written in that case.
func (m ProgramMemory) Write(address int, p []byte) error {
	if address < 0 || address+len(p) > len(m) {
		return errors.Wrapf(ErrAddressRange, "write of %d bytes at %04Xh", len(p), address)
	}
	copy(m[address:], p)
	return nil
}

// Read reads len(p) bytes from memory into p, starting at the given address.
func (m ProgramMemory) Read(address int, p []byte) error {
	if address < 0 || address+len(p) > len(m) {
		return errors.Wrapf(ErrAddressRange, "read of %d bytes at %04Xh", len(p), address)
	}
	copy(p, m[address:])
	return nil
}
