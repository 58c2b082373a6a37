package cpu

import (
	"github.com/hexaflex/sim51/arch"
	"github.com/pkg/errors"
)

// Instruction defines decoded instruction data.
type Instruction struct {
	IP int // Instruction address.
	arch.Operation
}

// Decode decodes the instruction at pc from the given program memory and
// advances pc past it. Operand bytes wrap around the end of program memory.
// An undefined opcode leaves pc untouched.
func (i *Instruction) Decode(rom ProgramMemory, pc *arch.Word) error {
	i.IP = pc.Int()
	i.Opcode = rom.U8(*pc)
	i.Args = nil

	size := arch.Size(i.Opcode)
	if size < 0 {
		failed := *i
		return NewError(&failed, errors.Wrapf(arch.ErrUndefined, "opcode %02Xh", i.Opcode))
	}

	if size > 1 {
		i.Args = make([]byte, size-1)
		for j := range i.Args {
			i.Args[j] = rom.U8(pc.Add(j + 1))
		}
	}

	*pc = pc.Add(size)
	return nil
}
