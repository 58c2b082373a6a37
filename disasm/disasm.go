// Package disasm turns a HEX program image into a listing of
// decoded instructions.
package disasm

import (
	"fmt"

	"github.com/hexaflex/sim51/arch"
	"github.com/hexaflex/sim51/ihex"
	"github.com/pkg/errors"
)

// ErrTruncated is returned when the image ends in the middle of an instruction.
var ErrTruncated = errors.New("truncated instruction")

// Entry defines one decoded instruction.
type Entry struct {
	Address  int    // Address of the opcode byte.
	Size     int    // Encoded length in bytes.
	Opcode   byte   // Instruction opcode.
	Args     []byte // Argument bytes, in encoding order.
	Mnemonic string // Assembler form, e.g. "LJMP 100h".
}

func (e Entry) String() string {
	return fmt.Sprintf("%04X  %-8s  %s", e.Address, hexBytes(e.Opcode, e.Args), e.Mnemonic)
}

// Disassemble walks the data bytes of f opcode by opcode. Each entry
// takes its address from the opcode byte's record, so the listing
// follows address jumps between records, and arguments continued in
// the next record are joined with their opcode.
func Disassemble(f *ihex.File) ([]Entry, error) {
	stream := f.Bytes()
	var out []Entry

	for i := 0; i < len(stream); {
		opcode := stream[i].Value
		addr := stream[i].Address

		size := arch.Size(opcode)
		if size < 0 {
			return out, errors.Wrapf(arch.ErrUndefined, "%04Xh: opcode %02Xh", addr, opcode)
		}

		if i+size > len(stream) {
			return out, errors.Wrapf(ErrTruncated, "%04Xh: %s needs %d bytes, %d left",
				addr, mnemonic(opcode), size, len(stream)-i)
		}

		args := make([]byte, size-1)
		for j := range args {
			args[j] = stream[i+1+j].Value
		}

		op, err := arch.NewOperation(opcode, args...)
		if err != nil {
			return out, errors.Wrapf(err, "%04Xh", addr)
		}

		out = append(out, Entry{
			Address:  addr,
			Size:     size,
			Opcode:   opcode,
			Args:     args,
			Mnemonic: op.String(),
		})

		i += size
	}

	return out, nil
}

func mnemonic(opcode byte) string {
	name, _ := arch.Name(opcode)
	return name
}

func hexBytes(opcode byte, args []byte) string {
	s := fmt.Sprintf("%02X", opcode)
	for _, v := range args {
		s += fmt.Sprintf(" %02X", v)
	}
	return s
}
