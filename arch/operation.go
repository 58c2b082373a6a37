package arch

import (
	"strings"

	"github.com/pkg/errors"
)

// Known decode failures.
var (
	ErrUndefined    = errors.New("undefined instruction")
	ErrOperandCount = errors.New("wrong operand count")
)

// Operation is one decoded instruction: an opcode plus the
// argument bytes that followed it in program memory.
type Operation struct {
	Opcode byte
	Args   []byte
}

// NewOperation creates an operation for the given opcode and argument bytes.
// The number of arguments must match the opcode's encoded size.
func NewOperation(opcode byte, args ...byte) (*Operation, error) {
	d, ok := Lookup(opcode)
	if !ok {
		return nil, errors.Wrapf(ErrUndefined, "opcode %02Xh", opcode)
	}
	if len(args) != d.Size-1 {
		return nil, errors.Wrapf(ErrOperandCount, "%s (%02Xh) takes %d argument bytes, have %d",
			d.Name, opcode, d.Size-1, len(args))
	}
	return &Operation{Opcode: opcode, Args: args}, nil
}

// Definition returns the static opcode definition.
// It panics if the opcode is undefined; NewOperation never yields one.
func (o *Operation) Definition() *Definition {
	d, ok := Lookup(o.Opcode)
	if !ok {
		panic(errors.Wrapf(ErrUndefined, "opcode %02Xh", o.Opcode))
	}
	return d
}

// Size returns the encoded length in bytes.
func (o *Operation) Size() int {
	return o.Definition().Size
}

// Cycles returns the number of machine cycles the instruction takes.
func (o *Operation) Cycles() int {
	return o.Definition().Cycles
}

// String returns the assembler form of the instruction, e.g. "LCALL ABCDh".
func (o *Operation) String() string {
	d := o.Definition()
	if len(d.Operands) == 0 {
		return d.Name
	}

	var sb strings.Builder
	sb.WriteString(d.Name)
	sb.WriteByte(' ')
	for i, op := range d.Operands {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(op.Format(o.Args))
	}
	return sb.String()
}
