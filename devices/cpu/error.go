package cpu

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrAddressRange is returned for memory accesses outside of a bank.
var ErrAddressRange = errors.New("address out of range")

// Error defines a runtime error.
type Error struct {
	*Instruction
	Err error
}

// NewError creates a new error for the given instruction.
func NewError(instr *Instruction, err error) *Error {
	return &Error{
		Instruction: instr,
		Err:         err,
	}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%04X: %v", e.IP, e.Err)
}

// Cause returns the underlying error.
func (e *Error) Cause() error  { return e.Err }
func (e *Error) Unwrap() error { return e.Err }
