package devices

import "fmt"

// ID identifies an on-chip peripheral.
// The upper 16 bits hold the core family, the lower 16 bits the
// unit number within that family.
type ID uint32

// Family shared by every device in this module.
const MCS51 = 0x8051

// NewID creates a new id with the given components.
func NewID(family, unit int) ID {
	return ID(family&0xffff)<<16 | ID(unit&0xffff)
}

// Family returns the core family component of the ID.
func (id ID) Family() int {
	return int(id>>16) & 0xffff
}

// Unit returns the unit number component of the ID.
func (id ID) Unit() int {
	return int(id) & 0xffff
}

func (id ID) String() string {
	return fmt.Sprintf("%04x:%04x", id.Family(), id.Unit())
}
