package devices

import "github.com/hexaflex/sim51/arch"

// Memory defines the internal data memory as seen by a peripheral.
type Memory interface {
	// U8 defines the unsigned 8-bit value at the given address.
	U8(addr int) int
	SetU8(addr, value int)

	// Flag defines the state (0 or 1) of the bit at the given bit address.
	Flag(f arch.Flag) int
	SetFlag(f arch.Flag, v int)
}
