package cpu

import (
	"io"

	"github.com/hexaflex/sim51/arch"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Snapshot holds the observable state of the microcontroller:
// every named register and flag, the register bank and the
// interrupt handler chain.
type Snapshot struct {
	PC         int            `yaml:"pc"`
	Next       string         `yaml:"next,omitempty"` // Instruction at PC.
	Cycles     uint64         `yaml:"cycles"`
	Bank       int            `yaml:"bank"`
	R          []int          `yaml:"r,flow"`
	DPTR       int            `yaml:"dptr"`
	Registers  map[string]int `yaml:"registers"`
	Flags      map[string]int `yaml:"flags"`
	Interrupts []int          `yaml:"interrupts,flow"`
}

// Snapshot captures the current state.
func (c *CPU) Snapshot() *Snapshot {
	mem := &c.ram
	s := &Snapshot{
		PC:         c.pc.Int(),
		Cycles:     c.cycles,
		Bank:       mem.RegisterBank(),
		R:          make([]int, 8),
		DPTR:       mem.DPTR().Int(),
		Registers:  make(map[string]int),
		Flags:      make(map[string]int),
		Interrupts: c.ints.Levels(),
	}

	var instr Instruction
	pc := c.pc
	if instr.Decode(c.rom, &pc) == nil {
		s.Next = instr.String()
	}

	for i := range s.R {
		s.R[i] = mem.R(i).Int()
	}

	for addr := 0x80; addr < MemoryCapacity; addr++ {
		if name := arch.RegisterName(addr); name != "" {
			s.Registers[name] = mem.U8(addr)
		}
	}

	for _, f := range arch.Flags() {
		s.Flags[f.String()] = mem.Flag(f)
	}

	return s
}

// WriteYAML encodes the snapshot as a YAML document.
func (s *Snapshot) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(s); err != nil {
		return errors.Wrap(err, "encode snapshot")
	}
	return enc.Close()
}
