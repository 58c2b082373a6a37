// Package cpu implements an MCS-51 microcontroller core: program,
// internal and external data memory, the instruction set, interrupt
// arbitration and the on-chip timers.
package cpu

import (
	"io"

	"github.com/hashicorp/go-hclog"
	"github.com/hexaflex/sim51/arch"
	"github.com/hexaflex/sim51/devices"
	"github.com/hexaflex/sim51/devices/timer"
	"github.com/hexaflex/sim51/ihex"
	"github.com/pkg/errors"
)

// TraceFunc represents a callback handler for debug trace output.
// It is called for every instruction, after decoding and before execution.
type TraceFunc func(*Instruction)

// CPU implements the runtime.
type CPU struct {
	log     hclog.Logger   // Event log.
	trace   TraceFunc      // Handler for debug trace output.
	devices devices.Map    // On-chip peripherals.
	rom     ProgramMemory  // Program memory.
	ram     Memory         // Internal data memory.
	xram    ExternalMemory // External data memory.
	pc      arch.Word      // Program counter.
	ints    InterruptStack // Levels of the active interrupt handlers.
	int0    devices.Edge   // INT0 pin history.
	int1    devices.Edge   // INT1 pin history.
	instr   Instruction    // Decoded instruction data.
	cycles  uint64         // Machine cycles executed since the last RAM reset.
}

// New creates a new microcontroller with both timers connected.
// Optionally with the given logger and debug trace handler.
func New(log hclog.Logger, trace TraceFunc) *CPU {
	if log == nil {
		log = hclog.NewNullLogger()
	}

	if trace == nil {
		trace = func(*Instruction) { /* nop */ }
	}

	c := &CPU{
		log:   log,
		trace: trace,
		rom:   NewProgramMemory(),
		xram:  NewExternalMemory(),
	}

	c.devices.Connect(timer.New(0))
	c.devices.Connect(timer.New(1))

	c.ResetRAM()
	return c
}

// ID returns the core's device id.
func (c *CPU) ID() devices.ID {
	return devices.NewID(devices.MCS51, 0x0001)
}

// ROM returns program memory.
func (c *CPU) ROM() ProgramMemory { return c.rom }

// RAM returns internal data memory.
func (c *CPU) RAM() *Memory { return &c.ram }

// XRAM returns external data memory.
func (c *CPU) XRAM() ExternalMemory { return c.xram }

// Devices returns the connected peripherals.
func (c *CPU) Devices() devices.Map { return c.devices }

// Interrupts returns the interrupt level stack.
func (c *CPU) Interrupts() *InterruptStack { return &c.ints }

// Cycles returns the number of machine cycles executed since the last RAM reset.
func (c *CPU) Cycles() uint64 { return c.cycles }

// PC returns the program counter.
func (c *CPU) PC() arch.Word { return c.pc }

// SetPC sets the program counter, modulo 65536.
func (c *CPU) SetPC(v int) { c.pc.Set(v) }

// LoadHex reads an Intel HEX program and writes its data records into
// program memory. Nothing else is touched.
func (c *CPU) LoadHex(r io.Reader) error {
	f, err := ihex.Load(r)
	if err != nil {
		return err
	}
	return c.LoadImage(f)
}

// CheckImage returns ErrAddressRange if any data record of f does not
// fit into program memory.
func CheckImage(f *ihex.File) error {
	for _, rec := range f.Records {
		if rec.Type != ihex.Data {
			continue
		}
		if rec.Address < 0 || rec.Address+len(rec.Data) > ProgramMemoryCapacity {
			return errors.Wrapf(ErrAddressRange, "record at line %d: %d bytes at %04Xh",
				rec.Line, len(rec.Data), rec.Address)
		}
	}
	return nil
}

// LoadImage writes the data records of an already decoded HEX file into
// program memory. Nothing is written if any record is out of range.
func (c *CPU) LoadImage(f *ihex.File) error {
	if err := CheckImage(f); err != nil {
		return err
	}

	var n int
	for _, rec := range f.Records {
		if rec.Type != ihex.Data {
			continue
		}
		if err := c.rom.Write(rec.Address, rec.Data); err != nil {
			return errors.Wrapf(err, "record at line %d", rec.Line)
		}
		n += len(rec.Data)
	}

	c.log.Debug("program loaded", "records", len(f.Records), "bytes", n)
	return nil
}

// ResetROM clears program memory.
func (c *CPU) ResetROM() {
	c.rom.Reset()
	c.log.Debug("program memory reset")
}

// ResetRAM returns data memory, the program counter, interrupt state and
// pin histories to their power-on state. Program memory is left intact.
func (c *CPU) ResetRAM() {
	c.ram.Reset()
	c.xram.Reset()
	c.pc = 0
	c.ints.Reset()
	c.int0 = devices.NewEdge(1)
	c.int1 = devices.NewEdge(1)
	c.devices.Reset()
	c.cycles = 0
	c.log.Debug("data memory reset")
}

// Step performs a single machine cycle: pin sampling, interrupt
// arbitration, and the fetch, decode and execution of one instruction,
// followed by the timer update.
//
// The only failure is an undefined opcode, reported as an *Error whose
// cause is arch.ErrUndefined. The program counter then still points at
// the offending byte.
func (c *CPU) Step() error {
	c.latch()
	c.devices.Sample(&c.ram)
	c.arbitrate()

	instr := &c.instr
	if err := instr.Decode(c.rom, &c.pc); err != nil {
		c.log.Error("decode failed", "error", err)
		return err
	}

	c.trace(instr)
	handlers[instr.Opcode](c, instr.Opcode, instr.Args)
	c.updateParity()

	cycles := instr.Cycles()
	c.devices.Advance(&c.ram, cycles)
	c.cycles += uint64(cycles)
	return nil
}

// Exec executes a single operation against the current state, as if it
// had just been fetched. No interrupts, parity or timers are processed.
func (c *CPU) Exec(op *arch.Operation) error {
	if _, err := arch.NewOperation(op.Opcode, op.Args...); err != nil {
		return err
	}
	handlers[op.Opcode](c, op.Opcode, op.Args)
	return nil
}

// updateParity sets P when the accumulator holds an odd number of ones.
func (c *CPU) updateParity() {
	a := c.ram.A().Int()
	a ^= a >> 4
	a ^= a >> 2
	a ^= a >> 1
	c.ram.SetFlag(arch.P, a&1)
}

// push increments SP and stores v at the new top of stack.
func (c *CPU) push(v arch.Byte) {
	sp := c.ram.SP()
	*sp = sp.Add(1)
	*c.ram.Cell(uint8(*sp)) = v
}

// pop returns the top of stack and decrements SP.
func (c *CPU) pop() arch.Byte {
	sp := c.ram.SP()
	v := *c.ram.Cell(uint8(*sp))
	*sp = sp.Sub(1)
	return v
}

// call pushes the program counter, low byte first, and jumps to addr.
func (c *CPU) call(addr int) {
	c.push(c.pc.Low())
	c.push(c.pc.High())
	c.pc.Set(addr)
}

// ret pops the program counter, high byte first.
func (c *CPU) ret() {
	hi := c.pop()
	lo := c.pop()
	c.pc = arch.MakeWord(hi, lo)
}
