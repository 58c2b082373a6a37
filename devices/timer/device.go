// Package timer implements the two 8051 counter/timers.
package timer

import (
	"github.com/hexaflex/sim51/arch"
	"github.com/hexaflex/sim51/devices"
)

// Known timer modes, as selected by the M1/M0 bits in TMOD.
const (
	Mode13Bit   = iota // TL counts 0-31 into an 8-bit TH.
	Mode16Bit          // TH:TL form one 16-bit counter.
	ModeReload         // TL counts, reloads from TH on overflow.
	ModeSplit          // Timer 0: TL0 and TH0 count independently. Timer 1: halted.
)

// TMOD control bits, relative to a timer's nibble.
const (
	tmodGate    = 0x8
	tmodCounter = 0x4
)

// Device defines one counter/timer. All counter state lives in the
// TL/TH registers and TCON/TMOD bits of internal data memory; the
// device only remembers the recent history of its external count pin.
type Device struct {
	unit  int          // Timer number: 0 or 1.
	tl    int          // Address of the low counter byte.
	th    int          // Address of the high counter byte.
	tf    arch.Flag    // Overflow flag.
	tr    arch.Flag    // Run control flag.
	gate  arch.Flag    // External gate pin (INTx).
	input arch.Flag    // External count pin (Tx).
	shift uint         // Position of this timer's nibble in TMOD.
	pin   devices.Edge // Count pin history.
}

var _ devices.Device = &Device{}

// New creates timer 0 or timer 1.
func New(unit int) *Device {
	d := &Device{unit: unit}

	switch unit {
	case 0:
		d.tl, d.th = arch.TL0, arch.TH0
		d.tf, d.tr = arch.TF0, arch.TR0
		d.gate, d.input = arch.INT0, arch.T0
		d.shift = 0
	case 1:
		d.tl, d.th = arch.TL1, arch.TH1
		d.tf, d.tr = arch.TF1, arch.TR1
		d.gate, d.input = arch.INT1, arch.T1
		d.shift = 4
	default:
		panic("timer: unit must be 0 or 1")
	}

	d.Reset()
	return d
}

// ID returns the timer's device id.
func (d *Device) ID() devices.ID {
	return devices.NewID(devices.MCS51, 0x10+d.unit)
}

// Reset forgets the count pin history. Port pins idle high.
func (d *Device) Reset() {
	d.pin = devices.NewEdge(1)
}

// Sample observes the external count pin.
func (d *Device) Sample(mem devices.Memory) {
	d.pin.Observe(mem.Flag(d.input))
}

// Mode returns the currently selected timer mode.
func (d *Device) Mode(mem devices.Memory) int {
	return d.control(mem) & 3
}

// Advance counts the given number of machine cycles, or one external
// event when the timer is configured as a counter and the count pin
// fell during this cycle.
func (d *Device) Advance(mem devices.Memory, cycles int) {
	// In split mode TH0 is clocked by timer 1's run bit.
	if d.unit == 0 && d.Mode(mem) == ModeSplit && mem.Flag(arch.TR1) == 1 {
		for i := 0; i < cycles; i++ {
			d.IncrementHigh(mem)
		}
	}

	for n := d.ticks(mem, cycles); n > 0; n-- {
		d.Increment(mem)
	}
}

// ticks returns the number of counts for this cycle.
func (d *Device) ticks(mem devices.Memory, cycles int) int {
	if mem.Flag(d.tr) == 0 {
		return 0
	}

	ctl := d.control(mem)
	if ctl&tmodGate != 0 && mem.Flag(d.gate) == 0 {
		return 0
	}

	if ctl&tmodCounter != 0 {
		if d.pin.Falling() {
			return 1
		}
		return 0
	}

	return cycles
}

// Increment performs a single count in the current mode.
func (d *Device) Increment(mem devices.Memory) {
	tl := mem.U8(d.tl)
	th := mem.U8(d.th)

	switch d.Mode(mem) {
	case Mode13Bit:
		tl++
		if tl > 0x1f {
			tl = 0
			th++
			if th > 0xff {
				th = 0
				d.overflow(mem)
			}
		}

	case Mode16Bit:
		v := (th<<8 | tl) + 1
		if v > 0xffff {
			v = 0
			d.overflow(mem)
		}
		th, tl = v>>8, v&0xff

	case ModeReload:
		tl++
		if tl > 0xff {
			tl = th
			d.overflow(mem)
		}

	case ModeSplit:
		if d.unit == 1 {
			return
		}
		tl++
		if tl > 0xff {
			tl = 0
			d.overflow(mem)
		}
	}

	mem.SetU8(d.tl, tl)
	mem.SetU8(d.th, th)
}

// IncrementHigh counts TH0 as the independent 8-bit counter it becomes
// in split mode. Its overflow is reported through TF1.
func (d *Device) IncrementHigh(mem devices.Memory) {
	th := mem.U8(arch.TH0) + 1
	if th > 0xff {
		th = 0
		mem.SetFlag(arch.TF1, 1)
	}
	mem.SetU8(arch.TH0, th)
}

// overflow raises the timer's overflow flag. Timer 1 has no access to
// TF1 while timer 0 runs in split mode.
func (d *Device) overflow(mem devices.Memory) {
	if d.unit == 1 && mem.U8(arch.TMOD)&3 == ModeSplit {
		return
	}
	mem.SetFlag(d.tf, 1)
}

// control returns this timer's TMOD nibble.
func (d *Device) control(mem devices.Memory) int {
	return mem.U8(arch.TMOD) >> d.shift & 0xf
}
