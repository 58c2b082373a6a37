package cpu

import (
	"github.com/hexaflex/sim51/arch"
	"github.com/hexaflex/sim51/devices"
)

// InterruptStack tracks the priority levels of the interrupt handlers
// currently in progress. The bottom entry is a sentinel level 0 which
// is never removed; an empty handler chain reports Top() == 0.
type InterruptStack struct {
	levels []int
}

// Push records entry into a handler with the given level.
func (s *InterruptStack) Push(level int) {
	s.levels = append(s.levels, level)
}

// Pop removes and returns the top level.
// Popping the sentinel returns 0 and leaves the stack unchanged.
func (s *InterruptStack) Pop() int {
	n := len(s.levels)
	if n == 0 {
		return 0
	}
	level := s.levels[n-1]
	s.levels = s.levels[:n-1]
	return level
}

// Top returns the level of the innermost active handler, or 0.
func (s *InterruptStack) Top() int {
	if len(s.levels) == 0 {
		return 0
	}
	return s.levels[len(s.levels)-1]
}

// Levels returns all entries from bottom to top, sentinel included.
func (s *InterruptStack) Levels() []int {
	return append([]int{0}, s.levels...)
}

// Reset drops everything but the sentinel.
func (s *InterruptStack) Reset() {
	s.levels = s.levels[:0]
}

// source describes one interrupt source.
type source struct {
	name     string
	high     int       // Level when IP selects high priority.
	low      int       // Level when IP selects low priority.
	vector   int       // Handler address.
	request  arch.Flag // Pending request flag.
	enable   arch.Flag // Enable bit in IE.
	priority arch.Flag // Priority bit in IP.
	trigger  arch.Flag // Edge/level select for external sources. Zero for timers.
}

// sources lists the interrupt sources in polling order.
var sources = [...]source{
	{"INT0", 10, 5, 0x03, arch.IE0, arch.EX0, arch.PX0, arch.IT0},
	{"T0", 9, 4, 0x0b, arch.TF0, arch.ET0, arch.PT0, 0},
	{"INT1", 8, 3, 0x13, arch.IE1, arch.EX1, arch.PX1, arch.IT1},
	{"T1", 7, 2, 0x1b, arch.TF1, arch.ET1, arch.PT1, 0},
}

// latch updates the external interrupt request flags from the INT0/INT1 pins.
func (c *CPU) latch() {
	c.latchPin(&c.int0, arch.INT0, arch.IT0, arch.IE0)
	c.latchPin(&c.int1, arch.INT1, arch.IT1, arch.IE1)
}

func (c *CPU) latchPin(pin *devices.Edge, input, trigger, request arch.Flag) {
	mem := &c.ram
	pin.Observe(mem.Flag(input))

	if mem.Flag(trigger) == 1 {
		if pin.Falling() {
			mem.SetFlag(request, 1)
		}
		return
	}

	switch {
	case pin.State() == 0:
		mem.SetFlag(request, 1)
	case pin.Rising():
		mem.SetFlag(request, 0)
	}
}

// arbitrate vectors to the first pending source whose level exceeds that of
// the running handler. All high priority sources are polled before any of
// the low priority ones. At most one source is serviced per cycle.
func (c *CPU) arbitrate() bool {
	mem := &c.ram
	if mem.Flag(arch.EA) == 0 {
		return false
	}

	top := c.ints.Top()
	for _, high := range [...]int{1, 0} {
		for i := range sources {
			s := &sources[i]
			if mem.Flag(s.request) == 0 || mem.Flag(s.enable) == 0 || mem.Flag(s.priority) != high {
				continue
			}

			level := s.low
			if high == 1 {
				level = s.high
			}

			if level > top {
				c.service(s, level)
				return true
			}
		}
	}

	return false
}

// service enters the handler for s.
func (c *CPU) service(s *source, level int) {
	mem := &c.ram

	// External requests in level mode stay up until the pin is released.
	if s.trigger == 0 || mem.Flag(s.trigger) == 1 {
		mem.SetFlag(s.request, 0)
	}

	c.log.Trace("interrupt", "source", s.name, "level", level, "pc", c.pc, "vector", s.vector)

	c.ints.Push(level)
	c.call(s.vector)
}
