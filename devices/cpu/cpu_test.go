package cpu

import (
	"bytes"
	"strings"
	"testing"

	"github.com/hexaflex/sim51/arch"
	"github.com/pkg/errors"
)

const testImage = ":03000000020100FA\n:10010000AE00783879307420F37400F2C29674200F\n:00000001FF\n"

func TestLoadHex(t *testing.T) {
	c := New(nil, nil)
	c.RAM().A().Set(20)

	if err := c.LoadHex(strings.NewReader(testImage)); err != nil {
		t.Fatal(err)
	}

	for _, v := range []struct {
		addr int
		want byte
	}{
		{0, 2},
		{1, 1},
		{2, 0},
		{256, 174},
		{271, 32},
	} {
		if have := c.ROM()[v.addr]; have != v.want {
			t.Fatalf("program memory mismatch at %04Xh:\nwant: %d\nhave: %d", v.addr, v.want, have)
		}
	}

	if c.RAM().A().Int() != 20 {
		t.Fatalf("loading a program altered data memory")
	}
}

func TestLoadHexRange(t *testing.T) {
	c := New(nil, nil)
	err := c.LoadHex(strings.NewReader(":02FFFF000102FD\n:00000001FF\n"))
	if errors.Cause(err) != ErrAddressRange {
		t.Fatalf("want ErrAddressRange, have %v", err)
	}
	if c.ROM()[0xffff] != 0 {
		t.Fatalf("partial record written")
	}

	err = c.LoadHex(strings.NewReader(":01000000748B\n:02FFFF000102FD\n:00000001FF\n"))
	if errors.Cause(err) != ErrAddressRange {
		t.Fatalf("want ErrAddressRange, have %v", err)
	}
	if c.ROM()[0] != 0 {
		t.Fatalf("records before the bad one were written")
	}
}

func TestResetROM(t *testing.T) {
	c := New(nil, nil)
	c.ROM()[100] = 123
	c.RAM().A().Set(20)

	c.ResetROM()

	if c.ROM()[100] != 0 {
		t.Fatalf("program memory not cleared")
	}
	if c.RAM().A().Int() != 20 {
		t.Fatalf("ResetROM altered data memory")
	}
}

func TestResetRAM(t *testing.T) {
	c := New(nil, nil)
	c.ROM()[100] = 123
	c.SetPC(300)
	c.RAM().SetU8(30, 44)
	c.XRAM()[4000].Set(1)
	c.Interrupts().Push(7)

	c.ResetRAM()
	first := *c.RAM()
	c.ResetRAM()

	if *c.RAM() != first {
		t.Fatalf("ResetRAM is not idempotent")
	}
	if c.PC() != 0 || c.Interrupts().Top() != 0 || c.Cycles() != 0 {
		t.Fatalf("runtime state survived: PC %d, level %d, cycles %d", c.PC(), c.Interrupts().Top(), c.Cycles())
	}
	if first[30] != 0 || first[arch.SP] != 7 || first[arch.P3] != 0xff || c.XRAM()[4000] != 0 {
		t.Fatalf("data memory not at power-on state")
	}
	if c.ROM()[100] != 123 {
		t.Fatalf("ResetRAM cleared program memory")
	}
}

func TestSetPC(t *testing.T) {
	c := New(nil, nil)
	c.SetPC(65538)
	if c.PC() != 2 {
		t.Fatalf("PC overflow:\nwant: 2\nhave: %d", c.PC())
	}
}

func TestParity(t *testing.T) {
	ct := newCodeTest(t)
	ct.emit(0x00) // NOP
	ct.emit(0x00) // NOP

	// P is set when A holds an odd number of ones, as on the 8051.
	ct.mem.A().Set(0x05)
	ct.step(1)
	if ct.mem.Flag(arch.P) != 0 {
		t.Fatalf("parity of 05h must be even")
	}

	ct.mem.A().Set(0x04)
	ct.step(1)
	if ct.mem.Flag(arch.P) != 1 {
		t.Fatalf("parity of 04h must be odd")
	}
}

func TestOperationExecution(t *testing.T) {
	ct := newCodeTest(t)
	ct.at(50)
	ct.emit(0x00) // NOP
	ct.SetPC(50)
	ct.step(1)
	if ct.PC() != 51 {
		t.Fatalf("NOP:\nwant: 51\nhave: %d", ct.PC())
	}

	ct.at(100)
	ct.emit(arch.LJMP, 171, 205)
	ct.SetPC(100)
	ct.step(1)
	if ct.PC() != 43981 {
		t.Fatalf("LJMP:\nwant: 43981\nhave: %d", ct.PC())
	}

	if ct.Cycles() != 3 {
		t.Fatalf("cycles:\nwant: 3\nhave: %d", ct.Cycles())
	}
}

func TestFetchWraps(t *testing.T) {
	ct := newCodeTest(t)
	ct.at(0xffff)
	ct.emit(arch.LJMP, 0x12, 0x34)
	ct.SetPC(0xffff)
	ct.step(1)
	if ct.PC() != 0x1234 {
		t.Fatalf("LJMP across the end of program memory:\nwant: 1234\nhave: %v", ct.PC())
	}
}

func TestUndefinedOpcode(t *testing.T) {
	ct := newCodeTest(t)
	ct.emit(0x00)
	ct.emit(arch.Reserved)

	ct.step(1)
	err := ct.Step()

	e, ok := err.(*Error)
	if !ok {
		t.Fatalf("want *Error, have %T: %v", err, err)
	}
	if errors.Cause(err) != arch.ErrUndefined {
		t.Fatalf("want ErrUndefined, have %v", err)
	}
	if e.IP != 1 || ct.PC() != 1 {
		t.Fatalf("fault address: IP %d, PC %d", e.IP, ct.PC())
	}
}

func TestTrace(t *testing.T) {
	var seen []int
	c := New(nil, func(i *Instruction) {
		seen = append(seen, i.IP)
	})
	c.ROM()[0] = 0x00
	c.ROM()[1] = 0x74 // MOV A, #data
	c.ROM()[2] = 9

	for i := 0; i < 3; i++ {
		if err := c.Step(); err != nil {
			t.Fatal(err)
		}
	}

	if len(seen) != 3 || seen[0] != 0 || seen[1] != 1 || seen[2] != 3 {
		t.Fatalf("trace mismatch:\nwant: [0 1 3]\nhave: %v", seen)
	}
}

func TestInt0Level(t *testing.T) {
	ct := newCodeTest(t)
	ct.emit(0x00)
	ct.emit(0x00)

	ct.mem.SetFlag(arch.IT0, 0)
	ct.mem.SetFlag(arch.INT0, 0)
	ct.step(1)
	if ct.mem.Flag(arch.IE0) != 1 {
		t.Fatalf("low INT0 did not raise IE0")
	}

	ct.mem.SetFlag(arch.INT0, 1)
	ct.step(1)
	if ct.mem.Flag(arch.IE0) != 0 {
		t.Fatalf("released INT0 did not clear IE0")
	}
}

func TestInt0Edge(t *testing.T) {
	ct := newCodeTest(t)
	ct.emit(0x00)
	ct.emit(0x00)
	ct.emit(0x00)

	ct.mem.SetFlag(arch.IT0, 1)
	ct.mem.SetFlag(arch.INT0, 1)
	ct.step(1)
	if ct.mem.Flag(arch.IE0) != 0 {
		t.Fatalf("idle INT0 raised IE0")
	}

	ct.mem.SetFlag(arch.INT0, 0)
	ct.step(1)
	if ct.mem.Flag(arch.IE0) != 1 {
		t.Fatalf("falling INT0 did not raise IE0")
	}

	// A steady low pin is no new edge.
	ct.mem.SetFlag(arch.IE0, 0)
	ct.step(1)
	if ct.mem.Flag(arch.IE0) != 0 {
		t.Fatalf("steady INT0 raised IE0")
	}
}

func TestInterruptVectoring(t *testing.T) {
	for _, v := range []struct {
		name    string
		edge    int
		request int
	}{
		{"level", 0, 1},
		{"edge", 1, 0},
	} {
		t.Run(v.name, func(t *testing.T) {
			ct := newCodeTest(t)
			ct.at(3)
			ct.emit(0x00)

			ct.mem.SetFlag(arch.EA, 1)
			ct.mem.SetFlag(arch.EX0, 1)
			ct.mem.SetFlag(arch.IT0, v.edge)
			ct.mem.SetFlag(arch.INT0, 0)
			ct.step(1)

			if ct.PC() != 4 || ct.Interrupts().Top() != 5 {
				t.Fatalf("INT0 not serviced: PC %d, level %d", ct.PC(), ct.Interrupts().Top())
			}
			if have := ct.mem.Flag(arch.IE0); have != v.request {
				t.Fatalf("IE0 after vectoring:\nwant: %d\nhave: %d", v.request, have)
			}
			if ct.mem.U8(8) != 0 || ct.mem.U8(9) != 0 || ct.mem.SP().Int() != 9 {
				t.Fatalf("return address not pushed")
			}
		})
	}
}

func TestInterruptsDisabled(t *testing.T) {
	ct := newCodeTest(t)
	ct.emit(0x00)

	ct.mem.SetFlag(arch.EX0, 1)
	ct.mem.SetFlag(arch.IE0, 1)
	ct.step(1)

	if ct.PC() != 1 || ct.Interrupts().Top() != 0 {
		t.Fatalf("serviced with EA clear: PC %d", ct.PC())
	}
}

func TestInterruptPriority(t *testing.T) {
	ct := newCodeTest(t)
	ct.SetPC(123)
	ct.mem.SetFlag(arch.EA, 1)

	// INT0, low priority.
	ct.mem.SetFlag(arch.IE0, 1)
	ct.mem.SetFlag(arch.EX0, 1)
	ct.at(0x03)
	ct.emit(0x04) // INC A
	ct.emit(arch.RETI)

	// T1, high priority.
	ct.mem.SetFlag(arch.TF1, 1)
	ct.mem.SetFlag(arch.ET1, 1)
	ct.mem.SetFlag(arch.PT1, 1)
	ct.at(0x1b)
	ct.emit(0x24, 4) // ADD A, #4
	ct.emit(0x24, 5) // ADD A, #5
	ct.emit(0x24, 6) // ADD A, #6
	ct.emit(arch.RETI)

	ct.step(2)
	ct.wantA(9)

	ct.mem.SetFlag(arch.TF1, 1)

	// T0, high priority. Outranks the running T1 handler.
	ct.mem.SetFlag(arch.TF0, 1)
	ct.mem.SetFlag(arch.ET0, 1)
	ct.mem.SetFlag(arch.PT0, 1)
	ct.at(0x0b)
	ct.emit(0x14) // DEC A
	ct.emit(arch.RETI)

	ct.step(2)
	ct.wantA(8)

	if levels := ct.Interrupts().Levels(); len(levels) != 2 || levels[1] != 7 {
		t.Fatalf("interrupt levels:\nwant: [0 7]\nhave: %v", levels)
	}

	ct.step(2)
	ct.wantA(14)

	ct.step(4)
	ct.wantA(29)

	ct.step(2)
	ct.wantA(30)

	if ct.PC() != 123 {
		t.Fatalf("return address:\nwant: 123\nhave: %d", ct.PC())
	}
	if ct.Interrupts().Top() != 0 {
		t.Fatalf("interrupt level:\nwant: 0\nhave: %d", ct.Interrupts().Top())
	}
}

func TestTimer0Counter(t *testing.T) {
	ct := newCodeTest(t)
	ct.emit(0x00)
	ct.emit(0x00)
	ct.emit(0x00)

	ct.mem.TMOD().Set(0x04) // C/T0, mode 0.
	ct.mem.SetFlag(arch.TR0, 1)
	ct.mem.SetFlag(arch.T0, 0)
	ct.step(1)
	ct.want(arch.TL0, 1)

	ct.mem.SetFlag(arch.T0, 1)
	ct.step(1)
	ct.mem.SetFlag(arch.T0, 0)
	ct.step(1)
	ct.want(arch.TL0, 2)
}

func TestTimer1Cycles(t *testing.T) {
	ct := newCodeTest(t)
	ct.emit(0x00)                // NOP, 1 cycle
	ct.emit(arch.LJMP, 123, 123) // 2 cycles

	ct.mem.TMOD().Set(0x10) // Timer 1, mode 1.
	ct.mem.SetFlag(arch.TR1, 1)
	ct.step(1)
	ct.want(arch.TL1, 1)

	ct.step(1)
	ct.want(arch.TL1, 3)
}

func TestTimer0Split(t *testing.T) {
	ct := newCodeTest(t)
	ct.emit(0xa3) // INC DPTR, 2 cycles
	ct.emit(0xed) // MOV A, R5, 1 cycle
	ct.emit(0xa3)

	ct.mem.TMOD().Set(0x07) // C/T0, mode 3.
	ct.mem.SetFlag(arch.TR0, 1)
	ct.mem.SetFlag(arch.TR1, 1)
	ct.mem.SetFlag(arch.T0, 0)
	ct.step(1)
	ct.want(arch.TL0, 1)
	ct.want(arch.TH0, 2)

	ct.mem.SetFlag(arch.T0, 1)
	ct.step(1)
	ct.want(arch.TL0, 1)
	ct.want(arch.TH0, 3)

	ct.mem.SetFlag(arch.T0, 0)
	ct.step(1)
	ct.want(arch.TL0, 2)
	ct.want(arch.TH0, 5)
}

func TestTimerOverflowInterrupt(t *testing.T) {
	ct := newCodeTest(t)
	ct.emit(0x00)
	ct.emit(0x00)
	ct.at(0x0b)
	ct.emit(0x00)

	ct.mem.TMOD().Set(0x02) // Timer 0, mode 2.
	ct.mem.TL0().Set(0xff)
	ct.mem.TH0().Set(0xf0)
	ct.mem.SetFlag(arch.TR0, 1)
	ct.mem.SetFlag(arch.ET0, 1)
	ct.mem.SetFlag(arch.EA, 1)

	ct.step(1)
	ct.want(arch.TL0, 0xf0)
	if ct.mem.Flag(arch.TF0) != 1 {
		t.Fatalf("TF0 not raised on overflow")
	}

	ct.step(1)
	if ct.PC() != 0x0c || ct.mem.Flag(arch.TF0) != 0 {
		t.Fatalf("T0 not serviced: PC %v, TF0 %d", ct.PC(), ct.mem.Flag(arch.TF0))
	}
}

func TestInterruptStack(t *testing.T) {
	var s InterruptStack
	if s.Top() != 0 || s.Pop() != 0 {
		t.Fatalf("empty stack must report level 0")
	}

	s.Push(5)
	s.Push(9)
	if s.Top() != 9 {
		t.Fatalf("top:\nwant: 9\nhave: %d", s.Top())
	}
	if have := s.Levels(); len(have) != 3 || have[0] != 0 || have[2] != 9 {
		t.Fatalf("levels:\nwant: [0 5 9]\nhave: %v", have)
	}
	if s.Pop() != 9 || s.Pop() != 5 || s.Pop() != 0 || s.Top() != 0 {
		t.Fatalf("pop order mismatch")
	}

	s.Push(3)
	s.Reset()
	if len(s.Levels()) != 1 {
		t.Fatalf("reset kept levels: %v", s.Levels())
	}
}

func TestSnapshot(t *testing.T) {
	ct := newCodeTest(t)
	ct.emit(0x74, 0x0b) // MOV A, #11
	ct.emit(0x00)
	ct.step(1)

	s := ct.Snapshot()
	if s.PC != 2 || s.Next != "NOP" || s.Cycles != 1 {
		t.Fatalf("snapshot: PC %d, next %q, cycles %d", s.PC, s.Next, s.Cycles)
	}
	if s.Registers["A"] != 11 || s.Registers["SP"] != 7 || s.Registers["P3"] != 0xff {
		t.Fatalf("snapshot registers: %v", s.Registers)
	}
	if s.Flags["P"] != 1 || s.Flags["C"] != 0 {
		t.Fatalf("snapshot flags: %v", s.Flags)
	}

	var buf bytes.Buffer
	if err := s.WriteYAML(&buf); err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{"pc: 2\n", "next: NOP\n", "interrupts: [0]\n", "r: [0, 0, 0, 0, 0, 0, 0, 0]\n"} {
		if !strings.Contains(buf.String(), want) {
			t.Fatalf("snapshot YAML lacks %q:\n%s", want, buf.String())
		}
	}
}

type codeTest struct {
	*CPU
	t   *testing.T
	mem *Memory
	org int
}

func newCodeTest(t *testing.T) *codeTest {
	c := New(nil, trace(t))
	return &codeTest{CPU: c, t: t, mem: c.RAM()}
}

// at moves the emit position to addr.
func (ct *codeTest) at(addr int) {
	ct.org = addr
}

func (ct *codeTest) emit(opcode byte, args ...byte) {
	rom := ct.ROM()
	rom[ct.org&0xffff] = opcode
	for i, v := range args {
		rom[(ct.org+i+1)&0xffff] = v
	}
	ct.org += 1 + len(args)
}

func (ct *codeTest) step(n int) {
	ct.t.Helper()
	for i := 0; i < n; i++ {
		if err := ct.Step(); err != nil {
			ct.t.Fatalf("Step failure: %v", err)
		}
	}
}

func (ct *codeTest) want(addr, want int) {
	ct.t.Helper()
	if have := ct.mem.U8(addr); have != want {
		ct.t.Fatalf("state mismatch at %02Xh:\nwant: %d\nhave: %d", addr, want, have)
	}
}

func (ct *codeTest) wantA(want int) {
	ct.t.Helper()
	ct.want(arch.ACC, want)
}

func trace(t *testing.T) TraceFunc {
	return func(i *Instruction) {
		t.Logf("%04X %s", i.IP, i.String())
	}
}
