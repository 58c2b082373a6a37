package timer

import (
	"testing"

	"github.com/hexaflex/sim51/arch"
)

// testMemory is a bare internal data memory.
type testMemory [256]int

func (m *testMemory) U8(addr int) int       { return m[addr] }
func (m *testMemory) SetU8(addr, value int) { m[addr] = value & 0xff }

func (m *testMemory) Flag(f arch.Flag) int {
	addr, n := f.Locate()
	return m[addr] >> uint(7-n) & 1
}

func (m *testMemory) SetFlag(f arch.Flag, v int) {
	addr, n := f.Locate()
	mask := 1 << uint(7-n)
	if v&1 == 1 {
		m[addr] |= mask
	} else {
		m[addr] &^= mask
	}
}

func newTestMemory() *testMemory {
	var m testMemory
	m[arch.P3] = 0xff
	return &m
}

func want(t *testing.T, m *testMemory, tl, th int, tf arch.Flag, flag int) {
	t.Helper()
	if m[arch.TL0] != tl || m[arch.TH0] != th || m.Flag(tf) != flag {
		t.Fatalf("state mismatch:\nwant: TL0=%d TH0=%d %v=%d\nhave: TL0=%d TH0=%d %v=%d",
			tl, th, tf, flag, m[arch.TL0], m[arch.TH0], tf, m.Flag(tf))
	}
}

func TestMode0(t *testing.T) {
	m := newTestMemory()
	d := New(0)

	m[arch.TH0] = 254
	m[arch.TL0] = 29
	d.Increment(m)
	want(t, m, 30, 254, arch.TF0, 0)

	m[arch.TH0] = 255
	d.Increment(m)
	want(t, m, 31, 255, arch.TF0, 0)

	d.Increment(m)
	want(t, m, 0, 0, arch.TF0, 1)
}

func TestMode1(t *testing.T) {
	m := newTestMemory()
	d := New(0)
	m[arch.TMOD] = Mode16Bit

	m[arch.TH0] = 254
	m[arch.TL0] = 253
	d.Increment(m)
	want(t, m, 254, 254, arch.TF0, 0)

	m[arch.TH0] = 255
	d.Increment(m)
	want(t, m, 255, 255, arch.TF0, 0)

	d.Increment(m)
	want(t, m, 0, 0, arch.TF0, 1)
}

func TestMode2(t *testing.T) {
	m := newTestMemory()
	d := New(0)
	m[arch.TMOD] = ModeReload

	m[arch.TH0] = 123
	m[arch.TL0] = 254
	d.Increment(m)
	want(t, m, 255, 123, arch.TF0, 0)

	d.Increment(m)
	want(t, m, 123, 123, arch.TF0, 1)
}

func TestMode3(t *testing.T) {
	m := newTestMemory()
	d := New(0)
	m[arch.TMOD] = ModeSplit

	m[arch.TL0] = 254
	for i := 0; i < 4; i++ {
		d.Increment(m)
	}
	want(t, m, 2, 0, arch.TF0, 1)
}

func TestMode3High(t *testing.T) {
	m := newTestMemory()
	d := New(0)

	m[arch.TH0] = 254
	for i := 0; i < 3; i++ {
		d.IncrementHigh(m)
	}
	want(t, m, 0, 1, arch.TF1, 1)
}

func TestTimer1Mode3Halts(t *testing.T) {
	m := newTestMemory()
	d := New(1)
	m[arch.TMOD] = ModeSplit << 4
	m.SetFlag(arch.TR1, 1)

	d.Advance(m, 10)
	if m[arch.TL1] != 0 || m[arch.TH1] != 0 {
		t.Fatalf("timer 1 counted in mode 3: TL1=%d TH1=%d", m[arch.TL1], m[arch.TH1])
	}
}

func TestTimer1NoFlagWhileTimer0Split(t *testing.T) {
	m := newTestMemory()
	d := New(1)
	m[arch.TMOD] = Mode16Bit<<4 | ModeSplit
	m.SetFlag(arch.TR1, 1)
	m[arch.TL1] = 0xff
	m[arch.TH1] = 0xff

	d.Advance(m, 1)
	if m[arch.TL1] != 0 || m[arch.TH1] != 0 || m.Flag(arch.TF1) != 0 {
		t.Fatalf("timer 1: TL1=%d TH1=%d TF1=%d", m[arch.TL1], m[arch.TH1], m.Flag(arch.TF1))
	}
}

func TestAdvanceCycles(t *testing.T) {
	m := newTestMemory()
	d := New(1)
	m[arch.TMOD] = Mode16Bit << 4

	d.Advance(m, 2)
	if m[arch.TL1] != 0 {
		t.Fatalf("timer 1 counted without TR1")
	}

	m.SetFlag(arch.TR1, 1)
	d.Advance(m, 1)
	d.Advance(m, 2)
	if m[arch.TL1] != 3 {
		t.Fatalf("TL1: want 3, have %d", m[arch.TL1])
	}
}

func TestAdvanceGate(t *testing.T) {
	m := newTestMemory()
	d := New(0)
	m[arch.TMOD] = tmodGate | Mode16Bit
	m.SetFlag(arch.TR0, 1)

	m.SetFlag(arch.INT0, 0)
	d.Advance(m, 4)
	if m[arch.TL0] != 0 {
		t.Fatalf("gated timer counted while INT0 was low")
	}

	m.SetFlag(arch.INT0, 1)
	d.Advance(m, 4)
	if m[arch.TL0] != 4 {
		t.Fatalf("TL0: want 4, have %d", m[arch.TL0])
	}
}

func TestAdvanceCounter(t *testing.T) {
	m := newTestMemory()
	d := New(0)
	m[arch.TMOD] = tmodCounter
	m.SetFlag(arch.TR0, 1)

	step := func(pin int) {
		m.SetFlag(arch.T0, pin)
		d.Sample(m)
		d.Advance(m, 2)
	}

	step(0)
	if m[arch.TL0] != 1 {
		t.Fatalf("TL0: want 1, have %d", m[arch.TL0])
	}
	step(0)
	step(1)
	if m[arch.TL0] != 1 {
		t.Fatalf("TL0: want 1, have %d", m[arch.TL0])
	}
	step(0)
	if m[arch.TL0] != 2 {
		t.Fatalf("TL0: want 2, have %d", m[arch.TL0])
	}
}

func TestSplitModeBorrowsTimer1Run(t *testing.T) {
	m := newTestMemory()
	d := New(0)
	m[arch.TMOD] = tmodCounter | ModeSplit
	m.SetFlag(arch.TR0, 1)
	m.SetFlag(arch.TR1, 1)

	m.SetFlag(arch.T0, 0)
	d.Sample(m)
	d.Advance(m, 2)
	if m[arch.TL0] != 1 || m[arch.TH0] != 2 {
		t.Fatalf("want TL0=1 TH0=2, have TL0=%d TH0=%d", m[arch.TL0], m[arch.TH0])
	}

	m.SetFlag(arch.T0, 1)
	d.Sample(m)
	d.Advance(m, 1)
	if m[arch.TL0] != 1 || m[arch.TH0] != 3 {
		t.Fatalf("want TL0=1 TH0=3, have TL0=%d TH0=%d", m[arch.TL0], m[arch.TH0])
	}
}
