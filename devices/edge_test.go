package devices

import "testing"

func TestEdge(t *testing.T) {
	e := NewEdge(1)

	for i, v := range []struct {
		in      int
		falling bool
		rising  bool
	}{
		{1, false, false},
		{0, true, false},
		{0, false, false}, // repeated state does not shift the history
		{0, false, false},
		{1, false, true},
		{1, false, false},
		{0, true, false},
	} {
		e.Observe(v.in)
		if e.Falling() != v.falling || e.Rising() != v.rising {
			t.Fatalf("step %d (%d):\nwant: falling=%v rising=%v\nhave: falling=%v rising=%v",
				i, v.in, v.falling, v.rising, e.Falling(), e.Rising())
		}
		if e.State() != v.in {
			t.Fatalf("step %d: state %d", i, e.State())
		}
	}
}

type testDevice struct {
	id      ID
	resets  int
	samples int
	cycles  int
}

func (d *testDevice) ID() ID                       { return d.id }
func (d *testDevice) Reset()                       { d.resets++ }
func (d *testDevice) Sample(Memory)                { d.samples++ }
func (d *testDevice) Advance(_ Memory, cycles int) { d.cycles += cycles }

func TestMap(t *testing.T) {
	var dm Map
	a := &testDevice{id: NewID(MCS51, 1)}
	b := &testDevice{id: NewID(MCS51, 2)}

	if !dm.Connect(a) || !dm.Connect(b) {
		t.Fatalf("Connect failed")
	}
	if dm.Connect(&testDevice{id: a.id}) {
		t.Fatalf("duplicate device accepted")
	}
	if dm.Find(b.id) != 1 || dm.Find(NewID(MCS51, 3)) != -1 {
		t.Fatalf("Find mismatch")
	}

	dm.Sample(nil)
	dm.Advance(nil, 2)
	dm.Advance(nil, 1)
	dm.Reset()

	for _, d := range []*testDevice{a, b} {
		if d.samples != 1 || d.cycles != 3 || d.resets != 1 {
			t.Fatalf("device %v: %+v", d.id, d)
		}
	}

	if id := NewID(MCS51, 7); id.Family() != 0x8051 || id.Unit() != 7 || id.String() != "8051:0007" {
		t.Fatalf("ID mismatch: %v", id)
	}
}
