package devices

// Edge tracks the two most recent distinct states of an input pin.
// Repeated observations of the same state leave the history untouched.
type Edge struct {
	prev    int
	cur     int
	changed bool // Did the last observation change the state?
}

// NewEdge creates a tracker for a pin that idles at the given state.
func NewEdge(idle int) Edge {
	return Edge{prev: idle, cur: idle}
}

// Observe records the current pin state.
func (e *Edge) Observe(v int) {
	v &= 1
	e.changed = v != e.cur
	if e.changed {
		e.prev, e.cur = e.cur, v
	}
}

// State returns the most recently observed pin state.
func (e *Edge) State() int {
	return e.cur
}

// Falling returns true if the last observation was a 1 to 0 transition.
func (e *Edge) Falling() bool {
	return e.changed && e.prev == 1 && e.cur == 0
}

// Rising returns true if the last observation was a 0 to 1 transition.
func (e *Edge) Rising() bool {
	return e.changed && e.prev == 0 && e.cur == 1
}
