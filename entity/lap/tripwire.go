package lap

// Tripwire is the edge detector of one proximity sensor. A trip is a
// not-present -> present transition, the level itself is not an event.
// Update must be called often enough to observe the low level between two passes.
type Tripwire struct {
	Name      string
	lastLevel bool
}

func NewTripwire(name string) *Tripwire {
	return &Tripwire{Name: name}
}

// Update records the current level and reports a rising edge.
func (w *Tripwire) Update(level bool) (tripped bool) {
	tripped = !w.lastLevel && level
	w.lastLevel = level
	return
}

// Level is the last observed level.
func (w *Tripwire) Level() bool {
	return w.lastLevel
}
