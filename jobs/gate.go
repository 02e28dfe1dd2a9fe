package jobs

// Gate is a bounded counting signal with a fixed depth.
//
// A Gate starts with depth permits. Acquire takes a permit, blocking
// when none are available; Release returns one. The renderer uses a
// depth-2 Gate for frame pacing: the owner acquires once per frame and
// the render thread releases when the frame's present command executes,
// so the owner can never run more than two frames ahead.
type Gate struct {
	slots chan struct{}
}

// NewGate creates a Gate with the given depth. Depth must be positive.
func NewGate(depth int) *Gate {
	if depth <= 0 {
		panic("jobs: Gate depth must be positive")
	}
	g := &Gate{slots: make(chan struct{}, depth)}
	for range depth {
		g.slots <- struct{}{}
	}
	return g
}

// Acquire takes a permit, blocking until one is available.
func (g *Gate) Acquire() {
	<-g.slots
}

// TryAcquire takes a permit without blocking.
// It returns false if no permit is available.
func (g *Gate) TryAcquire() bool {
	select {
	case <-g.slots:
		return true
	default:
		return false
	}
}

// Release returns a permit. Releasing more permits than the gate's
// depth is a caller bug and panics.
func (g *Gate) Release() {
	select {
	case g.slots <- struct{}{}:
	default:
		panic("jobs: Gate.Release without matching Acquire")
	}
}

// Depth returns the gate's permit capacity.
func (g *Gate) Depth() int {
	return cap(g.slots)
}
