package jobs

import "sync"

// Counter is a counting signal: Inc before scheduling a tracked task,
// Dec when it finishes, Wait to block until the count returns to zero.
//
// Unlike sync.WaitGroup, a Counter may be reused freely across Wait
// calls and tolerates Inc racing with Wait; the renderer uses one to
// fence "all setup jobs submitted this frame have finished" at the
// frame boundary.
type Counter struct {
	mu   sync.Mutex
	cond *sync.Cond
	n    int
}

// Inc increments the count.
func (c *Counter) Inc() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
}

// Dec decrements the count, waking waiters when it reaches zero.
// Dec panics if the count would go negative; that is always a caller bug.
func (c *Counter) Dec() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.n == 0 {
		panic("jobs: Counter.Dec below zero")
	}
	c.n--
	if c.n == 0 && c.cond != nil {
		c.cond.Broadcast()
	}
}

// Wait blocks until the count is zero. A zero count returns immediately.
func (c *Counter) Wait() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cond == nil {
		c.cond = sync.NewCond(&c.mu)
	}
	for c.n != 0 {
		c.cond.Wait()
	}
}
