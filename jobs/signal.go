package jobs

import "sync"

// Signal is a single-assignment completion handle.
//
// A Signal starts pending and transitions to completed exactly once via
// Complete. Any number of goroutines may Wait on it, before or after
// completion. A nil *Signal is valid everywhere a Signal is accepted and
// behaves as an already-completed signal; it plays the role of the
// "no precondition" value.
//
// Signals are the chaining primitive for ordered pipelines: task B runs
// after task A by passing A's completion signal as B's precondition.
type Signal struct {
	done chan struct{}
	once sync.Once
}

// NewSignal creates a pending Signal.
func NewSignal() *Signal {
	return &Signal{done: make(chan struct{})}
}

// Complete marks the signal as completed and releases all waiters.
// Complete is idempotent; only the first call has an effect.
func (s *Signal) Complete() {
	if s == nil {
		return
	}
	s.once.Do(func() { close(s.done) })
}

// Wait blocks until the signal is completed.
// Waiting on a nil or already-completed signal returns immediately.
func (s *Signal) Wait() {
	if s == nil {
		return
	}
	<-s.done
}

// Done returns a channel that is closed when the signal completes.
// For a nil signal, Done returns an already-closed channel.
func (s *Signal) Done() <-chan struct{} {
	if s == nil {
		return closedChan
	}
	return s.done
}

// Completed reports whether the signal has completed.
func (s *Signal) Completed() bool {
	if s == nil {
		return true
	}
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// closedChan is the Done channel of a nil Signal.
var closedChan = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()
