package jobs

import (
	"sync"
	"testing"
	"time"
)

func TestSignalCompleteReleasesWaiters(t *testing.T) {
	s := NewSignal()

	const waiters = 4
	var wg sync.WaitGroup
	wg.Add(waiters)
	for range waiters {
		go func() {
			defer wg.Done()
			s.Wait()
		}()
	}

	s.Complete()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("waiters not released after Complete")
	}
}

func TestSignalCompleteIdempotent(t *testing.T) {
	s := NewSignal()
	s.Complete()
	s.Complete() // must not panic
	if !s.Completed() {
		t.Error("Completed() = false after Complete")
	}
}

func TestSignalCompleted(t *testing.T) {
	s := NewSignal()
	if s.Completed() {
		t.Error("new signal reports completed")
	}
	s.Complete()
	if !s.Completed() {
		t.Error("completed signal reports pending")
	}
}

func TestSignalNilBehavesCompleted(t *testing.T) {
	var s *Signal

	s.Wait()     // must not block
	s.Complete() // must not panic

	if !s.Completed() {
		t.Error("nil signal reports pending")
	}
	select {
	case <-s.Done():
	default:
		t.Error("nil signal Done() channel not closed")
	}
}

func TestSignalDone(t *testing.T) {
	s := NewSignal()
	select {
	case <-s.Done():
		t.Fatal("Done() closed before Complete")
	default:
	}

	s.Complete()
	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("Done() not closed after Complete")
	}
}

func TestSignalWaitAfterComplete(t *testing.T) {
	s := NewSignal()
	s.Complete()
	s.Wait() // must return immediately
}
