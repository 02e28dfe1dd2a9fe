package jobs

import (
	"testing"
	"time"
)

func TestGateDepth(t *testing.T) {
	g := NewGate(3)
	if g.Depth() != 3 {
		t.Errorf("Depth() = %d, want 3", g.Depth())
	}
}

func TestGateAcquireUpToDepth(t *testing.T) {
	g := NewGate(2)

	g.Acquire()
	g.Acquire()
	if g.TryAcquire() {
		t.Error("TryAcquire succeeded with no permits left")
	}

	g.Release()
	if !g.TryAcquire() {
		t.Error("TryAcquire failed after Release")
	}
}

func TestGateAcquireBlocksUntilRelease(t *testing.T) {
	g := NewGate(1)
	g.Acquire()

	acquired := make(chan struct{})
	go func() {
		g.Acquire()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("Acquire returned with no permit available")
	case <-time.After(20 * time.Millisecond):
	}

	g.Release()
	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("Acquire did not return after Release")
	}
}

func TestGateOverReleasePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Release beyond depth did not panic")
		}
	}()
	g := NewGate(1)
	g.Release()
}

func TestGateInvalidDepthPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewGate(0) did not panic")
		}
	}()
	NewGate(0)
}
