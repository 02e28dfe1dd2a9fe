package rendercore

import (
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gogpu/rendercore/device"
	"github.com/gogpu/rendercore/jobs"
)

// newTestRenderer builds a started renderer over a Null device with a
// small transient arena. Shutdown and pool teardown run on test cleanup.
func newTestRenderer(t *testing.T, opts ...Option) (*Renderer, *device.Null) {
	t.Helper()

	dev := device.NewNull()
	pool := jobs.NewPool(4)
	opts = append([]Option{WithTransientCapacity(256)}, opts...)
	r := New(dev, pool, opts...)
	if err := r.Start(); err != nil {
		pool.Close()
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		r.RequestShutdown()
		r.WaitForShutdownComplete()
		pool.Close()
	})
	return r, dev
}

func TestStartTwice(t *testing.T) {
	r, _ := newTestRenderer(t)
	if err := r.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start = %v, want ErrAlreadyStarted", err)
	}
}

func TestStartDeviceInitFailure(t *testing.T) {
	dev := device.NewNull()
	if err := dev.Init(); err != nil {
		t.Fatal(err)
	}
	dev.Release() // a released Null refuses to reinitialize

	pool := jobs.NewPool(1)
	defer pool.Close()

	r := New(dev, pool)
	if err := r.Start(); err == nil {
		t.Fatal("Start succeeded with a failing device")
	}
	r.WaitForShutdownComplete() // must not hang after a failed start
}

func TestSubmitNilCommand(t *testing.T) {
	r, _ := newTestRenderer(t)
	if err := r.Submit(nil); !errors.Is(err, ErrNilCommand) {
		t.Errorf("Submit(nil) = %v, want ErrNilCommand", err)
	}
}

func TestExecuteOrderMatchesSubmitOrder(t *testing.T) {
	r, _ := newTestRenderer(t)

	const n = 100
	var mu sync.Mutex
	var order []int
	for i := range n {
		err := r.Submit(Func(func(*Frame) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		}))
		if err != nil {
			t.Fatalf("Submit(%d): %v", i, err)
		}
	}
	r.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(order) != n {
		t.Fatalf("executed %d commands, want %d", len(order), n)
	}
	if !slices.IsSorted(order) {
		t.Errorf("execute order does not match submit order: %v", order)
	}
}

// hookCommand runs optional callbacks for each pipeline phase.
type hookCommand struct {
	setup   func()
	execute func(*Frame) error
}

func (c *hookCommand) Setup() {
	if c.setup != nil {
		c.setup()
	}
}

func (c *hookCommand) Execute(f *Frame) error {
	if c.execute != nil {
		return c.execute(f)
	}
	return nil
}

func TestSetupHappensBeforeOwnExecute(t *testing.T) {
	r, _ := newTestRenderer(t)

	const n = 50
	var violations atomic.Int64
	for i := range n {
		var setupRan atomic.Bool
		cmd := &hookCommand{
			setup: func() { setupRan.Store(true) },
			execute: func(*Frame) error {
				if !setupRan.Load() {
					violations.Add(1)
				}
				return nil
			},
		}
		if err := r.Submit(cmd); err != nil {
			t.Fatalf("Submit(%d): %v", i, err)
		}
	}
	r.Wait()

	if got := violations.Load(); got != 0 {
		t.Errorf("%d commands executed before their setup ran", got)
	}
}

// A later command's setup must not wait for an earlier command's execute.
// The first command's execute blocks until the second command's setup has
// started, which only finishes in time when the two phases overlap.
func TestSetupRunsDuringInFlightExecute(t *testing.T) {
	r, _ := newTestRenderer(t)

	laterSetup := make(chan struct{})
	overlapped := make(chan bool, 1)
	first := &hookCommand{
		execute: func(*Frame) error {
			select {
			case <-laterSetup:
				overlapped <- true
			case <-time.After(5 * time.Second):
				overlapped <- false
			}
			return nil
		},
	}
	second := &hookCommand{
		setup: func() { close(laterSetup) },
	}

	if err := r.Submit(first); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := r.Submit(second); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	r.Wait()

	if !<-overlapped {
		t.Fatal("second command's setup did not start while the first was executing")
	}
}

func TestConcurrentSubmitters(t *testing.T) {
	r, _ := newTestRenderer(t)

	const goroutines = 8
	const perGoroutine = 50
	var count atomic.Int64
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for range goroutines {
		go func() {
			defer wg.Done()
			for range perGoroutine {
				r.Submit(Func(func(*Frame) error {
					count.Add(1)
					return nil
				}))
			}
		}()
	}
	wg.Wait()
	r.Wait()

	if got := count.Load(); got != goroutines*perGoroutine {
		t.Errorf("executed %d commands, want %d", got, goroutines*perGoroutine)
	}
}

func TestCommandErrorDoesNotStopRenderThread(t *testing.T) {
	r, _ := newTestRenderer(t)

	r.Submit(Func(func(*Frame) error {
		return errors.New("buffer upload rejected")
	}))

	ran := false
	r.Submit(Func(func(*Frame) error {
		ran = true
		return nil
	}))
	r.Wait()

	if !ran {
		t.Error("render thread stopped after a command error")
	}
}

func TestWaitNoSubmissions(t *testing.T) {
	r, _ := newTestRenderer(t)
	r.Wait() // must return immediately
}

func TestFramePresentsAndResetsArena(t *testing.T) {
	r, dev := newTestRenderer(t, WithTransientCapacity(64))

	offsets := make(chan uint32, 2)
	submitAlloc := func() {
		r.Submit(Func(func(f *Frame) error {
			s := f.AllocTransient(64)
			if !s.IsValid() {
				t.Error("full-capacity transient alloc failed")
			}
			offsets <- s.Offset
			return nil
		}))
	}

	submitAlloc()
	if err := r.Frame(); err != nil {
		t.Fatalf("Frame: %v", err)
	}
	submitAlloc()
	if err := r.Frame(); err != nil {
		t.Fatalf("Frame: %v", err)
	}

	r.RequestShutdown()
	r.WaitForShutdownComplete()

	if got := dev.Presents(); got != 2 {
		t.Errorf("Presents() = %d, want 2", got)
	}
	// Frames alternate between the two halves of the staging buffer.
	if first := <-offsets; first != 0 {
		t.Errorf("frame 0 alloc offset = %d, want 0", first)
	}
	if second := <-offsets; second != 64 {
		t.Errorf("frame 1 alloc offset = %d, want 64", second)
	}
}

func TestTransientExhaustionReturnsZeroSlice(t *testing.T) {
	r, _ := newTestRenderer(t, WithTransientCapacity(64))

	valid := make(chan bool, 1)
	r.Submit(Func(func(f *Frame) error {
		f.AllocTransient(60)
		s := f.AllocTransient(8)
		valid <- s.IsValid()
		return nil
	}))
	r.Wait()

	if <-valid {
		t.Error("over-capacity transient alloc returned a valid slice")
	}
}

func TestAllocTransientOffRenderThreadPanics(t *testing.T) {
	r, _ := newTestRenderer(t)

	defer func() {
		if recover() == nil {
			t.Error("AllocTransient off the render thread did not panic")
		}
	}()
	r.AllocTransient(16)
}

func TestBeginRegionOffRenderThreadPanics(t *testing.T) {
	r, _ := newTestRenderer(t)

	defer func() {
		if recover() == nil {
			t.Error("BeginRegion off the render thread did not panic")
		}
	}()
	r.BeginRegion("pass")
}

func TestTimingsPublishedAtFrameBoundary(t *testing.T) {
	r, _ := newTestRenderer(t)

	r.Submit(Func(func(f *Frame) error {
		f.BeginRegion("geometry")
		f.EndRegion()
		return nil
	}))
	if err := r.Frame(); err != nil {
		t.Fatalf("Frame: %v", err)
	}

	// Shutdown fences the present command, so the frame's timings are
	// guaranteed published by now.
	r.RequestShutdown()
	r.WaitForShutdownComplete()

	var recs []TimingRecord
	if !r.TryGetTimings(&recs) {
		t.Fatal("TryGetTimings = false after a frame with a region")
	}
	if len(recs) != 2 || recs[0].Name != "geometry" || !recs[1].End {
		t.Errorf("records = %+v, want begin(geometry) + end", recs)
	}
	if recs[1].Time <= recs[0].Time {
		t.Errorf("end time %d not after begin time %d", recs[1].Time, recs[0].Time)
	}
}

func TestTryGetTimingsBeforeStart(t *testing.T) {
	pool := jobs.NewPool(1)
	defer pool.Close()

	r := New(device.NewNull(), pool)
	var recs []TimingRecord
	if r.TryGetTimings(&recs) {
		t.Error("TryGetTimings = true before Start")
	}
}

// Polling for timings while Start publishes the execute context must be
// race-free.
func TestTryGetTimingsDuringStart(t *testing.T) {
	dev := device.NewNull()
	pool := jobs.NewPool(2)
	defer pool.Close()

	r := New(dev, pool, WithTransientCapacity(256))
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		var recs []TimingRecord
		for {
			select {
			case <-stop:
				return
			default:
				r.TryGetTimings(&recs)
			}
		}
	}()

	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	close(stop)
	wg.Wait()

	r.RequestShutdown()
	r.WaitForShutdownComplete()
}

func TestShutdownExecutesPriorCommands(t *testing.T) {
	r, dev := newTestRenderer(t)

	var ran atomic.Int64
	for range 2 {
		r.Submit(Func(func(*Frame) error {
			ran.Add(1)
			return nil
		}))
	}
	r.RequestShutdown()

	if err := r.Submit(Func(func(*Frame) error { return nil })); !errors.Is(err, ErrShuttingDown) {
		t.Errorf("Submit after RequestShutdown = %v, want ErrShuttingDown", err)
	}

	r.WaitForShutdownComplete()
	if got := ran.Load(); got != 2 {
		t.Errorf("%d commands executed before shutdown, want 2", got)
	}
	ops := dev.Ops()
	if len(ops) == 0 || ops[len(ops)-1] != "release" {
		t.Error("device not released at shutdown")
	}
}

func TestFrameAfterShutdown(t *testing.T) {
	r, _ := newTestRenderer(t)

	r.RequestShutdown()
	if err := r.Frame(); !errors.Is(err, ErrShuttingDown) {
		t.Errorf("Frame after RequestShutdown = %v, want ErrShuttingDown", err)
	}
}

func TestShutdownIdempotent(t *testing.T) {
	r, _ := newTestRenderer(t)

	r.RequestShutdown()
	r.RequestShutdown()
	r.WaitForShutdownComplete()
	r.WaitForShutdownComplete()
}

func TestFrameBeforeStart(t *testing.T) {
	pool := jobs.NewPool(1)
	defer pool.Close()

	r := New(device.NewNull(), pool)
	if err := r.Frame(); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Frame before Start = %v, want ErrNotStarted", err)
	}
}

func TestShutdownBeforeStart(t *testing.T) {
	pool := jobs.NewPool(1)
	defer pool.Close()

	r := New(device.NewNull(), pool)
	if err := r.Submit(Func(func(*Frame) error { return nil })); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	r.RequestShutdown()
	r.Wait()                    // queued command's signal must still complete
	r.WaitForShutdownComplete() // must not hang without a render thread

	if err := r.Submit(Func(func(*Frame) error { return nil })); !errors.Is(err, ErrShuttingDown) {
		t.Errorf("Submit after shutdown = %v, want ErrShuttingDown", err)
	}
}

func TestDefaultLayerRegistered(t *testing.T) {
	r, _ := newTestRenderer(t)

	if got := r.Layers().Index("default"); got != 0 {
		t.Errorf("Index(\"default\") = %d, want 0", got)
	}
	if got := r.Layers().Index("transparent"); got == 0 {
		t.Error("new layer shares index 0 with the default layer")
	}
	if r.Defines().Count() != 0 {
		t.Errorf("Defines().Count() = %d on a new renderer, want 0", r.Defines().Count())
	}
}
