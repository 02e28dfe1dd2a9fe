package rendercore

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/gogpu/rendercore/device"
	"github.com/gogpu/rendercore/jobs"
)

// Renderer owns the render pipeline: the dedicated render thread, the
// blocking command queue feeding it, the scheduler bridge that turns
// Submit calls into an ordered two-phase pipeline, the per-frame
// transient arena, and the GPU timing collector.
//
// Submit, Frame, Wait, TryGetTimings, RequestShutdown and
// WaitForShutdownComplete are safe from any goroutine. AllocTransient,
// BeginRegion and EndRegion are render-thread-only and are normally
// reached through the Frame passed to Command.Execute.
type Renderer struct {
	dev  device.Device
	pool *jobs.Pool
	opts options

	queue *commandQueue

	// submitMu serializes the read-modify-write of the two chain heads
	// so they observe submissions in order.
	submitMu sync.Mutex

	// lastEnqueue is the enqueue-job completion of the newest submission.
	// Gating the next setup on it keeps enqueue order equal to submit
	// order without ever waiting on render-thread execution, so setups
	// overlap with whatever execute is in flight.
	lastEnqueue *jobs.Signal

	// lastExec is the executed-signal of the newest submission: the
	// chained completion signal. Waiting on it means "everything
	// submitted so far has executed".
	lastExec *jobs.Signal

	// setupJobs counts in-flight setup phases; Frame waits for zero.
	setupJobs jobs.Counter

	// frameGate bounds how many frames the owner may run ahead.
	frameGate *jobs.Gate

	layers  *LayerRegistry
	defines *DefineRegistry

	started  atomic.Bool
	draining atomic.Bool
	stopOnce sync.Once

	// finished completes when the render thread has drained and
	// released the device.
	finished *jobs.Signal

	// frame is the render thread's execute context, published atomically
	// at startup so readers on other goroutines see it fully built.
	frame atomic.Pointer[Frame]

	// inExecute is set by the render thread around Execute calls; the
	// defensive check behind the render-thread-only facade methods.
	inExecute atomic.Bool
}

// New creates a Renderer over the given device and scheduler pool.
// The render thread does not run until Start.
func New(dev device.Device, pool *jobs.Pool, opts ...Option) *Renderer {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	r := &Renderer{
		dev:       dev,
		pool:      pool,
		opts:      o,
		queue:     newCommandQueue(),
		frameGate: jobs.NewGate(o.framesInFlight),
		layers:    NewLayerRegistry(),
		defines:   NewDefineRegistry(),
		finished:  jobs.NewSignal(),
	}
	r.layers.Index("default")
	return r
}

// Start launches the render thread and blocks until one-time device
// initialization has succeeded or failed. The thread that runs the
// device is locked to its OS thread for the renderer's lifetime.
func (r *Renderer) Start() error {
	if !r.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	errc := make(chan error, 1)
	go r.renderThread(errc)
	if err := <-errc; err != nil {
		r.finished.Complete()
		return err
	}
	return nil
}

// renderThread is the pipeline's dedicated thread: Starting (device init),
// Running (dequeue/execute loop), Draining (release and signal finished).
func (r *Renderer) renderThread(errc chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	// Starting: thread-affine device init, arena, profiler calibration.
	if err := r.dev.Init(); err != nil {
		errc <- fmt.Errorf("rendercore: device init: %w", err)
		return
	}

	arena, err := newTransientArena(r.dev, r.opts.transientCapacity)
	if err != nil {
		r.dev.Release()
		errc <- fmt.Errorf("rendercore: transient arena: %w", err)
		return
	}

	prof := newGPUProfiler(r.dev, r.opts.timingHistory, r.opts.regionDepth)
	frame := &Frame{dev: r.dev, arena: arena, prof: prof}
	r.frame.Store(frame)

	Logger().Info("rendercore: render thread running", "device", r.dev.Name())
	errc <- nil

	// Running.
	for {
		t := r.queue.dequeueBlocking()
		if t.shutdown {
			t.executed.Complete()
			break
		}

		r.inExecute.Store(true)
		if err := t.cmd.Execute(frame); err != nil {
			Logger().Error("rendercore: command failed",
				"command", fmt.Sprintf("%T", t.cmd), "err", err)
		}
		r.inExecute.Store(false)

		t.executed.Complete()
	}

	// Draining: discard anything enqueued after the poison pill,
	// release device-side state, signal completion.
	for _, t := range r.queue.close() {
		Logger().Warn("rendercore: command discarded at shutdown",
			"command", fmt.Sprintf("%T", t.cmd))
		t.executed.Complete()
	}

	prof.clear()
	r.dev.Release()
	Logger().Info("rendercore: render thread stopped")
	r.finished.Complete()
}

// Submit schedules cmd through the two-phase pipeline and returns
// immediately. Setup runs on a scheduler worker, in parallel with
// whatever the render thread is executing; the command is then enqueued
// for the render thread. Execute order across commands always equals
// Submit order.
//
// After RequestShutdown, Submit rejects new work with ErrShuttingDown.
func (r *Renderer) Submit(cmd Command) error {
	if cmd == nil {
		return ErrNilCommand
	}
	if r.draining.Load() {
		return ErrShuttingDown
	}
	r.submit(&task{cmd: cmd, executed: jobs.NewSignal()})
	return nil
}

// submit chains the task's setup and enqueue jobs behind the previous
// submission's enqueue. The setup job waits only for the previous
// enqueue, never for render-thread execution, so setups run in parallel
// with any in-flight execute; the enqueue job follows its own setup and,
// transitively, the previous enqueue, which keeps enqueue order equal to
// submit order. The critical section is two pointer swaps plus two
// scheduler calls; Submit never blocks on render work.
func (r *Renderer) submit(t *task) {
	r.submitMu.Lock()
	defer r.submitMu.Unlock()

	prev := r.lastEnqueue
	r.lastExec = t.executed

	r.setupJobs.Inc()
	setupSig := r.pool.Run(func() {
		t.cmd.Setup()
		r.setupJobs.Dec()
	}, prev)

	r.lastEnqueue = r.pool.Run(func() {
		if !r.queue.enqueue(t) {
			Logger().Warn("rendercore: command discarded at shutdown",
				"command", fmt.Sprintf("%T", t.cmd))
			t.executed.Complete()
		}
	}, setupSig)
}

// Frame submits the frame-fence command (flush the transient arena,
// present, publish GPU timings, reset the arena), then waits for all
// in-flight setup phases and for the frame pacing gate. The fence command
// is ordered after every command submitted before it and before every
// command submitted after it.
func (r *Renderer) Frame() error {
	if !r.started.Load() {
		return ErrNotStarted
	}
	if r.draining.Load() {
		return ErrShuttingDown
	}

	// Acquire before submitting so every Release on the render thread
	// matches a prior Acquire; blocks when framesInFlight presents are
	// still outstanding.
	r.frameGate.Acquire()

	err := r.Submit(Func(func(f *Frame) error {
		if err := f.arena.flush(f.dev); err != nil {
			Logger().Error("rendercore: transient flush failed", "err", err)
		}
		presentErr := f.dev.Present()
		f.prof.advanceFrame()
		f.arena.reset()
		r.frameGate.Release()
		return presentErr
	}))
	if err != nil {
		r.frameGate.Release()
		return err
	}

	r.setupJobs.Wait()
	return nil
}

// Wait blocks until every command submitted before the call has executed.
// This is the chained completion signal: it is cheap to call at frame
// boundaries or before teardown.
func (r *Renderer) Wait() {
	r.submitMu.Lock()
	last := r.lastExec
	r.submitMu.Unlock()
	last.Wait()
}

// AllocTransient returns per-frame scratch memory. Render-thread-only:
// it must be called from inside a Command.Execute body, where the Frame
// parameter is the preferred route. Calling it anywhere else is a
// contract violation and panics.
func (r *Renderer) AllocTransient(size uint32) Slice {
	r.checkRenderThread("AllocTransient")
	return r.frame.Load().arena.alloc(size)
}

// BeginRegion opens a named GPU timing region. Render-thread-only; see
// AllocTransient for the contract.
func (r *Renderer) BeginRegion(name string) {
	r.checkRenderThread("BeginRegion")
	r.frame.Load().prof.beginRegion(name)
}

// EndRegion closes the innermost GPU timing region. Render-thread-only.
func (r *Renderer) EndRegion() {
	r.checkRenderThread("EndRegion")
	r.frame.Load().prof.endRegion()
}

// checkRenderThread panics unless the render thread is currently inside
// a command's Execute. The check cannot prove the caller IS the render
// thread, but it catches every call made while no Execute is running,
// which is where these bugs surface in practice.
func (r *Renderer) checkRenderThread(op string) {
	if !r.inExecute.Load() {
		panic("rendercore: " + op + " called off the render thread")
	}
}

// TryGetTimings copies the oldest unread frame of GPU timing records into
// out and returns true, or returns false when nothing new is available.
// Safe from any goroutine.
func (r *Renderer) TryGetTimings(out *[]TimingRecord) bool {
	f := r.frame.Load()
	if f == nil {
		return false
	}
	return f.prof.tryGetTimings(out)
}

// Layers returns the render layer registry.
func (r *Renderer) Layers() *LayerRegistry { return r.layers }

// Defines returns the shader define registry.
func (r *Renderer) Defines() *DefineRegistry { return r.defines }

// RequestShutdown stops accepting new work and submits the shutdown
// command through the normal pipeline, so every previously submitted
// command executes before the render thread drains. Safe to call more
// than once.
func (r *Renderer) RequestShutdown() {
	r.stopOnce.Do(func() {
		r.draining.Store(true)
		if !r.started.Load() {
			// Never started: discard anything already queued so their
			// executed signals still complete.
			for _, t := range r.queue.close() {
				t.executed.Complete()
			}
			r.finished.Complete()
			return
		}
		r.submit(&task{
			cmd:      Func(func(*Frame) error { return nil }),
			executed: jobs.NewSignal(),
			shutdown: true,
		})
	})
}

// WaitForShutdownComplete blocks until the render thread has drained and
// released the device. Call RequestShutdown first.
func (r *Renderer) WaitForShutdownComplete() {
	r.finished.Wait()
}
