package rendercore

import "github.com/gogpu/rendercore/jobs"

// Command is the unit of deferred render work.
//
// A Command moves through two phases. Setup runs on a scheduler worker,
// off the render thread; it may read scene data and prepare captured
// state. Execute runs on the render thread and is the only place device
// operations are allowed. The pipeline guarantees Setup happens-before
// Execute for the same command, and that Execute calls across commands
// occur in submission order.
//
// A command must not be mutated after its Setup phase returns: the render
// thread reads whatever Setup produced, and the two phases are the only
// sides that ever touch the payload.
type Command interface {
	// Setup prepares the command off the render thread.
	Setup()

	// Execute performs the command's device work. An error is logged and
	// the command's remaining effects are skipped; it never stops the
	// render thread.
	Execute(f *Frame) error
}

// Func adapts a plain function to a Command with a no-op Setup.
// Use it for work that has no preparation phase:
//
//	r.Submit(rendercore.Func(func(f *rendercore.Frame) error {
//	    return f.Device().WriteBuffer(buf, 0, data)
//	}))
func Func(fn func(f *Frame) error) Command {
	return funcCommand{fn: fn}
}

type funcCommand struct {
	fn func(f *Frame) error
}

func (funcCommand) Setup() {}

func (c funcCommand) Execute(f *Frame) error { return c.fn(f) }

// task wraps a Command with its pipeline bookkeeping while queued.
type task struct {
	cmd Command

	// executed completes on the render thread once Execute has returned
	// (or the task was discarded by shutdown). It is the link in the
	// chained completion signal: the next submission's setup is
	// preconditioned on it.
	executed *jobs.Signal

	// shutdown marks the poison pill that stops the render thread.
	shutdown bool
}
