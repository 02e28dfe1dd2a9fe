package rendercore

import "errors"

// Renderer errors.
var (
	// ErrNilCommand is returned by Submit when the command is nil.
	ErrNilCommand = errors.New("rendercore: nil command")

	// ErrShuttingDown is returned by Submit and Frame after
	// RequestShutdown: the pipeline no longer accepts new work.
	ErrShuttingDown = errors.New("rendercore: renderer is shutting down")

	// ErrAlreadyStarted is returned by Start when the render thread
	// is already running.
	ErrAlreadyStarted = errors.New("rendercore: renderer already started")

	// ErrNotStarted is returned by operations that require the render
	// thread before Start has succeeded.
	ErrNotStarted = errors.New("rendercore: renderer not started")
)
