// Package rendercore decouples deciding what to draw from talking to the
// graphics device.
//
// # Overview
//
// Many goroutines record device work concurrently as Commands; the
// operations that must touch the device execute, in submission order, on
// exactly one dedicated render thread. Recording is parallel and cheap,
// device access is serial and thread-affine, and GPU execution time is
// measured without stalling either side.
//
// # Quick Start
//
//	pool := jobs.NewPool(0)
//	defer pool.Close()
//
//	r := rendercore.New(device.NewNull(), pool)
//	if err := r.Start(); err != nil {
//	    log.Fatal(err)
//	}
//
//	buf, _ := r.CreateBuffer(256, vertexData)
//	r.Submit(rendercore.Func(func(f *rendercore.Frame) error {
//	    f.BeginRegion("upload")
//	    defer f.EndRegion()
//	    return f.Device().WriteBuffer(buf, 0, moreData)
//	}))
//
//	r.Frame() // present, publish GPU timings, reset transient memory
//
//	r.RequestShutdown()
//	r.WaitForShutdownComplete()
//
// # Ordering
//
// Submit builds two scheduler jobs per command: a setup job that runs off
// the render thread as soon as the previous command has been enqueued,
// and an enqueue job that hands the command to the render thread. The
// chain makes execute order equal submit order while setups overlap with
// the in-flight execute. Wait blocks on the chained completion signal:
// "everything submitted so far has executed".
//
// # Backpressure
//
// Frame acquires a permit from a bounded gate (default depth 2) that the
// frame's present command releases, so the caller can never run more than
// a fixed number of frames ahead of the device. Transient allocations
// that exceed the per-frame arena return the zero Slice instead of
// growing, and GPU timing history drops frames rather than buffering
// without bound.
//
// # Errors
//
// Nothing that happens on the render thread is reported back to the
// submitting caller; by then the call has long returned. Device-level
// failures are logged and the failing command's remaining effects are
// skipped. Contract violations (unbalanced profile regions, render-
// thread-only calls made elsewhere) panic.
package rendercore
