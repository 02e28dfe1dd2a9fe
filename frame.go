package rendercore

import "github.com/gogpu/rendercore/device"

// Frame is the render-thread execution context handed to every
// Command.Execute. It is the only route to the device, the transient
// arena, and the GPU profiler, which structurally confines those
// operations to the render thread: no other goroutine ever holds a Frame.
//
// A Frame must not be retained beyond the Execute call that received it.
type Frame struct {
	dev   device.Device
	arena *transientArena
	prof  *gpuProfiler
}

// Device returns the graphics device. All device methods are safe to call
// here: Execute runs on the thread that initialized the device.
func (f *Frame) Device() device.Device { return f.dev }

// AllocTransient returns a Slice of per-frame scratch memory, or the zero
// Slice when the frame's capacity is exhausted. The slice is valid until
// the frame's present command resets the arena.
func (f *Frame) AllocTransient(size uint32) Slice {
	return f.arena.alloc(size)
}

// BeginRegion opens a named GPU timing region. Regions may nest up to the
// configured depth and must be balanced before the frame boundary.
func (f *Frame) BeginRegion(name string) {
	f.prof.beginRegion(name)
}

// EndRegion closes the innermost open GPU timing region.
func (f *Frame) EndRegion() {
	f.prof.endRegion()
}
