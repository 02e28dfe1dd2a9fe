package rendercore

import "github.com/gogpu/rendercore/device"

// Slice is a span of transient device memory handed out by the per-frame
// arena. Data points into CPU staging memory that is uploaded to Buffer
// at the frame boundary; Offset locates the span inside the device buffer.
//
// The zero Slice (nil Data, zero Size) signals arena exhaustion. Callers
// must check IsValid before writing and respond to exhaustion by splitting
// work across frames.
//
// A Slice is valid until the arena's next per-frame reset. It is never
// freed individually.
type Slice struct {
	// Buffer identifies the transient device buffer backing this slice.
	Buffer device.BufferID

	// Offset is the byte offset of the slice within Buffer.
	Offset uint32

	// Data is the writable staging memory for the slice, or nil if the
	// allocation failed.
	Data []byte
}

// IsValid reports whether the slice holds usable memory.
func (s Slice) IsValid() bool { return s.Data != nil }

// Size returns the slice length in bytes.
func (s Slice) Size() uint32 { return uint32(len(s.Data)) }

// transientArena is the per-frame linear allocator over a persistently
// staged device buffer of twice the frame capacity. Frames alternate
// between the two halves so the device can consume last frame's data
// while the render thread fills this frame's.
//
// Single-writer: only the render thread allocates or resets, so the
// bump offset needs no synchronization.
type transientArena struct {
	buffer   device.BufferID
	mem      []byte // 2 * capacity staging bytes
	capacity uint32

	offset      uint32 // bump offset within the current half
	frameOffset uint32 // 0 or capacity, flipped each frame

	// overflowed suppresses repeated exhaustion logs within one frame.
	overflowed bool
}

// newTransientArena creates the arena's device buffer and staging memory.
// Called during render-thread startup.
func newTransientArena(dev device.Device, capacity uint32) (*transientArena, error) {
	id, mem, err := dev.InitTransient(2 * uint64(capacity))
	if err != nil {
		return nil, err
	}
	return &transientArena{
		buffer:   id,
		mem:      mem,
		capacity: capacity,
	}, nil
}

// alloc returns a Slice of size bytes, or the zero Slice when the frame's
// capacity is exhausted. The arena never grows and never wraps.
func (a *transientArena) alloc(size uint32) Slice {
	if a.offset+size > a.capacity || a.offset+size < a.offset {
		if !a.overflowed {
			Logger().Error("rendercore: out of transient memory",
				"requested", size, "used", a.offset, "capacity", a.capacity)
			a.overflowed = true
		}
		return Slice{Buffer: a.buffer}
	}

	s := Slice{
		Buffer: a.buffer,
		Offset: a.frameOffset + a.offset,
		Data:   a.mem[a.frameOffset+a.offset : a.frameOffset+a.offset+size : a.frameOffset+a.offset+size],
	}
	a.offset += size
	return s
}

// used returns the bytes allocated in the current frame.
func (a *transientArena) used() uint32 { return a.offset }

// flush uploads the frame's used range to the device buffer.
// Runs on the render thread before the present call.
func (a *transientArena) flush(dev device.Device) error {
	return dev.FlushTransient(uint64(a.frameOffset), uint64(a.offset))
}

// reset flips to the other buffer half and rewinds the bump offset.
// Runs on the render thread after the present call, ordered like any
// other device work because the present command performs it.
func (a *transientArena) reset() {
	a.frameOffset = (a.frameOffset + a.capacity) % (2 * a.capacity)
	a.offset = 0
	a.overflowed = false
}
