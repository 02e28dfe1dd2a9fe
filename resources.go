package rendercore

import (
	"fmt"

	"github.com/gogpu/rendercore/device"
)

// Resource creation follows the deferred-handle pattern: the handle is
// allocated synchronously so the caller can reference the resource right
// away, while the device work rides the command pipeline and lands on the
// render thread in submission order. Failures surface in the log, never
// to the caller: by the time the device rejects the work, the creating
// call has long since returned.

// CreateBuffer allocates a buffer handle and submits the command that
// creates the buffer on the device. data is copied before the call
// returns; the caller keeps ownership of its slice.
func (r *Renderer) CreateBuffer(size uint64, data []byte) (device.BufferID, error) {
	id := r.dev.AllocBufferID()

	var owned []byte
	if len(data) > 0 {
		owned = make([]byte, len(data))
		copy(owned, data)
	}

	err := r.Submit(Func(func(f *Frame) error {
		return f.Device().CreateBuffer(id, size, owned)
	}))
	if err != nil {
		return device.InvalidBuffer, err
	}
	return id, nil
}

// WriteBuffer submits an upload into an existing buffer. data is copied
// before the call returns.
func (r *Renderer) WriteBuffer(id device.BufferID, offset uint64, data []byte) error {
	owned := make([]byte, len(data))
	copy(owned, data)

	return r.Submit(Func(func(f *Frame) error {
		return f.Device().WriteBuffer(id, offset, owned)
	}))
}

// DestroyBuffer submits destruction of a buffer. The buffer stays usable
// by commands submitted before this call, because destruction inherits
// their ordering.
func (r *Renderer) DestroyBuffer(id device.BufferID) error {
	return r.Submit(Func(func(f *Frame) error {
		f.Device().DestroyBuffer(id)
		return nil
	}))
}

// CreateProgram allocates a program handle and submits a two-phase
// command: the setup phase compiles WGSL to SPIR-V on a scheduler worker,
// off the render thread; the execute phase creates the device program.
// A compile error is logged and the handle is left without a program.
func (r *Renderer) CreateProgram(label, wgsl string) (device.ProgramID, error) {
	id := r.dev.AllocProgramID()
	cmd := &programCommand{id: id, label: label, source: wgsl}
	if err := r.Submit(cmd); err != nil {
		return device.InvalidProgram, err
	}
	return id, nil
}

// DestroyProgram submits destruction of a program.
func (r *Renderer) DestroyProgram(id device.ProgramID) error {
	return r.Submit(Func(func(f *Frame) error {
		f.Device().DestroyProgram(id)
		return nil
	}))
}

// programCommand compiles a shader during setup and uploads it during
// execute. The compiled SPIR-V is written only by Setup and read only by
// Execute, which the pipeline orders.
type programCommand struct {
	id     device.ProgramID
	label  string
	source string

	spirv []uint32
	err   error
}

func (c *programCommand) Setup() {
	c.spirv, c.err = device.CompileWGSL(c.source)
}

func (c *programCommand) Execute(f *Frame) error {
	if c.err != nil {
		return fmt.Errorf("program %q: %w", c.label, c.err)
	}
	return f.Device().CreateProgram(c.id, c.label, c.spirv)
}
