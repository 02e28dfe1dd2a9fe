// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package device

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// HAL device errors.
var (
	// ErrNoGPU is returned when no usable adapter can be found.
	ErrNoGPU = errors.New("device: no GPU available")

	// ErrGPUTimeout is returned when the device does not signal a fence
	// within the fence timeout.
	ErrGPUTimeout = errors.New("device: GPU timeout")
)

// fenceTimeout bounds every fence wait issued by the HAL device.
const fenceTimeout = 5 * time.Second

// halQuery is a fence-based timestamp query.
//
// wgpu/hal exposes no GPU timestamp queries, so a query is approximated
// by a fence submitted at QueryTimestamp time: when the fence signals,
// everything previously submitted has completed, and the CPU clock at
// that moment stands in for the device timestamp.
type halQuery struct {
	fence    hal.Fence
	resolved uint64
	done     bool
}

// HAL is a Device backed by gogpu/wgpu's hardware abstraction layer.
//
// The device is compute-capable and headless; Present flushes the queue
// with a fence wait rather than swapping a surface. Rendering to a window
// belongs to the host application, which can instead share its device via
// FromProvider.
type HAL struct {
	backend gputypes.Backend

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue

	// owned is false when the device/queue came from an external provider
	// and must not be released by us.
	owned bool

	adapterName string

	nextBuffer  atomic.Uint32
	nextProgram atomic.Uint32
	nextQuery   uint32

	buffers  map[BufferID]hal.Buffer
	programs map[ProgramID]hal.ShaderModule
	queries  map[QueryID]*halQuery

	transient     hal.Buffer
	transientMem  []byte
	transientSize uint64

	mu          sync.Mutex
	initialized bool
}

// NewHAL creates an uninitialized HAL device that will open its own
// Vulkan adapter on Init.
func NewHAL() *HAL {
	return &HAL{
		backend:  gputypes.BackendVulkan,
		owned:    true,
		buffers:  make(map[BufferID]hal.Buffer),
		programs: make(map[ProgramID]hal.ShaderModule),
		queries:  make(map[QueryID]*halQuery),
	}
}

// Init implements Device. It must run on the locked render thread.
func (d *HAL) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.initialized {
		return nil
	}

	if !d.owned {
		// Shared device from FromProvider; nothing to open.
		d.initialized = true
		return nil
	}

	backend, ok := hal.GetBackend(d.backend)
	if !ok {
		return fmt.Errorf("%w: backend not compiled in", ErrNoGPU)
	}

	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("device: create instance: %w", err)
	}
	d.instance = instance

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return ErrNoGPU
	}

	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return fmt.Errorf("device: open adapter: %w", err)
	}
	d.device = openDev.Device
	d.queue = openDev.Queue
	d.adapterName = selected.Info.Name
	d.initialized = true

	slogger().Info("device: HAL initialized", "adapter", d.adapterName)
	return nil
}

// Release implements Device.
func (d *HAL) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return
	}

	for id, q := range d.queries {
		if q.fence != nil {
			d.device.DestroyFence(q.fence)
		}
		delete(d.queries, id)
	}
	for id, b := range d.buffers {
		d.device.DestroyBuffer(b)
		delete(d.buffers, id)
	}
	for id, p := range d.programs {
		d.device.DestroyShaderModule(p)
		delete(d.programs, id)
	}
	if d.transient != nil {
		d.device.DestroyBuffer(d.transient)
		d.transient = nil
	}

	d.initialized = false
	slogger().Info("device: HAL released")
}

// Name implements Device.
func (d *HAL) Name() string {
	if d.adapterName != "" {
		return d.adapterName
	}
	return "hal"
}

// AllocBufferID implements Device. Safe from any goroutine.
func (d *HAL) AllocBufferID() BufferID {
	return BufferID(d.nextBuffer.Add(1) - 1)
}

// AllocProgramID implements Device. Safe from any goroutine.
func (d *HAL) AllocProgramID() ProgramID {
	return ProgramID(d.nextProgram.Add(1) - 1)
}

// CreateBuffer implements Device.
func (d *HAL) CreateBuffer(id BufferID, size uint64, data []byte) error {
	if !id.IsValid() {
		return ErrInvalidHandle
	}
	if size == 0 || uint64(len(data)) > size {
		return fmt.Errorf("%w: size=%d data=%d", ErrInvalidSize, size, len(data))
	}

	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: fmt.Sprintf("rendercore_buffer_%d", id),
		Size:  size,
		Usage: gputypes.BufferUsageCopyDst | gputypes.BufferUsageStorage,
	})
	if err != nil {
		return fmt.Errorf("device: create buffer %d: %w", id, err)
	}
	d.buffers[id] = buf

	if len(data) > 0 {
		d.queue.WriteBuffer(buf, 0, data)
	}
	return nil
}

// WriteBuffer implements Device.
func (d *HAL) WriteBuffer(id BufferID, offset uint64, data []byte) error {
	buf, ok := d.buffers[id]
	if !ok {
		return ErrInvalidHandle
	}
	d.queue.WriteBuffer(buf, offset, data)
	return nil
}

// DestroyBuffer implements Device.
func (d *HAL) DestroyBuffer(id BufferID) {
	if buf, ok := d.buffers[id]; ok {
		d.device.DestroyBuffer(buf)
		delete(d.buffers, id)
	}
}

// CreateProgram implements Device.
func (d *HAL) CreateProgram(id ProgramID, label string, spirv []uint32) error {
	if !id.IsValid() || len(spirv) == 0 {
		return ErrInvalidHandle
	}
	mod, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label: label,
		Source: hal.ShaderSource{
			SPIRV: spirv,
		},
	})
	if err != nil {
		return fmt.Errorf("device: create program %q: %w", label, err)
	}
	d.programs[id] = mod
	return nil
}

// DestroyProgram implements Device.
func (d *HAL) DestroyProgram(id ProgramID) {
	if mod, ok := d.programs[id]; ok {
		d.device.DestroyShaderModule(mod)
		delete(d.programs, id)
	}
}

// InitTransient implements Device.
//
// The transient buffer lives on the device; writes land in CPU staging
// memory and FlushTransient uploads the frame's used range once per frame.
func (d *HAL) InitTransient(size uint64) (BufferID, []byte, error) {
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "rendercore_transient",
		Size:  size,
		Usage: gputypes.BufferUsageCopyDst | gputypes.BufferUsageStorage,
	})
	if err != nil {
		return InvalidBuffer, nil, fmt.Errorf("device: create transient buffer: %w", err)
	}
	id := BufferID(d.nextBuffer.Add(1) - 1)
	d.transient = buf
	d.transientMem = make([]byte, size)
	d.transientSize = size
	d.buffers[id] = buf
	return id, d.transientMem, nil
}

// FlushTransient implements Device.
func (d *HAL) FlushTransient(offset, size uint64) error {
	if size == 0 {
		return nil
	}
	if offset+size > d.transientSize {
		return fmt.Errorf("%w: flush [%d, %d) of %d",
			ErrInvalidSize, offset, offset+size, d.transientSize)
	}
	d.queue.WriteBuffer(d.transient, offset, d.transientMem[offset:offset+size])
	return nil
}

// Present implements Device. Headless present: flush the queue and wait.
func (d *HAL) Present() error {
	return d.flush()
}

// flush submits an empty batch with a fence and waits for it, ensuring all
// previously submitted queue work has completed.
func (d *HAL) flush() error {
	fence, err := d.device.CreateFence()
	if err != nil {
		return fmt.Errorf("device: create fence: %w", err)
	}
	defer d.device.DestroyFence(fence)

	if err := d.queue.Submit(nil, fence, 1); err != nil {
		return fmt.Errorf("device: submit: %w", err)
	}
	ok, err := d.device.Wait(fence, 1, fenceTimeout)
	if err != nil {
		return fmt.Errorf("device: wait: %w", err)
	}
	if !ok {
		return ErrGPUTimeout
	}
	return nil
}

// CreateQuery implements Device.
func (d *HAL) CreateQuery() QueryID {
	id := QueryID(d.nextQuery)
	d.nextQuery++
	d.queries[id] = &halQuery{}
	return id
}

// QueryTimestamp implements Device. Re-arms the query if it was resolved
// before (queries are pooled and reused across frames).
func (d *HAL) QueryTimestamp(id QueryID) {
	q, ok := d.queries[id]
	if !ok {
		return
	}
	if q.fence != nil {
		d.device.DestroyFence(q.fence)
		q.fence = nil
	}
	q.done = false
	q.resolved = 0
	fence, err := d.device.CreateFence()
	if err != nil {
		slogger().Warn("device: timestamp fence creation failed", "err", err)
		q.resolved = uint64(time.Now().UnixNano())
		q.done = true
		return
	}
	if err := d.queue.Submit(nil, fence, 1); err != nil {
		slogger().Warn("device: timestamp submit failed", "err", err)
		d.device.DestroyFence(fence)
		q.resolved = uint64(time.Now().UnixNano())
		q.done = true
		return
	}
	q.fence = fence
}

// QueryResult implements Device. Blocks until the query's fence signals.
func (d *HAL) QueryResult(id QueryID) uint64 {
	q, ok := d.queries[id]
	if !ok {
		return 0
	}
	if q.done {
		return q.resolved
	}
	if q.fence != nil {
		if _, err := d.device.Wait(q.fence, 1, fenceTimeout); err != nil {
			slogger().Warn("device: timestamp wait failed", "err", err)
		}
		d.device.DestroyFence(q.fence)
		q.fence = nil
	}
	q.resolved = uint64(time.Now().UnixNano())
	q.done = true
	return q.resolved
}

// DestroyQuery implements Device.
func (d *HAL) DestroyQuery(id QueryID) {
	q, ok := d.queries[id]
	if !ok {
		return
	}
	if q.fence != nil {
		d.device.DestroyFence(q.fence)
	}
	delete(d.queries, id)
}

// Ensure HAL implements Device.
var _ Device = (*HAL)(nil)
