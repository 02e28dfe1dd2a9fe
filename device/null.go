// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// Null device errors.
var (
	// ErrNotInitialized is returned when operating on a device before Init.
	ErrNotInitialized = errors.New("device: not initialized")

	// ErrInvalidHandle is returned when an operation references a handle
	// that was never allocated or was already consumed.
	ErrInvalidHandle = errors.New("device: invalid handle")

	// ErrInvalidSize is returned when a buffer size or write range is invalid.
	ErrInvalidSize = errors.New("device: invalid size")
)

// Null is an in-memory Device for tests and headless operation.
//
// Buffers are plain byte slices, programs store their SPIR-V, and
// timestamp queries return a deterministic monotonically increasing clock.
// Every device call is appended to an op log that tests can inspect.
//
// Like every Device, Null expects single-threaded use for the
// render-thread-only methods; handle allocation is atomic.
type Null struct {
	mu sync.Mutex

	initialized bool
	released    bool

	nextBuffer  atomic.Uint32
	nextProgram atomic.Uint32
	nextQuery   uint32

	buffers  map[BufferID][]byte
	programs map[ProgramID][]uint32
	queries  map[QueryID]uint64

	transient []byte

	// clock is the fake device timestamp, advanced by every QueryTimestamp.
	clock uint64

	// ops records device calls in order, e.g. "createBuffer(0, 64)".
	ops []string

	presents int
}

// NewNull creates an uninitialized Null device.
func NewNull() *Null {
	return &Null{
		buffers:  make(map[BufferID][]byte),
		programs: make(map[ProgramID][]uint32),
		queries:  make(map[QueryID]uint64),
	}
}

// Init implements Device.
func (d *Null) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.released {
		return errors.New("device: reinitializing a released device")
	}
	d.initialized = true
	d.logf("init")
	return nil
}

// Release implements Device.
func (d *Null) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.initialized = false
	d.released = true
	d.buffers = make(map[BufferID][]byte)
	d.programs = make(map[ProgramID][]uint32)
	d.queries = make(map[QueryID]uint64)
	d.logf("release")
}

// Name implements Device.
func (d *Null) Name() string { return "null" }

// AllocBufferID implements Device. Safe from any goroutine.
func (d *Null) AllocBufferID() BufferID {
	return BufferID(d.nextBuffer.Add(1) - 1)
}

// AllocProgramID implements Device. Safe from any goroutine.
func (d *Null) AllocProgramID() ProgramID {
	return ProgramID(d.nextProgram.Add(1) - 1)
}

// CreateBuffer implements Device.
func (d *Null) CreateBuffer(id BufferID, size uint64, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return ErrNotInitialized
	}
	if !id.IsValid() {
		return ErrInvalidHandle
	}
	if size == 0 || uint64(len(data)) > size {
		return fmt.Errorf("%w: size=%d data=%d", ErrInvalidSize, size, len(data))
	}
	buf := make([]byte, size)
	copy(buf, data)
	d.buffers[id] = buf
	d.logf("createBuffer(%d, %d)", id, size)
	return nil
}

// WriteBuffer implements Device.
func (d *Null) WriteBuffer(id BufferID, offset uint64, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return ErrNotInitialized
	}
	buf, ok := d.buffers[id]
	if !ok {
		return ErrInvalidHandle
	}
	if offset+uint64(len(data)) > uint64(len(buf)) {
		return fmt.Errorf("%w: write [%d, %d) into buffer of %d",
			ErrInvalidSize, offset, offset+uint64(len(data)), len(buf))
	}
	copy(buf[offset:], data)
	d.logf("writeBuffer(%d, %d, %d)", id, offset, len(data))
	return nil
}

// DestroyBuffer implements Device.
func (d *Null) DestroyBuffer(id BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.buffers, id)
	d.logf("destroyBuffer(%d)", id)
}

// CreateProgram implements Device.
func (d *Null) CreateProgram(id ProgramID, label string, spirv []uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return ErrNotInitialized
	}
	if !id.IsValid() || len(spirv) == 0 {
		return ErrInvalidHandle
	}
	d.programs[id] = spirv
	d.logf("createProgram(%d, %q)", id, label)
	return nil
}

// DestroyProgram implements Device.
func (d *Null) DestroyProgram(id ProgramID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.programs, id)
	d.logf("destroyProgram(%d)", id)
}

// InitTransient implements Device.
func (d *Null) InitTransient(size uint64) (BufferID, []byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return InvalidBuffer, nil, ErrNotInitialized
	}
	id := BufferID(d.nextBuffer.Add(1) - 1)
	d.transient = make([]byte, size)
	d.buffers[id] = d.transient
	d.logf("initTransient(%d, %d)", id, size)
	return id, d.transient, nil
}

// FlushTransient implements Device.
func (d *Null) FlushTransient(offset, size uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return ErrNotInitialized
	}
	if offset+size > uint64(len(d.transient)) {
		return fmt.Errorf("%w: flush [%d, %d) of %d",
			ErrInvalidSize, offset, offset+size, len(d.transient))
	}
	d.logf("flushTransient(%d, %d)", offset, size)
	return nil
}

// Present implements Device.
func (d *Null) Present() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return ErrNotInitialized
	}
	d.presents++
	d.logf("present")
	return nil
}

// CreateQuery implements Device.
func (d *Null) CreateQuery() QueryID {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := QueryID(d.nextQuery)
	d.nextQuery++
	d.queries[id] = 0
	return id
}

// QueryTimestamp implements Device. Each call advances the fake device
// clock by one microsecond, so consecutive timestamps are strictly ordered.
func (d *Null) QueryTimestamp(id QueryID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clock += 1000
	if _, ok := d.queries[id]; ok {
		d.queries[id] = d.clock
	}
}

// QueryResult implements Device. Null queries are always ready.
func (d *Null) QueryResult(id QueryID) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.queries[id]
}

// DestroyQuery implements Device.
func (d *Null) DestroyQuery(id QueryID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.queries, id)
}

// Ops returns a copy of the op log. Safe from any goroutine.
func (d *Null) Ops() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.ops))
	copy(out, d.ops)
	return out
}

// Presents returns the number of Present calls.
func (d *Null) Presents() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.presents
}

// BufferLen returns the size of a live buffer, or -1 if it does not exist.
func (d *Null) BufferLen(id BufferID) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	buf, ok := d.buffers[id]
	if !ok {
		return -1
	}
	return len(buf)
}

func (d *Null) logf(format string, args ...any) {
	d.ops = append(d.ops, fmt.Sprintf(format, args...))
}

// Ensure Null implements Device.
var _ Device = (*Null)(nil)
