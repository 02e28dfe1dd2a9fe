// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package device defines the GPU device capability consumed by rendercore.
//
// A Device is thread-affine: the goroutine that calls Init must be locked
// to its OS thread and becomes the only goroutine allowed to invoke the
// methods marked render-thread-only. rendercore's render thread is the
// sole caller of those methods; handle allocation is the one concern that
// is safe from any thread, so resource creation can return a usable handle
// immediately while the device work is deferred.
//
// Two implementations ship with the package: Null, an in-memory device for
// tests and headless use, and the wgpu/hal backend created by NewHAL (build
// tag !nogpu). External applications that already own a GPU device can
// share it via FromProvider.
package device

// BufferID is a handle to a device buffer.
// Handles are allocated synchronously via AllocBufferID; the buffer itself
// is created later on the render thread.
type BufferID uint32

// ProgramID is a handle to a compiled shader program.
type ProgramID uint32

// QueryID is a handle to a timestamp query.
type QueryID uint32

// invalidID is the sentinel value for an invalid handle.
const invalidID = ^uint32(0)

// InvalidBuffer is the invalid buffer handle.
const InvalidBuffer = BufferID(invalidID)

// InvalidProgram is the invalid program handle.
const InvalidProgram = ProgramID(invalidID)

// InvalidQuery is the invalid query handle.
const InvalidQuery = QueryID(invalidID)

// IsValid returns true if the handle refers to an allocated buffer.
func (id BufferID) IsValid() bool { return uint32(id) != invalidID }

// IsValid returns true if the handle refers to an allocated program.
func (id ProgramID) IsValid() bool { return uint32(id) != invalidID }

// IsValid returns true if the handle refers to an allocated query.
func (id QueryID) IsValid() bool { return uint32(id) != invalidID }

// Device is the graphics device capability.
//
// Unless noted otherwise, methods are render-thread-only: they may be
// called only from the thread that called Init. AllocBufferID and
// AllocProgramID are safe from any goroutine.
type Device interface {
	// Init acquires the device on the calling thread. The calling
	// goroutine must be locked to its OS thread for the device's
	// lifetime; that thread becomes the render thread.
	Init() error

	// Release destroys all live resources and shuts the device down.
	Release()

	// Name identifies the device (adapter name, or "null").
	Name() string

	// AllocBufferID reserves a buffer handle. Safe from any goroutine.
	AllocBufferID() BufferID

	// AllocProgramID reserves a program handle. Safe from any goroutine.
	AllocProgramID() ProgramID

	// CreateBuffer creates the buffer behind a previously allocated
	// handle. data may be nil for an uninitialized buffer.
	CreateBuffer(id BufferID, size uint64, data []byte) error

	// WriteBuffer uploads data into an existing buffer at offset.
	WriteBuffer(id BufferID, offset uint64, data []byte) error

	// DestroyBuffer releases the buffer. Destroying an invalid or
	// already-destroyed handle is a no-op.
	DestroyBuffer(id BufferID)

	// CreateProgram creates the shader program behind a previously
	// allocated handle from SPIR-V code.
	CreateProgram(id ProgramID, label string, spirv []uint32) error

	// DestroyProgram releases the program.
	DestroyProgram(id ProgramID)

	// InitTransient creates the per-frame transient buffer and returns
	// its handle together with CPU-visible staging memory of the same
	// size. Called once, during render-thread startup.
	InitTransient(size uint64) (BufferID, []byte, error)

	// FlushTransient uploads the given staging range to the transient
	// buffer. Called once per frame, before Present.
	FlushTransient(offset, size uint64) error

	// Present flushes all submitted device work and presents the frame.
	Present() error

	// CreateQuery allocates a timestamp query.
	CreateQuery() QueryID

	// QueryTimestamp records a timestamp into the query at the device's
	// current point in its work stream.
	QueryTimestamp(id QueryID)

	// QueryResult returns the query's timestamp in device nanoseconds,
	// blocking briefly until the device has resolved it.
	QueryResult(id QueryID) uint64

	// DestroyQuery releases a query.
	DestroyQuery(id QueryID)
}
