// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package device

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"
)

// Provider errors.
var (
	// ErrNilProvider is returned when FromProvider receives nil.
	ErrNilProvider = errors.New("device: provider is nil")

	// ErrNoHALAccess is returned when the provider does not expose
	// direct HAL device access.
	ErrNoHALAccess = errors.New("device: provider does not expose HAL access")
)

// Provider is the host-application device handle. Frameworks like gogpu
// implement gpucontext.DeviceProvider; passing one here lets rendercore
// drive the host's GPU device instead of opening its own adapter.
type Provider = gpucontext.DeviceProvider

// FromProvider creates a Device that shares the host application's GPU
// device. The provider must additionally expose HAL access through
// HalDevice() any and HalQueue() any methods returning wgpu/hal types;
// gogpu's context provider does.
//
// The returned device never releases the underlying HAL device or queue;
// they belong to the host.
func FromProvider(p Provider) (Device, error) {
	if p == nil {
		return nil, ErrNilProvider
	}

	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := p.(halProvider)
	if !ok {
		return nil, ErrNoHALAccess
	}
	dev, ok := hp.HalDevice().(hal.Device)
	if !ok || dev == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHALAccess)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHALAccess)
	}

	return &HAL{
		device:      dev,
		queue:       queue,
		owned:       false,
		adapterName: "shared",
		buffers:     make(map[BufferID]hal.Buffer),
		programs:    make(map[ProgramID]hal.ShaderModule),
		queries:     make(map[QueryID]*halQuery),
	}, nil
}
