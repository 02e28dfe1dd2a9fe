//go:build nogpu

package main

import (
	"errors"

	"github.com/gogpu/rendercore/device"
)

func openDevice(gpu bool) (device.Device, error) {
	if gpu {
		return nil, errors.New("built with the nogpu tag; only the null device is available")
	}
	return device.NewNull(), nil
}
