//go:build !nogpu

package main

import "github.com/gogpu/rendercore/device"

func openDevice(gpu bool) (device.Device, error) {
	if gpu {
		return device.NewHAL(), nil
	}
	return device.NewNull(), nil
}
