// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"errors"
	"fmt"

	"github.com/gogpu/atlas/backend"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// init registers the noop HAL backend on package import.
func init() {
	backend.Register(backend.BackendNoop, func() (backend.Backend, error) {
		return OpenNoop()
	})
}

// NoopBackend is a Device over the gogpu/wgpu noop HAL. Every call goes
// through the HAL bridge but nothing reaches a GPU, which makes it useful
// for headless runs and for validating resource lifetimes.
type NoopBackend struct {
	*Device

	instance hal.Instance
	hal      hal.Device
}

// OpenNoop creates a noop HAL instance, opens its adapter and wraps the
// resulting device.
func OpenNoop() (*NoopBackend, error) {
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		return nil, fmt.Errorf("native: create noop instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, errors.New("native: noop instance has no adapters")
	}

	limits := gputypes.DefaultLimits()
	openDev, err := adapters[0].Adapter.Open(0, limits)
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("native: open noop adapter: %w", err)
	}

	return &NoopBackend{
		Device:   NewDevice(openDev.Device, openDev.Queue, &limits),
		instance: instance,
		hal:      openDev.Device,
	}, nil
}

// Name returns the backend identifier.
func (b *NoopBackend) Name() string {
	return backend.BackendNoop
}

// Close destroys the bridged resources, the device and the instance.
func (b *NoopBackend) Close() {
	b.Device.Close()
	b.hal.Destroy()
	b.instance.Destroy()
}

var _ backend.Backend = (*NoopBackend)(nil)
