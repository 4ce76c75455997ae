//go:build !nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gputex

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/damage"
)

// FromProvider creates a TextureMirror from a shared gpucontext device,
// so windowed applications hand in the device their framework already
// owns instead of wiring hal handles by hand. The provider must expose
// HAL types via HalDevice() any and HalQueue() any.
func FromProvider(p gpucontext.DeviceProvider, t *damage.Tracker, src damage.PixelSource, opts ...Option) (*TextureMirror, error) {
	device, queue, err := halFromProvider(p)
	if err != nil {
		return nil, err
	}
	return New(device, queue, t, src, opts...)
}

// OverlayFromProvider creates an Overlay from a shared gpucontext
// device. The target format defaults to the provider's surface format so
// overlays composite straight onto swapchain views.
func OverlayFromProvider(p gpucontext.DeviceProvider, opts ...OverlayOption) (*Overlay, error) {
	device, queue, err := halFromProvider(p)
	if err != nil {
		return nil, err
	}
	if format := p.SurfaceFormat(); format != gputypes.TextureFormatUndefined {
		opts = append([]OverlayOption{WithTargetFormat(format)}, opts...)
	}
	return NewOverlay(device, queue, opts...)
}

// halFromProvider extracts hal handles from a gpucontext provider.
func halFromProvider(p gpucontext.DeviceProvider) (hal.Device, hal.Queue, error) {
	if p == nil {
		return nil, nil, ErrNoDevice
	}
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := p.(halProvider)
	if !ok {
		return nil, nil, fmt.Errorf("gputex: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, nil, fmt.Errorf("gputex: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, nil, fmt.Errorf("gputex: provider HalQueue is not hal.Queue")
	}
	return device, queue, nil
}
