// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/atlas/gpucore"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// texture is a hal texture array and the metadata writes need.
type texture struct {
	tex           hal.Texture
	width, height int
	layers        int
	format        gpucore.TextureFormat
}

// Device implements gpucore.Device using gogpu/wgpu/hal directly.
//
// Thread Safety: Device is safe for concurrent use. Resource maps are
// guarded by a mutex; hal calls happen outside it.
type Device struct {
	mu     sync.RWMutex
	device hal.Device
	queue  hal.Queue
	limits gpucore.Limits

	nextID atomic.Uint64

	buffers  map[gpucore.BufferID]hal.Buffer
	textures map[gpucore.TextureID]*texture
}

// NewDevice wraps a hal device and queue. If limits is nil, WebGPU default
// limits are assumed.
func NewDevice(device hal.Device, queue hal.Queue, limits *gputypes.Limits) *Device {
	lim := gputypes.DefaultLimits()
	if limits != nil {
		lim = *limits
	}
	return &Device{
		device:   device,
		queue:    queue,
		limits:   convertLimits(lim),
		buffers:  make(map[gpucore.BufferID]hal.Buffer),
		textures: make(map[gpucore.TextureID]*texture),
	}
}

// FromProvider borrows the hal device and queue of a host application.
// The provider must implement HalDevice() any and HalQueue() any returning
// hal.Device and hal.Queue.
func FromProvider(provider gpucontext.DeviceProvider, limits *gputypes.Limits) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHALProvider
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHALProvider)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHALProvider)
	}
	return NewDevice(device, queue, limits), nil
}

func (d *Device) newID() uint64 {
	return d.nextID.Add(1)
}

// Limits implements gpucore.Device.
func (d *Device) Limits() gpucore.Limits { return d.limits }

// === Buffers ===

// CreateBuffer implements gpucore.Device.
func (d *Device) CreateBuffer(size int, usage gpucore.BufferUsage, label string) (gpucore.BufferID, error) {
	if size <= 0 {
		return gpucore.InvalidID, fmt.Errorf("native: buffer size must be positive, got %d", size)
	}
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(size),
		Usage: convertBufferUsage(usage),
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create buffer %q: %w", label, err)
	}

	id := gpucore.BufferID(d.newID())
	d.mu.Lock()
	d.buffers[id] = buf
	d.mu.Unlock()
	return id, nil
}

// DestroyBuffer implements gpucore.Device.
func (d *Device) DestroyBuffer(id gpucore.BufferID) {
	d.mu.Lock()
	buf, ok := d.buffers[id]
	delete(d.buffers, id)
	d.mu.Unlock()

	if ok {
		d.device.DestroyBuffer(buf)
	}
}

// WriteBuffer implements gpucore.Device.
func (d *Device) WriteBuffer(id gpucore.BufferID, offset uint64, data []byte) {
	d.mu.RLock()
	buf, ok := d.buffers[id]
	d.mu.RUnlock()

	if !ok || len(data) == 0 {
		return
	}
	if err := d.queue.WriteBuffer(buf, offset, data); err != nil {
		slogger().Error("native: buffer write failed", "buffer", id, "offset", offset, "err", err)
	}
}

// === Textures ===

// CreateTextureArray implements gpucore.Device.
func (d *Device) CreateTextureArray(width, height, layers int, format gpucore.TextureFormat, label string) (gpucore.TextureID, error) {
	hf, ok := convertTextureFormat(format)
	if !ok {
		return gpucore.InvalidID, fmt.Errorf("%w: %v", ErrUnsupportedFormat, format)
	}
	if width <= 0 || height <= 0 || layers <= 0 {
		return gpucore.InvalidID, fmt.Errorf("native: invalid texture size %dx%dx%d", width, height, layers)
	}

	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label: label,
		Size: hal.Extent3D{
			Width:              uint32(width),  //nolint:gosec // checked positive
			Height:             uint32(height), //nolint:gosec // checked positive
			DepthOrArrayLayers: uint32(layers), //nolint:gosec // checked positive
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        hf,
		Usage: gputypes.TextureUsageCopySrc |
			gputypes.TextureUsageCopyDst |
			gputypes.TextureUsageTextureBinding,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create texture %q: %w", label, err)
	}

	id := gpucore.TextureID(d.newID())
	d.mu.Lock()
	d.textures[id] = &texture{tex: tex, width: width, height: height, layers: layers, format: format}
	d.mu.Unlock()
	return id, nil
}

// DestroyTexture implements gpucore.Device.
func (d *Device) DestroyTexture(id gpucore.TextureID) {
	d.mu.Lock()
	t, ok := d.textures[id]
	delete(d.textures, id)
	d.mu.Unlock()

	if ok {
		d.device.DestroyTexture(t.tex)
	}
}

// WriteTexture implements gpucore.Device.
func (d *Device) WriteTexture(id gpucore.TextureID, region gpucore.TextureRegion, data []byte) {
	t, ok := d.texture(id)
	if !ok || len(data) == 0 || region.Width <= 0 || region.Height <= 0 {
		return
	}
	w, h := uint32(region.Width), uint32(region.Height) //nolint:gosec // checked positive
	err := d.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: t.tex, Origin: origin3D(region.Origin())},
		data,
		&hal.ImageDataLayout{
			BytesPerRow:  w * uint32(t.format.BytesPerPixel()), //nolint:gosec // 1 or 4
			RowsPerImage: h,
		},
		&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)
	if err != nil {
		slogger().Error("native: texture write failed", "texture", id, "region", region, "err", err)
	}
}

// CopyTexture implements gpucore.Device.
//
// The copy is recorded on its own command buffer and the call blocks until
// the device is idle, so the source may be destroyed as soon as it returns.
// Copies within one texture must target a different array layer.
func (d *Device) CopyTexture(src, dst gpucore.TextureID, from gpucore.TextureRegion, to gpucore.Origin) error {
	s, ok := d.texture(src)
	if !ok {
		return fmt.Errorf("%w: source %d", ErrUnknownTexture, src)
	}
	t, ok := d.texture(dst)
	if !ok {
		return fmt.Errorf("%w: destination %d", ErrUnknownTexture, dst)
	}
	if s.format != t.format {
		return fmt.Errorf("%w: %v to %v", ErrFormatMismatch, s.format, t.format)
	}
	if src == dst && from.Layer == to.Layer {
		return fmt.Errorf("%w: layer %d", ErrOverlappingCopy, from.Layer)
	}
	if from.Width <= 0 || from.Height <= 0 {
		return nil
	}

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "atlas_copy_encoder",
	})
	if err != nil {
		return fmt.Errorf("native: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("atlas_copy"); err != nil {
		return fmt.Errorf("native: begin encoding: %w", err)
	}

	encoder.TransitionTextures([]hal.TextureBarrier{
		layerBarrier(s.tex, from.Layer, gputypes.TextureUsageTextureBinding, gputypes.TextureUsageCopySrc),
		layerBarrier(t.tex, to.Layer, gputypes.TextureUsageTextureBinding, gputypes.TextureUsageCopyDst),
	})
	encoder.CopyTextureToTexture(s.tex, t.tex, []hal.TextureCopy{{
		SrcBase: hal.ImageCopyTexture{Texture: s.tex, Origin: origin3D(from.Origin())},
		DstBase: hal.ImageCopyTexture{Texture: t.tex, Origin: origin3D(to)},
		Size: hal.Extent3D{
			Width:              uint32(from.Width),  //nolint:gosec // checked positive
			Height:             uint32(from.Height), //nolint:gosec // checked positive
			DepthOrArrayLayers: 1,
		},
	}})
	encoder.TransitionTextures([]hal.TextureBarrier{
		layerBarrier(s.tex, from.Layer, gputypes.TextureUsageCopySrc, gputypes.TextureUsageTextureBinding),
		layerBarrier(t.tex, to.Layer, gputypes.TextureUsageCopyDst, gputypes.TextureUsageTextureBinding),
	})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("native: end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmdBuf)

	if _, err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}); err != nil {
		return fmt.Errorf("native: submit copy: %w", err)
	}
	if err := d.device.WaitIdle(); err != nil {
		return fmt.Errorf("native: wait for copy: %w", err)
	}
	return nil
}

// layerBarrier transitions a single array layer of tex.
func layerBarrier(tex hal.Texture, layer int, from, to gputypes.TextureUsage) hal.TextureBarrier {
	return hal.TextureBarrier{
		Texture: tex,
		Range: hal.TextureRange{
			BaseArrayLayer:  uint32(layer), //nolint:gosec // inside texture
			ArrayLayerCount: 1,
		},
		Usage: hal.TextureUsageTransition{OldUsage: from, NewUsage: to},
	}
}

func origin3D(o gpucore.Origin) hal.Origin3D {
	return hal.Origin3D{X: uint32(o.X), Y: uint32(o.Y), Z: uint32(o.Layer)} //nolint:gosec // inside texture
}

func (d *Device) texture(id gpucore.TextureID) (*texture, bool) {
	d.mu.RLock()
	t, ok := d.textures[id]
	d.mu.RUnlock()
	return t, ok
}

// Close destroys every buffer and texture still owned by the bridge.
// The hal device and queue are left to their owner.
func (d *Device) Close() {
	d.mu.Lock()
	buffers, textures := d.buffers, d.textures
	d.buffers = make(map[gpucore.BufferID]hal.Buffer)
	d.textures = make(map[gpucore.TextureID]*texture)
	d.mu.Unlock()

	for _, b := range buffers {
		d.device.DestroyBuffer(b)
	}
	for _, t := range textures {
		d.device.DestroyTexture(t.tex)
	}
}

// ResourceCount returns the number of live buffers and textures.
func (d *Device) ResourceCount() (buffers, textures int) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.buffers), len(d.textures)
}

var _ gpucore.Device = (*Device)(nil)
