// Package gputest provides a recording gpucore.Device for tests.
//
// The device stores content in a softgpu.Device and counts every write and
// copy, so tests can assert both content (growth kept every pixel) and
// traffic (a steady frame issued no writes). Unlike softgpu it panics on
// invalid writes, turning a caller bug into a test failure.
package gputest

import (
	"errors"
	"fmt"

	"github.com/gogpu/atlas/gpucore"
	"github.com/gogpu/atlas/internal/softgpu"
)

// ErrInjected is returned by Create* calls when failure injection is on.
var ErrInjected = errors.New("gputest: injected allocation failure")

// Buffer is the simulated state of one GPU buffer.
type Buffer = softgpu.Buffer

// Texture is the simulated state of one texture array.
type Texture = softgpu.Texture

// Write records one WriteBuffer call.
type Write struct {
	Buffer gpucore.BufferID
	Offset uint64
	Size   int
}

// Device is a recording gpucore.Device. It is not safe for concurrent use.
type Device struct {
	*softgpu.Device

	// FailBuffers makes CreateBuffer return ErrInjected.
	FailBuffers bool
	// FailTextures makes CreateTextureArray return ErrInjected.
	FailTextures bool

	Writes        []Write
	TextureWrites int
	Copies        int
}

// NewDevice creates a device reporting the given limits.
func NewDevice(limits gpucore.Limits) *Device {
	return &Device{Device: softgpu.NewDevice(limits)}
}

// CreateBuffer implements gpucore.Device.
func (d *Device) CreateBuffer(size int, usage gpucore.BufferUsage, label string) (gpucore.BufferID, error) {
	if d.FailBuffers {
		return gpucore.InvalidID, ErrInjected
	}
	return d.Device.CreateBuffer(size, usage, label)
}

// WriteBuffer implements gpucore.Device. Out-of-range writes panic.
func (d *Device) WriteBuffer(id gpucore.BufferID, offset uint64, data []byte) {
	b := d.Buffer(id)
	if b == nil {
		panic(fmt.Sprintf("gputest: write to unknown buffer %d", id))
	}
	if offset+uint64(len(data)) > uint64(len(b.Data)) {
		panic(fmt.Sprintf("gputest: write [%d,%d) past buffer end %d",
			offset, offset+uint64(len(data)), len(b.Data)))
	}
	d.Device.WriteBuffer(id, offset, data)
	d.Writes = append(d.Writes, Write{Buffer: id, Offset: offset, Size: len(data)})
}

// CreateTextureArray implements gpucore.Device.
func (d *Device) CreateTextureArray(width, height, layers int, format gpucore.TextureFormat, label string) (gpucore.TextureID, error) {
	if d.FailTextures {
		return gpucore.InvalidID, ErrInjected
	}
	return d.Device.CreateTextureArray(width, height, layers, format, label)
}

// WriteTexture implements gpucore.Device. Invalid writes panic.
func (d *Device) WriteTexture(id gpucore.TextureID, region gpucore.TextureRegion, data []byte) {
	t := d.mustTexture(id, region)
	if len(data) < region.Width*region.Height*t.Format.BytesPerPixel() {
		panic(fmt.Sprintf("gputest: %d bytes too short for %v", len(data), region))
	}
	d.Device.WriteTexture(id, region, data)
	d.TextureWrites++
}

// CopyTexture implements gpucore.Device.
func (d *Device) CopyTexture(src, dst gpucore.TextureID, from gpucore.TextureRegion, to gpucore.Origin) error {
	if err := d.Device.CopyTexture(src, dst, from, to); err != nil {
		return err
	}
	d.Copies++
	return nil
}

// ReadTexture returns a tightly packed copy of a texture region.
func (d *Device) ReadTexture(id gpucore.TextureID, region gpucore.TextureRegion) []byte {
	return d.mustTexture(id, region).Read(region)
}

// ResetCounters forgets recorded traffic.
func (d *Device) ResetCounters() {
	d.Writes = d.Writes[:0]
	d.TextureWrites = 0
	d.Copies = 0
}

// Reset destroys every resource and forgets recorded traffic.
func (d *Device) Reset() {
	d.Device.Reset()
	d.ResetCounters()
}

func (d *Device) mustTexture(id gpucore.TextureID, region gpucore.TextureRegion) *Texture {
	t := d.Texture(id)
	if t == nil {
		panic(fmt.Sprintf("gputest: unknown texture %d", id))
	}
	if !t.Contains(region) {
		panic(fmt.Sprintf("gputest: %v outside %dx%dx%d texture", region, t.Width, t.Height, len(t.Layers)))
	}
	return t
}

var _ gpucore.Device = (*Device)(nil)
