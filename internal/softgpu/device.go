package softgpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/atlas/gpucore"
)

var (
	// ErrUnknownTexture is returned when a copy names a destroyed texture.
	ErrUnknownTexture = errors.New("softgpu: unknown texture")

	// ErrOutOfBounds is returned when a copy region leaves its texture.
	ErrOutOfBounds = errors.New("softgpu: region out of bounds")

	// ErrFormatMismatch is returned when a copy crosses texture formats.
	ErrFormatMismatch = errors.New("softgpu: texture format mismatch")
)

// Buffer is the CPU copy of one GPU buffer.
type Buffer struct {
	Label string
	Usage gpucore.BufferUsage
	Data  []byte
}

// Texture is the CPU copy of one texture array.
type Texture struct {
	Label         string
	Format        gpucore.TextureFormat
	Width, Height int
	Layers        [][]byte
}

// Contains reports whether region lies inside the texture.
func (t *Texture) Contains(region gpucore.TextureRegion) bool {
	return region.X >= 0 && region.Y >= 0 && region.Width >= 0 && region.Height >= 0 &&
		region.X+region.Width <= t.Width && region.Y+region.Height <= t.Height &&
		region.Layer >= 0 && region.Layer < len(t.Layers)
}

// Read returns a tightly packed copy of region. The region must be inside
// the texture.
func (t *Texture) Read(region gpucore.TextureRegion) []byte {
	bpp := t.Format.BytesPerPixel()
	row := region.Width * bpp
	out := make([]byte, row*region.Height)
	layer := t.Layers[region.Layer]
	for y := range region.Height {
		off := ((region.Y+y)*t.Width + region.X) * bpp
		copy(out[y*row:], layer[off:off+row])
	}
	return out
}

func (t *Texture) write(region gpucore.TextureRegion, data []byte) {
	bpp := t.Format.BytesPerPixel()
	row := region.Width * bpp
	layer := t.Layers[region.Layer]
	for y := range region.Height {
		off := ((region.Y+y)*t.Width + region.X) * bpp
		copy(layer[off:off+row], data[y*row:(y+1)*row])
	}
}

// Device keeps buffers and texture arrays in CPU memory.
// It is not safe for concurrent use.
type Device struct {
	limits   gpucore.Limits
	nextID   uint64
	buffers  map[gpucore.BufferID]*Buffer
	textures map[gpucore.TextureID]*Texture
}

// NewDevice creates a device reporting the given limits.
func NewDevice(limits gpucore.Limits) *Device {
	return &Device{
		limits:   limits,
		buffers:  make(map[gpucore.BufferID]*Buffer),
		textures: make(map[gpucore.TextureID]*Texture),
	}
}

// Limits implements gpucore.Device.
func (d *Device) Limits() gpucore.Limits { return d.limits }

// CreateBuffer implements gpucore.Device.
func (d *Device) CreateBuffer(size int, usage gpucore.BufferUsage, label string) (gpucore.BufferID, error) {
	if size <= 0 || uint64(size) > d.limits.MaxBufferSize {
		return gpucore.InvalidID, fmt.Errorf("softgpu: buffer size %d out of range", size)
	}
	d.nextID++
	id := gpucore.BufferID(d.nextID)
	d.buffers[id] = &Buffer{Label: label, Usage: usage, Data: make([]byte, size)}
	return id, nil
}

// DestroyBuffer implements gpucore.Device.
func (d *Device) DestroyBuffer(id gpucore.BufferID) {
	delete(d.buffers, id)
}

// WriteBuffer implements gpucore.Device. Writes to unknown buffers or past
// the end of a buffer are logged and dropped.
func (d *Device) WriteBuffer(id gpucore.BufferID, offset uint64, data []byte) {
	b, ok := d.buffers[id]
	if !ok {
		slogger().Error("softgpu: write to unknown buffer", "buffer", id)
		return
	}
	if offset+uint64(len(data)) > uint64(len(b.Data)) {
		slogger().Error("softgpu: buffer write out of range",
			"buffer", id, "offset", offset, "size", len(data), "capacity", len(b.Data))
		return
	}
	copy(b.Data[offset:], data)
}

// CreateTextureArray implements gpucore.Device.
func (d *Device) CreateTextureArray(width, height, layers int, format gpucore.TextureFormat, label string) (gpucore.TextureID, error) {
	if width <= 0 || height <= 0 || layers <= 0 ||
		width > d.limits.MaxTextureDimension2D || height > d.limits.MaxTextureDimension2D ||
		layers > d.limits.MaxTextureArrayLayers {
		return gpucore.InvalidID, fmt.Errorf("softgpu: texture %dx%dx%d out of range", width, height, layers)
	}
	bpp := format.BytesPerPixel()
	if bpp == 0 {
		return gpucore.InvalidID, fmt.Errorf("softgpu: unsupported format %v", format)
	}
	t := &Texture{Label: label, Format: format, Width: width, Height: height}
	for range layers {
		t.Layers = append(t.Layers, make([]byte, width*height*bpp))
	}
	d.nextID++
	id := gpucore.TextureID(d.nextID)
	d.textures[id] = t
	return id, nil
}

// DestroyTexture implements gpucore.Device.
func (d *Device) DestroyTexture(id gpucore.TextureID) {
	delete(d.textures, id)
}

// WriteTexture implements gpucore.Device. Invalid writes are logged and
// dropped.
func (d *Device) WriteTexture(id gpucore.TextureID, region gpucore.TextureRegion, data []byte) {
	t, ok := d.textures[id]
	switch {
	case !ok:
		slogger().Error("softgpu: write to unknown texture", "texture", id)
	case !t.Contains(region):
		slogger().Error("softgpu: texture write out of range", "texture", id, "region", region)
	case len(data) < region.Width*region.Height*t.Format.BytesPerPixel():
		slogger().Error("softgpu: texture data too short", "texture", id, "region", region, "size", len(data))
	default:
		t.write(region, data)
	}
}

// CopyTexture implements gpucore.Device.
func (d *Device) CopyTexture(src, dst gpucore.TextureID, from gpucore.TextureRegion, to gpucore.Origin) error {
	s, ok := d.textures[src]
	if !ok {
		return fmt.Errorf("%w: source %d", ErrUnknownTexture, src)
	}
	t, ok := d.textures[dst]
	if !ok {
		return fmt.Errorf("%w: destination %d", ErrUnknownTexture, dst)
	}
	if s.Format != t.Format {
		return fmt.Errorf("%w: %v to %v", ErrFormatMismatch, s.Format, t.Format)
	}
	target := gpucore.TextureRegion{X: to.X, Y: to.Y, Width: from.Width, Height: from.Height, Layer: to.Layer}
	if !s.Contains(from) {
		return fmt.Errorf("%w: source %v", ErrOutOfBounds, from)
	}
	if !t.Contains(target) {
		return fmt.Errorf("%w: destination %v", ErrOutOfBounds, target)
	}
	t.write(target, s.Read(from))
	return nil
}

// Buffer returns the buffer, or nil if id is not live.
func (d *Device) Buffer(id gpucore.BufferID) *Buffer { return d.buffers[id] }

// Texture returns the texture, or nil if id is not live.
func (d *Device) Texture(id gpucore.TextureID) *Texture { return d.textures[id] }

// LiveBuffers returns the number of buffers not yet destroyed.
func (d *Device) LiveBuffers() int { return len(d.buffers) }

// LiveTextures returns the number of textures not yet destroyed.
func (d *Device) LiveTextures() int { return len(d.textures) }

// Reset destroys every resource. IDs keep increasing so stale IDs from
// before the reset stay unknown.
func (d *Device) Reset() {
	clear(d.buffers)
	clear(d.textures)
}

var _ gpucore.Device = (*Device)(nil)
