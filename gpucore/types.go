package gpucore

import "fmt"

// Resource IDs
//
// These opaque IDs represent GPU resources. Each adapter implementation
// maintains a mapping between IDs and actual backend resources.

// BufferID is an opaque handle to a GPU buffer.
type BufferID uint64

// TextureID is an opaque handle to a GPU texture array.
type TextureID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// BufferUsage is a bitmask specifying how a buffer will be used.
type BufferUsage uint32

// Buffer usage flags.
const (
	// BufferUsageCopySrc indicates the buffer can be used as a copy source.
	BufferUsageCopySrc BufferUsage = 1 << 2

	// BufferUsageCopyDst indicates the buffer can be used as a copy destination.
	BufferUsageCopyDst BufferUsage = 1 << 3

	// BufferUsageIndex indicates the buffer can be used as an index buffer.
	BufferUsageIndex BufferUsage = 1 << 4

	// BufferUsageVertex indicates the buffer can be used as a vertex buffer.
	BufferUsageVertex BufferUsage = 1 << 5

	// BufferUsageStorage indicates the buffer can be used as a storage buffer.
	BufferUsageStorage BufferUsage = 1 << 7
)

// TextureFormat specifies the format of texture data.
type TextureFormat uint32

// Texture formats.
const (
	// TextureFormatRGBA8Unorm is 8-bit RGBA, normalized unsigned integer.
	TextureFormatRGBA8Unorm TextureFormat = iota + 1

	// TextureFormatBGRA8Unorm is 8-bit BGRA, normalized unsigned integer.
	TextureFormatBGRA8Unorm

	// TextureFormatR8Unorm is 8-bit red channel only (glyph coverage masks).
	TextureFormatR8Unorm
)

// BytesPerPixel returns the size of one texel in bytes.
func (f TextureFormat) BytesPerPixel() int {
	switch f {
	case TextureFormatR8Unorm:
		return 1
	case TextureFormatRGBA8Unorm, TextureFormatBGRA8Unorm:
		return 4
	default:
		return 0
	}
}

// String returns the string representation of the format.
func (f TextureFormat) String() string {
	switch f {
	case TextureFormatRGBA8Unorm:
		return "RGBA8Unorm"
	case TextureFormatBGRA8Unorm:
		return "BGRA8Unorm"
	case TextureFormatR8Unorm:
		return "R8Unorm"
	default:
		return fmt.Sprintf("Unknown(%d)", uint32(f))
	}
}

// Origin is a texel position inside one layer of a texture array.
type Origin struct {
	X, Y  int
	Layer int
}

// TextureRegion is a rectangle inside one layer of a texture array.
type TextureRegion struct {
	X, Y          int
	Width, Height int
	Layer         int
}

// Origin returns the top-left corner of the region.
func (r TextureRegion) Origin() Origin {
	return Origin{X: r.X, Y: r.Y, Layer: r.Layer}
}

// String returns a string representation of the region.
func (r TextureRegion) String() string {
	return fmt.Sprintf("Region(L%d %d,%d %dx%d)", r.Layer, r.X, r.Y, r.Width, r.Height)
}

// Limits reports the device capabilities the atlas and batch packages size
// themselves against.
type Limits struct {
	// MaxTextureDimension2D is the largest width/height of a 2D texture.
	MaxTextureDimension2D int

	// MaxTextureArrayLayers is the largest layer count of a texture array.
	MaxTextureArrayLayers int

	// MaxBufferSize is the largest buffer in bytes.
	MaxBufferSize uint64
}

// DefaultLimits returns the WebGPU baseline limits.
func DefaultLimits() Limits {
	return Limits{
		MaxTextureDimension2D: 8192,
		MaxTextureArrayLayers: 256,
		MaxBufferSize:         256 << 20,
	}
}
