package batch

import (
	"fmt"

	"github.com/gogpu/atlas/gpucore"
)

// copyAlignment is the granularity of buffer writes on WebGPU devices.
const copyAlignment = 4

// Config configures a [Buffer].
type Config struct {
	// Stride is the size of one element (vertex or instance) in bytes.
	// Must be a positive multiple of 4.
	Stride int

	// Usage is how the buffer is bound. Copy destination is always added.
	Usage gpucore.BufferUsage

	// Label names the GPU buffer for debugging.
	Label string

	// InitialCapacity is the smallest buffer ever allocated, in bytes.
	InitialCapacity uint64
}

// DefaultConfig returns a vertex-buffer configuration for the given stride.
func DefaultConfig(stride int) Config {
	return Config{
		Stride:          stride,
		Usage:           gpucore.BufferUsageVertex,
		Label:           "batch",
		InitialCapacity: 64 << 10,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Stride <= 0 || c.Stride%copyAlignment != 0 {
		return fmt.Errorf("%w: stride %d must be a positive multiple of %d",
			ErrInvalidConfig, c.Stride, copyAlignment)
	}
	return nil
}

// IndexFormat is the element type of an index buffer.
type IndexFormat uint8

// Index formats.
const (
	IndexFormatUint16 IndexFormat = iota
	IndexFormatUint32
)

// Size returns the size of one index in bytes.
func (f IndexFormat) Size() int {
	if f == IndexFormatUint32 {
		return 4
	}
	return 2
}

// String returns the string representation of the format.
func (f IndexFormat) String() string {
	switch f {
	case IndexFormatUint16:
		return "Uint16"
	case IndexFormatUint32:
		return "Uint32"
	default:
		return fmt.Sprintf("IndexFormat(%d)", uint8(f))
	}
}

// IndexedConfig configures an [IndexedBuffer].
type IndexedConfig struct {
	// VertexStride is the size of one vertex in bytes.
	// Must be a positive multiple of 4.
	VertexStride int

	IndexFormat IndexFormat
	Label       string

	InitialVertexCapacity uint64
	InitialIndexCapacity  uint64
}

// DefaultIndexedConfig returns a mesh configuration with 16-bit indices.
func DefaultIndexedConfig(vertexStride int) IndexedConfig {
	return IndexedConfig{
		VertexStride:          vertexStride,
		IndexFormat:           IndexFormatUint16,
		Label:                 "mesh",
		InitialVertexCapacity: 64 << 10,
		InitialIndexCapacity:  16 << 10,
	}
}

// Validate checks the configuration.
func (c IndexedConfig) Validate() error {
	if c.VertexStride <= 0 || c.VertexStride%copyAlignment != 0 {
		return fmt.Errorf("%w: vertex stride %d must be a positive multiple of %d",
			ErrInvalidConfig, c.VertexStride, copyAlignment)
	}
	if c.IndexFormat > IndexFormatUint32 {
		return fmt.Errorf("%w: unknown index format %v", ErrInvalidConfig, c.IndexFormat)
	}
	return nil
}
