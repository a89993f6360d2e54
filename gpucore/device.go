package gpucore

// Device abstracts the GPU device and queue.
//
// Resource lifecycle:
//   - Resources are created via Create* methods
//   - Resources must be explicitly destroyed via Destroy* methods
//   - IDs become invalid after destruction and must not be reused
//
// Implementations may execute writes immediately or stage them until the
// next queue submission.
type Device interface {
	// Limits returns the device capability limits.
	Limits() Limits

	// CreateBuffer creates a GPU buffer of size bytes.
	// Returns an error if the device rejects the allocation.
	CreateBuffer(size int, usage BufferUsage, label string) (BufferID, error)

	// DestroyBuffer releases a GPU buffer.
	DestroyBuffer(id BufferID)

	// WriteBuffer writes data to a buffer at the given byte offset.
	WriteBuffer(id BufferID, offset uint64, data []byte)

	// CreateTextureArray creates a 2D texture array with the given layer count.
	// The texture is usable as a copy source, copy destination and sampled texture.
	CreateTextureArray(width, height, layers int, format TextureFormat, label string) (TextureID, error)

	// DestroyTexture releases a texture array.
	DestroyTexture(id TextureID)

	// WriteTexture writes tightly packed texel rows into a region of one layer.
	WriteTexture(id TextureID, region TextureRegion, data []byte)

	// CopyTexture copies a region of src into dst at the given origin.
	// src and dst may be the same texture when the regions do not overlap.
	CopyTexture(src, dst TextureID, from TextureRegion, to Origin) error
}
