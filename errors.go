package atlas

import (
	"errors"
	"fmt"
)

// Sentinel errors for the atlas package.
var (
	// ErrAtlasFull is returned when an image cannot be placed. It is a
	// capacity condition: the caller should skip drawing the object, not
	// abort the frame. The concrete error is a *FullError.
	ErrAtlasFull = errors.New("atlas: full")

	// ErrGrowthFailed is returned when the device rejects a larger texture
	// array or the copy into it. The atlas is left exactly as it was.
	ErrGrowthFailed = errors.New("atlas: texture growth failed")

	// ErrPixelSize is returned when the pixel slice is too short for the
	// requested size and format.
	ErrPixelSize = errors.New("atlas: pixel data too short")

	// ErrMigration is returned by Maintain when a texture copy fails.
	ErrMigration = errors.New("atlas: migration copy failed")
)

// FullError describes why an upload found no space.
type FullError struct {
	Width, Height int

	// Extent is the layer width and height.
	Extent int

	// Layers is the number of layers at the time of the failure.
	Layers    int
	MaxLayers int
}

// Oversize reports whether the image can never fit in a single layer.
func (e *FullError) Oversize() bool {
	return e.Width > e.Extent || e.Height > e.Extent
}

func (e *FullError) Error() string {
	if e.Oversize() {
		return fmt.Sprintf("atlas: %dx%d image exceeds %dx%d layer", e.Width, e.Height, e.Extent, e.Extent)
	}
	return fmt.Sprintf("atlas: no room for %dx%d image in %d of %d layers",
		e.Width, e.Height, e.Layers, e.MaxLayers)
}

// Is reports whether target is ErrAtlasFull.
func (e *FullError) Is(target error) bool {
	return target == ErrAtlasFull
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return "atlas: invalid config." + e.Field + ": " + e.Reason
}
