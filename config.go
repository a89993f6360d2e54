package atlas

import (
	"fmt"

	"github.com/gogpu/atlas/gpucore"
)

// Config holds atlas configuration.
type Config struct {
	// LayerExtent is the width and height of every layer in texels.
	// Zero means the device's largest 2D texture dimension.
	LayerExtent int

	// MaxLayers caps the texture array depth.
	// Zero means the device's texture array layer limit.
	MaxLayers int

	// InitialLayers is the depth of the texture array created up front.
	// Zero defers creating the texture until the first upload.
	// Default: 1
	InitialLayers int

	// ShelfPadding is the gap left between packer shelves to stop
	// filtering from bleeding across images.
	// Default: 1
	ShelfPadding int

	// Format is the texel format of the texture array.
	// Default: RGBA8Unorm
	Format gpucore.TextureFormat

	// RefCounted disables eviction. Every Upload of a resident key adds a
	// reference and Remove only frees the placement when the count
	// reaches zero.
	RefCounted bool

	// DeallocationsBeforeFragmentationCheck is how many removals a layer
	// must see before Maintain considers migrating it.
	// Zero disables migration.
	// Default: 64
	DeallocationsBeforeFragmentationCheck int

	// FragmentationThreshold is the utilization (0..1) below which a layer
	// that passed the deallocation check is migrated.
	// Default: 0.25
	FragmentationThreshold float64

	// MigrationBudget is how many placements Maintain moves per call.
	// Zero moves a whole layer in one call.
	// Default: 16
	MigrationBudget int

	// Label names the GPU texture for debugging.
	Label string
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		InitialLayers:                         1,
		ShelfPadding:                          1,
		Format:                                gpucore.TextureFormatRGBA8Unorm,
		DeallocationsBeforeFragmentationCheck: 64,
		FragmentationThreshold:                0.25,
		MigrationBudget:                       16,
		Label:                                 "atlas",
	}
}

// Validate checks if the configuration is valid on its own.
// Limits of a particular device are checked when the Set is created.
func (c *Config) Validate() error {
	if c.LayerExtent < 0 {
		return &ConfigError{Field: "LayerExtent", Reason: "must be non-negative"}
	}
	if c.MaxLayers < 0 {
		return &ConfigError{Field: "MaxLayers", Reason: "must be non-negative"}
	}
	if c.InitialLayers < 0 {
		return &ConfigError{Field: "InitialLayers", Reason: "must be non-negative"}
	}
	if c.MaxLayers > 0 && c.InitialLayers > c.MaxLayers {
		return &ConfigError{Field: "InitialLayers", Reason: "must be at most MaxLayers"}
	}
	if c.ShelfPadding < 0 {
		return &ConfigError{Field: "ShelfPadding", Reason: "must be non-negative"}
	}
	if c.Format.BytesPerPixel() == 0 {
		return &ConfigError{Field: "Format", Reason: "unsupported format " + c.Format.String()}
	}
	if c.DeallocationsBeforeFragmentationCheck < 0 {
		return &ConfigError{Field: "DeallocationsBeforeFragmentationCheck", Reason: "must be non-negative"}
	}
	if c.FragmentationThreshold < 0 || c.FragmentationThreshold > 1 {
		return &ConfigError{Field: "FragmentationThreshold", Reason: "must be within [0, 1]"}
	}
	if c.MigrationBudget < 0 {
		return &ConfigError{Field: "MigrationBudget", Reason: "must be non-negative"}
	}
	return nil
}

// resolve fills device-dependent defaults and checks them against limits.
func (c Config) resolve(limits gpucore.Limits) (Config, error) {
	if c.LayerExtent == 0 {
		c.LayerExtent = limits.MaxTextureDimension2D
	}
	if c.MaxLayers == 0 {
		c.MaxLayers = limits.MaxTextureArrayLayers
	}
	if c.LayerExtent < 1 || c.LayerExtent > limits.MaxTextureDimension2D {
		return c, &ConfigError{
			Field:  "LayerExtent",
			Reason: fmt.Sprintf("%d outside device range [1, %d]", c.LayerExtent, limits.MaxTextureDimension2D),
		}
	}
	if c.MaxLayers < 1 || c.MaxLayers > limits.MaxTextureArrayLayers {
		return c, &ConfigError{
			Field:  "MaxLayers",
			Reason: fmt.Sprintf("%d outside device range [1, %d]", c.MaxLayers, limits.MaxTextureArrayLayers),
		}
	}
	if c.InitialLayers > c.MaxLayers {
		return c, &ConfigError{Field: "InitialLayers", Reason: "must be at most MaxLayers"}
	}
	return c, nil
}
