// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import "errors"

// Sentinel errors for the native package.
var (
	// ErrUnknownTexture is returned when an operation names a texture ID
	// that was never created or is already destroyed.
	ErrUnknownTexture = errors.New("native: unknown texture")

	// ErrFormatMismatch is returned when a copy joins textures of
	// different formats.
	ErrFormatMismatch = errors.New("native: texture format mismatch")

	// ErrUnsupportedFormat is returned for formats the bridge cannot map.
	ErrUnsupportedFormat = errors.New("native: unsupported texture format")

	// ErrNoHALProvider is returned when a device provider does not expose
	// hal.Device and hal.Queue.
	ErrNoHALProvider = errors.New("native: provider does not expose HAL types")

	// ErrOverlappingCopy is returned for a copy whose source and
	// destination are the same layer of the same texture.
	ErrOverlappingCopy = errors.New("native: copy within a single texture layer")
)
