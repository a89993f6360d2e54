package batch

import "errors"

var (
	// ErrGrowthFailed is returned when the device rejects a larger buffer.
	// The frame cannot be drawn; the previous buffer is left intact.
	ErrGrowthFailed = errors.New("batch: buffer growth failed")

	// ErrMisaligned is returned when a payload length is not a whole number
	// of elements.
	ErrMisaligned = errors.New("batch: payload not a multiple of the element size")

	// ErrInvalidConfig is returned by constructors for unusable configuration.
	ErrInvalidConfig = errors.New("batch: invalid config")
)
