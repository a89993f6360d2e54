package backend

import (
	"errors"

	"github.com/gogpu/atlas/gpucore"
)

// Backend name constants.
const (
	// BackendSoftware is the name of the CPU memory backend.
	BackendSoftware = "software"
	// BackendNoop is the name of the gogpu/wgpu noop HAL backend.
	BackendNoop = "noop"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")
)

// Backend is an opened device.
//
// Backends must be registered via Register() and are opened via Open()
// or Default().
type Backend interface {
	gpucore.Device

	// Name returns the backend identifier (e.g., "software", "noop").
	Name() string

	// Close releases the device and everything created from it.
	// The backend should not be used after Close is called.
	Close()
}
