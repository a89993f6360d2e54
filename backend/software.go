package backend

import (
	"github.com/gogpu/atlas/gpucore"
	"github.com/gogpu/atlas/internal/softgpu"
)

// SoftwareBackend keeps every buffer and texture in CPU memory.
// It needs no GPU and is the fallback for headless tools. Invalid writes
// are logged through [SetLogger] and dropped.
// SoftwareBackend is not safe for concurrent use.
type SoftwareBackend struct {
	*softgpu.Device
}

// init registers the software backend on package import.
func init() {
	Register(BackendSoftware, func() (Backend, error) {
		return NewSoftwareBackend(gpucore.DefaultLimits()), nil
	})
}

// NewSoftwareBackend creates a software backend reporting the given limits.
func NewSoftwareBackend(limits gpucore.Limits) *SoftwareBackend {
	return &SoftwareBackend{Device: softgpu.NewDevice(limits)}
}

// Name returns the backend identifier.
func (b *SoftwareBackend) Name() string {
	return BackendSoftware
}

// Close releases all backend resources.
func (b *SoftwareBackend) Close() {
	b.Reset()
}

var _ Backend = (*SoftwareBackend)(nil)
