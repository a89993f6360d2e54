package batch

import (
	"fmt"

	"github.com/gogpu/atlas/gpucore"
)

// gpuBuffer is a device buffer that only ever grows.
type gpuBuffer struct {
	device   gpucore.Device
	usage    gpucore.BufferUsage
	label    string
	minSize  uint64
	id       gpucore.BufferID
	capacity uint64
}

// reserve makes room for need bytes. It reports whether the buffer was
// reallocated, in which case its previous contents are gone. On error the
// current buffer is kept.
func (g *gpuBuffer) reserve(need uint64) (bool, error) {
	if need <= g.capacity {
		return false, nil
	}

	size := alignUp(max(need, 2*g.capacity, g.minSize), copyAlignment)
	if limit := g.device.Limits().MaxBufferSize; limit > 0 && size > limit {
		if need > limit {
			return false, fmt.Errorf("%w: %s needs %d bytes, device limit is %d",
				ErrGrowthFailed, g.label, need, limit)
		}
		size = limit
	}

	id, err := g.device.CreateBuffer(int(size), g.usage|gpucore.BufferUsageCopyDst, g.label) //nolint:gosec // bounded by MaxBufferSize
	if err != nil {
		return false, fmt.Errorf("%w: %s at %d bytes: %w", ErrGrowthFailed, g.label, size, err)
	}
	if g.id != gpucore.InvalidID {
		g.device.DestroyBuffer(g.id)
	}
	slogger().Debug("batch: buffer reallocated",
		"label", g.label, "old", g.capacity, "new", size)
	g.id = id
	g.capacity = size
	return true, nil
}

func (g *gpuBuffer) release() {
	if g.id != gpucore.InvalidID {
		g.device.DestroyBuffer(g.id)
	}
	g.id = gpucore.InvalidID
	g.capacity = 0
}

func alignUp(n, align uint64) uint64 {
	return (n + align - 1) &^ (align - 1)
}
