package batch

import (
	"fmt"

	"github.com/gogpu/atlas/arena"
	"github.com/gogpu/atlas/gpucore"
	"github.com/gogpu/atlas/order"
)

// LayerRange is the half-open element range [Start, End) drawn for one layer.
type LayerRange struct {
	Layer      uint32
	Start, End uint32
}

// Count returns the number of elements in the range.
func (r LayerRange) Count() uint32 { return r.End - r.Start }

// Buffer batches fixed-stride instance or vertex payloads into one GPU buffer.
//
// Buffer reads entries from its Store but never owns them. It is not safe
// for concurrent use.
type Buffer struct {
	cfg     Config
	store   *Store
	gpu     gpuBuffer
	pending collector
	owner   uint64
	frame   uint64
	state   State
	ranges  []LayerRange
	stats   Stats
}

// NewBuffer creates a buffer that reads payloads from store.
// No GPU memory is allocated until the first non-empty Finalize.
func NewBuffer(device gpucore.Device, store *Store, cfg Config) (*Buffer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Buffer{
		cfg:   cfg,
		store: store,
		gpu: gpuBuffer{
			device:  device,
			usage:   cfg.Usage,
			label:   cfg.Label,
			minSize: cfg.InitialCapacity,
		},
		pending: newCollector(store),
		owner:   ownerSeq.Add(1),
	}, nil
}

// State returns the current phase.
func (b *Buffer) State() State { return b.state }

// Add queues the entry h for drawing on layer this frame.
// Adding to a Ready buffer starts a new frame and invalidates the previous
// ranges. Add reports false, and queues nothing, if h is stale.
func (b *Buffer) Add(key order.Key, h arena.Handle, layer uint32) bool {
	if b.state == StateReady {
		b.ranges = b.ranges[:0]
		b.state = StateCollecting
	}
	return b.pending.add(key, h, layer)
}

// AddRenderable syncs r into the store if it is dirty and queues it.
func (b *Buffer) AddRenderable(r Renderable, layer uint32) bool {
	if !b.store.Sync(r) {
		return false
	}
	return b.Add(r.OrderKey(), r.Handle(), layer)
}

// PendingBytes returns the payload bytes queued so far this frame.
// Items whose entries were removed since they were added are not counted.
func (b *Buffer) PendingBytes() uint64 {
	b.pending.dropStale()
	return b.pending.needed
}

// Finalize sorts, lays out and uploads the queued items.
//
// On error the frame is discarded: nothing is drawn, the buffer returns to
// Collecting and the GPU buffer from the previous frame is kept.
func (b *Buffer) Finalize() error {
	if b.state == StateReady {
		b.ranges = b.ranges[:0]
	}

	b.state = StateSorting
	b.pending.dropStale()
	b.pending.sort()

	b.state = StateDiffing
	stride := uint64(b.cfg.Stride) //nolint:gosec // validated positive
	var total uint64
	for _, layer := range b.pending.layers {
		for _, it := range b.pending.lists[layer] {
			e, _ := b.store.Get(it.handle)
			n := uint64(len(e.Bytes))
			if n%stride != 0 {
				b.abort()
				return fmt.Errorf("%w: entry %v has %d bytes, stride %d", ErrMisaligned, it.handle, n, stride)
			}
			total += n
		}
	}

	grown, err := b.gpu.reserve(total)
	if err != nil {
		b.abort()
		return err
	}

	b.frame++
	stats := Stats{Items: b.pending.count(), Capacity: b.gpu.capacity, Reallocations: b.stats.Reallocations}
	if grown {
		stats.Reallocations++
	}

	var offset uint64
	for _, layer := range b.pending.layers {
		start := offset
		for _, it := range b.pending.lists[layer] {
			e, _ := b.store.Get(it.handle)
			now := Range{Start: offset, End: offset + uint64(len(e.Bytes))}
			if unchanged(e.placed, e.ByteRange, now, e.Dirty, grown, b.owner, b.frame) {
				stats.Skipped++
			} else if now.Len() > 0 {
				b.gpu.device.WriteBuffer(b.gpu.id, offset, e.Bytes)
				stats.Writes++
				stats.BytesWritten += now.Len()
			}
			e.ByteRange = now
			e.Dirty = false
			e.placed = uploadStamp{owner: b.owner, frame: b.frame}
			offset = now.End
		}
		if offset > start {
			b.ranges = append(b.ranges, LayerRange{
				Layer: layer,
				Start: uint32(start / stride),
				End:   uint32(offset / stride),
			})
		}
	}

	b.pending.reset()
	b.stats = stats
	b.state = StateReady
	return nil
}

func (b *Buffer) abort() {
	b.pending.reset()
	b.ranges = b.ranges[:0]
	b.state = StateCollecting
}

// Ranges returns the per-layer element ranges of the last Finalize in layer
// order. It returns nil unless the buffer is Ready.
func (b *Buffer) Ranges() []LayerRange {
	if b.state != StateReady {
		return nil
	}
	return b.ranges
}

// Range returns the element range for one layer.
func (b *Buffer) Range(layer uint32) (LayerRange, bool) {
	for _, r := range b.Ranges() {
		if r.Layer == layer {
			return r, true
		}
	}
	return LayerRange{}, false
}

// BufferID returns the GPU buffer to bind, or gpucore.InvalidID before the
// first non-empty Finalize.
func (b *Buffer) BufferID() gpucore.BufferID { return b.gpu.id }

// Capacity returns the GPU buffer size in bytes.
func (b *Buffer) Capacity() uint64 { return b.gpu.capacity }

// Stats returns the traffic of the last Finalize.
func (b *Buffer) Stats() Stats { return b.stats }

// Release destroys the GPU buffer.
func (b *Buffer) Release() {
	b.gpu.release()
	b.abort()
}
