package batch

import (
	"fmt"

	"github.com/gogpu/atlas/arena"
	"github.com/gogpu/atlas/gpucore"
	"github.com/gogpu/atlas/order"
)

// IndexedDraw is one base-vertex indexed draw call.
// Index values stay relative to the item's first vertex; the GPU adds
// BaseVertex when it fetches vertices.
type IndexedDraw struct {
	FirstIndex uint32
	IndexCount uint32
	BaseVertex int32
}

// IndexedLayer is the list of draws for one layer, in paint order.
type IndexedLayer struct {
	Layer uint32
	Draws []IndexedDraw
}

// IndexedBuffer batches meshes into a vertex buffer and an index buffer.
//
// Moving a mesh within the frame only changes its BaseVertex, so its index
// bytes are rewritten only when the index range itself moves.
type IndexedBuffer struct {
	cfg      IndexedConfig
	store    *Store
	vertices gpuBuffer
	indices  gpuBuffer
	pending  collector
	owner    uint64
	frame    uint64
	state    State
	layers   []IndexedLayer
	draws    []IndexedDraw
	scratch  []byte
	stats    Stats
}

// NewIndexedBuffer creates a mesh batcher that reads payloads from store.
func NewIndexedBuffer(device gpucore.Device, store *Store, cfg IndexedConfig) (*IndexedBuffer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &IndexedBuffer{
		cfg:   cfg,
		store: store,
		vertices: gpuBuffer{
			device:  device,
			usage:   gpucore.BufferUsageVertex,
			label:   cfg.Label + " vertices",
			minSize: cfg.InitialVertexCapacity,
		},
		indices: gpuBuffer{
			device:  device,
			usage:   gpucore.BufferUsageIndex,
			label:   cfg.Label + " indices",
			minSize: cfg.InitialIndexCapacity,
		},
		pending: newCollector(store),
		owner:   ownerSeq.Add(1),
	}, nil
}

// State returns the current phase.
func (b *IndexedBuffer) State() State { return b.state }

// Add queues the mesh entry h for drawing on layer this frame.
func (b *IndexedBuffer) Add(key order.Key, h arena.Handle, layer uint32) bool {
	if b.state == StateReady {
		b.clearDraws()
		b.state = StateCollecting
	}
	return b.pending.add(key, h, layer)
}

// AddRenderable syncs r into the store if it is dirty and queues it.
func (b *IndexedBuffer) AddRenderable(r IndexedRenderable, layer uint32) bool {
	if !b.store.Sync(r) {
		return false
	}
	return b.Add(r.OrderKey(), r.Handle(), layer)
}

// Finalize sorts, lays out and uploads the queued meshes.
// Error handling matches [Buffer.Finalize].
func (b *IndexedBuffer) Finalize() error {
	if b.state == StateReady {
		b.clearDraws()
	}

	b.state = StateSorting
	b.pending.dropStale()
	b.pending.sort()

	b.state = StateDiffing
	vstride := uint64(b.cfg.VertexStride) //nolint:gosec // validated positive
	isize := uint64(b.cfg.IndexFormat.Size())
	var vtotal, itotal uint64
	for _, layer := range b.pending.layers {
		for _, it := range b.pending.lists[layer] {
			e, _ := b.store.Get(it.handle)
			vn, in := uint64(len(e.Bytes)), uint64(len(e.IndexBytes))
			if vn%vstride != 0 || in%isize != 0 {
				b.abort()
				return fmt.Errorf("%w: mesh %v has %d vertex bytes and %d index bytes",
					ErrMisaligned, it.handle, vn, in)
			}
			vtotal += vn
			itotal = alignUp(itotal+in, copyAlignment)
		}
	}

	vgrown, err := b.vertices.reserve(vtotal)
	if err != nil {
		b.abort()
		return err
	}
	igrown, err := b.indices.reserve(itotal)
	if err != nil {
		b.abort()
		return err
	}

	b.frame++
	stats := Stats{
		Items:         b.pending.count(),
		Capacity:      b.vertices.capacity + b.indices.capacity,
		Reallocations: b.stats.Reallocations,
	}
	for _, grown := range []bool{vgrown, igrown} {
		if grown {
			stats.Reallocations++
		}
	}

	var voff, ioff uint64
	for _, layer := range b.pending.layers {
		first := len(b.draws)
		for _, it := range b.pending.lists[layer] {
			e, _ := b.store.Get(it.handle)

			vnow := Range{Start: voff, End: voff + uint64(len(e.Bytes))}
			if unchanged(e.placed, e.ByteRange, vnow, e.Dirty, vgrown, b.owner, b.frame) {
				stats.Skipped++
			} else if vnow.Len() > 0 {
				b.vertices.device.WriteBuffer(b.vertices.id, voff, e.Bytes)
				stats.Writes++
				stats.BytesWritten += vnow.Len()
			}

			inow := Range{Start: ioff, End: ioff + uint64(len(e.IndexBytes))}
			if unchanged(e.indexPlaced, e.IndexRange, inow, e.Dirty, igrown, b.owner, b.frame) {
				stats.Skipped++
			} else if inow.Len() > 0 {
				b.indices.device.WriteBuffer(b.indices.id, ioff, b.padded(e.IndexBytes))
				stats.Writes++
				stats.BytesWritten += inow.Len()
			}

			if inow.Len() > 0 {
				b.draws = append(b.draws, IndexedDraw{
					FirstIndex: uint32(ioff / isize),
					IndexCount: uint32(inow.Len() / isize),
					BaseVertex: int32(voff / vstride),
				})
			}

			e.ByteRange, e.IndexRange = vnow, inow
			e.Dirty = false
			stamp := uploadStamp{owner: b.owner, frame: b.frame}
			e.placed, e.indexPlaced = stamp, stamp
			voff = vnow.End
			ioff = alignUp(inow.End, copyAlignment)
		}
		if len(b.draws) > first {
			b.layers = append(b.layers, IndexedLayer{Layer: layer, Draws: b.draws[first:len(b.draws):len(b.draws)]})
		}
	}

	b.pending.reset()
	b.stats = stats
	b.state = StateReady
	return nil
}

// padded returns p extended with zeros to the copy alignment.
// 16-bit index lists with an odd count need this.
func (b *IndexedBuffer) padded(p []byte) []byte {
	n := alignUp(uint64(len(p)), copyAlignment)
	if uint64(len(p)) == n {
		return p
	}
	b.scratch = append(b.scratch[:0], p...)
	for uint64(len(b.scratch)) < n {
		b.scratch = append(b.scratch, 0)
	}
	return b.scratch
}

func (b *IndexedBuffer) clearDraws() {
	b.layers = b.layers[:0]
	b.draws = b.draws[:0]
}

func (b *IndexedBuffer) abort() {
	b.pending.reset()
	b.clearDraws()
	b.state = StateCollecting
}

// Layers returns the per-layer draws of the last Finalize in layer order.
// It returns nil unless the buffer is Ready.
func (b *IndexedBuffer) Layers() []IndexedLayer {
	if b.state != StateReady {
		return nil
	}
	return b.layers
}

// Draws returns the draws for one layer.
func (b *IndexedBuffer) Draws(layer uint32) []IndexedDraw {
	for _, l := range b.Layers() {
		if l.Layer == layer {
			return l.Draws
		}
	}
	return nil
}

// VertexBufferID returns the GPU vertex buffer.
func (b *IndexedBuffer) VertexBufferID() gpucore.BufferID { return b.vertices.id }

// IndexBufferID returns the GPU index buffer.
func (b *IndexedBuffer) IndexBufferID() gpucore.BufferID { return b.indices.id }

// IndexFormat returns the index element type to bind.
func (b *IndexedBuffer) IndexFormat() IndexFormat { return b.cfg.IndexFormat }

// Stats returns the traffic of the last Finalize.
func (b *IndexedBuffer) Stats() Stats { return b.stats }

// Release destroys both GPU buffers.
func (b *IndexedBuffer) Release() {
	b.vertices.release()
	b.indices.release()
	b.abort()
}
