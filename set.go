package atlas

import (
	"fmt"

	"github.com/gogpu/atlas/arena"
	"github.com/gogpu/atlas/gpucore"
	"github.com/gogpu/atlas/internal/cache"
	"github.com/gogpu/atlas/packer"
)

// PlacementID identifies a placement in a [Set]. IDs stay valid until the
// placement is removed or evicted, including across texture growth and
// migration. The zero PlacementID is never issued.
type PlacementID arena.Handle

// String returns a string representation of the ID.
func (id PlacementID) String() string {
	return "placement " + arena.Handle(id).String()
}

// IsZero reports whether id is the zero PlacementID.
func (id PlacementID) IsZero() bool { return arena.Handle(id).IsZero() }

// Placement is where an uploaded image lives.
type Placement[D any] struct {
	Rect  packer.Rect
	Layer int
	Data  D
}

// Region returns the texture region covered by the placement.
func (p Placement[D]) Region() gpucore.TextureRegion {
	return gpucore.TextureRegion{
		X: p.Rect.X, Y: p.Rect.Y,
		Width: p.Rect.Width, Height: p.Rect.Height,
		Layer: p.Layer,
	}
}

// UV returns normalized texture coordinates for a layer of the given extent.
func (p Placement[D]) UV(extent int) (u0, v0, u1, v1 float32) {
	e := float32(extent)
	return float32(p.Rect.X) / e, float32(p.Rect.Y) / e,
		float32(p.Rect.X+p.Rect.Width) / e, float32(p.Rect.Y+p.Rect.Height) / e
}

type record[K comparable, D any] struct {
	placement Placement[D]
	key       K
}

// Set is a multi-layer texture atlas keyed by K carrying a D per placement.
//
// Set is not safe for concurrent use. It is owned by one renderer and
// driven from the render thread.
type Set[K comparable, D any] struct {
	device  gpucore.Device
	cfg     Config
	texture gpucore.TextureID
	layers  []*layer

	store  *arena.Arena[record[K, D]]
	lookup map[K]PlacementID

	// recency orders placements by use; the value is the reference count.
	recency  *cache.LRU[PlacementID, int]
	lastUsed map[PlacementID]struct{}

	migration migration
	stats     Stats
}

// New creates a Set on device. Device limits resolve zero LayerExtent and
// MaxLayers and bound the configured values.
func New[K comparable, D any](device gpucore.Device, cfg Config) (*Set[K, D], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg, err := cfg.resolve(device.Limits())
	if err != nil {
		return nil, err
	}

	s := &Set[K, D]{
		device:   device,
		cfg:      cfg,
		store:    arena.New[record[K, D]](256),
		lookup:   make(map[K]PlacementID),
		recency:  cache.NewLRU[PlacementID, int](256),
		lastUsed: make(map[PlacementID]struct{}),
	}
	if cfg.InitialLayers > 0 {
		tex, err := device.CreateTextureArray(cfg.LayerExtent, cfg.LayerExtent, cfg.InitialLayers, cfg.Format, cfg.Label)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrGrowthFailed, err)
		}
		s.texture = tex
		for range cfg.InitialLayers {
			s.layers = append(s.layers, newLayer(cfg.LayerExtent, cfg.ShelfPadding))
		}
	}
	return s, nil
}

// Upload places a w x h image under key and writes its pixels.
//
// If key is already resident its ID is returned without a GPU write; in
// reference-counted mode the hit adds a reference. Otherwise Upload tries,
// in order: free space in a non-draining layer, evicting least recently
// used placements not used since the last Trim (never in reference-counted
// mode), and growing the texture array by one layer.
//
// The returned error wraps ErrAtlasFull (as a *FullError) when there is no
// room, or ErrGrowthFailed when the device rejects the larger texture. A
// failed Upload leaves the Set unchanged.
func (s *Set[K, D]) Upload(key K, pixels []byte, w, h int, data D) (PlacementID, error) {
	if id, ok := s.lookup[key]; ok {
		refs, _ := s.recency.Get(id)
		if s.cfg.RefCounted {
			s.recency.Update(id, refs+1)
		}
		s.lastUsed[id] = struct{}{}
		s.stats.Hits++
		return id, nil
	}
	s.stats.Misses++

	if w <= 0 || h <= 0 || w > s.cfg.LayerExtent || h > s.cfg.LayerExtent {
		return PlacementID{}, s.fullError(w, h)
	}
	if need := w * h * s.cfg.Format.BytesPerPixel(); len(pixels) < need {
		return PlacementID{}, fmt.Errorf("%w: %d bytes for %dx%d %v, need %d",
			ErrPixelSize, len(pixels), w, h, s.cfg.Format, need)
	}

	layer, alloc, ok := s.allocate(w, h)
	if !ok && !s.cfg.RefCounted {
		layer, alloc, ok = s.evictFor(w, h)
	}
	if !ok {
		if len(s.layers) >= s.cfg.MaxLayers {
			return PlacementID{}, s.fullError(w, h)
		}
		if err := s.grow(); err != nil {
			return PlacementID{}, err
		}
		layer = len(s.layers) - 1
		alloc, ok = s.layers[layer].allocate(w, h)
		if !ok {
			// Unreachable for w, h within the extent.
			return PlacementID{}, s.fullError(w, h)
		}
	}

	p := Placement[D]{Rect: alloc.Rect, Layer: layer, Data: data}
	id := PlacementID(s.store.Insert(record[K, D]{placement: p, key: key}))
	s.layers[layer].bind(id, alloc.ID)
	s.lookup[key] = id
	s.recency.Put(id, 1)
	s.lastUsed[id] = struct{}{}

	s.device.WriteTexture(s.texture, p.Region(), pixels)
	return id, nil
}

// allocate tries every non-draining layer in order.
func (s *Set[K, D]) allocate(w, h int) (int, packer.Allocation, bool) {
	for i, l := range s.layers {
		if a, ok := l.allocate(w, h); ok {
			return i, a, true
		}
	}
	return 0, packer.Allocation{}, false
}

// evictFor evicts least recently used, unprotected placements one at a
// time until a w x h rectangle fits. Evictions are rehearsed on cloned
// packers and committed only if they make room, so a failed attempt
// changes nothing.
func (s *Set[K, D]) evictFor(w, h int) (int, packer.Allocation, bool) {
	clones := make(map[int]*packer.Packer)
	var victims []PlacementID
	fit := -1

	for id := range s.recency.Backward() {
		if _, used := s.lastUsed[id]; used {
			continue
		}
		rec, _ := s.store.Get(arena.Handle(id))
		li := rec.placement.Layer
		l := s.layers[li]
		if l.draining {
			continue
		}
		c, ok := clones[li]
		if !ok {
			c = l.packer.Clone()
			clones[li] = c
		}
		c.Deallocate(l.live[id])
		victims = append(victims, id)
		if _, ok := c.Allocate(w, h); ok {
			fit = li
			break
		}
	}
	if fit < 0 {
		return 0, packer.Allocation{}, false
	}

	for _, id := range victims {
		s.release(id)
		s.stats.Evictions++
	}
	Logger().Debug("atlas: evicted for upload", "count", len(victims), "layer", fit, "w", w, "h", h)

	a, ok := s.layers[fit].allocate(w, h)
	return fit, a, ok
}

// grow replaces the texture array with one that has an extra layer.
// Existing layers are copied before the swap.
func (s *Set[K, D]) grow() error {
	n := len(s.layers)
	tex, err := s.device.CreateTextureArray(s.cfg.LayerExtent, s.cfg.LayerExtent, n+1, s.cfg.Format, s.cfg.Label)
	if err != nil {
		return fmt.Errorf("%w: %d layers: %w", ErrGrowthFailed, n+1, err)
	}
	for i := range n {
		full := gpucore.TextureRegion{Width: s.cfg.LayerExtent, Height: s.cfg.LayerExtent, Layer: i}
		if err := s.device.CopyTexture(s.texture, tex, full, gpucore.Origin{Layer: i}); err != nil {
			s.device.DestroyTexture(tex)
			return fmt.Errorf("%w: copying layer %d: %w", ErrGrowthFailed, i, err)
		}
	}

	old := s.texture
	s.texture = tex
	if old != gpucore.InvalidID {
		s.device.DestroyTexture(old)
	}
	s.layers = append(s.layers, newLayer(s.cfg.LayerExtent, s.cfg.ShelfPadding))
	s.stats.Growths++
	Logger().Info("atlas: texture array grown", "layers", n+1, "extent", s.cfg.LayerExtent)
	return nil
}

func (s *Set[K, D]) fullError(w, h int) error {
	return &FullError{
		Width: w, Height: h,
		Extent:    s.cfg.LayerExtent,
		Layers:    len(s.layers),
		MaxLayers: s.cfg.MaxLayers,
	}
}

// Get returns the placement for id, promotes it to most recently used and
// protects it from eviction until the next Trim.
func (s *Set[K, D]) Get(id PlacementID) (Placement[D], bool) {
	rec, ok := s.store.Get(arena.Handle(id))
	if !ok {
		return Placement[D]{}, false
	}
	s.recency.Get(id)
	s.lastUsed[id] = struct{}{}
	return rec.placement, true
}

// GetByKey is Get through a content key.
func (s *Set[K, D]) GetByKey(key K) (Placement[D], bool) {
	id, ok := s.lookup[key]
	if !ok {
		return Placement[D]{}, false
	}
	return s.Get(id)
}

// Lookup returns the ID resident under key without touching recency.
func (s *Set[K, D]) Lookup(key K) (PlacementID, bool) {
	id, ok := s.lookup[key]
	return id, ok
}

// Remove drops id and returns the layer it occupied. In reference-counted
// mode it drops one reference and frees the placement only at zero.
func (s *Set[K, D]) Remove(id PlacementID) (int, bool) {
	rec, ok := s.store.Get(arena.Handle(id))
	if !ok {
		return 0, false
	}
	layer := rec.placement.Layer
	if s.cfg.RefCounted {
		if refs, _ := s.recency.Peek(id); refs > 1 {
			s.recency.Update(id, refs-1)
			return layer, true
		}
	}
	s.release(id)
	return layer, true
}

// RemoveByKey is Remove through a content key.
func (s *Set[K, D]) RemoveByKey(key K) (int, bool) {
	id, ok := s.lookup[key]
	if !ok {
		return 0, false
	}
	return s.Remove(id)
}

// release frees a placement and every index entry pointing at it.
func (s *Set[K, D]) release(id PlacementID) {
	rec, ok := s.store.Remove(arena.Handle(id))
	if !ok {
		return
	}
	s.layers[rec.placement.Layer].release(id)
	delete(s.lookup, rec.key)
	s.recency.Remove(id)
	delete(s.lastUsed, id)
}

// RefCount returns the reference count of id.
// Outside reference-counted mode it is 1 for every live placement.
func (s *Set[K, D]) RefCount(id PlacementID) int {
	refs, _ := s.recency.Peek(id)
	return refs
}

// Trim ends the frame's protection window: placements used since the last
// Trim become eligible for eviction again. Nothing is evicted here.
func (s *Set[K, D]) Trim() {
	clear(s.lastUsed)
}

// Texture returns the texture array to bind. It changes after growth, so
// read it again after any Upload. Before the first layer exists it is
// gpucore.InvalidID.
func (s *Set[K, D]) Texture() gpucore.TextureID { return s.texture }

// Extent returns the width and height of every layer.
func (s *Set[K, D]) Extent() int { return s.cfg.LayerExtent }

// Format returns the texel format.
func (s *Set[K, D]) Format() gpucore.TextureFormat { return s.cfg.Format }

// LayerCount returns the number of layers.
func (s *Set[K, D]) LayerCount() int { return len(s.layers) }

// Len returns the number of resident placements.
func (s *Set[K, D]) Len() int { return s.store.Len() }

// Layers returns a snapshot of every layer.
func (s *Set[K, D]) Layers() []LayerInfo {
	out := make([]LayerInfo, len(s.layers))
	for i, l := range s.layers {
		out[i] = l.info(i)
	}
	return out
}

// Release destroys the texture array and forgets every placement.
// The Set must not be used afterwards.
func (s *Set[K, D]) Release() {
	if s.texture != gpucore.InvalidID {
		s.device.DestroyTexture(s.texture)
		s.texture = gpucore.InvalidID
	}
	s.store.Clear()
	clear(s.lookup)
	s.recency.Clear()
	clear(s.lastUsed)
	s.layers = nil
}

// checkInvariants verifies the cross-structure invariants. A non-nil
// result is a logic defect.
func (s *Set[K, D]) checkInvariants() error {
	for id, rec := range s.store.All() {
		pid := PlacementID(id)
		if got, ok := s.lookup[rec.key]; !ok || got != pid {
			return fmt.Errorf("key %v maps to %v, want %v", rec.key, got, pid)
		}
		if rec.placement.Layer < 0 || rec.placement.Layer >= len(s.layers) {
			return fmt.Errorf("%v on missing layer %d", pid, rec.placement.Layer)
		}
		l := s.layers[rec.placement.Layer]
		alloc, ok := l.live[pid]
		if !ok {
			return fmt.Errorf("%v not live in layer %d", pid, rec.placement.Layer)
		}
		if r, _ := l.packer.Get(alloc); r != rec.placement.Rect {
			return fmt.Errorf("%v rect %v, packer has %v", pid, rec.placement.Rect, r)
		}
		if !s.recency.Contains(pid) {
			return fmt.Errorf("%v missing from recency list", pid)
		}
	}
	if len(s.lookup) != s.store.Len() || s.recency.Len() != s.store.Len() {
		return fmt.Errorf("index sizes lookup=%d recency=%d store=%d",
			len(s.lookup), s.recency.Len(), s.store.Len())
	}
	for i, l := range s.layers {
		if len(l.live) != l.packer.Len() {
			return fmt.Errorf("layer %d: %d live placements, packer has %d", i, len(l.live), l.packer.Len())
		}
		ids := l.packer.IDs()
		for a := range ids {
			ra, _ := l.packer.Get(ids[a])
			for b := a + 1; b < len(ids); b++ {
				if rb, _ := l.packer.Get(ids[b]); ra.Intersects(rb) {
					return fmt.Errorf("layer %d: %v overlaps %v", i, ra, rb)
				}
			}
		}
	}
	return nil
}
