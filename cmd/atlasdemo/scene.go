package main

import (
	"encoding/binary"
	"math"
	"math/rand/v2"

	"github.com/gogpu/atlas"
	"github.com/gogpu/atlas/arena"
	"github.com/gogpu/atlas/backend/native"
	"github.com/gogpu/atlas/batch"
	"github.com/gogpu/atlas/gpucore"
	"github.com/gogpu/atlas/order"
	"github.com/gogpu/atlas/packer"
)

// instanceStride matches the instance layout of the native sprite shader.
const instanceStride = native.SpriteInstanceStride

// sprite is one instance of a library image placed in the world.
type sprite struct {
	handle arena.Handle
	image  int
	pos    order.Vec3
	w, h   float64
	alpha  bool

	// Resolved atlas location, refreshed every frame.
	pid   atlas.PlacementID
	rect  packer.Rect
	layer int
	uv    [4]float32

	dirty bool
}

func (s *sprite) Kind() batch.Kind     { return batch.KindImage }
func (s *sprite) Handle() arena.Handle { return s.handle }
func (s *sprite) Dirty() bool          { return s.dirty }
func (s *sprite) MarkClean()           { s.dirty = false }

func (s *sprite) OrderKey() order.Key {
	return order.New(s.alpha, s.pos, 0, order.Vec3{X: s.w, Y: s.h})
}

func (s *sprite) Serialize(dst []byte) []byte {
	alpha := float32(0)
	if s.alpha {
		alpha = 1
	}
	for _, f := range [...]float32{
		float32(s.pos.X), float32(s.pos.Y), float32(s.w), float32(s.h),
		s.uv[0], s.uv[1], s.uv[2], s.uv[3],
		float32(s.layer), alpha, float32(s.pos.Z), 0,
	} {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(f))
	}
	return dst
}

// resolve updates the sprite's atlas location and marks it dirty when the
// placement moved.
func (s *sprite) resolve(id atlas.PlacementID, p atlas.Placement[string], extent int) {
	s.pid = id
	if p.Rect == s.rect && p.Layer == s.layer {
		return
	}
	s.rect, s.layer = p.Rect, p.Layer
	s.uv[0], s.uv[1], s.uv[2], s.uv[3] = p.UV(extent)
	s.dirty = true
}

// scene owns the atlas, the batch and the live sprites.
type scene struct {
	atlas   *atlas.Set[int, string]
	store   *batch.Store
	batch   *batch.Buffer
	lib     []spriteImage
	rng     *rand.Rand
	sprites []*sprite

	refCounted bool
	dropped    int
}

func newScene(dev gpucore.Device, cfg atlas.Config, lib []spriteImage, rng *rand.Rand) (*scene, error) {
	set, err := atlas.New[int, string](dev, cfg)
	if err != nil {
		return nil, err
	}
	store := batch.NewStore()
	bcfg := batch.DefaultConfig(instanceStride)
	bcfg.Label = "atlasdemo-instances"
	buf, err := batch.NewBuffer(dev, store, bcfg)
	if err != nil {
		set.Release()
		return nil, err
	}
	return &scene{
		atlas:      set,
		store:      store,
		batch:      buf,
		lib:        lib,
		rng:        rng,
		refCounted: cfg.RefCounted,
	}, nil
}

// spawn places a random library image at a random position.
func (sc *scene) spawn() {
	// Squaring skews the choice toward a hot subset of images.
	r := sc.rng.Float64()
	idx := int(r * r * float64(len(sc.lib)))
	img := sc.lib[idx]
	s := &sprite{
		handle: sc.store.New(),
		image:  idx,
		pos: order.Vec3{
			X: sc.rng.Float64() * 1024,
			Y: sc.rng.Float64() * 768,
			Z: float64(sc.rng.IntN(4)),
		},
		w:     float64(img.width),
		h:     float64(img.height),
		alpha: img.alpha,
		layer: -1,
		dirty: true,
	}
	if sc.refCounted {
		if id, err := sc.upload(s); err == nil {
			s.pid = id
		}
	}
	sc.sprites = append(sc.sprites, s)
}

// despawn removes sprite i.
func (sc *scene) despawn(i int) {
	s := sc.sprites[i]
	sc.store.Remove(s.handle)
	if sc.refCounted && !s.pid.IsZero() {
		sc.atlas.Remove(s.pid)
	}
	last := len(sc.sprites) - 1
	sc.sprites[i] = sc.sprites[last]
	sc.sprites = sc.sprites[:last]
}

// replace swaps n random sprites for new ones.
func (sc *scene) replace(n int) {
	for range n {
		if len(sc.sprites) == 0 {
			return
		}
		sc.despawn(sc.rng.IntN(len(sc.sprites)))
		sc.spawn()
	}
}

func (sc *scene) upload(s *sprite) (atlas.PlacementID, error) {
	img := sc.lib[s.image]
	return sc.atlas.Upload(s.image, img.pixels, img.width, img.height, img.name)
}

// frame moves some sprites, makes every sprite resident, batches them by
// atlas layer and runs the atlas end-of-frame maintenance.
func (sc *scene) frame() error {
	for _, s := range sc.sprites {
		if sc.rng.IntN(10) == 0 {
			s.pos.X += sc.rng.Float64()*8 - 4
			s.pos.Y += sc.rng.Float64()*8 - 4
			s.dirty = true
		}

		var (
			id  atlas.PlacementID
			err error
		)
		if sc.refCounted && !s.pid.IsZero() {
			id = s.pid
		} else {
			id, err = sc.upload(s)
		}
		if err != nil {
			if !checkFull(err) {
				return err
			}
			sc.dropped++
			continue
		}
		if sc.refCounted {
			s.pid = id
		}
		p, ok := sc.atlas.Get(id)
		if !ok {
			sc.dropped++
			continue
		}
		s.resolve(id, p, sc.atlas.Extent())

		sc.batch.AddRenderable(s, uint32(p.Layer)) //nolint:gosec // layer < MaxLayers
	}

	if err := sc.batch.Finalize(); err != nil {
		return err
	}
	sc.atlas.Trim()
	_, err := sc.atlas.Maintain()
	return err
}

func (sc *scene) release() {
	sc.batch.Release()
	sc.atlas.Release()
}
