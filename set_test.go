package atlas

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/gogpu/atlas/gpucore"
	"github.com/gogpu/atlas/internal/gputest"
	"github.com/gogpu/atlas/packer"
)

func newTestSet(t *testing.T, edit func(*Config)) (*gputest.Device, *Set[string, int]) {
	t.Helper()
	dev := gputest.NewDevice(gpucore.DefaultLimits())
	cfg := DefaultConfig()
	cfg.LayerExtent = 64
	cfg.MaxLayers = 1
	cfg.ShelfPadding = 0
	if edit != nil {
		edit(&cfg)
	}
	s, err := New[string, int](dev, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return dev, s
}

// pixels returns w x h RGBA texels all set to v.
func pixels(w, h int, v byte) []byte {
	return bytes.Repeat([]byte{v}, w*h*4)
}

func mustUpload(t *testing.T, s *Set[string, int], key string, w, h int) PlacementID {
	t.Helper()
	id, err := s.Upload(key, pixels(w, h, key[0]), w, h, len(key))
	if err != nil {
		t.Fatalf("Upload(%q): %v", key, err)
	}
	return id
}

func checkInvariants(t *testing.T, s *Set[string, int]) {
	t.Helper()
	if err := s.checkInvariants(); err != nil {
		t.Fatal(err)
	}
}

// --- Upload Tests ---

func TestSet_UploadIdempotent(t *testing.T) {
	dev, s := newTestSet(t, nil)

	first := mustUpload(t, s, "a", 8, 8)
	second := mustUpload(t, s, "a", 8, 8)

	if first != second {
		t.Errorf("second upload returned %v, want %v", second, first)
	}
	if dev.TextureWrites != 1 {
		t.Errorf("TextureWrites = %d, want 1", dev.TextureWrites)
	}
	if st := s.Stats(); st.Hits != 1 || st.Misses != 1 {
		t.Errorf("Stats() = %+v, want 1 hit 1 miss", st)
	}
	p, ok := s.Get(first)
	if !ok || p.Data != 1 || p.Rect.Width != 8 {
		t.Errorf("Get() = %+v, %v", p, ok)
	}
}

func TestSet_TwoOfThreeThenReuse(t *testing.T) {
	_, s := newTestSet(t, func(c *Config) { c.ShelfPadding = 1 })

	a := mustUpload(t, s, "a", 32, 32)
	mustUpload(t, s, "b", 32, 32)
	pa, _ := s.Get(a)

	if _, err := s.Upload("c", pixels(32, 32, 'c'), 32, 32, 0); !errors.Is(err, ErrAtlasFull) {
		t.Fatalf("third upload err = %v, want ErrAtlasFull", err)
	}

	if _, ok := s.Remove(a); !ok {
		t.Fatal("Remove(a) failed")
	}
	c := mustUpload(t, s, "c", 32, 32)
	pc, _ := s.Get(c)
	if pc.Rect != pa.Rect || pc.Layer != pa.Layer {
		t.Errorf("c placed at %v layer %d, want a's %v layer %d", pc.Rect, pc.Layer, pa.Rect, pa.Layer)
	}
	checkInvariants(t, s)
}

func TestSet_UploadRejectsBadInput(t *testing.T) {
	_, s := newTestSet(t, nil)

	tests := []struct {
		name     string
		w, h     int
		pix      []byte
		target   error
		oversize bool
	}{
		{"too wide", 65, 1, pixels(65, 1, 0), ErrAtlasFull, true},
		{"too tall", 1, 65, pixels(1, 65, 0), ErrAtlasFull, true},
		{"short pixels", 4, 4, pixels(4, 3, 0), ErrPixelSize, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Upload(tt.name, tt.pix, tt.w, tt.h, 0)
			if !errors.Is(err, tt.target) {
				t.Fatalf("err = %v, want %v", err, tt.target)
			}
			var full *FullError
			if errors.As(err, &full) != tt.oversize || (full != nil && !full.Oversize()) {
				t.Errorf("err %v: oversize mismatch", err)
			}
		})
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d after rejected uploads", s.Len())
	}
}

// --- Eviction Tests ---

func TestSet_EvictsLeastRecentlyUsed(t *testing.T) {
	_, s := newTestSet(t, nil)
	ids := make([]PlacementID, 4)
	for i, k := range []string{"a", "b", "c", "d"} {
		ids[i] = mustUpload(t, s, k, 32, 32)
	}
	pa, _ := s.Get(ids[0])

	s.Trim()
	s.Get(ids[0]) // a is used this frame; b is now the oldest unprotected
	e := mustUpload(t, s, "e", 32, 32)

	if _, ok := s.Lookup("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := s.Get(ids[0]); !ok {
		t.Error("protected a was evicted")
	}
	pe, _ := s.Get(e)
	if pe.Rect == pa.Rect {
		t.Error("e reused a's rectangle")
	}
	if st := s.Stats(); st.Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", st.Evictions)
	}
	checkInvariants(t, s)
}

func TestSet_EvictionRespectsProtection(t *testing.T) {
	_, s := newTestSet(t, nil)
	var ids []PlacementID
	for _, k := range []string{"a", "b", "c", "d"} {
		ids = append(ids, mustUpload(t, s, k, 32, 32))
	}

	s.Trim()
	for _, id := range ids {
		s.Get(id)
	}
	if _, err := s.Upload("e", pixels(32, 32, 'e'), 32, 32, 0); !errors.Is(err, ErrAtlasFull) {
		t.Fatalf("err = %v, want ErrAtlasFull", err)
	}
	if s.Len() != 4 {
		t.Errorf("Len() = %d, want 4", s.Len())
	}
	checkInvariants(t, s)
}

func TestSet_FailedEvictionChangesNothing(t *testing.T) {
	_, s := newTestSet(t, nil)
	ids := make(map[string]PlacementID)
	for _, k := range []string{"a", "b", "c", "d"} {
		ids[k] = mustUpload(t, s, k, 32, 32)
	}

	// b and c sit on different shelves, so evicting a and d frees half of
	// each shelf and a 64-wide image still cannot fit.
	s.Trim()
	s.Get(ids["b"])
	s.Get(ids["c"])

	if _, err := s.Upload("wide", pixels(64, 32, 'w'), 64, 32, 0); !errors.Is(err, ErrAtlasFull) {
		t.Fatalf("err = %v, want ErrAtlasFull", err)
	}
	for _, k := range []string{"a", "d"} {
		if _, ok := s.Get(ids[k]); !ok {
			t.Errorf("%s was evicted by a failed upload", k)
		}
	}
	if s.Len() != 4 || s.Stats().Evictions != 0 {
		t.Errorf("Len()=%d Evictions=%d, want 4 and 0", s.Len(), s.Stats().Evictions)
	}
	checkInvariants(t, s)
}

// --- Growth Tests ---

func TestSet_GrowthPreservesData(t *testing.T) {
	dev, s := newTestSet(t, func(c *Config) { c.MaxLayers = 4 })

	before := make(map[string]Placement[int])
	ids := make(map[string]PlacementID)
	for _, k := range []string{"a", "b", "c", "d"} {
		ids[k] = mustUpload(t, s, k, 32, 32)
		before[k], _ = s.Get(ids[k])
	}
	oldTex := s.Texture()

	mustUpload(t, s, "e", 32, 32)

	if s.LayerCount() != 2 {
		t.Fatalf("LayerCount() = %d, want 2", s.LayerCount())
	}
	if s.Texture() == oldTex || dev.Texture(oldTex) != nil || dev.LiveTextures() != 1 {
		t.Error("old texture was not replaced and released")
	}
	for k, want := range before {
		got, ok := s.Get(ids[k])
		if !ok || got != want {
			t.Errorf("%s: placement %+v after growth, want %+v", k, got, want)
		}
		if px := dev.ReadTexture(s.Texture(), got.Region()); !bytes.Equal(px, pixels(32, 32, k[0])) {
			t.Errorf("%s: pixels not preserved across growth", k)
		}
	}
	checkInvariants(t, s)
}

func TestSet_GrowthFailureLeavesStateUnchanged(t *testing.T) {
	dev, s := newTestSet(t, func(c *Config) { c.MaxLayers = 4 })
	for _, k := range []string{"a", "b", "c", "d"} {
		mustUpload(t, s, k, 32, 32)
	}
	tex := s.Texture()
	dev.FailTextures = true

	_, err := s.Upload("e", pixels(32, 32, 'e'), 32, 32, 0)
	if !errors.Is(err, ErrGrowthFailed) || !errors.Is(err, gputest.ErrInjected) {
		t.Fatalf("err = %v, want ErrGrowthFailed wrapping the device error", err)
	}
	if s.Texture() != tex || s.LayerCount() != 1 || s.Len() != 4 {
		t.Errorf("state changed: texture %v layers %d len %d", s.Texture(), s.LayerCount(), s.Len())
	}
	if _, ok := s.Lookup("e"); ok {
		t.Error("failed key is resident")
	}
	checkInvariants(t, s)
}

func TestSet_MaxLayersReached(t *testing.T) {
	_, s := newTestSet(t, nil)
	for _, k := range []string{"a", "b", "c", "d"} {
		mustUpload(t, s, k, 32, 32)
	}

	_, err := s.Upload("e", pixels(32, 32, 'e'), 32, 32, 0)
	var full *FullError
	if !errors.As(err, &full) {
		t.Fatalf("err = %v, want *FullError", err)
	}
	if full.Oversize() || full.Layers != 1 || full.MaxLayers != 1 {
		t.Errorf("FullError = %+v", full)
	}
}

func TestSet_DeferredTexture(t *testing.T) {
	dev, s := newTestSet(t, func(c *Config) { c.InitialLayers = 0 })
	if s.Texture() != gpucore.InvalidID || dev.LiveTextures() != 0 {
		t.Fatal("texture created before first upload")
	}
	mustUpload(t, s, "a", 4, 4)
	if s.LayerCount() != 1 || dev.LiveTextures() != 1 {
		t.Errorf("LayerCount()=%d LiveTextures()=%d, want 1 and 1", s.LayerCount(), dev.LiveTextures())
	}
}

// --- Removal Tests ---

func TestSet_RefCounted(t *testing.T) {
	_, s := newTestSet(t, func(c *Config) { c.RefCounted = true })

	id := mustUpload(t, s, "a", 32, 32)
	mustUpload(t, s, "a", 32, 32)
	if s.RefCount(id) != 2 {
		t.Fatalf("RefCount() = %d, want 2", s.RefCount(id))
	}

	if _, ok := s.RemoveByKey("a"); !ok {
		t.Fatal("RemoveByKey failed")
	}
	if _, ok := s.Get(id); !ok {
		t.Fatal("placement freed while referenced")
	}
	s.Remove(id)
	if _, ok := s.Get(id); ok {
		t.Error("placement survived its last reference")
	}

	for _, k := range []string{"a", "b", "c", "d"} {
		mustUpload(t, s, k, 32, 32)
	}
	s.Trim()
	if _, err := s.Upload("e", pixels(32, 32, 'e'), 32, 32, 0); !errors.Is(err, ErrAtlasFull) {
		t.Errorf("err = %v, want ErrAtlasFull without eviction", err)
	}
	checkInvariants(t, s)
}

func TestSet_StaleIDAfterRemove(t *testing.T) {
	_, s := newTestSet(t, nil)
	old := mustUpload(t, s, "a", 8, 8)
	layer, ok := s.Remove(old)
	if !ok || layer != 0 {
		t.Fatalf("Remove() = %d, %v", layer, ok)
	}

	fresh := mustUpload(t, s, "b", 8, 8)
	if fresh == old {
		t.Fatal("removed ID was reissued")
	}
	if _, ok := s.Get(old); ok {
		t.Error("stale ID resolved")
	}
	if _, ok := s.Remove(old); ok {
		t.Error("stale ID removed a placement")
	}
	if _, ok := s.GetByKey("a"); ok {
		t.Error("removed key still resident")
	}
}

// --- Migration Tests ---

// fragmented builds two full layers and empties most of the first.
func fragmented(t *testing.T, budget int) (*gputest.Device, *Set[string, int]) {
	t.Helper()
	dev, s := newTestSet(t, func(c *Config) {
		c.MaxLayers = 2
		c.InitialLayers = 2
		c.DeallocationsBeforeFragmentationCheck = 2
		c.FragmentationThreshold = 0.6
		c.MigrationBudget = budget
	})
	for _, k := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		mustUpload(t, s, k, 32, 32)
	}
	for _, k := range []string{"a", "b", "e", "f"} {
		s.RemoveByKey(k)
	}
	return dev, s
}

func TestSet_MigrationCompactsLayer(t *testing.T) {
	dev, s := fragmented(t, 1)
	c, _ := s.Lookup("c")
	d, _ := s.Lookup("d")

	state, err := s.Maintain()
	if err != nil || state != MigrationDraining {
		t.Fatalf("first Maintain() = %v, %v; want Draining", state, err)
	}
	if _, layer := s.Migration(); layer != 0 || !s.Layers()[0].Draining {
		t.Fatalf("layer 0 should be draining, got %+v", s.Layers()[0])
	}

	state, err = s.Maintain()
	if err != nil || state != MigrationIdle {
		t.Fatalf("second Maintain() = %v, %v; want Idle", state, err)
	}

	for key, id := range map[string]PlacementID{"c": c, "d": d} {
		p, ok := s.Get(id)
		if !ok || p.Layer != 1 {
			t.Errorf("%s: placement %+v, %v; want layer 1", key, p, ok)
			continue
		}
		if px := dev.ReadTexture(s.Texture(), p.Region()); !bytes.Equal(px, pixels(32, 32, key[0])) {
			t.Errorf("%s: pixels not moved", key)
		}
	}
	info := s.Layers()[0]
	if info.Placements != 0 || info.Draining || info.Deallocations != 0 {
		t.Errorf("layer 0 after migration = %+v", info)
	}
	if st := s.Stats(); st.Migrations != 1 || st.Moved != 2 {
		t.Errorf("Stats() = %+v", st)
	}
	checkInvariants(t, s)
}

func TestSet_MigrationAbortsWithoutRoom(t *testing.T) {
	_, s := fragmented(t, 1)

	if _, err := s.Maintain(); err != nil {
		t.Fatal(err)
	}
	// Take the last free slot in layer 1 while layer 0 drains.
	p := mustUpload(t, s, "late", 32, 32)
	if pl, _ := s.Get(p); pl.Layer != 1 {
		t.Fatalf("upload landed on draining layer %d", pl.Layer)
	}

	state, err := s.Maintain()
	if err != nil || state != MigrationIdle {
		t.Fatalf("Maintain() = %v, %v; want Idle", state, err)
	}
	if s.Layers()[0].Draining {
		t.Error("layer 0 still draining after abort")
	}
	if s.Stats().MigrationsAborted != 1 {
		t.Errorf("MigrationsAborted = %d, want 1", s.Stats().MigrationsAborted)
	}
	if s.Len() != 5 {
		t.Errorf("Len() = %d, want 5; nothing may be lost", s.Len())
	}
	checkInvariants(t, s)
}

func TestSet_MaintainIdleWithoutFragmentation(t *testing.T) {
	_, s := newTestSet(t, func(c *Config) { c.MaxLayers = 2; c.InitialLayers = 2 })
	mustUpload(t, s, "a", 8, 8)
	if state, err := s.Maintain(); err != nil || state != MigrationIdle {
		t.Errorf("Maintain() = %v, %v; want Idle", state, err)
	}
}

// --- Property Tests ---

func TestSet_RandomOperationsKeepInvariants(t *testing.T) {
	_, s := newTestSet(t, func(c *Config) {
		c.MaxLayers = 3
		c.ShelfPadding = 1
		c.DeallocationsBeforeFragmentationCheck = 8
		c.FragmentationThreshold = 0.5
		c.MigrationBudget = 3
	})
	rng := rand.New(rand.NewPCG(3, 5))

	for step := range 3000 {
		key := fmt.Sprintf("k%d", rng.IntN(200))
		switch op := rng.IntN(10); {
		case op < 5:
			w, h := 1+rng.IntN(24), 1+rng.IntN(24)
			before := s.Len()
			if _, err := s.Upload(key, pixels(w, h, 1), w, h, step); err != nil {
				if !errors.Is(err, ErrAtlasFull) {
					t.Fatalf("step %d: %v", step, err)
				}
				if s.Len() != before {
					t.Fatalf("step %d: failed upload changed Len from %d to %d", step, before, s.Len())
				}
			}
		case op < 7:
			s.RemoveByKey(key)
		case op < 8:
			s.GetByKey(key)
		case op < 9:
			s.Trim()
		default:
			if _, err := s.Maintain(); err != nil {
				t.Fatalf("step %d: Maintain: %v", step, err)
			}
		}
		if err := s.checkInvariants(); err != nil {
			t.Fatalf("step %d: %v", step, err)
		}
	}
}

// --- Config Tests ---

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*Config)
		field string
	}{
		{"default", func(*Config) {}, ""},
		{"negative extent", func(c *Config) { c.LayerExtent = -1 }, "LayerExtent"},
		{"initial over max", func(c *Config) { c.MaxLayers = 2; c.InitialLayers = 3 }, "InitialLayers"},
		{"bad format", func(c *Config) { c.Format = 0 }, "Format"},
		{"threshold", func(c *Config) { c.FragmentationThreshold = 1.5 }, "FragmentationThreshold"},
		{"budget", func(c *Config) { c.MigrationBudget = -1 }, "MigrationBudget"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.edit(&cfg)
			err := cfg.Validate()
			if tt.field == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			var ce *ConfigError
			if !errors.As(err, &ce) || ce.Field != tt.field {
				t.Errorf("Validate() = %v, want ConfigError on %s", err, tt.field)
			}
		})
	}
}

func TestNew_ResolvesDeviceLimits(t *testing.T) {
	limits := gpucore.Limits{MaxTextureDimension2D: 256, MaxTextureArrayLayers: 8, MaxBufferSize: 1 << 20}
	dev := gputest.NewDevice(limits)

	s, err := New[string, int](dev, DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.Extent() != 256 {
		t.Errorf("Extent() = %d, want 256", s.Extent())
	}

	cfg := DefaultConfig()
	cfg.LayerExtent = 512
	var ce *ConfigError
	if _, err := New[string, int](dev, cfg); !errors.As(err, &ce) || ce.Field != "LayerExtent" {
		t.Errorf("New with oversized extent err = %v", err)
	}
}

func TestSetLogger(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer SetLogger(nil)

	_, s := newTestSet(t, func(c *Config) { c.MaxLayers = 2 })
	for _, k := range []string{"a", "b", "c", "d", "e"} {
		mustUpload(t, s, k, 32, 32)
	}
	if !strings.Contains(buf.String(), "texture array grown") {
		t.Errorf("growth not logged: %q", buf.String())
	}

	SetLogger(nil)
	if Logger().Enabled(t.Context(), slog.LevelError) {
		t.Error("nil logger should disable output")
	}
}

func TestPlacement_UV(t *testing.T) {
	p := Placement[int]{Rect: packer.Rect{X: 16, Y: 32, Width: 16, Height: 32}}
	u0, v0, u1, v1 := p.UV(64)
	if u0 != 0.25 || v0 != 0.5 || u1 != 0.5 || v1 != 1 {
		t.Errorf("UV() = %v %v %v %v", u0, v0, u1, v1)
	}
}

func BenchmarkSet_UploadHit(b *testing.B) {
	dev := gputest.NewDevice(gpucore.DefaultLimits())
	cfg := DefaultConfig()
	cfg.LayerExtent = 1024
	s, _ := New[int, struct{}](dev, cfg)
	px := make([]byte, 16*16*4)
	for i := range 256 {
		_, _ = s.Upload(i, px, 16, 16, struct{}{})
	}

	b.ResetTimer()
	for i := range b.N {
		_, _ = s.Upload(i&255, px, 16, 16, struct{}{})
	}
}
