// Command atlasdemo drives the atlas and batch packages through a simulated
// sprite scene and reports upload, eviction and batching statistics.
//
// Usage:
//
//	atlasdemo -frames 300 -sprites 2000 -extent 512 -device noop -v
//	atlasdemo -images ./sprites -device software
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand/v2"
	"os"

	"github.com/gogpu/atlas"
	"github.com/gogpu/atlas/backend"
	"github.com/gogpu/atlas/backend/native"
	"github.com/gogpu/atlas/batch"
	"github.com/gogpu/atlas/internal/parallel"
)

func main() {
	var (
		frames    = flag.Int("frames", 120, "number of frames to simulate")
		sprites   = flag.Int("sprites", 500, "number of live sprites")
		kinds     = flag.Int("kinds", 300, "number of distinct sprite images")
		extent    = flag.Int("extent", 512, "atlas layer width and height")
		maxLayers = flag.Int("max-layers", 4, "maximum atlas layers")
		refCount  = flag.Bool("refcount", false, "reference-count placements instead of evicting")
		churn     = flag.Float64("churn", 0.02, "fraction of sprites replaced each frame")
		images    = flag.String("images", "", "directory of PNG/BMP/WebP sprite images (default: generated)")
		device    = flag.String("device", backend.BackendNoop, "device backend: noop (wgpu HAL) or software")
		seed      = flag.Uint64("seed", 1, "random seed")
		verbose   = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	atlas.SetLogger(logger)
	native.SetLogger(logger)
	backend.SetLogger(logger)

	dev, err := backend.Open(*device)
	if err != nil {
		log.Fatalf("Failed to open device (available: %v): %v", backend.Available(), err)
	}
	defer dev.Close()
	logger.Info("device opened", "backend", dev.Name())

	if nb, ok := dev.(*native.NoopBackend); ok {
		module, err := nb.CreateSpriteShaderModule()
		if err != nil {
			log.Fatalf("Failed to build sprite shader: %v", err)
		}
		defer nb.DestroyShaderModule(module)
		logger.Debug("sprite shader ready", "stride", native.SpriteInstanceStride)
	}

	rng := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))

	pool := parallel.NewPool(0)
	var lib []spriteImage
	if *images != "" {
		lib, err = loadImages(pool, *images, *extent/4)
	} else {
		lib = generateImages(pool, rng, *kinds)
	}
	pool.Close()
	if err != nil {
		log.Fatalf("Failed to load sprites: %v", err)
	}
	if len(lib) == 0 {
		log.Fatalf("No sprite images")
	}

	cfg := atlas.DefaultConfig()
	cfg.LayerExtent = *extent
	cfg.MaxLayers = *maxLayers
	cfg.RefCounted = *refCount
	cfg.DeallocationsBeforeFragmentationCheck = 32
	cfg.Label = "atlasdemo"

	scene, err := newScene(dev, cfg, lib, rng)
	if err != nil {
		log.Fatalf("Failed to create scene: %v", err)
	}
	defer scene.release()

	for range *sprites {
		scene.spawn()
	}

	for frame := range *frames {
		scene.replace(int(float64(*sprites) * *churn))
		if err := scene.frame(); err != nil {
			log.Fatalf("Frame %d: %v", frame, err)
		}
		st := scene.batch.Stats()
		logger.Debug("frame",
			"n", frame, "items", st.Items, "writes", st.Writes,
			"bytes", st.BytesWritten, "skipped", st.Skipped, "layers", len(scene.batch.Ranges()))
	}

	as := scene.atlas.Stats()
	logger.Info("done",
		"frames", *frames,
		"placements", scene.atlas.Len(),
		"layers", scene.atlas.LayerCount(),
		"hit_rate", fmt.Sprintf("%.3f", as.HitRate()),
		"evictions", as.Evictions,
		"growths", as.Growths,
		"migrations", as.Migrations,
		"moved", as.Moved,
		"dropped", scene.dropped,
		"buffer_capacity", scene.batch.Capacity())
}

// checkFull reports whether err is the recoverable atlas-full condition.
func checkFull(err error) bool {
	return errors.Is(err, atlas.ErrAtlasFull)
}

var _ batch.Renderable = (*sprite)(nil)
