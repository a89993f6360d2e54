// Package backend selects a gpucore.Device implementation at runtime.
//
// Device backends register a factory from an init() function and are
// opened by name. The software backend is registered by this package:
//
//	import _ "github.com/gogpu/atlas/backend"
//
// The headless wgpu HAL backend registers itself when its package is
// imported:
//
//	import _ "github.com/gogpu/atlas/backend/native"
//
// # Backend Selection
//
// Use Default to open the best available backend, or Open to request a
// specific one:
//
//	dev, err := backend.Open(backend.BackendSoftware)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer dev.Close()
//
//	set, err := atlas.New[string, Glyph](dev, atlas.DefaultConfig())
//
// # Available Backends
//
//   - "software": texture and buffer contents kept in CPU memory (always available)
//   - "noop": gogpu/wgpu noop HAL, exercising the HAL bridge without a GPU
//
// Applications that already own a wgpu device wrap it with
// native.FromProvider instead of going through the registry.
package backend
