// Package atlas packs many small images into the layers of one GPU texture
// array and keeps them resident across frames.
//
// A [Set] maps caller-defined content keys (a glyph id, a sprite path) to
// placements: a rectangle inside one layer plus a small user value such as
// a glyph baseline offset. Uploading a key that is already resident returns
// the existing placement without touching the GPU.
//
// When no layer has room, a Set first evicts least recently used
// placements that were not used since the last [Set.Trim], then grows the
// texture array by one layer. Growth creates the larger array, copies every
// existing layer into it and only then swaps it in, so a consumer never
// binds a half-copied texture.
//
// In reference-counted mode nothing is evicted implicitly; each Upload of a
// resident key adds a reference and each Remove drops one.
//
// Layers that become fragmented by many removals can be compacted with
// [Set.Maintain], which relocates their placements into other layers a few
// at a time while keeping every [PlacementID] valid.
//
// # Related Packages
//
//   - [github.com/gogpu/atlas/packer]: the per-layer rectangle packer
//   - [github.com/gogpu/atlas/batch]: per-frame vertex batching
//   - [github.com/gogpu/atlas/backend/native]: gpucore.Device over wgpu HAL
package atlas
