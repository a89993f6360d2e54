// Package batch compacts per-object vertex payloads into shared GPU buffers.
//
// Every renderable object owns an [Entry] in a [Store], addressed by a
// generation-checked handle. Once per frame the renderer adds the visible
// objects to a [Buffer] (instance data) or an [IndexedBuffer] (meshes) with
// their paint-order key and target layer, then calls Finalize:
//
//	Collecting -> Sorting -> Diffing -> Ready
//
// Finalize sorts each layer's items by [order.Key], lays them out back to
// back, and writes an item's bytes to the GPU only when its offset moved,
// its bytes changed, or the buffer was reallocated. A frame in which nothing
// moved or changed issues no writes at all.
//
// The resulting per-layer element ranges (or indexed draws) stay valid until
// the next Add.
package batch
