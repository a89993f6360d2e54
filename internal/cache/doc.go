// Package cache provides the recency list used by the atlas.
//
// LRU keeps a map from key to list node so lookups, promotion and removal
// are O(1). It is not safe for concurrent use; the atlas owns exactly one
// instance and drives it from the render thread.
//
//	lru := cache.NewLRU[uint32, int](64)
//	lru.Put(7, 1)
//	refs, ok := lru.Get(7) // promotes 7 to most recently used
package cache
