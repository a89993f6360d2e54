package batch

import (
	"slices"
	"sync/atomic"

	"github.com/gogpu/atlas/arena"
	"github.com/gogpu/atlas/order"
)

// ownerSeq hands out identities so an entry can tell which buffer placed it.
var ownerSeq atomic.Uint64

type pendingItem struct {
	key    order.Key
	handle arena.Handle
}

// collector holds one frame's submissions grouped by target layer.
type collector struct {
	store  *Store
	lists  map[uint32][]pendingItem
	layers []uint32
	needed uint64
}

func newCollector(store *Store) collector {
	return collector{store: store, lists: make(map[uint32][]pendingItem)}
}

func (c *collector) add(key order.Key, h arena.Handle, layer uint32) bool {
	e, ok := c.store.Get(h)
	if !ok {
		return false
	}
	list, seen := c.lists[layer]
	if !seen || len(list) == 0 {
		c.layers = append(c.layers, layer)
	}
	c.lists[layer] = append(list, pendingItem{key: key, handle: h})
	c.needed += uint64(len(e.Bytes))
	return true
}

// sort orders layers ascending and each layer's items by paint order.
// Items with equal keys keep submission order.
func (c *collector) sort() {
	slices.Sort(c.layers)
	for _, layer := range c.layers {
		order.Sort(c.lists[layer], func(it pendingItem) order.Key { return it.key })
	}
}

// dropStale removes items whose entries were removed after they were added
// and recounts the bytes still needed.
func (c *collector) dropStale() {
	c.needed = 0
	for _, layer := range c.layers {
		c.lists[layer] = slices.DeleteFunc(c.lists[layer], func(it pendingItem) bool {
			e, ok := c.store.Get(it.handle)
			if ok {
				c.needed += uint64(len(e.Bytes))
			}
			return !ok
		})
	}
	c.layers = slices.DeleteFunc(c.layers, func(layer uint32) bool {
		return len(c.lists[layer]) == 0
	})
}

func (c *collector) count() int {
	n := 0
	for _, layer := range c.layers {
		n += len(c.lists[layer])
	}
	return n
}

// reset empties the lists, keeping their backing arrays for the next frame.
func (c *collector) reset() {
	for _, layer := range c.layers {
		c.lists[layer] = c.lists[layer][:0]
	}
	c.layers = c.layers[:0]
	c.needed = 0
}

// unchanged reports whether an entry can keep its bytes where they are:
// the same buffer placed it at the same range in the previous frame and
// nothing was rewritten since.
func unchanged(placed uploadStamp, last, now Range, dirty, grown bool, owner, frame uint64) bool {
	return !grown && !dirty && last == now && placed == uploadStamp{owner: owner, frame: frame - 1}
}
