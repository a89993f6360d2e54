package cache

import "iter"

// lruNode is a node in the doubly-linked recency list.
// The node stores its key for O(1) deletion from the index map.
type lruNode[K comparable, V any] struct {
	key   K
	value V
	prev  *lruNode[K, V]
	next  *lruNode[K, V]
}

// LRU is a map ordered by recency of use.
//
// The head is the most recently used entry, the tail the least recently used.
// LRU never evicts on its own; callers decide what to drop by walking
// [LRU.Oldest] or [LRU.Backward].
type LRU[K comparable, V any] struct {
	index map[K]*lruNode[K, V]
	head  *lruNode[K, V]
	tail  *lruNode[K, V]
}

// NewLRU creates an empty LRU sized for capacity entries.
func NewLRU[K comparable, V any](capacity int) *LRU[K, V] {
	return &LRU[K, V]{index: make(map[K]*lruNode[K, V], capacity)}
}

// Len returns the number of entries.
func (l *LRU[K, V]) Len() int {
	return len(l.index)
}

// Get returns the value for key and promotes it to most recently used.
func (l *LRU[K, V]) Get(key K) (V, bool) {
	node, ok := l.index[key]
	if !ok {
		var zero V
		return zero, false
	}
	l.moveToFront(node)
	return node.value, true
}

// Peek returns the value for key without changing recency.
func (l *LRU[K, V]) Peek(key K) (V, bool) {
	node, ok := l.index[key]
	if !ok {
		var zero V
		return zero, false
	}
	return node.value, true
}

// Contains reports whether key is present without changing recency.
func (l *LRU[K, V]) Contains(key K) bool {
	_, ok := l.index[key]
	return ok
}

// Put stores value for key and promotes it to most recently used.
func (l *LRU[K, V]) Put(key K, value V) {
	if node, ok := l.index[key]; ok {
		node.value = value
		l.moveToFront(node)
		return
	}
	node := &lruNode[K, V]{key: key, value: value}
	l.pushFront(node)
	l.index[key] = node
}

// Update replaces the value for an existing key without changing recency.
// It reports false if key is absent.
func (l *LRU[K, V]) Update(key K, value V) bool {
	node, ok := l.index[key]
	if !ok {
		return false
	}
	node.value = value
	return true
}

// Remove deletes key and returns its value.
func (l *LRU[K, V]) Remove(key K) (V, bool) {
	node, ok := l.index[key]
	if !ok {
		var zero V
		return zero, false
	}
	l.unlink(node)
	delete(l.index, key)
	return node.value, true
}

// Oldest returns the least recently used entry without removing it.
func (l *LRU[K, V]) Oldest() (K, V, bool) {
	if l.tail == nil {
		var (
			zk K
			zv V
		)
		return zk, zv, false
	}
	return l.tail.key, l.tail.value, true
}

// Backward iterates from least to most recently used.
// The sequence must not be used while the LRU is modified.
func (l *LRU[K, V]) Backward() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for node := l.tail; node != nil; node = node.prev {
			if !yield(node.key, node.value) {
				return
			}
		}
	}
}

// Clear removes all entries.
func (l *LRU[K, V]) Clear() {
	clear(l.index)
	l.head = nil
	l.tail = nil
}

func (l *LRU[K, V]) pushFront(node *lruNode[K, V]) {
	node.prev = nil
	node.next = l.head
	if l.head != nil {
		l.head.prev = node
	}
	l.head = node
	if l.tail == nil {
		l.tail = node
	}
}

func (l *LRU[K, V]) moveToFront(node *lruNode[K, V]) {
	if node == l.head {
		return
	}
	l.unlink(node)
	l.pushFront(node)
}

// unlink detaches node from the list and clears its pointers.
func (l *LRU[K, V]) unlink(node *lruNode[K, V]) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		l.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		l.tail = node.prev
	}
	node.prev = nil
	node.next = nil
}
