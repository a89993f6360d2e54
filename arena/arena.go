// Package arena provides a generation-checked slot arena.
//
// Values live in a dense slice of slots. A [Handle] names a slot by index
// and by the generation the slot had when the value was inserted. Removing
// a value bumps the slot generation, so every handle issued for the old
// value stops resolving, even after the slot index is reused by a later
// insertion.
package arena

import (
	"fmt"
	"iter"
)

// Handle is a stable reference to a value stored in an [Arena].
// The zero Handle never resolves.
type Handle struct {
	Index      uint32
	Generation uint32
}

// IsZero reports whether h is the zero Handle.
func (h Handle) IsZero() bool {
	return h == Handle{}
}

// String returns a string representation of the handle.
func (h Handle) String() string {
	return fmt.Sprintf("%d#%d", h.Index, h.Generation)
}

type slot[T any] struct {
	value      T
	generation uint32 // Odd while occupied, even while free
}

func (s *slot[T]) occupied() bool { return s.generation&1 == 1 }

// Arena stores values of type T addressed by generation-checked handles.
// Arena is not safe for concurrent use.
type Arena[T any] struct {
	slots []slot[T]
	free  []uint32
	len   int
}

// New creates an empty arena with room for capacity values.
func New[T any](capacity int) *Arena[T] {
	return &Arena[T]{
		slots: make([]slot[T], 0, capacity),
	}
}

// Insert stores v and returns its handle.
func (a *Arena[T]) Insert(v T) Handle {
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		idx = uint32(len(a.slots)) //nolint:gosec // slot count is bounded by memory
		a.slots = append(a.slots, slot[T]{})
	}

	s := &a.slots[idx]
	s.generation++
	s.value = v
	a.len++
	return Handle{Index: idx, Generation: s.generation}
}

// Get returns a pointer to the value behind h.
// Returns nil and false if h is stale, removed or was never issued.
// The pointer is valid until the next Insert.
func (a *Arena[T]) Get(h Handle) (*T, bool) {
	if int(h.Index) >= len(a.slots) {
		return nil, false
	}
	s := &a.slots[h.Index]
	if !s.occupied() || s.generation != h.Generation {
		return nil, false
	}
	return &s.value, true
}

// Contains reports whether h resolves to a live value.
func (a *Arena[T]) Contains(h Handle) bool {
	_, ok := a.Get(h)
	return ok
}

// Remove deletes the value behind h and returns it.
// Returns the zero value and false if h does not resolve.
func (a *Arena[T]) Remove(h Handle) (T, bool) {
	var zero T
	if !a.Contains(h) {
		return zero, false
	}
	s := &a.slots[h.Index]
	v := s.value
	s.value = zero
	s.generation++
	a.free = append(a.free, h.Index)
	a.len--
	return v, true
}

// Len returns the number of live values.
func (a *Arena[T]) Len() int {
	return a.len
}

// All iterates live values in slot order.
func (a *Arena[T]) All() iter.Seq2[Handle, *T] {
	return func(yield func(Handle, *T) bool) {
		for i := range a.slots {
			s := &a.slots[i]
			if !s.occupied() {
				continue
			}
			h := Handle{Index: uint32(i), Generation: s.generation} //nolint:gosec // bounded by len(slots)
			if !yield(h, &s.value) {
				return
			}
		}
	}
}

// Clear removes every value. Handles issued before Clear stop resolving.
func (a *Arena[T]) Clear() {
	var zero T
	a.free = a.free[:0]
	for i := len(a.slots) - 1; i >= 0; i-- {
		s := &a.slots[i]
		if s.occupied() {
			s.generation++
			s.value = zero
		}
		a.free = append(a.free, uint32(i)) //nolint:gosec // bounded by len(slots)
	}
	a.len = 0
}
