package batch

import (
	"fmt"

	"github.com/gogpu/atlas/arena"
)

// Range is a half-open byte range [Start, End).
type Range struct {
	Start, End uint64
}

// Len returns the number of bytes in the range.
func (r Range) Len() uint64 { return r.End - r.Start }

// String returns a string representation of the range.
func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)", r.Start, r.End)
}

// uploadStamp records which buffer last placed an entry and in which frame.
type uploadStamp struct {
	owner uint64
	frame uint64
}

// Entry is one object's serialized payload.
//
// ByteRange and IndexRange are where the payload was placed by the last
// Finalize that included it. They are maintained by the batcher.
type Entry struct {
	Bytes      []byte
	IndexBytes []byte
	Dirty      bool
	ByteRange  Range
	IndexRange Range

	placed      uploadStamp
	indexPlaced uploadStamp
}

// Store holds the entries of every live renderable object.
// Store is not safe for concurrent use.
type Store struct {
	entries *arena.Arena[Entry]
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{entries: arena.New[Entry](64)}
}

// New creates an empty dirty entry and returns its handle.
func (s *Store) New() arena.Handle {
	return s.entries.Insert(Entry{Dirty: true})
}

// Get returns the entry for h, or false if h is stale.
// The pointer is valid until the next call to New.
func (s *Store) Get(h arena.Handle) (*Entry, bool) {
	return s.entries.Get(h)
}

// Remove destroys the entry for h. Later lookups through h fail.
func (s *Store) Remove(h arena.Handle) bool {
	_, ok := s.entries.Remove(h)
	return ok
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	return s.entries.Len()
}

// Set replaces the payload of h and marks it dirty.
func (s *Store) Set(h arena.Handle, vertices, indices []byte) bool {
	e, ok := s.entries.Get(h)
	if !ok {
		return false
	}
	e.Bytes = append(e.Bytes[:0], vertices...)
	e.IndexBytes = append(e.IndexBytes[:0], indices...)
	e.Dirty = true
	return true
}

// Sync re-serializes r into its entry if r reports itself dirty.
// It reports false if r's handle is stale.
func (s *Store) Sync(r Renderable) bool {
	e, ok := s.entries.Get(r.Handle())
	if !ok {
		return false
	}
	if !r.Dirty() {
		return true
	}
	e.Bytes = r.Serialize(e.Bytes[:0])
	if ir, ok := r.(IndexedRenderable); ok {
		e.IndexBytes = ir.SerializeIndices(e.IndexBytes[:0])
	}
	e.Dirty = true
	r.MarkClean()
	return true
}
