package batch

import (
	"fmt"

	"github.com/gogpu/atlas/arena"
	"github.com/gogpu/atlas/order"
)

// Kind is the closed set of renderable object kinds that share the batcher.
type Kind uint8

// Renderable kinds.
const (
	KindImage Kind = iota
	KindRect
	KindText
	KindMap
	KindMesh
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindImage:
		return "Image"
	case KindRect:
		return "Rect"
	case KindText:
		return "Text"
	case KindMap:
		return "Map"
	case KindMesh:
		return "Mesh"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Renderable is implemented by every object that submits vertex data.
type Renderable interface {
	Kind() Kind

	// Handle returns the object's entry in its Store.
	Handle() arena.Handle

	// OrderKey returns the object's paint-order key for this frame.
	OrderKey() order.Key

	// Dirty reports whether the serialized form changed since the last
	// MarkClean.
	Dirty() bool
	MarkClean()

	// Serialize appends the object's vertex payload to dst.
	Serialize(dst []byte) []byte
}

// IndexedRenderable is a Renderable that also carries an index list.
// Indices are relative to the object's own first vertex.
type IndexedRenderable interface {
	Renderable
	SerializeIndices(dst []byte) []byte
}
