// Package order defines the paint-order key shared by every renderable kind.
//
// Keys compare by layer, then blend class (opaque before blended), then x
// ascending, then y descending, then z descending. Positions are quantized
// to hundredths before comparison so the order is identical on every
// platform and ignores sub-hundredth jitter.
package order

import (
	"cmp"
	"fmt"
	"math"
	"slices"
)

// Scale is the quantization factor applied to positions.
const Scale = 100

// bias maps signed quantized coordinates onto uint32 while preserving order.
const bias = 1 << 31

// Vec3 is a position or extent in world units.
type Vec3 struct {
	X, Y, Z float64
}

// Key is a total paint order over renderables.
type Key struct {
	Layer uint32
	Alpha bool
	X     uint32
	Y     uint32
	Z     uint32
}

// New builds a key for a renderable at position. The size of the object
// does not take part in the order; two objects at the same quantized
// position compare equal whatever their extent.
func New(alpha bool, position Vec3, layer uint32, size Vec3) Key {
	return Key{
		Layer: layer,
		Alpha: alpha,
		X:     Quantize(position.X),
		Y:     Quantize(position.Y),
		Z:     Quantize(position.Z),
	}
}

// Quantize scales v by [Scale], truncates toward zero and biases the result
// into uint32 range. Values outside the representable range saturate.
func Quantize(v float64) uint32 {
	if math.IsNaN(v) {
		return bias
	}
	q := math.Trunc(v*Scale) + bias
	switch {
	case q <= 0:
		return 0
	case q >= math.MaxUint32:
		return math.MaxUint32
	default:
		return uint32(q)
	}
}

// Dequantize returns the position a quantized coordinate stands for.
func Dequantize(q uint32) float64 {
	return (float64(q) - bias) / Scale
}

// Compare returns -1, 0 or +1 following paint order: layer ascending,
// opaque before alpha, x ascending, y descending, z descending.
func Compare(a, b Key) int {
	if c := cmp.Compare(a.Layer, b.Layer); c != 0 {
		return c
	}
	if a.Alpha != b.Alpha {
		if !a.Alpha {
			return -1
		}
		return 1
	}
	if c := cmp.Compare(a.X, b.X); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Y, a.Y); c != 0 {
		return c
	}
	return cmp.Compare(b.Z, a.Z)
}

// Less reports whether a paints before b.
func (k Key) Less(b Key) bool {
	return Compare(k, b) < 0
}

// String returns a string representation of the key.
func (k Key) String() string {
	blend := "opaque"
	if k.Alpha {
		blend = "alpha"
	}
	return fmt.Sprintf("Key(L%d %s x=%g y=%g z=%g)", k.Layer, blend,
		Dequantize(k.X), Dequantize(k.Y), Dequantize(k.Z))
}

// Sort stably sorts items by the key returned from key. Items with equal
// keys keep their submission order.
func Sort[T any](items []T, key func(T) Key) {
	slices.SortStableFunc(items, func(a, b T) int {
		return Compare(key(a), key(b))
	})
}
