package order

import (
	"math/rand/v2"
	"slices"
	"testing"
)

func TestQuantize(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"zero", 0, 0},
		{"hundredths", 1.25, 1.25},
		{"jitter dropped", 1.259999, 1.25},
		{"negative", -2.5, -2.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Dequantize(Quantize(tt.in))
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("Dequantize(Quantize(%g)) = %g, want %g", tt.in, got, tt.want)
			}
		})
	}
}

func TestQuantize_PreservesOrderAcrossZero(t *testing.T) {
	vals := []float64{-1e6, -3.5, -0.01, 0, 0.01, 2, 1e6}
	for i := 1; i < len(vals); i++ {
		if Quantize(vals[i-1]) >= Quantize(vals[i]) {
			t.Errorf("Quantize(%g) >= Quantize(%g)", vals[i-1], vals[i])
		}
	}
}

func TestQuantize_Saturates(t *testing.T) {
	if Quantize(1e30) != ^uint32(0) {
		t.Error("large positive value should saturate to max")
	}
	if Quantize(-1e30) != 0 {
		t.Error("large negative value should saturate to 0")
	}
}

func TestCompare(t *testing.T) {
	base := Key{Layer: 1, X: 10, Y: 10, Z: 10}

	tests := []struct {
		name string
		a, b Key
		want int
	}{
		{"equal", base, base, 0},
		{"layer first", Key{Layer: 0, X: 99}, Key{Layer: 1}, -1},
		{"opaque before alpha", Key{Alpha: false, X: 99}, Key{Alpha: true}, -1},
		{"x ascending", Key{X: 1}, Key{X: 2}, -1},
		{"y descending", Key{X: 1, Y: 5}, Key{X: 1, Y: 2}, -1},
		{"z descending", Key{Z: 9}, Key{Z: 3}, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compare(tt.a, tt.b); got != tt.want {
				t.Errorf("Compare(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
			if got := Compare(tt.b, tt.a); got != -tt.want {
				t.Errorf("Compare is not antisymmetric for %v, %v", tt.a, tt.b)
			}
		})
	}
}

func TestNew_QuantizesPosition(t *testing.T) {
	tests := []struct {
		name     string
		position Vec3
		size     Vec3
		want     Key
	}{
		{"origin", Vec3{}, Vec3{}, Key{X: bias, Y: bias, Z: bias}},
		{"hundredths", Vec3{X: 1.234, Y: -0.5, Z: 2}, Vec3{}, Key{X: bias + 123, Y: bias - 50, Z: bias + 200}},
		{"size ignored", Vec3{X: 10}, Vec3{X: 40, Y: 8}, Key{X: bias + 1000, Y: bias, Z: bias}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := New(false, tt.position, 0, tt.size); got != tt.want {
				t.Errorf("New(%v, %v) = %v, want %v", tt.position, tt.size, got, tt.want)
			}
		})
	}
}

func TestNew_WideObjectSortsByPosition(t *testing.T) {
	wide := New(false, Vec3{X: 10}, 0, Vec3{X: 40})
	narrow := New(false, Vec3{X: 12}, 0, Vec3{X: 1})

	if !wide.Less(narrow) {
		t.Errorf("%v should paint before %v", wide, narrow)
	}
}

func TestSort_ScenarioOpaqueThenAlpha(t *testing.T) {
	type item struct {
		name string
		key  Key
	}
	items := []item{
		{"opaque x=10", New(false, Vec3{X: 10}, 0, Vec3{})},
		{"alpha x=5", New(true, Vec3{X: 5}, 0, Vec3{})},
		{"opaque x=5", New(false, Vec3{X: 5}, 0, Vec3{})},
	}
	Sort(items, func(it item) Key { return it.key })

	want := []string{"opaque x=5", "opaque x=10", "alpha x=5"}
	for i, it := range items {
		if it.name != want[i] {
			t.Errorf("position %d: got %q, want %q", i, it.name, want[i])
		}
	}
}

func TestSort_StableForEqualKeys(t *testing.T) {
	type item struct {
		seq int
		key Key
	}
	k := New(true, Vec3{X: 1, Y: 2, Z: 3}, 4, Vec3{})
	items := []item{{0, k}, {1, k}, {2, Key{}}, {3, k}}
	Sort(items, func(it item) Key { return it.key })

	got := make([]int, len(items))
	for i, it := range items {
		got[i] = it.seq
	}
	if want := []int{2, 0, 1, 3}; !slices.Equal(got, want) {
		t.Errorf("got order %v, want %v", got, want)
	}
}

func TestSort_Deterministic(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	keys := make([]Key, 500)
	for i := range keys {
		keys[i] = New(rng.IntN(2) == 0,
			Vec3{X: rng.Float64() * 100, Y: rng.Float64() * 100, Z: rng.Float64()},
			uint32(rng.IntN(3)), Vec3{X: rng.Float64() * 4})
	}

	first := slices.Clone(keys)
	second := slices.Clone(keys)
	rng.Shuffle(len(second), func(i, j int) { second[i], second[j] = second[j], second[i] })

	id := func(k Key) Key { return k }
	Sort(first, id)
	Sort(second, id)

	if !slices.Equal(first, second) {
		t.Error("sorting the same set twice produced different sequences")
	}
	for i := 1; i < len(first); i++ {
		if Compare(first[i-1], first[i]) > 0 {
			t.Fatalf("keys %d and %d out of order", i-1, i)
		}
	}
}
