package parallel

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewPool_Workers(t *testing.T) {
	tests := []struct {
		name string
		n    int
		want func(int) bool
	}{
		{"explicit", 3, func(got int) bool { return got == 3 }},
		{"gomaxprocs", 0, func(got int) bool { return got >= 1 }},
		{"negative", -2, func(got int) bool { return got >= 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPool(tt.n)
			defer p.Close()
			if !tt.want(p.Workers()) {
				t.Errorf("Workers() = %d", p.Workers())
			}
		})
	}
}

func TestPool_ForEachVisitsEveryIndexOnce(t *testing.T) {
	p := NewPool(4)
	defer p.Close()

	for _, n := range []int{0, 1, 3, 4, 17, 1000} {
		hits := make([]atomic.Int32, n)
		p.ForEach(n, func(i int) { hits[i].Add(1) })
		for i := range hits {
			if got := hits[i].Load(); got != 1 {
				t.Fatalf("n=%d: index %d visited %d times", n, i, got)
			}
		}
	}
}

func TestPool_ForEachReusable(t *testing.T) {
	p := NewPool(2)
	defer p.Close()

	var total atomic.Int64
	p.ForEach(4, func(int) {
		total.Add(1)
	})
	p.ForEach(4, func(int) {
		total.Add(1)
	})
	if total.Load() != 8 {
		t.Errorf("total = %d, want 8", total.Load())
	}
}

func TestPool_ClosedRunsInline(t *testing.T) {
	p := NewPool(2)
	p.Close()
	p.Close() // idempotent

	sum := 0
	p.ForEach(10, func(i int) { sum += i })
	if sum != 45 {
		t.Errorf("sum = %d, want 45", sum)
	}
}

func TestPool_CloseDuringForEach(t *testing.T) {
	for range 50 {
		p := NewPool(2)
		var visits atomic.Int64
		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				p.ForEach(64, func(int) { visits.Add(1) })
			}()
		}
		p.Close()

		finished := make(chan struct{})
		go func() {
			wg.Wait()
			close(finished)
		}()
		select {
		case <-finished:
		case <-time.After(5 * time.Second):
			t.Fatal("ForEach did not return after a concurrent Close")
		}
		if got := visits.Load(); got != 8*64 {
			t.Fatalf("visits = %d, want %d", got, 8*64)
		}
	}
}

func BenchmarkPool_ForEach(b *testing.B) {
	p := NewPool(0)
	defer p.Close()
	data := make([]int, 4096)

	b.ReportAllocs()
	for b.Loop() {
		p.ForEach(len(data), func(i int) { data[i]++ })
	}
}
