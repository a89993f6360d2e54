// Package parallel provides the worker pool used to prepare atlas uploads
// off the render goroutine.
package parallel

import (
	"runtime"
	"sync"
)

// Pool runs closures on a fixed set of goroutines.
//
// Each worker owns a queue and steals from the others when its own queue
// runs dry, which keeps uneven jobs (a large image next to many small ones)
// from idling workers.
//
// Thread safety: Pool is safe for concurrent use.
type Pool struct {
	queues []chan func()
	done   chan struct{}
	wg     sync.WaitGroup

	// mu guards closed. ForEach enqueues under the read lock, so no job
	// is queued after done is closed.
	mu     sync.RWMutex
	closed bool
}

// NewPool starts a pool with n workers. If n is 0 or negative,
// GOMAXPROCS is used.
func NewPool(n int) *Pool {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	depth := max(8, n*4)

	p := &Pool{
		queues: make([]chan func(), n),
		done:   make(chan struct{}),
	}
	for i := range p.queues {
		p.queues[i] = make(chan func(), depth)
	}

	p.wg.Add(n)
	for i := range n {
		go p.run(i)
	}
	return p
}

func (p *Pool) run(id int) {
	defer p.wg.Done()
	own := p.queues[id]
	for {
		select {
		case fn := <-own:
			fn()
			continue
		case <-p.done:
			p.drain(own)
			return
		default:
		}

		if fn := p.steal(id); fn != nil {
			fn()
			continue
		}

		select {
		case fn := <-own:
			fn()
		case <-p.done:
			p.drain(own)
			return
		}
	}
}

func (p *Pool) drain(q chan func()) {
	for {
		select {
		case fn := <-q:
			fn()
		default:
			return
		}
	}
}

// steal takes one queued closure from another worker, or returns nil.
func (p *Pool) steal(id int) func() {
	for i, q := range p.queues {
		if i == id {
			continue
		}
		select {
		case fn := <-q:
			return fn
		default:
		}
	}
	return nil
}

// ForEach calls fn(i) for every i in [0, n) and returns when all calls
// have finished. Indices are split into one contiguous chunk per worker.
// On a closed pool fn runs on the calling goroutine.
func (p *Pool) ForEach(n int, fn func(i int)) {
	if n <= 0 {
		return
	}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		for i := range n {
			fn(i)
		}
		return
	}

	workers := len(p.queues)
	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for w, start := 0, 0; start < n; w, start = w+1, start+chunk {
		end := min(start+chunk, n)
		wg.Add(1)
		p.queues[w%workers] <- func() {
			defer wg.Done()
			for i := start; i < end; i++ {
				fn(i)
			}
		}
	}
	p.mu.RUnlock()
	wg.Wait()
}

// Close stops the workers after the queued work has run.
// Close is safe to call multiple times and concurrently with ForEach.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.done)
	p.mu.Unlock()
	p.wg.Wait()
}

// Workers returns the number of workers in the pool.
func (p *Pool) Workers() int {
	return len(p.queues)
}
