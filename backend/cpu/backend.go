package cpu

import (
	"runtime"

	"github.com/sourcegraph/conc/pool"

	"github.com/djeday123/bigram/backend"
)

// Backend runs every row on the calling goroutine.
type Backend struct{}

// Parallel fans rows out over a bounded conc pool.
type Parallel struct {
	workers int
}

func init() {
	backend.Register(&Backend{})
	backend.Register(NewParallel(runtime.GOMAXPROCS(0)))
}

func (b *Backend) Name() string { return "cpu" }
func (b *Backend) Workers() int { return 1 }

func (b *Backend) ParallelFor(n int, fn func(i int) error) error {
	for i := 0; i < n; i++ {
		if err := fn(i); err != nil {
			return err
		}
	}
	return nil
}

// NewParallel returns a pool-backed backend. workers < 1 means GOMAXPROCS.
func NewParallel(workers int) *Parallel {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Parallel{workers: workers}
}

func (p *Parallel) Name() string { return "parallel" }
func (p *Parallel) Workers() int { return p.workers }

func (p *Parallel) ParallelFor(n int, fn func(i int) error) error {
	if n <= 1 || p.workers == 1 {
		return (&Backend{}).ParallelFor(n, fn)
	}
	errs := make([]error, n)
	wp := pool.New().WithMaxGoroutines(p.workers)
	for i := 0; i < n; i++ {
		wp.Go(func() {
			errs[i] = fn(i)
		})
	}
	wp.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
