package backend

import (
	"fmt"
	"sort"
	"sync"
)

// Backend schedules per-row work of the model's kernels.
// Implementations must call fn exactly once for every index in [0, n) and
// return the error of the lowest failing index, so that callers observe the
// same result regardless of how the work was scheduled.
type Backend interface {
	Name() string

	// Workers is the number of rows processed concurrently (1 for serial).
	Workers() int

	// ParallelFor runs fn(i) for i in [0, n).
	ParallelFor(n int, fn func(i int) error) error
}

// Default backend used when none is configured.
const Default = "cpu"

var (
	mu       sync.RWMutex
	registry = map[string]Backend{}
)

// Register adds a backend to the global registry.
func Register(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	registry[b.Name()] = b
}

// Get returns the backend registered under name.
func Get(name string) (Backend, error) {
	mu.RLock()
	defer mu.RUnlock()
	b, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("backend %q not registered", name)
	}
	return b, nil
}

// Names lists registered backends in sorted order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
