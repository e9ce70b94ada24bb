package scheduler

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrJobNotRegistered is returned when a payload names an unknown job.
var ErrJobNotRegistered = errors.New("job not registered")

// Registry maps job names to factories. It is populated once at startup
// and read by the runner for every execution.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under name. It panics on a nil factory or a
// duplicate name, both of which are wiring bugs.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if f == nil {
		panic(fmt.Sprintf("scheduler: Register factory is nil for job %s", name))
	}
	if _, exists := r.factories[name]; exists {
		panic(fmt.Sprintf("scheduler: Register called twice for job %s", name))
	}
	r.factories[name] = f
}

// Resolve constructs the job registered under name.
func (r *Registry) Resolve(name string) (Job, error) {
	r.mu.RLock()
	f := r.factories[name]
	r.mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("%w: %q", ErrJobNotRegistered, name)
	}
	job, err := f()
	if err != nil {
		return nil, fmt.Errorf("construct job %s: %w", name, err)
	}
	return job, nil
}

// IsRegistered returns true if a factory exists for name.
func (r *Registry) IsRegistered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// Names returns registered job names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
