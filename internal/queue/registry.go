package queue

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Handler executes one task invocation. The returned value must be JSON
// serialisable; it becomes the stored result.
type Handler func(ctx context.Context, req *Request) (any, error)

// Registry maps task names to handlers. Tasks are registered explicitly at
// process startup; lookups are safe from many goroutines.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds h to name. Names must be non-empty and unique.
func (r *Registry) Register(name string, h Handler) error {
	if name == "" {
		return fmt.Errorf("register task: empty name")
	}
	if h == nil {
		return fmt.Errorf("register task %q: nil handler", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.handlers[name]; ok {
		return fmt.Errorf("register task %q: already registered", name)
	}
	r.handlers[name] = h
	return nil
}

// Lookup returns the handler registered under name.
func (r *Registry) Lookup(name string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTask, name)
	}
	return h, nil
}

// Names returns the registered task names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
