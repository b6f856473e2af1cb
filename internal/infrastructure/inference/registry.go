package inference

import (
	"fmt"
	"slices"

	"CanonCurator/internal/ports"
)

// Backend is a named date-inference implementation (chat-completions LLM, inference service, ...).
type Backend interface {
	ports.DateInferrer
	Name() string
}

// Registry keeps a mapping from backend names to their implementations.
type Registry struct {
	backends map[string]Backend
}

// NewRegistry builds a registry holding the given backends.
func NewRegistry(backends ...Backend) *Registry {
	r := &Registry{backends: map[string]Backend{}}
	for _, b := range backends {
		r.Register(b)
	}
	return r
}

// Register adds or replaces a backend implementation.
func (r *Registry) Register(backend Backend) {
	if r.backends == nil {
		r.backends = map[string]Backend{}
	}
	r.backends[backend.Name()] = backend
}

// Resolve returns a backend by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Backend, error) {
	if backend, ok := r.backends[name]; ok {
		return backend, nil
	}
	return nil, fmt.Errorf("inference backend %q is not registered (known: %v)", name, r.Names())
}

// Names lists registered backends in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
