package blocks

import (
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/blockgraph/internal/graph"
)

// Factory builds a block with the given id from its params.
type Factory func(id string, p Params) (graph.Block, error)

// Registry maps block kinds to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry with every built-in kind.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister(KindRadio, NewRadio)
	r.MustRegister(KindDDC, NewDDC)
	r.MustRegister(KindSplitter, NewSplitter)
	r.MustRegister(KindFIFO, NewFIFO)
	r.MustRegister(KindRxStreamer, NewRxStreamer)
	r.MustRegister(KindTxStreamer, NewTxStreamer)
	return r
}

// Register adds a factory. Registering a kind twice is an error.
func (r *Registry) Register(kind string, f Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.factories[kind]; dup {
		return fmt.Errorf("block kind %q already registered", kind)
	}
	r.factories[kind] = f
	return nil
}

// MustRegister is Register that panics on failure.
func (r *Registry) MustRegister(kind string, f Factory) {
	if err := r.Register(kind, f); err != nil {
		panic(err)
	}
}

// Create builds a block of the given kind.
func (r *Registry) Create(kind, id string, p Params) (graph.Block, error) {
	r.mu.RLock()
	f, ok := r.factories[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, &graph.Error{
			Code:    graph.CodeLookup,
			Message: fmt.Sprintf("unknown block kind %q", kind),
			Node:    id,
		}
	}
	b, err := f(id, p)
	if err != nil {
		return nil, fmt.Errorf("create %s %q: %w", kind, id, err)
	}
	return b, nil
}

// Kinds lists the registered kinds, sorted.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}
