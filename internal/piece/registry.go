package piece

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps stable piece names to implementations. It is built
// once at composition time and injected into everything that needs a
// capability lookup, replacing string-switch dispatch at call sites.
type Registry struct {
	mu     sync.RWMutex
	pieces map[string]Piece
}

func NewRegistry() *Registry {
	return &Registry{pieces: make(map[string]Piece)}
}

// Register adds a piece under its descriptor name. Registering the
// same name twice is a wiring bug and fails loudly.
func (r *Registry) Register(p Piece) error {
	name := p.Descriptor().Name
	if name == "" {
		return fmt.Errorf("piece descriptor has no name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.pieces[name]; ok {
		return fmt.Errorf("piece %q already registered", name)
	}

	r.pieces[name] = p
	return nil
}

// Get returns the piece registered under name.
func (r *Registry) Get(name string) (Piece, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.pieces[name]
	return p, ok
}

// Trigger resolves a piece's polling trigger in one lookup.
func (r *Registry) Trigger(pieceName, triggerName string) (PollingTrigger, error) {
	p, ok := r.Get(pieceName)
	if !ok {
		return nil, fmt.Errorf("piece %q not installed", pieceName)
	}

	t, ok := p.PollingTrigger(triggerName)
	if !ok {
		return nil, fmt.Errorf("piece %q has no polling trigger %q", pieceName, triggerName)
	}

	return t, nil
}

// Descriptors returns every installed piece's descriptor, sorted by
// name for stable listings.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.pieces))
	for _, p := range r.pieces {
		out = append(out, p.Descriptor())
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}
