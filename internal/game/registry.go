package game

import "sync"

// Registry maps a game-type tag to its capability object. One Registry is
// shared by the whole server; game types register themselves at startup
// (see internal/game/chess.Register).
type Registry struct {
	mu    sync.RWMutex
	types map[string]GameType
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]GameType)}
}

// Register adds a game type. Re-registering the same name overwrites it,
// which is convenient for tests that install a fake game type.
func (r *Registry) Register(gt GameType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[gt.Name()] = gt
}

// Lookup returns the game type registered under name, if any.
func (r *Registry) Lookup(name string) (GameType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	gt, ok := r.types[name]
	return gt, ok
}
