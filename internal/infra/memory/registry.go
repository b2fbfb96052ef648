package memory

import (
	"context"
	"sync"
)

// Registry is an in-memory set of active quiz attempts.
type Registry struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{active: make(map[string]struct{})}
}

func (r *Registry) Register(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active[sessionID] = struct{}{}
	return nil
}

func (r *Registry) Unregister(_ context.Context, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, sessionID)
}

// ActiveCount reports how many attempts are currently registered.
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}
