package widgets

import (
	"context"
	"sync"
)

// MemoryRepo is the in-memory Repository used by tests. It enforces the
// same agent uniqueness the storage constraint provides.
type MemoryRepo struct {
	mu      sync.RWMutex
	byAgent map[string]Widget
	byToken map[string]Widget
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byAgent: make(map[string]Widget),
		byToken: make(map[string]Widget),
	}
}

func (r *MemoryRepo) FindByAgent(ctx context.Context, agentID string) (Widget, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.byAgent[agentID]
	if !ok {
		return Widget{}, ErrNotFound
	}
	return w, nil
}

func (r *MemoryRepo) FindByToken(ctx context.Context, token string) (Widget, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.byToken[token]
	if !ok {
		return Widget{}, ErrNotFound
	}
	return w, nil
}

func (r *MemoryRepo) Insert(ctx context.Context, w Widget) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byAgent[w.AgentID]; exists {
		return ErrDuplicate
	}
	r.byAgent[w.AgentID] = w
	r.byToken[w.PublicToken] = w
	return nil
}

var _ Repository = (*MemoryRepo)(nil)
