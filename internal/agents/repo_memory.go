package agents

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository for tests.
type MemoryRepo struct {
	mu     sync.Mutex
	agents map[string]Agent
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{agents: make(map[string]Agent)}
}

func (r *MemoryRepo) FindByWebsite(ctx context.Context, userID, websiteURL string) (Agent, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.agents {
		if a.UserID == userID && a.WebsiteURL == websiteURL {
			return a, true, nil
		}
	}
	return Agent{}, false, nil
}

func (r *MemoryRepo) Get(ctx context.Context, userID, agentID string) (Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[agentID]
	if !ok || a.UserID != userID {
		return Agent{}, ErrNotFound
	}
	return a, nil
}

func (r *MemoryRepo) List(ctx context.Context, userID string) ([]Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Agent
	for _, a := range r.agents {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) Insert(ctx context.Context, a Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[a.ID] = a
	return nil
}

func (r *MemoryRepo) Update(ctx context.Context, a Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.agents[a.ID]
	if !ok || cur.UserID != a.UserID {
		return ErrNotFound
	}
	a.CreatedAt = cur.CreatedAt
	a.WidgetToken = cur.WidgetToken
	a.Calls = cur.Calls
	r.agents[a.ID] = a
	return nil
}

func (r *MemoryRepo) SetAssistantID(ctx context.Context, userID, agentID, assistantID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[agentID]
	if !ok || a.UserID != userID {
		return ErrNotFound
	}
	a.AssistantID = assistantID
	a.UpdatedAt = time.Now().UTC()
	r.agents[agentID] = a
	return nil
}

func (r *MemoryRepo) SetWidgetToken(ctx context.Context, userID, agentID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[agentID]
	if !ok || a.UserID != userID {
		return ErrNotFound
	}
	a.WidgetToken = token
	a.UpdatedAt = time.Now().UTC()
	r.agents[agentID] = a
	return nil
}

// Count reports the number of stored rows (test helper).
func (r *MemoryRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.agents)
}

var _ Repository = (*MemoryRepo)(nil)
