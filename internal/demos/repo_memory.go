package demos

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is the in-memory Repository used by tests.
type MemoryRepo struct {
	mu    sync.RWMutex
	demos map[string]Demo
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{demos: make(map[string]Demo)}
}

func (r *MemoryRepo) LatestByWebsite(ctx context.Context, websiteURL, language string) (Demo, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matches []Demo
	for _, d := range r.demos {
		if d.WebsiteURL == websiteURL && d.Language == language {
			matches = append(matches, d)
		}
	}
	if len(matches) == 0 {
		return Demo{}, false, nil
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	return matches[0], true, nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Demo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.demos[id]
	if !ok {
		return Demo{}, ErrNotFound
	}
	return d, nil
}

func (r *MemoryRepo) Insert(ctx context.Context, d Demo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.demos[d.ID] = d
	return nil
}

func (r *MemoryRepo) Update(ctx context.Context, d Demo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.demos[d.ID]
	if !ok {
		return ErrNotFound
	}
	cur.BusinessName = d.BusinessName
	cur.ScrapedContent = d.ScrapedContent
	cur.Prompt = d.Prompt
	cur.OrganisationName = d.OrganisationName
	cur.AssistantID = d.AssistantID
	cur.UpdatedAt = d.UpdatedAt
	r.demos[d.ID] = cur
	return nil
}

func (r *MemoryRepo) SetPrompt(ctx context.Context, id, prompt, assistantID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.demos[id]
	if !ok {
		return ErrNotFound
	}
	d.Prompt = prompt
	if assistantID != "" {
		d.AssistantID = assistantID
	}
	d.UpdatedAt = time.Now().UTC()
	r.demos[id] = d
	return nil
}

func (r *MemoryRepo) StampCallStart(ctx context.Context, assistantID, callID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *Demo
	for id := range r.demos {
		d := r.demos[id]
		if d.AssistantID != assistantID {
			continue
		}
		if best == nil || d.CreatedAt.After(best.CreatedAt) {
			best = &d
		}
	}
	if best == nil {
		return ErrNotFound
	}
	best.CallID = callID
	best.UpdatedAt = time.Now().UTC()
	r.demos[best.ID] = *best
	return nil
}

func (r *MemoryRepo) StampCallEnd(ctx context.Context, callID string, at time.Time) error {
	return r.mutateByCallID(callID, func(d *Demo) {
		t := at
		d.CallCompletedAt = &t
	})
}

func (r *MemoryRepo) SetTranscript(ctx context.Context, callID, transcript string) error {
	return r.mutateByCallID(callID, func(d *Demo) { d.Transcript = transcript })
}

func (r *MemoryRepo) SetSummary(ctx context.Context, callID, summary string) error {
	return r.mutateByCallID(callID, func(d *Demo) { d.Summary = summary })
}

func (r *MemoryRepo) SetVisitorEmail(ctx context.Context, callID, email string) error {
	return r.mutateByCallID(callID, func(d *Demo) { d.VisitorEmail = email })
}

func (r *MemoryRepo) mutateByCallID(callID string, fn func(*Demo)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id := range r.demos {
		d := r.demos[id]
		if d.CallID != callID {
			continue
		}
		fn(&d)
		d.UpdatedAt = time.Now().UTC()
		r.demos[id] = d
		return nil
	}
	return ErrNotFound
}

// Count reports the number of stored demos. Test helper.
func (r *MemoryRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.demos)
}

var _ Repository = (*MemoryRepo)(nil)
