package calls

import (
	"context"
	"sort"
	"sync"
	"time"

	"receptionist-platform/internal/agents"
	"receptionist-platform/internal/apperr"
	"receptionist-platform/internal/voice"
	"receptionist-platform/pkg/logger"
)

// defaultFetchLimit is the per-assistant history page size when the caller
// does not set one.
const defaultFetchLimit = 50

// CallRecord is one platform call joined with the owning agent's display
// metadata.
type CallRecord struct {
	voice.PlatformCall

	AgentID         string    `json:"agent_id"`
	AgentName       string    `json:"agent_name"`
	AgentWebsiteURL string    `json:"agent_website_url"`
	OccurredAt      time.Time `json:"occurred_at"`
}

type Filter struct {
	// AgentID narrows the history to one owned agent.
	AgentID string
	// Limit is the per-assistant fetch size.
	Limit int
}

type Result struct {
	Calls  []CallRecord   `json:"calls"`
	Agents []agents.Agent `json:"agents"`
	Total  int            `json:"total"`
	// Partial is set when at least one assistant's fetch failed and was
	// dropped from the merge.
	Partial bool `json:"partial,omitempty"`
}

// Service aggregates call history across all of an owner's remote
// assistants.
type Service struct {
	agents   agents.Repository
	platform voice.Platform
}

func NewService(agentRepo agents.Repository, platform voice.Platform) *Service {
	return &Service{agents: agentRepo, platform: platform}
}

// List fans out one history fetch per provisioned assistant and merges the
// results newest-first. A failed fetch drops that assistant's slice and
// flags the response partial; it never fails the whole aggregation. Owners
// with no provisioned assistants get an empty result, not an error.
func (s *Service) List(ctx context.Context, userID string, f Filter) (Result, error) {
	log := logger.From(ctx)

	if userID == "" {
		return Result{}, apperr.Auth("caller identity required")
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultFetchLimit
	}

	var owned []agents.Agent
	if f.AgentID != "" {
		a, err := s.agents.Get(ctx, userID, f.AgentID)
		if err != nil {
			if err == agents.ErrNotFound {
				return Result{}, apperr.NotFound("agent not found")
			}
			return Result{}, apperr.Storage("agent lookup failed", err)
		}
		owned = []agents.Agent{a}
	} else {
		var err error
		owned, err = s.agents.List(ctx, userID)
		if err != nil {
			return Result{}, apperr.Storage("agent list failed", err)
		}
	}

	byAssistant := make(map[string]agents.Agent)
	for _, a := range owned {
		if a.AssistantID != "" {
			byAssistant[a.AssistantID] = a
		}
	}
	if len(byAssistant) == 0 {
		return Result{Calls: []CallRecord{}, Agents: owned}, nil
	}

	type fetch struct {
		assistantID string
		calls       []voice.PlatformCall
		err         error
	}
	results := make([]fetch, 0, len(byAssistant))
	for assistantID := range byAssistant {
		results = append(results, fetch{assistantID: assistantID})
	}

	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(f *fetch) {
			defer wg.Done()
			f.calls, f.err = s.platform.ListCalls(ctx, f.assistantID, limit)
		}(&results[i])
	}
	wg.Wait()

	out := Result{Agents: owned}
	for _, f := range results {
		if f.err != nil {
			log.Warn("call history fetch failed", "assistant_id", f.assistantID, "err", f.err)
			out.Partial = true
			continue
		}
		a := byAssistant[f.assistantID]
		for _, c := range f.calls {
			out.Calls = append(out.Calls, CallRecord{
				PlatformCall:    c,
				AgentID:         a.ID,
				AgentName:       a.Name,
				AgentWebsiteURL: a.WebsiteURL,
				OccurredAt:      c.ResolvedCreatedAt(),
			})
		}
	}

	sort.SliceStable(out.Calls, func(i, j int) bool {
		return out.Calls[i].OccurredAt.After(out.Calls[j].OccurredAt)
	})
	if out.Calls == nil {
		out.Calls = []CallRecord{}
	}
	out.Total = len(out.Calls)
	return out, nil
}
