package widgets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"receptionist-platform/internal/agents"
	"receptionist-platform/internal/apperr"
	"receptionist-platform/internal/audit"
	"receptionist-platform/pkg/logger"
	"receptionist-platform/pkg/utils"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// resolveCacheTTL keeps public widget resolution cheap under embed-page
// traffic without letting deactivations linger for long.
const resolveCacheTTL = 60 * time.Second

// Service owns widget creation and public resolution.
type Service struct {
	repo    Repository
	agents  agents.Repository
	auditor *audit.Service

	// rdb is optional; when nil resolution always hits the store.
	rdb *redis.Client

	// publicKey is the platform's browser-safe client key handed to every
	// resolved widget.
	publicKey string
	// embedBaseURL is where the widget loader script is served from.
	embedBaseURL string

	clock func() time.Time
}

func NewService(repo Repository, agentRepo agents.Repository, auditor *audit.Service, rdb *redis.Client, publicKey, embedBaseURL string) *Service {
	return &Service{
		repo:         repo,
		agents:       agentRepo,
		auditor:      auditor,
		rdb:          rdb,
		publicKey:    publicKey,
		embedBaseURL: embedBaseURL,
		clock:        time.Now,
	}
}

type CreateResult struct {
	Widget         Widget `json:"widget"`
	AlreadyExisted bool   `json:"already_existed"`
	EmbedSnippet   string `json:"embed_snippet"`
	Instructions   string `json:"instructions"`
}

// Create registers the embed widget for an owned agent. Repeat calls return
// the existing widget; the unique agent constraint collapses concurrent
// first calls onto one row.
func (s *Service) Create(ctx context.Context, userID, agentID string) (CreateResult, error) {
	log := logger.From(ctx)

	if userID == "" {
		return CreateResult{}, apperr.Auth("caller identity required")
	}
	a, err := s.agents.Get(ctx, userID, agentID)
	if err != nil {
		if errors.Is(err, agents.ErrNotFound) {
			return CreateResult{}, apperr.NotFound("agent not found")
		}
		return CreateResult{}, apperr.Storage("agent lookup failed", err)
	}
	if a.AssistantID == "" {
		return CreateResult{}, apperr.Precondition("agent has no voice assistant yet")
	}

	if existing, err := s.repo.FindByAgent(ctx, agentID); err == nil {
		return s.result(existing, true), nil
	} else if !errors.Is(err, ErrNotFound) {
		return CreateResult{}, apperr.Storage("widget lookup failed", err)
	}

	now := s.clock().UTC()
	w := Widget{
		ID:          uuid.NewString(),
		AgentID:     agentID,
		UserID:      userID,
		PublicToken: NewPublicToken(now),
		Active:      true,
		CreatedAt:   now,
	}
	if err := s.repo.Insert(ctx, w); err != nil {
		if errors.Is(err, ErrDuplicate) {
			// Lost the race; the winner's row is the widget.
			existing, ferr := s.repo.FindByAgent(ctx, agentID)
			if ferr != nil {
				return CreateResult{}, apperr.Storage("widget fetch after conflict failed", ferr)
			}
			return s.result(existing, true), nil
		}
		return CreateResult{}, apperr.Storage("widget insert failed", err)
	}

	// The token stamp on the agent row is display convenience, not the
	// source of truth; a failure here must not undo the widget.
	if err := s.agents.SetWidgetToken(ctx, userID, agentID, w.PublicToken); err != nil {
		log.Warn("widget token stamp failed", "agent_id", agentID, "err", err)
	}
	if s.auditor != nil {
		_ = s.auditor.LogWidgetCreated(ctx, userID, agentID, w.ID)
	}
	return s.result(w, false), nil
}

func (s *Service) result(w Widget, existed bool) CreateResult {
	snippet := fmt.Sprintf(
		`<script src="%s/widget.js" data-widget-token="%s" async></script>`,
		s.embedBaseURL, w.PublicToken,
	)
	return CreateResult{
		Widget:         w,
		AlreadyExisted: existed,
		EmbedSnippet:   snippet,
		Instructions:   "Paste the snippet just before the closing </body> tag of every page where the receptionist should appear.",
	}
}

// ResolveResult is the public widget bootstrap payload. It intentionally
// exposes nothing beyond what the embed script needs.
type ResolveResult struct {
	AgentName   string `json:"agent_name"`
	AssistantID string `json:"assistant_id"`
	PublicKey   string `json:"public_key"`
	Language    string `json:"language,omitempty"`
}

// Resolve maps a public embed token to its bootstrap payload. Unknown and
// deactivated tokens are indistinguishable from the outside. Cache failures
// fall through to the store.
func (s *Service) Resolve(ctx context.Context, token string) (ResolveResult, error) {
	log := logger.From(ctx)

	if token == "" {
		return ResolveResult{}, apperr.NotFound("widget not found")
	}

	cacheKey := "widget:resolve:" + token
	if s.rdb != nil {
		if raw, err := utils.CacheGet(ctx, s.rdb, cacheKey); err == nil {
			var cached ResolveResult
			if jerr := json.Unmarshal([]byte(raw), &cached); jerr == nil {
				return cached, nil
			}
		} else if !errors.Is(err, utils.ErrCacheMiss) {
			log.Warn("widget cache read failed", "err", err)
		}
	}

	w, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ResolveResult{}, apperr.NotFound("widget not found")
		}
		return ResolveResult{}, apperr.Storage("widget lookup failed", err)
	}
	if !w.Active {
		return ResolveResult{}, apperr.NotFound("widget not found")
	}

	a, err := s.agents.Get(ctx, w.UserID, w.AgentID)
	if err != nil {
		if errors.Is(err, agents.ErrNotFound) {
			return ResolveResult{}, apperr.NotFound("widget not found")
		}
		return ResolveResult{}, apperr.Storage("agent lookup failed", err)
	}
	if a.AssistantID == "" {
		return ResolveResult{}, apperr.Precondition("agent is not voice-ready")
	}

	out := ResolveResult{
		AgentName:   a.Name,
		AssistantID: a.AssistantID,
		PublicKey:   s.publicKey,
	}
	if len(a.Languages) > 0 {
		out.Language = a.Languages[0]
	}

	if s.rdb != nil {
		if raw, jerr := json.Marshal(out); jerr == nil {
			if err := utils.CacheSet(ctx, s.rdb, cacheKey, string(raw), resolveCacheTTL); err != nil {
				log.Warn("widget cache write failed", "err", err)
			}
		}
	}
	return out, nil
}
