package agents

import (
	"context"
	"strings"
	"time"

	"receptionist-platform/internal/apperr"
	"receptionist-platform/internal/audit"
	"receptionist-platform/internal/llm"
	"receptionist-platform/internal/scrape"
	"receptionist-platform/internal/voice"
	"receptionist-platform/pkg/logger"
	"receptionist-platform/pkg/utils"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Service orchestrates the provisioning pipeline:
// research -> synthesis -> persistence -> (manual) remote provisioning.
//
// Concurrency note: there is no single-flight around the cache-check/upsert
// sequence. Two concurrent first-time runs for the same (owner, url) key can
// both synthesize; the upsert makes the final state valid either way, the
// cost is duplicate upstream spend. The per-owner Redis cap bounds that
// spend without serializing the race.
type Service struct {
	repo        Repository
	researcher  scrape.Researcher
	synthesizer llm.Synthesizer
	platform    voice.Platform
	auditor     *audit.Service

	// rdb is optional; when nil the provisioning cap is skipped.
	rdb *redis.Client

	callbackURL    string
	callbackSecret string

	// clock is injectable for deterministic tests.
	clock func() time.Time
}

type ServiceConfig struct {
	CallbackURL    string
	CallbackSecret string
}

func NewService(
	repo Repository,
	researcher scrape.Researcher,
	synthesizer llm.Synthesizer,
	platform voice.Platform,
	auditor *audit.Service,
	rdb *redis.Client,
	cfg ServiceConfig,
) *Service {
	return &Service{
		repo:           repo,
		researcher:     researcher,
		synthesizer:    synthesizer,
		platform:       platform,
		auditor:        auditor,
		rdb:            rdb,
		callbackURL:    cfg.CallbackURL,
		callbackSecret: cfg.CallbackSecret,
		clock:          time.Now,
	}
}

// provisionCapLimit bounds concurrent provisioning runs per owner. The cap
// TTL mirrors the worst-case research+synthesis budget so crashed runs
// release their slot.
const (
	provisionCapLimit = 3
	provisionCapTTL   = 3 * time.Minute
)

type ProvisionInput struct {
	Name       string   `json:"name"`
	WebsiteURL string   `json:"website_url"`
	Languages  []string `json:"languages"`

	// AssistantID is an optional pre-known remote identifier. When set it is
	// stored directly; the platform is not called. This is also the manual
	// recovery path for assistants orphaned by a failed local persist.
	AssistantID string `json:"assistant_id,omitempty"`
}

type ProvisionResult struct {
	ID               string `json:"id"`
	Prompt           string `json:"prompt"`
	OrganisationName string `json:"organisation_name,omitempty"`
	ServedFromCache  bool   `json:"served_from_cache"`
}

// Provision runs steps 1-5 of the pipeline for an owner. Validation and the
// cache check happen before any upstream call; a failed pipeline never
// persists partial progress.
func (s *Service) Provision(ctx context.Context, userID string, in ProvisionInput) (ProvisionResult, error) {
	log := logger.From(ctx)

	if userID == "" {
		return ProvisionResult{}, apperr.Auth("caller identity required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return ProvisionResult{}, apperr.Validation("name is required")
	}
	if len(in.Languages) == 0 {
		return ProvisionResult{}, apperr.Validation("at least one language is required")
	}
	websiteURL, err := NormalizeURL(in.WebsiteURL)
	if err != nil {
		return ProvisionResult{}, err
	}
	name := strings.TrimSpace(in.Name)

	existing, found, err := s.repo.FindByWebsite(ctx, userID, websiteURL)
	if err != nil {
		return ProvisionResult{}, apperr.Storage("agent lookup failed", err)
	}

	// Cache short-circuit: an existing synthesized prompt is returned without
	// touching either provider.
	if found && existing.Prompt != "" {
		if in.AssistantID != "" && existing.AssistantID == "" {
			if err := s.repo.SetAssistantID(ctx, userID, existing.ID, in.AssistantID); err != nil {
				return ProvisionResult{}, apperr.Storage("assistant id persist failed", err)
			}
		}
		s.auditProvisioned(ctx, userID, existing.ID, true)
		return ProvisionResult{
			ID:               existing.ID,
			Prompt:           existing.Prompt,
			OrganisationName: existing.OrganisationName,
			ServedFromCache:  true,
		}, nil
	}

	if s.rdb != nil {
		capKey := "provision:" + userID
		ok, capErr := utils.AcquireConcurrencyCap(ctx, s.rdb, capKey, provisionCapLimit, provisionCapTTL)
		if capErr != nil {
			// The cap is spend protection, not a correctness gate.
			log.Warn("provision cap unavailable", "err", capErr)
		} else if !ok {
			return ProvisionResult{}, apperr.Precondition("too many provisioning requests in flight; retry shortly")
		} else {
			defer func() {
				if err := utils.ReleaseConcurrencyCap(context.WithoutCancel(ctx), s.rdb, capKey); err != nil {
					log.Warn("provision cap release failed", "err", err)
				}
			}()
		}
	}

	research, err := s.researcher.Research(ctx, websiteURL)
	if err != nil {
		return ProvisionResult{}, err
	}

	content, err := s.synthesizer.Complete(ctx, llm.BuildResearchPrompt(websiteURL, name, research, promptLanguage(in.Languages)))
	if err != nil {
		return ProvisionResult{}, err
	}

	synthesis, err := llm.ParseSynthesis(content)
	if err != nil {
		return ProvisionResult{}, err
	}
	orgName := synthesis.OrganisationName
	if orgName == "" {
		orgName = name
	}

	now := s.clock().UTC()
	var agentID string
	if found {
		existing.Name = name
		existing.Prompt = synthesis.Prompt
		existing.OrganisationName = orgName
		existing.UpdatedAt = now
		if err := s.repo.Update(ctx, existing); err != nil {
			return ProvisionResult{}, apperr.Storage("agent update failed", err)
		}
		agentID = existing.ID
	} else {
		agentID = uuid.NewString()
		a := Agent{
			ID:               agentID,
			UserID:           userID,
			Name:             name,
			WebsiteURL:       websiteURL,
			Languages:        in.Languages,
			Prompt:           synthesis.Prompt,
			OrganisationName: orgName,
			Status:           StatusActive,
			Calls:            0,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := s.repo.Insert(ctx, a); err != nil {
			return ProvisionResult{}, apperr.Storage("agent insert failed", err)
		}
	}

	if in.AssistantID != "" {
		if err := s.repo.SetAssistantID(ctx, userID, agentID, in.AssistantID); err != nil {
			return ProvisionResult{}, apperr.Storage("assistant id persist failed", err)
		}
	}

	s.auditProvisioned(ctx, userID, agentID, false)
	return ProvisionResult{
		ID:               agentID,
		Prompt:           synthesis.Prompt,
		OrganisationName: orgName,
		ServedFromCache:  false,
	}, nil
}

// ProvisionRemote creates the hosted assistant for an agent whose prompt has
// been reviewed. This is deliberately not part of Provision: synthesis is
// cheap and revisable, remote creation follows human approval.
func (s *Service) ProvisionRemote(ctx context.Context, userID, agentID string) (string, error) {
	log := logger.From(ctx)

	if userID == "" {
		return "", apperr.Auth("caller identity required")
	}
	a, err := s.getOwned(ctx, userID, agentID)
	if err != nil {
		return "", err
	}
	if a.Prompt == "" {
		return "", apperr.Precondition("agent has no synthesized prompt yet")
	}
	if a.AssistantID != "" {
		return a.AssistantID, nil
	}

	assistant, err := s.platform.CreateAssistant(ctx, voice.CreateAssistantRequest{
		Name:           a.Name,
		Instructions:   a.Prompt,
		CallbackURL:    s.callbackURL,
		CallbackSecret: s.callbackSecret,
	})
	if err != nil {
		return "", err
	}

	if err := s.repo.SetAssistantID(ctx, userID, agentID, assistant.ID); err != nil {
		// The remote assistant now exists with no local record of its id.
		// Log loudly and surface as retryable; the pre-known-id input on
		// Provision/Update is the manual relink path.
		log.Error("assistant created but local persist failed", "agent_id", agentID, "assistant_id", assistant.ID, "err", err)
		if s.auditor != nil {
			_ = s.auditor.LogRemoteOrphaned(ctx, userID, agentID, assistant.ID)
		}
		return "", apperr.Storage("assistant "+assistant.ID+" created but could not be linked; retry or link it manually", err)
	}

	if s.auditor != nil {
		_ = s.auditor.LogRemoteCreated(ctx, userID, agentID, assistant.ID)
	}
	return assistant.ID, nil
}

// UpdateFields is a partial replacement set. Nil pointers leave the column
// untouched; Languages replaces only when non-nil.
type UpdateFields struct {
	Name        *string  `json:"name,omitempty"`
	WebsiteURL  *string  `json:"website_url,omitempty"`
	Languages   []string `json:"languages,omitempty"`
	Prompt      *string  `json:"prompt,omitempty"`
	AssistantID *string  `json:"assistant_id,omitempty"`
	Status      *string  `json:"status,omitempty"`
}

// Update replaces the provided fields on an owned agent. It never triggers
// re-synthesis or re-provisioning.
func (s *Service) Update(ctx context.Context, userID, agentID string, f UpdateFields) (Agent, error) {
	if userID == "" {
		return Agent{}, apperr.Auth("caller identity required")
	}
	a, err := s.getOwned(ctx, userID, agentID)
	if err != nil {
		return Agent{}, err
	}

	if f.Name != nil {
		if strings.TrimSpace(*f.Name) == "" {
			return Agent{}, apperr.Validation("name cannot be empty")
		}
		a.Name = strings.TrimSpace(*f.Name)
	}
	if f.WebsiteURL != nil {
		normalized, err := NormalizeURL(*f.WebsiteURL)
		if err != nil {
			return Agent{}, err
		}
		a.WebsiteURL = normalized
	}
	if f.Languages != nil {
		if len(f.Languages) == 0 {
			return Agent{}, apperr.Validation("languages cannot be empty")
		}
		a.Languages = f.Languages
	}
	if f.Prompt != nil {
		a.Prompt = *f.Prompt
	}
	if f.AssistantID != nil {
		a.AssistantID = *f.AssistantID
	}
	if f.Status != nil {
		switch Status(*f.Status) {
		case StatusActive, StatusPaused:
			a.Status = Status(*f.Status)
		default:
			return Agent{}, apperr.Validation("status must be active or paused")
		}
	}

	a.UpdatedAt = s.clock().UTC()
	if err := s.repo.Update(ctx, a); err != nil {
		if err == ErrNotFound {
			return Agent{}, apperr.NotFound("agent not found")
		}
		return Agent{}, apperr.Storage("agent update failed", err)
	}
	return a, nil
}

func (s *Service) Get(ctx context.Context, userID, agentID string) (Agent, error) {
	if userID == "" {
		return Agent{}, apperr.Auth("caller identity required")
	}
	return s.getOwned(ctx, userID, agentID)
}

func (s *Service) List(ctx context.Context, userID string) ([]Agent, error) {
	if userID == "" {
		return nil, apperr.Auth("caller identity required")
	}
	out, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, apperr.Storage("agent list failed", err)
	}
	return out, nil
}

func (s *Service) getOwned(ctx context.Context, userID, agentID string) (Agent, error) {
	a, err := s.repo.Get(ctx, userID, agentID)
	if err != nil {
		if err == ErrNotFound {
			// Foreign and missing rows are indistinguishable on purpose.
			return Agent{}, apperr.NotFound("agent not found")
		}
		return Agent{}, apperr.Storage("agent lookup failed", err)
	}
	return a, nil
}

func (s *Service) auditProvisioned(ctx context.Context, userID, agentID string, fromCache bool) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.LogAgentProvisioned(ctx, userID, agentID, fromCache); err != nil {
		logger.From(ctx).Warn("audit append failed", "err", err)
	}
}

// promptLanguage maps the agent's language preferences to the synthesis
// instruction language. Only Dutch has a localized instruction today.
func promptLanguage(languages []string) string {
	if len(languages) == 0 {
		return "en"
	}
	switch strings.ToLower(strings.TrimSpace(languages[0])) {
	case "nl", "dutch", "nederlands":
		return "nl"
	default:
		return "en"
	}
}
