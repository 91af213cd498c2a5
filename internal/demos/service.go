package demos

import (
	"context"
	"errors"
	"strings"
	"time"

	"receptionist-platform/internal/agents"
	"receptionist-platform/internal/apperr"
	"receptionist-platform/internal/llm"
	"receptionist-platform/internal/scrape"

	"github.com/google/uuid"
)

// Service runs the anonymous demo flow and reconciles platform webhook
// events onto demo rows.
type Service struct {
	repo        Repository
	researcher  scrape.Researcher
	synthesizer llm.Synthesizer

	clock func() time.Time
}

func NewService(repo Repository, researcher scrape.Researcher, synthesizer llm.Synthesizer) *Service {
	return &Service{
		repo:        repo,
		researcher:  researcher,
		synthesizer: synthesizer,
		clock:       time.Now,
	}
}

type ResearchInput struct {
	URL          string `json:"url"`
	Language     string `json:"language"`
	BusinessName string `json:"business_name"`
}

type ResearchResult struct {
	ID               string `json:"id"`
	Prompt           string `json:"prompt"`
	OrganisationName string `json:"organisation_name,omitempty"`
	ServedFromCache  bool   `json:"served_from_cache"`
}

// Research is the anonymous sibling of agent provisioning: same
// research/synthesis pipeline, keyed by (url, language) instead of owner.
// A concurrent first-time race can synthesize twice; both rows are valid and
// the newest wins on the next lookup.
func (s *Service) Research(ctx context.Context, in ResearchInput) (ResearchResult, error) {
	websiteURL, err := agents.NormalizeURL(in.URL)
	if err != nil {
		return ResearchResult{}, err
	}
	language := strings.ToLower(strings.TrimSpace(in.Language))
	if language == "" {
		language = "en"
	}

	existing, found, err := s.repo.LatestByWebsite(ctx, websiteURL, language)
	if err != nil {
		return ResearchResult{}, apperr.Storage("demo lookup failed", err)
	}
	if found && existing.Prompt != "" {
		return ResearchResult{
			ID:               existing.ID,
			Prompt:           existing.Prompt,
			OrganisationName: existing.OrganisationName,
			ServedFromCache:  true,
		}, nil
	}

	research, err := s.researcher.Research(ctx, websiteURL)
	if err != nil {
		return ResearchResult{}, err
	}
	content, err := s.synthesizer.Complete(ctx, llm.BuildResearchPrompt(websiteURL, in.BusinessName, research, language))
	if err != nil {
		return ResearchResult{}, err
	}
	synthesis, err := llm.ParseSynthesis(content)
	if err != nil {
		return ResearchResult{}, err
	}
	orgName := synthesis.OrganisationName
	if orgName == "" {
		orgName = in.BusinessName
	}

	now := s.clock().UTC()
	if found {
		existing.BusinessName = in.BusinessName
		existing.ScrapedContent = research
		existing.Prompt = synthesis.Prompt
		existing.OrganisationName = orgName
		existing.UpdatedAt = now
		if err := s.repo.Update(ctx, existing); err != nil {
			return ResearchResult{}, apperr.Storage("demo update failed", err)
		}
		return ResearchResult{ID: existing.ID, Prompt: synthesis.Prompt, OrganisationName: orgName}, nil
	}

	d := Demo{
		ID:               uuid.NewString(),
		WebsiteURL:       websiteURL,
		Language:         language,
		BusinessName:     in.BusinessName,
		ScrapedContent:   research,
		Prompt:           synthesis.Prompt,
		OrganisationName: orgName,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.Insert(ctx, d); err != nil {
		return ResearchResult{}, apperr.Storage("demo insert failed", err)
	}
	return ResearchResult{ID: d.ID, Prompt: synthesis.Prompt, OrganisationName: orgName}, nil
}

// SavePrompt stores a caller-revised prompt on a demo row, optionally
// linking the assistant created for the demo call.
func (s *Service) SavePrompt(ctx context.Context, id, prompt, assistantID string) error {
	if strings.TrimSpace(id) == "" {
		return apperr.Validation("demo id is required")
	}
	if strings.TrimSpace(prompt) == "" {
		return apperr.Validation("prompt is required")
	}
	if err := s.repo.SetPrompt(ctx, id, prompt, assistantID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperr.NotFound("demo not found")
		}
		return apperr.Storage("demo prompt persist failed", err)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (Demo, error) {
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Demo{}, apperr.NotFound("demo not found")
		}
		return Demo{}, apperr.Storage("demo lookup failed", err)
	}
	return d, nil
}
