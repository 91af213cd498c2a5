package chatsessions

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"receptionist-platform/internal/apperr"
)

// Service persists browser chat transcripts.
type Service struct {
	repo Repository

	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

type UpsertInput struct {
	ID          string          `json:"id"`
	AssistantID string          `json:"assistant_id"`
	OrgID       string          `json:"org_id"`
	Messages    json.RawMessage `json:"messages"`
	Cost        float64         `json:"cost"`
	Costs       json.RawMessage `json:"costs"`
}

// Upsert stores a session under its client-supplied id. Repeat writes for
// the same id replace the transcript and keep the original creation time.
func (s *Service) Upsert(ctx context.Context, in UpsertInput) (Session, error) {
	if strings.TrimSpace(in.ID) == "" {
		return Session{}, apperr.Validation("session id is required")
	}
	if strings.TrimSpace(in.AssistantID) == "" {
		return Session{}, apperr.Validation("assistant id is required")
	}
	if len(in.Messages) > 0 && !json.Valid(in.Messages) {
		return Session{}, apperr.Validation("messages must be valid JSON")
	}
	if len(in.Costs) > 0 && !json.Valid(in.Costs) {
		return Session{}, apperr.Validation("costs must be valid JSON")
	}

	now := s.clock().UTC()
	sess := Session{
		ID:          in.ID,
		AssistantID: in.AssistantID,
		OrgID:       in.OrgID,
		Messages:    in.Messages,
		Cost:        in.Cost,
		Costs:       in.Costs,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if existing, err := s.repo.Get(ctx, in.ID); err == nil {
		sess.CreatedAt = existing.CreatedAt
	}
	if err := s.repo.Upsert(ctx, sess); err != nil {
		return Session{}, apperr.Storage("chat session persist failed", err)
	}
	return sess, nil
}

func (s *Service) Get(ctx context.Context, id string) (Session, error) {
	sess, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, apperr.NotFound("chat session not found")
		}
		return Session{}, apperr.Storage("chat session lookup failed", err)
	}
	return sess, nil
}

func (s *Service) List(ctx context.Context, assistantID string) ([]Session, error) {
	if strings.TrimSpace(assistantID) == "" {
		return nil, apperr.Validation("assistant id is required")
	}
	out, err := s.repo.ListByAssistant(ctx, assistantID)
	if err != nil {
		return nil, apperr.Storage("chat session list failed", err)
	}
	if out == nil {
		out = []Session{}
	}
	return out, nil
}
