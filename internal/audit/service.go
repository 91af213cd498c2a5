package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.

type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service logs internal audit information.
//
// IMPORTANT:
// - Audit is internal-only. Do not expose these records to owners by default.
// - Callers should treat audit logging as best-effort.

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.UserID == "" {
		return ErrInvalidEvent
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// LogAgentProvisioned records a completed research+synthesis run.
func (s *Service) LogAgentProvisioned(ctx context.Context, userID, agentID string, fromCache bool) error {
	msg := "prompt synthesized"
	if fromCache {
		msg = "prompt served from cache"
	}
	return s.Append(ctx, Event{
		UserID:  userID,
		Type:    EventTypeAgentProvisioned,
		AgentID: agentID,
		Message: msg,
	})
}

// LogRemoteCreated records a successful remote assistant creation.
func (s *Service) LogRemoteCreated(ctx context.Context, userID, agentID, assistantID string) error {
	return s.Append(ctx, Event{
		UserID:      userID,
		Type:        EventTypeRemoteCreated,
		AgentID:     agentID,
		AssistantID: assistantID,
		Message:     "remote assistant created",
	})
}

// LogRemoteOrphaned records a remote assistant that exists on the platform
// but whose id could not be persisted locally. These need manual relinking.
func (s *Service) LogRemoteOrphaned(ctx context.Context, userID, agentID, assistantID string) error {
	return s.Append(ctx, Event{
		UserID:      userID,
		Type:        EventTypeRemoteOrphaned,
		AgentID:     agentID,
		AssistantID: assistantID,
		Message:     "remote assistant created but local persist failed",
	})
}

// LogWidgetCreated records widget issuance.
func (s *Service) LogWidgetCreated(ctx context.Context, userID, agentID, widgetID string) error {
	return s.Append(ctx, Event{
		UserID:   userID,
		Type:     EventTypeWidgetCreated,
		AgentID:  agentID,
		WidgetID: widgetID,
		Message:  "widget created",
	})
}
