package voice

import (
	"context"
	"time"
)

// Platform defines the provider-agnostic interface used by business logic.
//
// Rules:
// - No platform SDK calls outside this package.
// - Keep request/response types provider-agnostic; raw payloads stay in Raw.
type Platform interface {
	Name() string

	// CreateAssistant provisions a hosted conversational agent and returns
	// its opaque platform identifier.
	CreateAssistant(ctx context.Context, req CreateAssistantRequest) (Assistant, error)

	// ListCalls returns the call history for one assistant, newest first as
	// delivered by the platform.
	ListCalls(ctx context.Context, assistantID string, limit int) ([]PlatformCall, error)

	// Chat relays one chat turn to an assistant (browser text-widget path).
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

type CreateAssistantRequest struct {
	// Name labels the assistant on the platform dashboard.
	Name string

	// Instructions is the synthesized system prompt.
	Instructions string

	// CallbackURL receives call-lifecycle webhooks; CallbackSecret signs them.
	CallbackURL    string
	CallbackSecret string
}

type Assistant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PlatformCall is one call record as returned by the platform. The platform
// has shipped both camelCase and snake_case creation timestamps over time, so
// both are decoded and normalized through ResolvedCreatedAt.
type PlatformCall struct {
	ID           string   `json:"id"`
	AssistantID  string   `json:"assistantId,omitempty"`
	Status       string   `json:"status,omitempty"`
	Transcript   string   `json:"transcript,omitempty"`
	Summary      string   `json:"summary,omitempty"`
	RecordingURL string   `json:"recordingUrl,omitempty"`
	StartedAt    string   `json:"startedAt,omitempty"`
	EndedAt      string   `json:"endedAt,omitempty"`
	Cost         float64  `json:"cost,omitempty"`
	CreatedAt    string   `json:"createdAt,omitempty"`
	CreatedAtAlt string   `json:"created_at,omitempty"`
}

// ResolvedCreatedAt normalizes the two creation-timestamp variants to one
// comparable instant. Unparsable or absent timestamps resolve to the zero
// time, which sorts last in a newest-first ordering.
func (c PlatformCall) ResolvedCreatedAt() time.Time {
	for _, raw := range []string{c.CreatedAt, c.CreatedAtAlt} {
		if raw == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			return t
		}
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

type ChatRequest struct {
	AssistantID    string `json:"assistantId"`
	Input          string `json:"input"`
	PreviousChatID string `json:"previousChatId,omitempty"`
}

// ChatResponse is passed through to the browser widget unmodified.
type ChatResponse struct {
	ID     string         `json:"id,omitempty"`
	Output []ChatOutput   `json:"output,omitempty"`
	Raw    map[string]any `json:"-"`
}

type ChatOutput struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}
