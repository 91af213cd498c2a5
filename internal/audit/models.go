package audit

import "time"

// Event is an immutable, append-only audit log record for provisioning
// lifecycle actions.
//
// Invariants:
// - Events are never updated or deleted.
// - user_id is required; every event traces back to an owner.
// - Audit writes are best-effort; do not block critical flows on failures.

type Event struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`

	// Type indicates the business category of the audit record.
	Type EventType `json:"type" db:"type"`

	// Target identifiers (optional, depending on the event type).
	AgentID     string `json:"agent_id,omitempty" db:"agent_id"`
	AssistantID string `json:"assistant_id,omitempty" db:"assistant_id"`
	WidgetID    string `json:"widget_id,omitempty" db:"widget_id"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeAgentProvisioned EventType = "agent_provisioned"
	EventTypeRemoteCreated    EventType = "remote_agent_created"
	EventTypeRemoteOrphaned   EventType = "remote_agent_orphaned"
	EventTypeWidgetCreated    EventType = "widget_created"
)
