package chatsessions

import (
	"encoding/json"
	"time"
)

// Session is one browser chat transcript relayed through the voice
// platform. Messages and cost breakdowns are stored as raw JSON; the server
// never interprets them.
type Session struct {
	ID          string          `json:"id" db:"id"`
	AssistantID string          `json:"assistant_id" db:"assistant_id"`
	OrgID       string          `json:"org_id,omitempty" db:"org_id"`
	Messages    json.RawMessage `json:"messages,omitempty" db:"messages"`
	Cost        float64         `json:"cost,omitempty" db:"cost"`
	Costs       json.RawMessage `json:"costs,omitempty" db:"costs"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}
