package agents

import (
	"net/url"
	"strings"
	"time"

	"receptionist-platform/internal/apperr"
)

// Agent represents one provisioned AI receptionist.
//
// Ownership invariant: UserID is required on every row and enforced in all
// queries.
//
// Lifecycle: Prompt is null until synthesis completes; AssistantID is null
// until remote provisioning completes. website_url always carries an explicit
// http(s) scheme before persistence.
type Agent struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`

	Name       string   `json:"name" db:"name"`
	WebsiteURL string   `json:"website_url" db:"website_url"`
	Languages  []string `json:"languages" db:"languages"`

	// Prompt is the synthesized system prompt; empty means synthesis has
	// never completed for this agent.
	Prompt string `json:"prompt,omitempty" db:"prompt"`

	// OrganisationName is the synthesis provider's extracted company name.
	OrganisationName string `json:"organisation_name,omitempty" db:"organisation_name"`

	// AssistantID is the voice platform's opaque agent identifier; empty
	// means remote provisioning has not completed (or not been attempted).
	AssistantID string `json:"assistant_id,omitempty" db:"assistant_id"`

	// WidgetToken is a convenience stamp of the agent's public widget token.
	// The widgets table is authoritative; this copy is best-effort.
	WidgetToken string `json:"widget_token,omitempty" db:"widget_token"`

	Status Status `json:"status" db:"status"`

	// Calls is a denormalized display counter. Nothing increments it today;
	// treat it as informational only.
	Calls int `json:"calls" db:"calls"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Status string

const (
	StatusActive Status = "active"
	StatusPaused Status = "paused"
)

// NormalizeURL trims the input, prepends https:// when no scheme is present,
// and validates the result as an absolute URL. It is idempotent: normalizing
// an already-normalized URL returns it unchanged.
func NormalizeURL(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", apperr.Validation("website url is required")
	}

	lower := strings.ToLower(s)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil || u.Host == "" || !strings.Contains(u.Host, ".") && u.Host != "localhost" {
		return "", apperr.Validation("invalid website url")
	}
	return s, nil
}
