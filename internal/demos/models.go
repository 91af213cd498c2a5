package demos

import "time"

// Demo is one anonymous research run against a public website. Rows are
// keyed by (website_url, language) but the pair is not unique: concurrent
// first-time runs may each insert, and resolution takes the newest row.
type Demo struct {
	ID               string     `json:"id" db:"id"`
	WebsiteURL       string     `json:"website_url" db:"website_url"`
	Language         string     `json:"language" db:"language"`
	BusinessName     string     `json:"business_name,omitempty" db:"business_name"`
	ScrapedContent   string     `json:"-" db:"scraped_content"`
	Prompt           string     `json:"prompt" db:"prompt"`
	OrganisationName string     `json:"organisation_name,omitempty" db:"organisation_name"`
	AssistantID      string     `json:"assistant_id,omitempty" db:"assistant_id"`
	CallID           string     `json:"call_id,omitempty" db:"call_id"`
	Transcript       string     `json:"transcript,omitempty" db:"transcript"`
	Summary          string     `json:"summary,omitempty" db:"summary"`
	VisitorEmail     string     `json:"visitor_email,omitempty" db:"visitor_email"`
	CallCompletedAt  *time.Time `json:"call_completed_at,omitempty" db:"call_completed_at"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}
