package widgets

import (
	"crypto/rand"
	"fmt"
	"time"
)

// Widget maps one agent to one public embed token. agent_id is unique in
// storage; concurrent creates collapse onto a single row.
type Widget struct {
	ID          string    `json:"id" db:"id"`
	AgentID     string    `json:"agent_id" db:"agent_id"`
	UserID      string    `json:"user_id" db:"user_id"`
	PublicToken string    `json:"public_token" db:"public_token"`
	Active      bool      `json:"active" db:"active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

const tokenSuffixLen = 8

const tokenAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// NewPublicToken builds a widget embed token: widget_{unix ms}_{random
// suffix}. The timestamp makes tokens roughly sortable; the suffix makes
// them unguessable enough for a public, non-secret identifier.
func NewPublicToken(now time.Time) string {
	buf := make([]byte, tokenSuffixLen)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the process is in much worse trouble
		// than token generation.
		panic(err)
	}
	for i, b := range buf {
		buf[i] = tokenAlphabet[int(b)%len(tokenAlphabet)]
	}
	return fmt.Sprintf("widget_%d_%s", now.UnixMilli(), buf)
}
