package agents

import (
	"context"
	"errors"
)

// ErrNotFound is returned for rows that don't exist OR are owned by another
// user. Repositories never reveal which; callers surface it uniformly so
// agent ids can't be probed across owners.
var ErrNotFound = errors.New("agents: not found")

// Repository is the persistence contract for agents.
//
// Every method takes the owner's userID and must filter by it. Writes are
// single-row; no multi-row transactionality is assumed.
type Repository interface {
	// FindByWebsite looks up the owner's agent for a normalized URL.
	// Returns (Agent{}, false, nil) on a clean miss.
	FindByWebsite(ctx context.Context, userID, websiteURL string) (Agent, bool, error)

	Get(ctx context.Context, userID, agentID string) (Agent, error)

	// List returns the owner's agents, newest first.
	List(ctx context.Context, userID string) ([]Agent, error)

	Insert(ctx context.Context, a Agent) error

	// Update replaces the mutable columns of an owned row and refreshes
	// updated_at. Returns ErrNotFound when no owned row matches.
	Update(ctx context.Context, a Agent) error

	// SetAssistantID stamps the remote identifier on an owned row.
	SetAssistantID(ctx context.Context, userID, agentID, assistantID string) error

	// SetWidgetToken stamps the public widget token (best-effort convenience
	// copy; the widgets table is authoritative).
	SetWidgetToken(ctx context.Context, userID, agentID, token string) error
}
