package widgets

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when no widget matches the lookup key.
	ErrNotFound = errors.New("widget not found")

	// ErrDuplicate is returned by Insert when the agent already has a
	// widget. Callers fetch the existing row instead.
	ErrDuplicate = errors.New("widget already exists for agent")
)

type Repository interface {
	FindByAgent(ctx context.Context, agentID string) (Widget, error)
	FindByToken(ctx context.Context, token string) (Widget, error)

	// Insert persists a new widget. The unique agent_id constraint turns
	// concurrent creates into ErrDuplicate for all but one caller.
	Insert(ctx context.Context, w Widget) error
}
