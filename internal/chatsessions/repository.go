package chatsessions

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no session matches the lookup key.
var ErrNotFound = errors.New("chat session not found")

type Repository interface {
	Get(ctx context.Context, id string) (Session, error)
	ListByAssistant(ctx context.Context, assistantID string) ([]Session, error)

	// Upsert inserts or replaces the session with the given id. The id is
	// client-supplied (the platform's chat id), so create and update are
	// the same write.
	Upsert(ctx context.Context, s Session) error
}
