package demos

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no demo row matches the lookup key.
var ErrNotFound = errors.New("demo not found")

type Repository interface {
	// LatestByWebsite resolves the newest row for (websiteURL, language).
	// Duplicate rows for the pair are legal; newest wins.
	LatestByWebsite(ctx context.Context, websiteURL, language string) (Demo, bool, error)

	Get(ctx context.Context, id string) (Demo, error)
	Insert(ctx context.Context, d Demo) error
	Update(ctx context.Context, d Demo) error

	// SetPrompt stores a revised prompt (and optionally a linked assistant
	// id) on one demo row.
	SetPrompt(ctx context.Context, id, prompt, assistantID string) error

	// The Stamp*/Set* methods below serve webhook reconciliation. Each
	// returns ErrNotFound when no row matches; callers treat that as a
	// non-event.
	StampCallStart(ctx context.Context, assistantID, callID string) error
	StampCallEnd(ctx context.Context, callID string, at time.Time) error
	SetTranscript(ctx context.Context, callID, transcript string) error
	SetSummary(ctx context.Context, callID, summary string) error
	SetVisitorEmail(ctx context.Context, callID, email string) error
}
