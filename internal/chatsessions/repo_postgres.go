package chatsessions

import (
	"context"
	"database/sql"
	"errors"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const sessionColumns = `id, assistant_id, org_id, messages, cost, costs, created_at, updated_at`

func scanSession(row interface{ Scan(...any) error }) (Session, error) {
	var s Session
	var orgID sql.NullString
	var messages, costs sql.NullString
	if err := row.Scan(&s.ID, &s.AssistantID, &orgID, &messages, &s.Cost, &costs, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return Session{}, err
	}
	s.OrgID = orgID.String
	if messages.Valid {
		s.Messages = []byte(messages.String)
	}
	if costs.Valid {
		s.Costs = []byte(costs.String)
	}
	return s, nil
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (Session, error) {
	const q = `
SELECT ` + sessionColumns + `
FROM chat_sessions
WHERE id = $1
`
	s, err := scanSession(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}
	return s, nil
}

func (r *PostgresRepo) ListByAssistant(ctx context.Context, assistantID string) ([]Session, error) {
	const q = `
SELECT ` + sessionColumns + `
FROM chat_sessions
WHERE assistant_id = $1
ORDER BY updated_at DESC
`
	rows, err := r.db.QueryContext(ctx, q, assistantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Upsert(ctx context.Context, s Session) error {
	const q = `
INSERT INTO chat_sessions (id, assistant_id, org_id, messages, cost, costs, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE
SET messages = EXCLUDED.messages, cost = EXCLUDED.cost, costs = EXCLUDED.costs,
    updated_at = EXCLUDED.updated_at
`
	_, err := r.db.ExecContext(ctx, q,
		s.ID,
		s.AssistantID,
		nullable(s.OrgID),
		rawJSON(s.Messages),
		s.Cost,
		rawJSON(s.Costs),
		s.CreatedAt,
		s.UpdatedAt,
	)
	return err
}

func rawJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ Repository = (*PostgresRepo)(nil)
