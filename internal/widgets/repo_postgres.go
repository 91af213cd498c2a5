package widgets

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const widgetColumns = `id, agent_id, user_id, public_token, active, created_at`

func scanWidget(row interface{ Scan(...any) error }) (Widget, error) {
	var w Widget
	if err := row.Scan(&w.ID, &w.AgentID, &w.UserID, &w.PublicToken, &w.Active, &w.CreatedAt); err != nil {
		return Widget{}, err
	}
	return w, nil
}

func (r *PostgresRepo) FindByAgent(ctx context.Context, agentID string) (Widget, error) {
	const q = `
SELECT ` + widgetColumns + `
FROM widgets
WHERE agent_id = $1
`
	w, err := scanWidget(r.db.QueryRowContext(ctx, q, agentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Widget{}, ErrNotFound
		}
		return Widget{}, err
	}
	return w, nil
}

func (r *PostgresRepo) FindByToken(ctx context.Context, token string) (Widget, error) {
	const q = `
SELECT ` + widgetColumns + `
FROM widgets
WHERE public_token = $1
`
	w, err := scanWidget(r.db.QueryRowContext(ctx, q, token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Widget{}, ErrNotFound
		}
		return Widget{}, err
	}
	return w, nil
}

func (r *PostgresRepo) Insert(ctx context.Context, w Widget) error {
	const q = `
INSERT INTO widgets (id, agent_id, user_id, public_token, active, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
`
	_, err := r.db.ExecContext(ctx, q, w.ID, w.AgentID, w.UserID, w.PublicToken, w.Active, w.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

var _ Repository = (*PostgresRepo)(nil)
