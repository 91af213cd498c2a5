package agents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// PostgresRepo persists agents.
//
// languages is stored as JSONB; scanning goes through a text column to keep
// database/sql portable across drivers.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const agentColumns = `
id, user_id, name, website_url, languages, prompt, organisation_name,
assistant_id, widget_token, status, calls, created_at, updated_at
`

func scanAgent(row interface{ Scan(...any) error }) (Agent, error) {
	var a Agent
	var languages string
	var prompt, orgName, assistantID, widgetToken sql.NullString
	if err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.Name,
		&a.WebsiteURL,
		&languages,
		&prompt,
		&orgName,
		&assistantID,
		&widgetToken,
		&a.Status,
		&a.Calls,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return Agent{}, err
	}
	if err := json.Unmarshal([]byte(languages), &a.Languages); err != nil {
		return Agent{}, err
	}
	a.Prompt = prompt.String
	a.OrganisationName = orgName.String
	a.AssistantID = assistantID.String
	a.WidgetToken = widgetToken.String
	return a, nil
}

func (r *PostgresRepo) FindByWebsite(ctx context.Context, userID, websiteURL string) (Agent, bool, error) {
	const q = `
SELECT ` + agentColumns + `
FROM agents
WHERE user_id = $1 AND website_url = $2
LIMIT 1
`
	a, err := scanAgent(r.db.QueryRowContext(ctx, q, userID, websiteURL))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Agent{}, false, nil
		}
		return Agent{}, false, err
	}
	return a, true, nil
}

func (r *PostgresRepo) Get(ctx context.Context, userID, agentID string) (Agent, error) {
	const q = `
SELECT ` + agentColumns + `
FROM agents
WHERE user_id = $1 AND id = $2
`
	a, err := scanAgent(r.db.QueryRowContext(ctx, q, userID, agentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Agent{}, ErrNotFound
		}
		return Agent{}, err
	}
	return a, nil
}

func (r *PostgresRepo) List(ctx context.Context, userID string) ([]Agent, error) {
	const q = `
SELECT ` + agentColumns + `
FROM agents
WHERE user_id = $1
ORDER BY created_at DESC
`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Insert(ctx context.Context, a Agent) error {
	langs, err := json.Marshal(a.Languages)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO agents (
  id, user_id, name, website_url, languages, prompt, organisation_name,
  assistant_id, widget_token, status, calls, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
)
`
	_, err = r.db.ExecContext(ctx, q,
		a.ID,
		a.UserID,
		a.Name,
		a.WebsiteURL,
		string(langs),
		nullable(a.Prompt),
		nullable(a.OrganisationName),
		nullable(a.AssistantID),
		nullable(a.WidgetToken),
		a.Status,
		a.Calls,
		a.CreatedAt,
		a.UpdatedAt,
	)
	return err
}

func (r *PostgresRepo) Update(ctx context.Context, a Agent) error {
	langs, err := json.Marshal(a.Languages)
	if err != nil {
		return err
	}
	const q = `
UPDATE agents
SET name = $3, website_url = $4, languages = $5, prompt = $6,
    organisation_name = $7, assistant_id = $8, status = $9, updated_at = $10
WHERE user_id = $1 AND id = $2
`
	res, err := r.db.ExecContext(ctx, q,
		a.UserID,
		a.ID,
		a.Name,
		a.WebsiteURL,
		string(langs),
		nullable(a.Prompt),
		nullable(a.OrganisationName),
		nullable(a.AssistantID),
		a.Status,
		a.UpdatedAt,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *PostgresRepo) SetAssistantID(ctx context.Context, userID, agentID, assistantID string) error {
	const q = `
UPDATE agents
SET assistant_id = $3, updated_at = $4
WHERE user_id = $1 AND id = $2
`
	res, err := r.db.ExecContext(ctx, q, userID, agentID, assistantID, time.Now().UTC())
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *PostgresRepo) SetWidgetToken(ctx context.Context, userID, agentID, token string) error {
	const q = `
UPDATE agents
SET widget_token = $3, updated_at = $4
WHERE user_id = $1 AND id = $2
`
	res, err := r.db.ExecContext(ctx, q, userID, agentID, token, time.Now().UTC())
	if err != nil {
		return err
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ Repository = (*PostgresRepo)(nil)
