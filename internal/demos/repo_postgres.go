package demos

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const demoColumns = `
id, website_url, language, business_name, scraped_content, prompt,
organisation_name, assistant_id, call_id, transcript, summary,
visitor_email, call_completed_at, created_at, updated_at
`

func scanDemo(row interface{ Scan(...any) error }) (Demo, error) {
	var d Demo
	var businessName, scraped, prompt, orgName sql.NullString
	var assistantID, callID, transcript, summary, email sql.NullString
	var completedAt sql.NullTime
	if err := row.Scan(
		&d.ID,
		&d.WebsiteURL,
		&d.Language,
		&businessName,
		&scraped,
		&prompt,
		&orgName,
		&assistantID,
		&callID,
		&transcript,
		&summary,
		&email,
		&completedAt,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return Demo{}, err
	}
	d.BusinessName = businessName.String
	d.ScrapedContent = scraped.String
	d.Prompt = prompt.String
	d.OrganisationName = orgName.String
	d.AssistantID = assistantID.String
	d.CallID = callID.String
	d.Transcript = transcript.String
	d.Summary = summary.String
	d.VisitorEmail = email.String
	if completedAt.Valid {
		t := completedAt.Time
		d.CallCompletedAt = &t
	}
	return d, nil
}

func (r *PostgresRepo) LatestByWebsite(ctx context.Context, websiteURL, language string) (Demo, bool, error) {
	const q = `
SELECT ` + demoColumns + `
FROM demos
WHERE website_url = $1 AND language = $2
ORDER BY created_at DESC
LIMIT 1
`
	d, err := scanDemo(r.db.QueryRowContext(ctx, q, websiteURL, language))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Demo{}, false, nil
		}
		return Demo{}, false, err
	}
	return d, true, nil
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (Demo, error) {
	const q = `
SELECT ` + demoColumns + `
FROM demos
WHERE id = $1
`
	d, err := scanDemo(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Demo{}, ErrNotFound
		}
		return Demo{}, err
	}
	return d, nil
}

func (r *PostgresRepo) Insert(ctx context.Context, d Demo) error {
	const q = `
INSERT INTO demos (
  id, website_url, language, business_name, scraped_content, prompt,
  organisation_name, assistant_id, call_id, transcript, summary,
  visitor_email, call_completed_at, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15
)
`
	_, err := r.db.ExecContext(ctx, q,
		d.ID,
		d.WebsiteURL,
		d.Language,
		nullable(d.BusinessName),
		nullable(d.ScrapedContent),
		nullable(d.Prompt),
		nullable(d.OrganisationName),
		nullable(d.AssistantID),
		nullable(d.CallID),
		nullable(d.Transcript),
		nullable(d.Summary),
		nullable(d.VisitorEmail),
		d.CallCompletedAt,
		d.CreatedAt,
		d.UpdatedAt,
	)
	return err
}

func (r *PostgresRepo) Update(ctx context.Context, d Demo) error {
	const q = `
UPDATE demos
SET business_name = $2, scraped_content = $3, prompt = $4,
    organisation_name = $5, assistant_id = $6, updated_at = $7
WHERE id = $1
`
	res, err := r.db.ExecContext(ctx, q,
		d.ID,
		nullable(d.BusinessName),
		nullable(d.ScrapedContent),
		nullable(d.Prompt),
		nullable(d.OrganisationName),
		nullable(d.AssistantID),
		d.UpdatedAt,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *PostgresRepo) SetPrompt(ctx context.Context, id, prompt, assistantID string) error {
	const q = `
UPDATE demos
SET prompt = $2, assistant_id = COALESCE($3, assistant_id), updated_at = $4
WHERE id = $1
`
	res, err := r.db.ExecContext(ctx, q, id, prompt, nullable(assistantID), time.Now().UTC())
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *PostgresRepo) StampCallStart(ctx context.Context, assistantID, callID string) error {
	const q = `
UPDATE demos
SET call_id = $2, updated_at = $3
WHERE id = (
  SELECT id FROM demos WHERE assistant_id = $1 ORDER BY created_at DESC LIMIT 1
)
`
	res, err := r.db.ExecContext(ctx, q, assistantID, callID, time.Now().UTC())
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *PostgresRepo) StampCallEnd(ctx context.Context, callID string, at time.Time) error {
	const q = `
UPDATE demos
SET call_completed_at = $2, updated_at = $3
WHERE call_id = $1
`
	res, err := r.db.ExecContext(ctx, q, callID, at, time.Now().UTC())
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *PostgresRepo) SetTranscript(ctx context.Context, callID, transcript string) error {
	return r.setByCallID(ctx, "transcript", callID, transcript)
}

func (r *PostgresRepo) SetSummary(ctx context.Context, callID, summary string) error {
	return r.setByCallID(ctx, "summary", callID, summary)
}

func (r *PostgresRepo) SetVisitorEmail(ctx context.Context, callID, email string) error {
	return r.setByCallID(ctx, "visitor_email", callID, email)
}

func (r *PostgresRepo) setByCallID(ctx context.Context, column, callID, value string) error {
	// column is one of three fixed names above, never caller input.
	q := `UPDATE demos SET ` + column + ` = $2, updated_at = $3 WHERE call_id = $1`
	res, err := r.db.ExecContext(ctx, q, callID, value, time.Now().UTC())
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
