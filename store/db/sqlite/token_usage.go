package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/atendai/atendai/store"
)

func (d *DB) GetTokenUsage(ctx context.Context, find *store.FindTokenUsage) (*store.TokenUsage, error) {
	if find.CompanyID == nil || find.Month == nil {
		return nil, errors.New("company id and month are required")
	}

	query := `SELECT id, company_id, month, input_tokens, output_tokens, updated_ts
		FROM token_usage WHERE company_id = ? AND month = ?`
	u := &store.TokenUsage{}
	if err := d.db.QueryRowContext(ctx, query, *find.CompanyID, *find.Month).Scan(
		&u.ID, &u.CompanyID, &u.Month, &u.InputTokens, &u.OutputTokens, &u.UpdatedTs,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get token usage")
	}
	return u, nil
}

// UpsertTokenUsage accumulates token deltas atomically. ON CONFLICT addition
// keeps concurrent registrations from losing increments.
func (d *DB) UpsertTokenUsage(ctx context.Context, upsert *store.UpsertTokenUsage) (*store.TokenUsage, error) {
	stmt := `INSERT INTO token_usage (company_id, month, input_tokens, output_tokens, updated_ts)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (company_id, month)
		DO UPDATE SET
			input_tokens = input_tokens + excluded.input_tokens,
			output_tokens = output_tokens + excluded.output_tokens,
			updated_ts = excluded.updated_ts`
	if _, err := d.db.ExecContext(ctx, stmt,
		upsert.CompanyID, upsert.Month, upsert.InputTokens, upsert.OutputTokens, upsert.UpdatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to upsert token usage")
	}
	return d.GetTokenUsage(ctx, &store.FindTokenUsage{CompanyID: &upsert.CompanyID, Month: &upsert.Month})
}
