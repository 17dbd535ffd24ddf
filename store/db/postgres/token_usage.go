package postgres

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
		FROM token_usage WHERE company_id = $1 AND month = $2`
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

func (d *DB) UpsertTokenUsage(ctx context.Context, upsert *store.UpsertTokenUsage) (*store.TokenUsage, error) {
	stmt := `INSERT INTO token_usage (company_id, month, input_tokens, output_tokens, updated_ts)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (company_id, month)
		DO UPDATE SET
			input_tokens = token_usage.input_tokens + EXCLUDED.input_tokens,
			output_tokens = token_usage.output_tokens + EXCLUDED.output_tokens,
			updated_ts = EXCLUDED.updated_ts
		RETURNING id, company_id, month, input_tokens, output_tokens, updated_ts`
	u := &store.TokenUsage{}
	if err := d.db.QueryRowContext(ctx, stmt,
		upsert.CompanyID, upsert.Month, upsert.InputTokens, upsert.OutputTokens, upsert.UpdatedTs,
	).Scan(&u.ID, &u.CompanyID, &u.Month, &u.InputTokens, &u.OutputTokens, &u.UpdatedTs); err != nil {
		return nil, errors.Wrap(err, "failed to upsert token usage")
	}
	return u, nil
}
