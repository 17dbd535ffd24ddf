package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/atendai/atendai/store"
)

func (d *DB) CreateCompany(ctx context.Context, create *store.Company) (*store.Company, error) {
	fields := []string{"uid", "name", "niche", "ai_enabled", "subscription_active", "plan_token_limit", "trial_ends_ts", "created_ts"}
	args := []any{create.UID, create.Name, create.Niche, create.AIEnabled, create.SubscriptionActive, create.PlanTokenLimit, create.TrialEndsTs, create.CreatedTs}

	stmt := `INSERT INTO company (` + strings.Join(fields, ", ") + `) VALUES (` + placeholders(len(args)) + `)`
	result, err := d.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create company")
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get company id")
	}
	create.ID = int32(id)
	return create, nil
}

func (d *DB) GetCompany(ctx context.Context, find *store.FindCompany) (*store.Company, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.UID != nil {
		where, args = append(where, "uid = ?"), append(args, *find.UID)
	}

	query := `SELECT id, uid, name, niche, ai_enabled, subscription_active, plan_token_limit, trial_ends_ts, created_ts
		FROM company WHERE ` + strings.Join(where, " AND ")
	c := &store.Company{}
	if err := d.db.QueryRowContext(ctx, query, args...).Scan(
		&c.ID, &c.UID, &c.Name, &c.Niche, &c.AIEnabled, &c.SubscriptionActive, &c.PlanTokenLimit, &c.TrialEndsTs, &c.CreatedTs,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get company")
	}
	return c, nil
}

func (d *DB) UpdateCompany(ctx context.Context, update *store.UpdateCompany) (*store.Company, error) {
	set, args := []string{}, []any{}
	if update.AIEnabled != nil {
		set, args = append(set, "ai_enabled = ?"), append(args, *update.AIEnabled)
	}
	if update.PlanTokenLimit != nil {
		set, args = append(set, "plan_token_limit = ?"), append(args, *update.PlanTokenLimit)
	}
	if len(set) == 0 {
		return nil, errors.New("no fields to update")
	}

	args = append(args, update.ID)
	stmt := `UPDATE company SET ` + strings.Join(set, ", ") + ` WHERE id = ?`
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return nil, errors.Wrap(err, "failed to update company")
	}
	return d.GetCompany(ctx, &store.FindCompany{ID: &update.ID})
}
