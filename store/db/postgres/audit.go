package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/atendai/atendai/store"
)

func (d *DB) CreateAuditLog(ctx context.Context, create *store.AuditLog) (*store.AuditLog, error) {
	fields := []string{"company_id", "action", "entity", "entity_id", "actor", "details", "created_ts"}
	args := []any{create.CompanyID, create.Action, create.Entity, create.EntityID, create.Actor, create.Details, create.CreatedTs}

	stmt := `INSERT INTO audit_log (` + strings.Join(fields, ", ") + `) VALUES (` + placeholders(len(args)) + `) RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create audit log")
	}
	return create, nil
}

func (d *DB) ListAuditLogs(ctx context.Context, find *store.FindAuditLog) ([]*store.AuditLog, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.CompanyID != nil {
		where, args = append(where, "company_id = "+placeholder(len(args)+1)), append(args, *find.CompanyID)
	}
	if find.Action != nil {
		where, args = append(where, "action = "+placeholder(len(args)+1)), append(args, *find.Action)
	}

	limit := ""
	if find.Limit != nil {
		limit = fmt.Sprintf(" LIMIT %d", *find.Limit)
	}

	query := `SELECT id, company_id, action, entity, entity_id, actor, details, created_ts
		FROM audit_log WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_ts DESC` + limit
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list audit logs")
	}
	defer rows.Close()

	list := make([]*store.AuditLog, 0)
	for rows.Next() {
		a := &store.AuditLog{}
		if err := rows.Scan(&a.ID, &a.CompanyID, &a.Action, &a.Entity, &a.EntityID, &a.Actor, &a.Details, &a.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan audit log")
		}
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate audit logs")
	}
	return list, nil
}
