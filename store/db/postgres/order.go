package postgres

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/atendai/atendai/store"
)

const orderColumns = "id, uid, company_id, conversation_id, description, amount_cents, status, created_ts"

func (d *DB) CreateOrder(ctx context.Context, create *store.Order) (*store.Order, error) {
	fields := []string{"uid", "company_id", "conversation_id", "description", "amount_cents", "status", "created_ts"}
	args := []any{create.UID, create.CompanyID, create.ConversationID, create.Description, create.AmountCents, create.Status, create.CreatedTs}

	stmt := `INSERT INTO customer_order (` + strings.Join(fields, ", ") + `) VALUES (` + placeholders(len(args)) + `) RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create order")
	}
	return create, nil
}

func (d *DB) ListOrders(ctx context.Context, find *store.FindOrder) ([]*store.Order, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.CompanyID != nil {
		where, args = append(where, "company_id = "+placeholder(len(args)+1)), append(args, *find.CompanyID)
	}
	if find.ConversationID != nil {
		where, args = append(where, "conversation_id = "+placeholder(len(args)+1)), append(args, *find.ConversationID)
	}
	if find.Status != nil {
		where, args = append(where, "status = "+placeholder(len(args)+1)), append(args, *find.Status)
	}

	query := `SELECT ` + orderColumns + ` FROM customer_order WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_ts DESC`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list orders")
	}
	defer rows.Close()

	list := make([]*store.Order, 0)
	for rows.Next() {
		o := &store.Order{}
		if err := rows.Scan(&o.ID, &o.UID, &o.CompanyID, &o.ConversationID, &o.Description, &o.AmountCents, &o.Status, &o.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan order")
		}
		list = append(list, o)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate orders")
	}
	return list, nil
}

func (d *DB) UpdateOrder(ctx context.Context, update *store.UpdateOrder) (*store.Order, error) {
	if update.Status == nil {
		return nil, errors.New("no fields to update")
	}
	stmt := `UPDATE customer_order SET status = $1 WHERE id = $2 RETURNING ` + orderColumns
	o := &store.Order{}
	if err := d.db.QueryRowContext(ctx, stmt, *update.Status, update.ID).Scan(
		&o.ID, &o.UID, &o.CompanyID, &o.ConversationID, &o.Description, &o.AmountCents, &o.Status, &o.CreatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to update order")
	}
	return o, nil
}
