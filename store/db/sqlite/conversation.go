package sqlite

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/atendai/atendai/store"
)

func (d *DB) CreateConversation(ctx context.Context, create *store.Conversation) (*store.Conversation, error) {
	fields := []string{"uid", "company_id", "phone", "status", "bound_agent_id", "unread_count", "last_message_ts", "created_ts"}
	args := []any{create.UID, create.CompanyID, create.Phone, create.Status, create.BoundAgentID, create.UnreadCount, create.LastMessageTs, create.CreatedTs}

	stmt := `INSERT INTO conversation (` + strings.Join(fields, ", ") + `) VALUES (` + placeholders(len(args)) + `)`
	result, err := d.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create conversation")
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get conversation id")
	}
	create.ID = int32(id)
	return create, nil
}

func (d *DB) ListConversations(ctx context.Context, find *store.FindConversation) ([]*store.Conversation, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.UID != nil {
		where, args = append(where, "uid = ?"), append(args, *find.UID)
	}
	if find.CompanyID != nil {
		where, args = append(where, "company_id = ?"), append(args, *find.CompanyID)
	}
	if find.Phone != nil {
		where, args = append(where, "phone = ?"), append(args, *find.Phone)
	}
	if find.Status != nil {
		where, args = append(where, "status = ?"), append(args, *find.Status)
	}

	query := `SELECT id, uid, company_id, phone, status, bound_agent_id, unread_count, last_message_ts, created_ts
		FROM conversation WHERE ` + strings.Join(where, " AND ") + ` ORDER BY last_message_ts DESC`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list conversations")
	}
	defer rows.Close()

	list := make([]*store.Conversation, 0)
	for rows.Next() {
		c := &store.Conversation{}
		if err := rows.Scan(&c.ID, &c.UID, &c.CompanyID, &c.Phone, &c.Status, &c.BoundAgentID, &c.UnreadCount, &c.LastMessageTs, &c.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan conversation")
		}
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate conversations")
	}
	return list, nil
}

func (d *DB) UpdateConversation(ctx context.Context, update *store.UpdateConversation) (*store.Conversation, error) {
	set, args := []string{}, []any{}
	if update.Status != nil {
		set, args = append(set, "status = ?"), append(args, *update.Status)
	}
	if update.BoundAgentID != nil {
		set, args = append(set, "bound_agent_id = ?"), append(args, *update.BoundAgentID)
	}
	if update.UnreadCount != nil {
		set, args = append(set, "unread_count = ?"), append(args, *update.UnreadCount)
	}
	if update.LastMessageTs != nil {
		set, args = append(set, "last_message_ts = ?"), append(args, *update.LastMessageTs)
	}
	if len(set) == 0 {
		return nil, errors.New("no fields to update")
	}

	args = append(args, update.ID)
	stmt := `UPDATE conversation SET ` + strings.Join(set, ", ") + ` WHERE id = ?`
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return nil, errors.Wrap(err, "failed to update conversation")
	}

	list, err := d.ListConversations(ctx, &store.FindConversation{ID: &update.ID})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, errors.Errorf("conversation %d not found", update.ID)
	}
	return list[0], nil
}
