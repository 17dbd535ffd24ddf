package postgres

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/atendai/atendai/store"
)

const conversationColumns = "id, uid, company_id, phone, status, bound_agent_id, unread_count, last_message_ts, created_ts"

func (d *DB) CreateConversation(ctx context.Context, create *store.Conversation) (*store.Conversation, error) {
	fields := []string{"uid", "company_id", "phone", "status", "bound_agent_id", "unread_count", "last_message_ts", "created_ts"}
	args := []any{create.UID, create.CompanyID, create.Phone, create.Status, create.BoundAgentID, create.UnreadCount, create.LastMessageTs, create.CreatedTs}

	stmt := `INSERT INTO conversation (` + strings.Join(fields, ", ") + `) VALUES (` + placeholders(len(args)) + `) RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create conversation")
	}
	return create, nil
}

func (d *DB) ListConversations(ctx context.Context, find *store.FindConversation) ([]*store.Conversation, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.UID != nil {
		where, args = append(where, "uid = "+placeholder(len(args)+1)), append(args, *find.UID)
	}
	if find.CompanyID != nil {
		where, args = append(where, "company_id = "+placeholder(len(args)+1)), append(args, *find.CompanyID)
	}
	if find.Phone != nil {
		where, args = append(where, "phone = "+placeholder(len(args)+1)), append(args, *find.Phone)
	}
	if find.Status != nil {
		where, args = append(where, "status = "+placeholder(len(args)+1)), append(args, *find.Status)
	}

	query := `SELECT ` + conversationColumns + ` FROM conversation WHERE ` + strings.Join(where, " AND ") + ` ORDER BY last_message_ts DESC`
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
		set, args = append(set, "status = "+placeholder(len(args)+1)), append(args, *update.Status)
	}
	if update.BoundAgentID != nil {
		set, args = append(set, "bound_agent_id = "+placeholder(len(args)+1)), append(args, *update.BoundAgentID)
	}
	if update.UnreadCount != nil {
		set, args = append(set, "unread_count = "+placeholder(len(args)+1)), append(args, *update.UnreadCount)
	}
	if update.LastMessageTs != nil {
		set, args = append(set, "last_message_ts = "+placeholder(len(args)+1)), append(args, *update.LastMessageTs)
	}
	if len(set) == 0 {
		return nil, errors.New("no fields to update")
	}

	args = append(args, update.ID)
	stmt := `UPDATE conversation SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args)) + `
		RETURNING ` + conversationColumns
	c := &store.Conversation{}
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&c.ID, &c.UID, &c.CompanyID, &c.Phone, &c.Status, &c.BoundAgentID, &c.UnreadCount, &c.LastMessageTs, &c.CreatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to update conversation")
	}
	return c, nil
}
