package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/atendai/atendai/store"
)

func (d *DB) CreateMessage(ctx context.Context, create *store.Message) (*store.Message, error) {
	fields := []string{"uid", "conversation_id", "sender", "type", "content", "is_read", "created_ts"}
	args := []any{create.UID, create.ConversationID, create.Sender, create.Type, create.Content, create.IsRead, create.CreatedTs}

	stmt := `INSERT INTO message (` + strings.Join(fields, ", ") + `) VALUES (` + placeholders(len(args)) + `) RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create message")
	}
	return create, nil
}

func (d *DB) ListMessages(ctx context.Context, find *store.FindMessage) ([]*store.Message, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.UID != nil {
		where, args = append(where, "uid = "+placeholder(len(args)+1)), append(args, *find.UID)
	}
	if find.ConversationID != nil {
		where, args = append(where, "conversation_id = "+placeholder(len(args)+1)), append(args, *find.ConversationID)
	}
	if find.Sender != nil {
		where, args = append(where, "sender = "+placeholder(len(args)+1)), append(args, *find.Sender)
	}

	order := "ORDER BY created_ts ASC, id ASC"
	if find.Limit != nil {
		order = fmt.Sprintf("ORDER BY created_ts DESC, id DESC LIMIT %d", *find.Limit)
	}

	query := `SELECT id, uid, conversation_id, sender, type, content, is_read, created_ts
		FROM message WHERE ` + strings.Join(where, " AND ") + ` ` + order
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list messages")
	}
	defer rows.Close()

	list := make([]*store.Message, 0)
	for rows.Next() {
		m := &store.Message{}
		if err := rows.Scan(&m.ID, &m.UID, &m.ConversationID, &m.Sender, &m.Type, &m.Content, &m.IsRead, &m.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan message")
		}
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate messages")
	}
	return list, nil
}

func (d *DB) CountMessages(ctx context.Context, conversationID int32) (int, error) {
	var count int
	if err := d.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM message WHERE conversation_id = $1`, conversationID,
	).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count messages")
	}
	return count, nil
}
