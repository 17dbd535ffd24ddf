package postgres

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/atendai/atendai/store"
)

const personaColumns = "id, uid, company_id, name, personality, trigger_keywords, priority, is_default, is_active, can_sell, can_negotiate, transfer_to_human, voice_mode, created_ts"

func marshalKeywords(keywords []string) (string, error) {
	if keywords == nil {
		keywords = []string{}
	}
	raw, err := json.Marshal(keywords)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal trigger keywords")
	}
	return string(raw), nil
}

func unmarshalKeywords(raw string) []string {
	var keywords []string
	if err := json.Unmarshal([]byte(raw), &keywords); err != nil {
		return []string{}
	}
	return keywords
}

func (d *DB) CreateAgentPersona(ctx context.Context, create *store.AgentPersona) (*store.AgentPersona, error) {
	keywords, err := marshalKeywords(create.TriggerKeywords)
	if err != nil {
		return nil, err
	}

	fields := []string{"uid", "company_id", "name", "personality", "trigger_keywords", "priority", "is_default", "is_active", "can_sell", "can_negotiate", "transfer_to_human", "voice_mode", "created_ts"}
	args := []any{create.UID, create.CompanyID, create.Name, create.Personality, keywords, create.Priority, create.IsDefault, create.IsActive, create.CanSell, create.CanNegotiate, create.TransferToHuman, create.VoiceMode, create.CreatedTs}

	stmt := `INSERT INTO agent_persona (` + strings.Join(fields, ", ") + `) VALUES (` + placeholders(len(args)) + `) RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create agent persona")
	}
	return create, nil
}

func (d *DB) ListAgentPersonas(ctx context.Context, find *store.FindAgentPersona) ([]*store.AgentPersona, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.CompanyID != nil {
		where, args = append(where, "company_id = "+placeholder(len(args)+1)), append(args, *find.CompanyID)
	}
	if find.IsActive != nil {
		where, args = append(where, "is_active = "+placeholder(len(args)+1)), append(args, *find.IsActive)
	}

	query := `SELECT ` + personaColumns + ` FROM agent_persona WHERE ` + strings.Join(where, " AND ") + ` ORDER BY priority DESC, id ASC`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list agent personas")
	}
	defer rows.Close()

	list := make([]*store.AgentPersona, 0)
	for rows.Next() {
		p := &store.AgentPersona{}
		var keywords string
		if err := rows.Scan(&p.ID, &p.UID, &p.CompanyID, &p.Name, &p.Personality, &keywords, &p.Priority, &p.IsDefault, &p.IsActive, &p.CanSell, &p.CanNegotiate, &p.TransferToHuman, &p.VoiceMode, &p.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan agent persona")
		}
		p.TriggerKeywords = unmarshalKeywords(keywords)
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate agent personas")
	}
	return list, nil
}

func (d *DB) UpdateAgentPersona(ctx context.Context, update *store.UpdateAgentPersona) (*store.AgentPersona, error) {
	set, args := []string{}, []any{}
	if update.Name != nil {
		set, args = append(set, "name = "+placeholder(len(args)+1)), append(args, *update.Name)
	}
	if update.Personality != nil {
		set, args = append(set, "personality = "+placeholder(len(args)+1)), append(args, *update.Personality)
	}
	if update.TriggerKeywords != nil {
		keywords, err := marshalKeywords(update.TriggerKeywords)
		if err != nil {
			return nil, err
		}
		set, args = append(set, "trigger_keywords = "+placeholder(len(args)+1)), append(args, keywords)
	}
	if update.Priority != nil {
		set, args = append(set, "priority = "+placeholder(len(args)+1)), append(args, *update.Priority)
	}
	if update.IsDefault != nil {
		set, args = append(set, "is_default = "+placeholder(len(args)+1)), append(args, *update.IsDefault)
	}
	if update.IsActive != nil {
		set, args = append(set, "is_active = "+placeholder(len(args)+1)), append(args, *update.IsActive)
	}
	if len(set) == 0 {
		return nil, errors.New("no fields to update")
	}

	args = append(args, update.ID)
	stmt := `UPDATE agent_persona SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args)) + ` RETURNING ` + personaColumns
	p := &store.AgentPersona{}
	var keywords string
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&p.ID, &p.UID, &p.CompanyID, &p.Name, &p.Personality, &keywords, &p.Priority, &p.IsDefault, &p.IsActive, &p.CanSell, &p.CanNegotiate, &p.TransferToHuman, &p.VoiceMode, &p.CreatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to update agent persona")
	}
	p.TriggerKeywords = unmarshalKeywords(keywords)
	return p, nil
}
