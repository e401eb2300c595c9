package postgres

import (
	"context"
	"database/sql"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/calyptra/memtide/store"
)

// ListChatLogs returns one page of conversation-log rows.
//
// The composite (created_ts, id) cursor keeps pagination correct when rows
// share a timestamp: the cursor predicate is a strict tuple comparison, and
// the ORDER BY matches it exactly.
func (d *DB) ListChatLogs(ctx context.Context, find *store.FindChatLog) ([]*store.ChatLog, error) {
	where, args := []string{"deleted_ts IS NULL"}, []any{}

	if find.CreatedTsAfter > 0 {
		where, args = append(where, "created_ts >= "+placeholder(len(args)+1)), append(args, find.CreatedTsAfter)
	}
	if find.CreatedTsBefore > 0 {
		where, args = append(where, "created_ts < "+placeholder(len(args)+1)), append(args, find.CreatedTsBefore)
	}
	if find.PersonalityID != nil {
		where, args = append(where, "personality_id = "+placeholder(len(args)+1)), append(args, *find.PersonalityID)
	}
	if find.HasCursor() {
		cursor := "(created_ts > " + placeholder(len(args)+1) +
			" OR (created_ts = " + placeholder(len(args)+1) +
			" AND id > " + placeholder(len(args)+2) + "))"
		where, args = append(where, cursor), append(args, find.AfterCreatedTs, find.AfterID)
	}

	query := `
		SELECT id, channel_id, personality_id, persona_id, guild_id, role, content, message_ids, created_ts
		FROM chat_log
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts ASC, id ASC`
	if find.Limit > 0 {
		query += " LIMIT " + placeholder(len(args)+1)
		args = append(args, find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list chat logs")
	}
	defer rows.Close()

	list := []*store.ChatLog{}
	for rows.Next() {
		var record store.ChatLog
		var guildID sql.NullString
		if err := rows.Scan(
			&record.ID,
			&record.ChannelID,
			&record.PersonalityID,
			&record.PersonaID,
			&guildID,
			&record.Role,
			&record.Content,
			pq.Array(&record.MessageIDs),
			&record.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan chat log")
		}
		record.GuildID = guildID.String
		if err := record.Validate(); err != nil {
			return nil, errors.Wrap(err, "invalid chat log row")
		}
		list = append(list, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}
