package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/calyptra/memtide/store"
)

// ListChatLogs returns one page of conversation-log rows. See the Postgres
// driver for the cursor semantics; SQLite stores message ids as JSON text.
func (d *DB) ListChatLogs(ctx context.Context, find *store.FindChatLog) ([]*store.ChatLog, error) {
	where, args := []string{"deleted_ts IS NULL"}, []any{}

	if find.CreatedTsAfter > 0 {
		where, args = append(where, "created_ts >= ?"), append(args, find.CreatedTsAfter)
	}
	if find.CreatedTsBefore > 0 {
		where, args = append(where, "created_ts < ?"), append(args, find.CreatedTsBefore)
	}
	if find.PersonalityID != nil {
		where, args = append(where, "personality_id = ?"), append(args, *find.PersonalityID)
	}
	if find.HasCursor() {
		where = append(where, "(created_ts > ? OR (created_ts = ? AND id > ?))")
		args = append(args, find.AfterCreatedTs, find.AfterCreatedTs, find.AfterID)
	}

	query := `
		SELECT id, channel_id, personality_id, persona_id, guild_id, role, content, message_ids, created_ts
		FROM chat_log
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts ASC, id ASC`
	if find.Limit > 0 {
		query += " LIMIT ?"
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
		var guildID, messageIDs sql.NullString
		if err := rows.Scan(
			&record.ID,
			&record.ChannelID,
			&record.PersonalityID,
			&record.PersonaID,
			&guildID,
			&record.Role,
			&record.Content,
			&messageIDs,
			&record.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan chat log")
		}
		record.GuildID = guildID.String
		if messageIDs.String != "" {
			if err := json.Unmarshal([]byte(messageIDs.String), &record.MessageIDs); err != nil {
				return nil, errors.Wrapf(err, "failed to decode message ids for chat log %s", record.ID)
			}
		}
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
