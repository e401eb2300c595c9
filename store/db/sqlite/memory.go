package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/calyptra/memtide/store"
)

// InsertMemory inserts a memory record keyed on its deterministic id.
// INSERT OR IGNORE mirrors the Postgres ON CONFLICT DO NOTHING semantics.
func (d *DB) InsertMemory(ctx context.Context, create *store.Memory) (bool, error) {
	if err := create.Validate(); err != nil {
		return false, err
	}

	embedding, err := json.Marshal(create.Embedding)
	if err != nil {
		return false, errors.Wrap(err, "failed to encode embedding")
	}
	messageIDs, err := json.Marshal(create.MessageIDs)
	if err != nil {
		return false, errors.Wrap(err, "failed to encode message ids")
	}

	var guildID sql.NullString
	if create.GuildID != "" {
		guildID = sql.NullString{String: create.GuildID, Valid: true}
	}

	stmt := `
		INSERT OR IGNORE INTO memory (id, persona_id, personality_id, content, embedding, channel_id, guild_id, message_ids, created_ts, inserted_ts)
		VALUES (` + placeholders(10) + `)`

	result, err := d.db.ExecContext(ctx, stmt,
		create.ID,
		create.PersonaID,
		create.PersonalityID,
		create.Content,
		embedding,
		create.ChannelID,
		guildID,
		messageIDs,
		create.CreatedTs,
		create.InsertedTs,
	)
	if err != nil {
		return false, errors.Wrap(err, "failed to insert memory")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read insert result")
	}
	return rows > 0, nil
}

// FindDuplicateMemoryGroups groups records by (persona, personality, content
// prefix) inside the retry window. Ids are aggregated newest first via an
// ordered group_concat, so the head of each group is the canonical record.
func (d *DB) FindDuplicateMemoryGroups(ctx context.Context, find *store.FindDuplicateMemoryGroups) ([]*store.DuplicateMemoryGroup, error) {
	query := `
		SELECT
			persona_id, personality_id,
			CASE WHEN instr(content, ?) > 0
				THEN substr(content, 1, instr(content, ?) - 1)
				ELSE content
			END AS prefix,
			COUNT(*) AS cnt,
			MIN(created_ts), MAX(created_ts),
			group_concat(id, ',' ORDER BY created_ts DESC, id DESC)
		FROM memory
		GROUP BY persona_id, personality_id, prefix
		HAVING COUNT(*) > 1 AND MAX(created_ts) - MIN(created_ts) < ?
		ORDER BY cnt DESC, prefix ASC
		LIMIT ?`

	windowSeconds := int64(find.Window.Seconds())
	rows, err := d.db.QueryContext(ctx, query, find.PrefixDelimiter, find.PrefixDelimiter, windowSeconds, find.Limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find duplicate memory groups")
	}
	defer rows.Close()

	groups := []*store.DuplicateMemoryGroup{}
	for rows.Next() {
		var group store.DuplicateMemoryGroup
		var ids string
		if err := rows.Scan(
			&group.PersonaID,
			&group.PersonalityID,
			&group.ContentPrefix,
			&group.Count,
			&group.FirstCreatedTs,
			&group.LastCreatedTs,
			&ids,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan duplicate memory group")
		}
		group.IDs = strings.Split(ids, ",")
		groups = append(groups, &group)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return groups, nil
}

// DeleteMemories deletes one batch of memory records by id.
func (d *DB) DeleteMemories(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}

	stmt := `DELETE FROM memory WHERE id IN (` + placeholders(len(ids)) + `)`
	result, err := d.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete memories")
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to read delete result")
	}
	return deleted, nil
}
