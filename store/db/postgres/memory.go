package postgres

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/calyptra/memtide/store"
)

// InsertMemory inserts a memory record keyed on its deterministic id.
// ON CONFLICT DO NOTHING makes re-insertion a no-op, which is the correctness
// backstop for re-running a backfill and for races with the live writer.
func (d *DB) InsertMemory(ctx context.Context, create *store.Memory) (bool, error) {
	if err := create.Validate(); err != nil {
		return false, err
	}

	stmt := `
		INSERT INTO memory (id, persona_id, personality_id, content, embedding, channel_id, guild_id, message_ids, created_ts, inserted_ts)
		VALUES (` + placeholders(10) + `)
		ON CONFLICT (id) DO NOTHING`

	var guildID sql.NullString
	if create.GuildID != "" {
		guildID = sql.NullString{String: create.GuildID, Valid: true}
	}

	result, err := d.db.ExecContext(ctx, stmt,
		create.ID,
		create.PersonaID,
		create.PersonalityID,
		create.Content,
		pgvector.NewVector(create.Embedding),
		create.ChannelID,
		guildID,
		pq.Array(create.MessageIDs),
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
// prefix) and keeps only groups created inside the retry window. Member ids
// come back newest first so the head of each group is the canonical record.
func (d *DB) FindDuplicateMemoryGroups(ctx context.Context, find *store.FindDuplicateMemoryGroups) ([]*store.DuplicateMemoryGroup, error) {
	query := `
		SELECT
			persona_id, personality_id,
			split_part(content, ` + placeholder(1) + `, 1) AS prefix,
			COUNT(*) AS cnt,
			MIN(created_ts), MAX(created_ts),
			ARRAY_AGG(id ORDER BY created_ts DESC, id DESC)
		FROM memory
		GROUP BY persona_id, personality_id, prefix
		HAVING COUNT(*) > 1 AND MAX(created_ts) - MIN(created_ts) < ` + placeholder(2) + `
		ORDER BY cnt DESC, prefix ASC
		LIMIT ` + placeholder(3)

	windowSeconds := int64(find.Window.Seconds())
	rows, err := d.db.QueryContext(ctx, query, find.PrefixDelimiter, windowSeconds, find.Limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find duplicate memory groups")
	}
	defer rows.Close()

	groups := []*store.DuplicateMemoryGroup{}
	for rows.Next() {
		var group store.DuplicateMemoryGroup
		if err := rows.Scan(
			&group.PersonaID,
			&group.PersonalityID,
			&group.ContentPrefix,
			&group.Count,
			&group.FirstCreatedTs,
			&group.LastCreatedTs,
			pq.Array(&group.IDs),
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan duplicate memory group")
		}
		groups = append(groups, &group)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return groups, nil
}

// DeleteMemories deletes one batch of memory records by id. Ids already gone
// simply do not count toward the result.
func (d *DB) DeleteMemories(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	stmt := `DELETE FROM memory WHERE id = ANY(` + placeholder(1) + `)`
	result, err := d.db.ExecContext(ctx, stmt, pq.Array(ids))
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete memories")
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to read delete result")
	}
	return deleted, nil
}
