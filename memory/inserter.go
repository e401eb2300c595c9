package memory

import (
	"context"
	"log/slog"
	"time"

	"github.com/calyptra/memtide/ai"
	"github.com/calyptra/memtide/store"
)

// InsertOutcome classifies the result of processing one candidate. A skipped
// candidate (id already present) is an expected no-op, not an error case.
type InsertOutcome int

const (
	OutcomeInserted InsertOutcome = iota
	OutcomeSkipped
	OutcomeFailed
)

// InsertStats aggregates per-item outcomes for one insertion run.
type InsertStats struct {
	Total    int
	Inserted int
	Skipped  int
	Failed   int
}

// progressInterval is how often the inserter emits a progress log line.
const progressInterval = 100

// EmbeddingInserter embeds each unique candidate and writes it to the store
// with insert-or-ignore semantics.
type EmbeddingInserter struct {
	store    *store.Store
	embedder ai.EmbeddingService
}

// NewEmbeddingInserter creates an inserter. The embedder must already have
// been initialized; an uninitializable embedding service aborts the run
// before this point.
func NewEmbeddingInserter(s *store.Store, embedder ai.EmbeddingService) *EmbeddingInserter {
	return &EmbeddingInserter{store: s, embedder: embedder}
}

// InsertAll processes every candidate sequentially. One bad record is logged
// and counted, never aborting the run: a multi-hour backfill must survive
// individual embedding or insert failures, and re-running it afterwards is
// always safe because already-inserted ids land in the skipped count.
func (ei *EmbeddingInserter) InsertAll(ctx context.Context, set *CandidateSet) *InsertStats {
	candidates := set.Candidates()
	stats := &InsertStats{Total: len(candidates)}

	for i, candidate := range candidates {
		switch ei.insertOne(ctx, candidate) {
		case OutcomeInserted:
			stats.Inserted++
		case OutcomeSkipped:
			stats.Skipped++
		case OutcomeFailed:
			stats.Failed++
		}

		if done := i + 1; done%progressInterval == 0 || done == stats.Total {
			slog.Info("backfill progress",
				"done", done,
				"total", stats.Total,
				"percent", done*100/stats.Total,
			)
		}
	}

	return stats
}

func (ei *EmbeddingInserter) insertOne(ctx context.Context, candidate *Candidate) InsertOutcome {
	vector, err := ei.embedder.Embed(ctx, candidate.Content)
	if err != nil {
		slog.Warn("failed to embed candidate", "id", candidate.ID, "error", err)
		return OutcomeFailed
	}

	ex := candidate.Exchange
	messageIDs := make([]string, 0, len(ex.UserMessageIDs)+len(ex.AssistantMessageIDs))
	messageIDs = append(messageIDs, ex.UserMessageIDs...)
	messageIDs = append(messageIDs, ex.AssistantMessageIDs...)

	inserted, err := ei.store.InsertMemory(ctx, &store.Memory{
		ID:            candidate.ID,
		PersonaID:     ex.PersonaID,
		PersonalityID: ex.PersonalityID,
		Content:       candidate.Content,
		Embedding:     vector,
		ChannelID:     ex.ChannelID,
		GuildID:       ex.GuildID,
		MessageIDs:    messageIDs,
		CreatedTs:     ex.CreatedTs,
		InsertedTs:    time.Now().Unix(),
	})
	if err != nil {
		slog.Warn("failed to insert memory", "id", candidate.ID, "error", err)
		return OutcomeFailed
	}
	if !inserted {
		return OutcomeSkipped
	}
	return OutcomeInserted
}
