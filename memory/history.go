package memory

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/calyptra/memtide/store"
)

// HistoryReader pages through the append-only conversation log for a time
// range. Pages are fetched with a composite (created_ts, id) cursor, which is
// the only strategy that stays complete under concurrent inserts sharing a
// timestamp.
type HistoryReader struct {
	store    *store.Store
	pageSize int
}

// NewHistoryReader creates a reader fetching pageSize rows per query.
func NewHistoryReader(s *store.Store, pageSize int) *HistoryReader {
	return &HistoryReader{store: s, pageSize: pageSize}
}

// ReadRange accumulates every non-deleted log row with
// fromTs <= created_ts < toTs, optionally filtered by personality.
//
// All pages are held in memory before pairing; callers covering very large
// time ranges should bound the range accordingly. That is a scaling limit,
// not a correctness one.
func (r *HistoryReader) ReadRange(ctx context.Context, personalityID *string, fromTs, toTs int64) ([]*store.ChatLog, error) {
	find := &store.FindChatLog{
		CreatedTsAfter:  fromTs,
		CreatedTsBefore: toTs,
		PersonalityID:   personalityID,
		Limit:           r.pageSize,
	}

	var all []*store.ChatLog
	for {
		page, err := r.store.ListChatLogs(ctx, find)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read history page")
		}
		all = append(all, page...)

		// A short page means the range is exhausted.
		if len(page) < r.pageSize {
			return all, nil
		}
		last := page[len(page)-1]
		find.AfterCreatedTs = last.CreatedTs
		find.AfterID = last.ID
	}
}

// SortForPairing re-sorts accumulated rows by (scope, created_ts, id).
// Pagination order is global time order; pairing needs rows grouped by
// conversation scope. The two orders must not be conflated.
func SortForPairing(records []*store.ChatLog) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if ak, bk := a.ScopeKey(), b.ScopeKey(); ak != bk {
			return ak < bk
		}
		if a.CreatedTs != b.CreatedTs {
			return a.CreatedTs < b.CreatedTs
		}
		return a.ID < b.ID
	})
}
