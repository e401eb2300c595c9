package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/calyptra/memtide/store"
)

// fakeDriver is an in-memory store.Driver for engine tests. Query semantics
// mirror the SQL drivers: cursor pagination over logs, insert-or-ignore
// keyed on id, honest duplicate aggregation, and batch deletes that only
// count rows actually present.
type fakeDriver struct {
	logs     []*store.ChatLog
	memories map[string]*store.Memory

	insertErrIDs map[string]bool // ids whose insert fails

	listCalls     int
	deleteBatches [][]string
}

func newFakeDriver(logs ...*store.ChatLog) *fakeDriver {
	return &fakeDriver{
		logs:     logs,
		memories: map[string]*store.Memory{},
	}
}

func (f *fakeDriver) ListChatLogs(_ context.Context, find *store.FindChatLog) ([]*store.ChatLog, error) {
	f.listCalls++

	matched := []*store.ChatLog{}
	for _, record := range f.logs {
		if record.DeletedTs != nil {
			continue
		}
		if find.CreatedTsAfter > 0 && record.CreatedTs < find.CreatedTsAfter {
			continue
		}
		if find.CreatedTsBefore > 0 && record.CreatedTs >= find.CreatedTsBefore {
			continue
		}
		if find.PersonalityID != nil && record.PersonalityID != *find.PersonalityID {
			continue
		}
		if find.HasCursor() {
			after := record.CreatedTs > find.AfterCreatedTs ||
				(record.CreatedTs == find.AfterCreatedTs && record.ID > find.AfterID)
			if !after {
				continue
			}
		}
		matched = append(matched, record)
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedTs != matched[j].CreatedTs {
			return matched[i].CreatedTs < matched[j].CreatedTs
		}
		return matched[i].ID < matched[j].ID
	})

	if find.Limit > 0 && len(matched) > find.Limit {
		matched = matched[:find.Limit]
	}
	return matched, nil
}

func (f *fakeDriver) InsertMemory(_ context.Context, create *store.Memory) (bool, error) {
	if f.insertErrIDs[create.ID] {
		return false, errors.New("simulated insert failure")
	}
	if err := create.Validate(); err != nil {
		return false, err
	}
	if _, ok := f.memories[create.ID]; ok {
		return false, nil
	}
	f.memories[create.ID] = create
	return true, nil
}

func (f *fakeDriver) FindDuplicateMemoryGroups(_ context.Context, find *store.FindDuplicateMemoryGroups) ([]*store.DuplicateMemoryGroup, error) {
	type groupKey struct {
		persona, personality, prefix string
	}
	members := map[groupKey][]*store.Memory{}
	for _, m := range f.memories {
		prefix := m.Content
		if idx := strings.Index(m.Content, find.PrefixDelimiter); idx >= 0 {
			prefix = m.Content[:idx]
		}
		key := groupKey{m.PersonaID, m.PersonalityID, prefix}
		members[key] = append(members[key], m)
	}

	windowSeconds := int64(find.Window.Seconds())
	groups := []*store.DuplicateMemoryGroup{}
	for key, records := range members {
		if len(records) < 2 {
			continue
		}
		sort.Slice(records, func(i, j int) bool {
			if records[i].CreatedTs != records[j].CreatedTs {
				return records[i].CreatedTs > records[j].CreatedTs
			}
			return records[i].ID > records[j].ID
		})
		first, last := records[len(records)-1].CreatedTs, records[0].CreatedTs
		if last-first >= windowSeconds {
			continue
		}
		ids := make([]string, 0, len(records))
		for _, m := range records {
			ids = append(ids, m.ID)
		}
		groups = append(groups, &store.DuplicateMemoryGroup{
			PersonaID:      key.persona,
			PersonalityID:  key.personality,
			ContentPrefix:  key.prefix,
			Count:          len(records),
			FirstCreatedTs: first,
			LastCreatedTs:  last,
			IDs:            ids,
		})
	}

	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return groups[i].ContentPrefix < groups[j].ContentPrefix
	})
	if find.Limit > 0 && len(groups) > find.Limit {
		groups = groups[:find.Limit]
	}
	return groups, nil
}

func (f *fakeDriver) DeleteMemories(_ context.Context, ids []string) (int64, error) {
	batch := make([]string, len(ids))
	copy(batch, ids)
	f.deleteBatches = append(f.deleteBatches, batch)

	var deleted int64
	for _, id := range ids {
		if _, ok := f.memories[id]; ok {
			delete(f.memories, id)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeDriver) Ping(context.Context) error { return nil }
func (f *fakeDriver) Close() error               { return nil }

// fakeEmbedder returns a tiny deterministic vector per text and can be told
// to fail specific contents.
type fakeEmbedder struct {
	failContents map[string]bool
	initErr      error
	embedCalls   int
}

func (e *fakeEmbedder) Init(context.Context) error { return e.initErr }

func (e *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.embedCalls++
	if e.failContents[text] {
		return nil, errors.New("simulated embedding failure")
	}
	return []float32{float32(len(text)), 0.5, 1}, nil
}

func (e *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vector, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, vector)
	}
	return vectors, nil
}

func (e *fakeEmbedder) Dimensions() int { return 3 }
func (e *fakeEmbedder) Close() error    { return nil }
