package store

import (
	"context"

	"github.com/calyptra/memtide/internal/profile"
)

// Driver is the minimal datastore surface the engine depends on.
// The backfill and cleanup pipelines use exactly these four query shapes
// plus connection lifecycle; nothing here assumes a specific query language.
type Driver interface {
	// ListChatLogs returns one page of conversation-log rows matching find,
	// ordered ascending by (created_ts, id). Soft-deleted rows are excluded.
	ListChatLogs(ctx context.Context, find *FindChatLog) ([]*ChatLog, error)

	// InsertMemory inserts a memory record keyed on its deterministic id,
	// ignoring the insert if the id already exists. It reports whether a row
	// was actually written.
	InsertMemory(ctx context.Context, create *Memory) (bool, error)

	// FindDuplicateMemoryGroups runs the duplicate-detection aggregation and
	// returns groups of records sharing (persona, personality, content prefix)
	// whose created_ts spread fits inside find.Window.
	FindDuplicateMemoryGroups(ctx context.Context, find *FindDuplicateMemoryGroups) ([]*DuplicateMemoryGroup, error)

	// DeleteMemories deletes one batch of memory records by id and returns the
	// number of rows actually removed, which may be less than len(ids).
	DeleteMemories(ctx context.Context, ids []string) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.driver.Ping(ctx)
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) ListChatLogs(ctx context.Context, find *FindChatLog) ([]*ChatLog, error) {
	return s.driver.ListChatLogs(ctx, find)
}

func (s *Store) InsertMemory(ctx context.Context, create *Memory) (bool, error) {
	return s.driver.InsertMemory(ctx, create)
}

func (s *Store) FindDuplicateMemoryGroups(ctx context.Context, find *FindDuplicateMemoryGroups) ([]*DuplicateMemoryGroup, error) {
	return s.driver.FindDuplicateMemoryGroups(ctx, find)
}

func (s *Store) DeleteMemories(ctx context.Context, ids []string) (int64, error) {
	return s.driver.DeleteMemories(ctx, ids)
}
