package store

import (
	"time"

	"github.com/pkg/errors"
)

// Memory is the canonical, content-addressed unit of long-term memory.
//
// The id is a pure function of (persona id, personality id, content): two
// records with the same id are the same logical memory by construction, no
// matter when or how many times they were derived. Records are created here
// or by the live serving path, never mutated, and deleted only by the
// duplicate-cleanup pipeline.
type Memory struct {
	ID            string
	PersonaID     string
	PersonalityID string
	Content       string
	Embedding     []float32
	ChannelID     string
	GuildID       string
	MessageIDs    []string
	CreatedTs     int64 // preserved from the originating exchange
	InsertedTs    int64
}

// Validate checks required fields before insertion.
func (m *Memory) Validate() error {
	if m.ID == "" {
		return errors.New("memory missing id")
	}
	if m.PersonaID == "" || m.PersonalityID == "" {
		return errors.Errorf("memory %s missing persona or personality id", m.ID)
	}
	if m.Content == "" {
		return errors.Errorf("memory %s has empty content", m.ID)
	}
	if len(m.Embedding) == 0 {
		return errors.Errorf("memory %s has empty embedding", m.ID)
	}
	return nil
}

// FindDuplicateMemoryGroups is the find condition for the duplicate-detection
// aggregation.
type FindDuplicateMemoryGroups struct {
	// PrefixDelimiter terminates the grouped content prefix (the user-turn
	// portion of the canonical content). Content without the delimiter is
	// grouped on its full text.
	PrefixDelimiter string

	// Window is the maximum created_ts spread inside one group. Groups wider
	// than this are legitimate repeats, not a retry storm.
	Window time.Duration

	// Limit caps the number of groups returned.
	Limit int
}

// DuplicateMemoryGroup is one set of memory records that share scope and
// content prefix inside the retry window. Member ids are ordered newest
// first; the newest record is canonical and kept.
type DuplicateMemoryGroup struct {
	PersonaID      string
	PersonalityID  string
	ContentPrefix  string
	Count          int
	FirstCreatedTs int64
	LastCreatedTs  int64
	IDs            []string // ordered by created_ts descending
}

// IDsToDelete returns every member id except the canonical (newest) one.
func (g *DuplicateMemoryGroup) IDsToDelete() []string {
	if len(g.IDs) <= 1 {
		return nil
	}
	return g.IDs[1:]
}
