package store

import (
	"github.com/pkg/errors"
)

// Role is the speaker of one conversation-log turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ChatLog is one turn in the append-only conversation log. Rows are written
// by the live serving path and never mutated; this tool only reads them.
type ChatLog struct {
	ID            string
	ChannelID     string
	PersonalityID string
	PersonaID     string
	GuildID       string // empty when the channel has no guild (e.g. DMs)
	Role          Role
	Content       string
	MessageIDs    []string // platform message ids that produced this turn
	CreatedTs     int64
	DeletedTs     *int64 // soft-delete marker; deleted rows are excluded from every read
}

// Validate checks the required fields of a scanned row. The log is externally
// owned, so a malformed row is a data problem worth failing loudly on.
func (c *ChatLog) Validate() error {
	if c.ID == "" {
		return errors.New("chat log row missing id")
	}
	if c.ChannelID == "" {
		return errors.Errorf("chat log %s missing channel id", c.ID)
	}
	if c.PersonalityID == "" {
		return errors.Errorf("chat log %s missing personality id", c.ID)
	}
	if c.PersonaID == "" {
		return errors.Errorf("chat log %s missing persona id", c.ID)
	}
	if c.Role == "" {
		return errors.Errorf("chat log %s missing role", c.ID)
	}
	if c.CreatedTs <= 0 {
		return errors.Errorf("chat log %s has invalid created_ts %d", c.ID, c.CreatedTs)
	}
	return nil
}

// ScopeKey returns a sortable key identifying the conversation scope this
// turn belongs to. Exchanges never span scope boundaries.
func (c *ChatLog) ScopeKey() string {
	return c.ChannelID + "\x00" + c.PersonalityID + "\x00" + c.PersonaID
}

// SameScope reports whether two turns belong to the same conversation scope.
func (c *ChatLog) SameScope(other *ChatLog) bool {
	return c.ChannelID == other.ChannelID &&
		c.PersonalityID == other.PersonalityID &&
		c.PersonaID == other.PersonaID
}

// FindChatLog is the find condition for conversation-log pages.
//
// Pagination uses a composite (created_ts, id) cursor: a page contains rows
// strictly after (AfterCreatedTs, AfterID) in ascending (created_ts, id)
// order. This stays correct when concurrent inserts share a timestamp, which
// single-column cursors do not.
type FindChatLog struct {
	// Time range: created_ts >= CreatedTsAfter AND created_ts < CreatedTsBefore.
	CreatedTsAfter  int64
	CreatedTsBefore int64

	// Optional scope filter.
	PersonalityID *string

	// Composite cursor; zero values mean "first page".
	AfterCreatedTs int64
	AfterID        string

	Limit int
}

// HasCursor reports whether this find continues a previous page.
func (f *FindChatLog) HasCursor() bool {
	return f.AfterID != ""
}
