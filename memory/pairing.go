package memory

import (
	"github.com/calyptra/memtide/store"
)

// Exchange is one reconstructed user→assistant turn. Exchanges are ephemeral:
// they exist only between pairing and deduplication, never persisted directly.
type Exchange struct {
	ChannelID           string
	PersonalityID       string
	PersonaID           string
	GuildID             string
	UserContent         string
	AssistantContent    string
	UserMessageIDs      []string
	AssistantMessageIDs []string
	CreatedTs           int64 // assistant turn's timestamp
}

// PairExchanges reconstructs logical exchanges from a flat log already sorted
// by (scope, created_ts, id).
//
// The scan looks at adjacent records: a user turn immediately followed by an
// assistant turn in the same scope forms an exchange and consumes both rows.
// Any other adjacency advances by a single row without consuming it, so one
// orphaned record never poisons the rest of the scan; the pairer resyncs on
// the next valid user→assistant adjacency.
func PairExchanges(records []*store.ChatLog) []*Exchange {
	exchanges := []*Exchange{}
	for i := 0; i+1 < len(records); {
		cur, next := records[i], records[i+1]
		if cur.Role != store.RoleUser || next.Role != store.RoleAssistant || !cur.SameScope(next) {
			i++
			continue
		}
		exchanges = append(exchanges, &Exchange{
			ChannelID:     cur.ChannelID,
			PersonalityID: cur.PersonalityID,
			PersonaID:     cur.PersonaID,
			// Guild id comes from the user turn.
			GuildID:             cur.GuildID,
			UserContent:         cur.Content,
			AssistantContent:    next.Content,
			UserMessageIDs:      cur.MessageIDs,
			AssistantMessageIDs: next.MessageIDs,
			CreatedTs:           next.CreatedTs,
		})
		i += 2
	}
	return exchanges
}
