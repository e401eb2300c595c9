// Package memory implements the long-term memory recovery and deduplication
// engine: an offline backfill pipeline that reconstructs content-addressed
// memory records from the append-only conversation log, and a cleanup
// pipeline that collapses near-duplicate records left behind by retry storms.
package memory

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// Canonical-content markers. The exact format of CanonicalContent is a
// cross-system contract with the live memory writer: if the two formats ever
// diverge, backfilled records stop colliding with live-written records for
// the same logical exchange. TestCanonicalContentFormat pins the format.
const (
	UserMarker      = "User"
	AssistantMarker = "Assistant"
)

// AssistantPrefixDelimiter separates the user-turn portion of canonical
// content from the assistant turn. The duplicate detector groups records on
// the content before this delimiter.
const AssistantPrefixDelimiter = "\n" + AssistantMarker + ":"

// memoryNamespaceSeed is the fixed application constant the id namespace is
// derived from. Changing it, the digest algorithm, or the name concatenation
// order orphans every previously computed id; bump the version suffix and
// migrate explicitly if that is ever needed.
const memoryNamespaceSeed = "memtide:memory:v1"

var memoryNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte(memoryNamespaceSeed))

// digestHexLen is the truncated content digest width. The digest only needs
// to be collision-resistant shortening, not a security boundary.
const digestHexLen = 16

// CanonicalContent builds the exact string that is both hashed for identity
// and stored as the memory record's content.
func CanonicalContent(userContent, assistantContent string) string {
	return UserMarker + ": " + userContent + "\n" + AssistantMarker + ": " + assistantContent
}

// DeterministicMemoryID derives the content-addressed record id. It is a
// pure function of its inputs: the same (persona, personality, content)
// triple maps to the same UUID on every run and every process.
func DeterministicMemoryID(personaID, personalityID, content string) string {
	sum := sha256.Sum256([]byte(content))
	digest := hex.EncodeToString(sum[:])[:digestHexLen]
	name := personaID + ":" + personalityID + ":" + digest
	return uuid.NewSHA1(memoryNamespace, []byte(name)).String()
}
