package memory

// Candidate is one unique memory record candidate: a deduplicated exchange
// together with its canonical content and deterministic id.
type Candidate struct {
	ID       string
	Content  string
	Exchange *Exchange
}

// CandidateSet is a set of candidates keyed by deterministic id, preserving
// first-seen order so previews and insertion are deterministic.
type CandidateSet struct {
	order []string
	byID  map[string]*Candidate
}

// DedupeExchanges collapses logically identical exchanges into one candidate
// per deterministic id. The first-seen exchange wins; which one is irrelevant
// because two exchanges mapping to the same id are content-identical by
// construction.
//
// This is a local pre-filter only. Collisions with records already persisted
// by an earlier run or by the live writer are resolved by the idempotent
// insert, not here.
func DedupeExchanges(exchanges []*Exchange) *CandidateSet {
	set := &CandidateSet{byID: make(map[string]*Candidate, len(exchanges))}
	for _, ex := range exchanges {
		content := CanonicalContent(ex.UserContent, ex.AssistantContent)
		id := DeterministicMemoryID(ex.PersonaID, ex.PersonalityID, content)
		if _, ok := set.byID[id]; ok {
			continue
		}
		set.byID[id] = &Candidate{ID: id, Content: content, Exchange: ex}
		set.order = append(set.order, id)
	}
	return set
}

// Len returns the number of unique candidates.
func (s *CandidateSet) Len() int {
	return len(s.order)
}

// Get returns the candidate for an id, or nil.
func (s *CandidateSet) Get(id string) *Candidate {
	return s.byID[id]
}

// Candidates returns all candidates in first-seen order.
func (s *CandidateSet) Candidates() []*Candidate {
	list := make([]*Candidate, 0, len(s.order))
	for _, id := range s.order {
		list = append(list, s.byID[id])
	}
	return list
}
