// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package crawl

// SeenSet is the dedup gate for one crawl run: a grow-only id set seeded
// from the store before the run starts. Seeding is what makes repeated
// crawls against the same store idempotent.
type SeenSet struct {
	ids map[string]struct{}
}

// NewSeenSet builds a SeenSet holding the given seed ids.
func NewSeenSet(seed []string) *SeenSet {
	s := &SeenSet{ids: make(map[string]struct{}, len(seed))}
	for _, id := range seed {
		s.ids[id] = struct{}{}
	}
	return s
}

// Accept records id and reports whether it was unseen. Once an id is
// accepted (or seeded), every later call for it returns false.
func (s *SeenSet) Accept(id string) bool {
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Len returns the number of known ids, seed included.
func (s *SeenSet) Len() int { return len(s.ids) }
