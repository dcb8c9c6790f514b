package vecindex

// Flat is an exact brute-force index. It scans every entry on each query,
// which is the reference behaviour the approximate indexes are measured
// against and a perfectly good choice for small corpora.
type Flat struct {
	entries []Entry
}

var _ Index = (*Flat)(nil)

// NewFlat builds a flat index over the given entries.
// The entries slice is retained; callers must not mutate it afterwards.
func NewFlat(entries []Entry) *Flat {
	return &Flat{entries: entries}
}

// Len returns the number of entries in the index.
func (f *Flat) Len() int { return len(f.entries) }

// Search scans all entries and returns candidates by descending similarity.
func (f *Flat) Search(query []float32, limit int) []Candidate {
	candidates := make([]Candidate, 0, len(f.entries))
	for _, e := range f.entries {
		candidates = append(candidates, Candidate{
			ID:         e.ID,
			Similarity: CosineSimilarity(query, e.Vector),
		})
	}
	return sortCandidates(candidates, limit)
}
