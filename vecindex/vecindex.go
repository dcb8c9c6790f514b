package vecindex

import (
	"math"
	"slices"

	"github.com/chattyhq/ragstore/core"
)

// Entry is a vector registered in an index, keyed by the chunk it embeds.
type Entry struct {
	ID     core.ID
	Vector []float32
}

// Candidate is an index hit with its cosine similarity to the query.
type Candidate struct {
	ID         core.ID
	Similarity float32
}

// Index answers nearest-neighbour queries by cosine similarity.
// Implementations are immutable after construction and safe for concurrent use.
type Index interface {
	// Len returns the number of entries in the index.
	Len() int

	// Search returns candidates ordered by descending similarity.
	// A limit <= 0 returns every candidate the index considers.
	Search(query []float32, limit int) []Candidate
}

// CosineSimilarity returns the cosine of the angle between a and b:
// 1 for identical direction, 0 for orthogonal, negative for opposite.
// Vectors of different length are compared over their shared prefix.
// A zero-magnitude vector yields 0.
func CosineSimilarity(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// Normalize normalizes a vector to unit length.
// Returns a new vector. If the input is a zero vector, returns a zero vector.
func Normalize(v []float32) []float32 {
	if len(v) == 0 {
		return v
	}

	var magnitude float32
	for _, val := range v {
		magnitude += val * val
	}
	magnitude = float32(math.Sqrt(float64(magnitude)))

	// Can't normalize zero vector
	if magnitude == 0 {
		result := make([]float32, len(v))
		return result
	}

	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = val / magnitude
	}
	return result
}

// sortCandidates orders candidates by descending similarity with ascending
// ID as the tie-break, then truncates to limit when limit > 0.
func sortCandidates(candidates []Candidate, limit int) []Candidate {
	slices.SortFunc(candidates, func(a, b Candidate) int {
		if a.Similarity > b.Similarity {
			return -1
		}
		if a.Similarity < b.Similarity {
			return 1
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}
