// Package vecmath holds the similarity arithmetic shared by the brute-force
// vector stores.
package vecmath

import (
	"math"
	"sort"
)

// Norm returns the Euclidean length of v.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Cosine returns the cosine similarity of a and b given their norms.
// Zero vectors have similarity 0. Callers ensure equal lengths.
func Cosine(a, b []float32, normA, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (normA * normB)
}

// Relevance clamps a cosine similarity into [0,1].
func Relevance(sim float64) float64 {
	switch {
	case math.IsNaN(sim) || sim < 0:
		return 0
	case sim > 1:
		return 1
	default:
		return sim
	}
}

// Scored is a candidate with its similarity and insertion sequence.
type Scored struct {
	ID         string
	Similarity float64
	Seq        uint64
}

// TopK sorts candidates by similarity descending, then insertion sequence
// ascending, and returns at most k of them.
func TopK(candidates []Scored, k int) []Scored {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Similarity != candidates[j].Similarity {
			return candidates[i].Similarity > candidates[j].Similarity
		}
		return candidates[i].Seq < candidates[j].Seq
	})
	if k < len(candidates) {
		candidates = candidates[:k]
	}
	return candidates
}
