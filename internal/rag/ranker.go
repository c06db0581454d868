package rag

import (
	"math"
	"sort"

	"github.com/Conversly/widget-engine/internal/core"
)

// DefaultTopK is how many chunks are fed to the prompt.
const DefaultTopK = 8

// ScoredChunk is a knowledge chunk with its similarity to the query.
type ScoredChunk struct {
	core.KnowledgeChunk
	Score float64
}

// CosineSimilarity computes dot(a,b)/(|a||b|) over the common prefix of the
// two vectors. A zero denominator yields 0, never NaN.
func CosineSimilarity(a []float64, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, aNorm, bNorm float64
	for i := 0; i < n; i++ {
		av, bv := a[i], float64(b[i])
		dot += av * bv
		aNorm += av * av
		bNorm += bv * bv
	}

	denom := math.Sqrt(aNorm) * math.Sqrt(bNorm)
	if denom == 0 || math.IsNaN(denom) {
		return 0
	}
	return dot / denom
}

// Rank scores every chunk against query and returns the best k, highest
// score first. Equal scores keep their original order.
func Rank(query []float64, chunks []core.KnowledgeChunk, k int) []ScoredChunk {
	if len(chunks) == 0 || k <= 0 {
		return nil
	}

	scored := make([]ScoredChunk, len(chunks))
	for i, ch := range chunks {
		scored[i] = ScoredChunk{KnowledgeChunk: ch, Score: CosineSimilarity(query, ch.Embedding)}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}
