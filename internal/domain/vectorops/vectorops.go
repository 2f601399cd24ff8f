// Package vectorops provides in-process vector similarity operations used
// when the persisted index cannot serve a query.
package vectorops

import (
	"fmt"
	"math"
	"sort"

	"github.com/bitaca/mediadex/internal/domain"
)

// Cosine returns the cosine similarity dot(a,b)/(‖a‖·‖b‖). Vectors of
// different lengths yield ErrDimensionMismatch; a zero vector yields 0.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("cosine: %d vs %d: %w", len(a), len(b), domain.ErrDimensionMismatch)
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// Ranked is one candidate with its similarity score.
type Ranked struct {
	Content domain.EnrichedContent
	Score   float64
}

// Rank scores candidates against query by cosine similarity and returns the
// top k in descending order. Ties keep input order (stable sort). A candidate
// of mismatched dimension fails the whole ranking: that is a data error, not
// a degraded result.
func Rank(query []float32, candidates []domain.EnrichedContent, k int) ([]Ranked, error) {
	ranked := make([]Ranked, 0, len(candidates))
	for i := range candidates {
		score, err := Cosine(query, candidates[i].Embedding)
		if err != nil {
			return nil, fmt.Errorf("rank candidate %s: %w", candidates[i].AssetID, err)
		}
		ranked = append(ranked, Ranked{Content: candidates[i], Score: score})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if k >= 0 && len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked, nil
}

// Average returns the component-wise mean of the given vectors. All vectors
// must share one dimension.
func Average(vectors [][]float32) ([]float32, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("average of no vectors")
	}
	dims := len(vectors[0])
	sum := make([]float64, dims)
	for _, v := range vectors {
		if len(v) != dims {
			return nil, fmt.Errorf("average: %d vs %d: %w", len(v), dims, domain.ErrDimensionMismatch)
		}
		for i := range v {
			sum[i] += float64(v[i])
		}
	}

	avg := make([]float32, dims)
	for i := range sum {
		avg[i] = float32(sum[i] / float64(len(vectors)))
	}
	return avg, nil
}

// ApproximateQuery derives a deterministic stand-in query vector when no
// embedding provider is configured: the average of the stored vectors
// perturbed by a hash of the query string.
func ApproximateQuery(query string, vectors [][]float32) ([]float32, error) {
	avg, err := Average(vectors)
	if err != nil {
		return nil, err
	}

	h := hashString(query)
	for i := range avg {
		avg[i] += float32(math.Sin(float64(h)+float64(i)) * 0.1)
	}
	return avg, nil
}

func hashString(s string) int32 {
	var h int32
	for _, c := range s {
		h = (h << 5) - h + c
	}
	return h
}
