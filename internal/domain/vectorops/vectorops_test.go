package vectorops

import (
	"errors"
	"math"
	"testing"

	"github.com/bitaca/mediadex/internal/domain"
)

func TestCosine_SelfSimilarity(t *testing.T) {
	v := []float32{0.2, -0.5, 0.9, 1.3}
	got, err := Cosine(v, v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(got-1.0) > 1e-9 {
		t.Errorf("Cosine(v, v) = %v, want 1.0", got)
	}
}

func TestCosine_Symmetry(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{-1, 0.5, 2}
	ab, err := Cosine(a, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ba, err := Cosine(b, a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(ab-ba) > 1e-12 {
		t.Errorf("Cosine not symmetric: %v vs %v", ab, ba)
	}
}

func TestCosine_DimensionMismatch(t *testing.T) {
	_, err := Cosine([]float32{1, 2}, []float32{1, 2, 3})
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Errorf("err = %v, want ErrDimensionMismatch", err)
	}
}

func TestCosine_ZeroVector(t *testing.T) {
	got, err := Cosine([]float32{0, 0}, []float32{1, 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0 {
		t.Errorf("Cosine with zero vector = %v, want 0", got)
	}
}

func makeContent(id string, embedding []float32) domain.EnrichedContent {
	return domain.EnrichedContent{
		MediaAsset: domain.MediaAsset{AssetID: id, Name: id},
		Embedding:  embedding,
	}
}

func TestRank_TopK(t *testing.T) {
	query := []float32{1, 0, 0}
	candidates := []domain.EnrichedContent{
		makeContent("far", []float32{0, 1, 0}),
		makeContent("near", []float32{1, 0.1, 0}),
		makeContent("mid", []float32{1, 1, 0}),
		makeContent("exact", []float32{2, 0, 0}),
	}

	ranked, err := Rank(query, candidates, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ranked) != 3 {
		t.Fatalf("len = %d, want 3", len(ranked))
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Score > ranked[i-1].Score {
			t.Errorf("scores not non-increasing: %v then %v", ranked[i-1].Score, ranked[i].Score)
		}
	}
	if ranked[0].Content.AssetID != "exact" {
		t.Errorf("top result = %s, want exact", ranked[0].Content.AssetID)
	}
}

func TestRank_FewerThanK(t *testing.T) {
	ranked, err := Rank([]float32{1, 0}, []domain.EnrichedContent{makeContent("only", []float32{1, 0})}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ranked) != 1 {
		t.Errorf("len = %d, want 1", len(ranked))
	}
}

func TestRank_StableTies(t *testing.T) {
	query := []float32{1, 0}
	candidates := []domain.EnrichedContent{
		makeContent("first", []float32{1, 0}),
		makeContent("second", []float32{2, 0}),
		makeContent("third", []float32{3, 0}),
	}
	ranked, err := Rank(query, candidates, -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, want := range []string{"first", "second", "third"} {
		if ranked[i].Content.AssetID != want {
			t.Errorf("position %d = %s, want %s (ties must keep input order)", i, ranked[i].Content.AssetID, want)
		}
	}
}

func TestRank_DimensionMismatch(t *testing.T) {
	_, err := Rank([]float32{1, 0}, []domain.EnrichedContent{makeContent("bad", []float32{1, 0, 0})}, 1)
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Errorf("err = %v, want ErrDimensionMismatch", err)
	}
}

func TestAverage(t *testing.T) {
	avg, err := Average([][]float32{{1, 3}, {3, 5}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if avg[0] != 2 || avg[1] != 4 {
		t.Errorf("Average = %v, want [2 4]", avg)
	}
}

func TestApproximateQuery_Deterministic(t *testing.T) {
	vectors := [][]float32{{1, 2, 3}, {3, 2, 1}}
	a, err := ApproximateQuery("akira", vectors)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := ApproximateQuery("akira", vectors)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("approximation not deterministic at %d: %v vs %v", i, a[i], b[i])
		}
	}

	other, err := ApproximateQuery("totoro", vectors)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	same := true
	for i := range a {
		if a[i] != other[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different queries produced identical approximations")
	}
}
