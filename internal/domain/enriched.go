package domain

import (
	"strings"
	"time"
)

// SmartTags groups the tag categories produced by the tagging collaborator.
// Categories map to explicit fields so a malformed provider response fails
// at the boundary instead of leaking an untyped shape inward.
type SmartTags struct {
	Genres         []string `json:"genres"`
	Themes         []string `json:"themes"`
	Mood           []string `json:"mood"`
	TargetAudience []string `json:"target_audience"`
	Style          []string `json:"style"`
}

// DefaultSmartTags is the fail-open substitute when tagging is degraded.
// Missing tags only reduce search relevance, never correctness.
func DefaultSmartTags() SmartTags {
	return SmartTags{
		Genres:         []string{"unknown"},
		Themes:         []string{},
		Mood:           []string{},
		TargetAudience: []string{},
		Style:          []string{},
	}
}

// All returns every tag value across categories.
func (t SmartTags) All() []string {
	out := make([]string, 0, len(t.Genres)+len(t.Themes)+len(t.Mood)+len(t.TargetAudience)+len(t.Style))
	for _, group := range [][]string{t.Genres, t.Themes, t.Mood, t.TargetAudience, t.Style} {
		out = append(out, group...)
	}
	return out
}

// EnrichedContent is a media asset augmented with generated tags, an
// embedding, and the catalog identity captured at match time. Persisted by
// the vector index; read-mostly thereafter.
type EnrichedContent struct {
	MediaAsset

	// Catalog identity, present when the asset was reconciled with a
	// catalog entry before enrichment.
	Title    string `json:"title,omitempty"`
	Creator  string `json:"creator,omitempty"`
	Genre    string `json:"genre,omitempty"`
	Theme    string `json:"theme,omitempty"`
	Synopsis string `json:"synopsis,omitempty"`

	Embedding []float32 `json:"embedding"`
	SmartTags SmartTags `json:"smart_tags"`

	// SearchText backs the lexical fallback index.
	SearchText string `json:"search_text"`

	EnrichedAt     time.Time `json:"enriched_at"`
	EmbeddingModel string    `json:"embedding_model"`
	EmbeddingDims  int       `json:"embedding_dims"`
}

// DisplayTitle returns the catalog title when present, the raw filename
// otherwise.
func (e *EnrichedContent) DisplayTitle() string {
	if e.Title != "" {
		return e.Title
	}
	return e.Name
}

// BuildSearchText concatenates the asset name and all tag values, lowercased.
func BuildSearchText(name string, tags SmartTags) string {
	parts := append([]string{name}, tags.All()...)
	return strings.ToLower(strings.Join(parts, " "))
}
