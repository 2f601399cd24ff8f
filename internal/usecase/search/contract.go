package search

import (
	"context"

	"github.com/bitaca/mediadex/internal/domain"
	"github.com/bitaca/mediadex/internal/repository/index"
)

// Index is the retrieval contract against the vector index.
type Index interface {
	Query(ctx context.Context, vector []float32, k int, filters index.Filters) ([]index.Hit, error)
	RangePrefix(ctx context.Context, prefix string, limit int, filters index.Filters) ([]index.Hit, error)
	Related(ctx context.Context, assetID string, k int) ([]index.Hit, error)
	All(ctx context.Context, limit int) ([]domain.EnrichedContent, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// History records executed searches and reports recent and popular ones.
type History interface {
	Record(query string, resultCount int)
	Recent(limit int) []domain.SearchHistoryEntry
	Popular(limit int) []domain.SearchHistoryEntry
}
