package enrich

import (
	"context"

	"github.com/bitaca/mediadex/internal/domain"
)

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Tagger generates categorized tags for a title.
type Tagger interface {
	Tag(ctx context.Context, title, description string) (domain.SmartTags, error)
}

// Indexer persists enriched records into the vector index.
type Indexer interface {
	UpsertBatch(ctx context.Context, contents []domain.EnrichedContent) error
}
