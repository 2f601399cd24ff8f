package catalog

import (
	"context"

	"github.com/bitaca/mediadex/internal/domain"
	"github.com/bitaca/mediadex/internal/repository/index"
	"github.com/bitaca/mediadex/internal/repository/matchcache"
)

// Metadata reads the rich metadata catalog.
type Metadata interface {
	DiscoverByGenre(ctx context.Context, mediaType domain.MediaType, genre string, page int) ([]domain.CatalogEntry, error)
	Trending(ctx context.Context, window string) ([]domain.CatalogEntry, error)
}

// IndexStats reports corpus occupancy.
type IndexStats interface {
	Stats(ctx context.Context) (index.Stats, error)
}

// CacheStats reports match cache occupancy.
type CacheStats interface {
	Stats() matchcache.Stats
}

// HistoryStats reports search history occupancy.
type HistoryStats interface {
	Len() int
	Popular(limit int) []domain.SearchHistoryEntry
}
