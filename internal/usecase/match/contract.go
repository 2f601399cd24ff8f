package match

import (
	"context"

	"github.com/bitaca/mediadex/internal/domain"
)

// AssetSearcher queries the raw asset catalog for one drive partition.
type AssetSearcher interface {
	Search(ctx context.Context, query string, driveID int) ([]domain.MediaAsset, error)
}

// MetadataCatalog reads the rich metadata catalog.
type MetadataCatalog interface {
	Search(ctx context.Context, query string, mediaType domain.MediaType) ([]domain.CatalogEntry, error)
	DiscoverByGenre(ctx context.Context, mediaType domain.MediaType, genre string, page int) ([]domain.CatalogEntry, error)
}

// Cache retains accepted matches per (catalog entry, drive partition).
type Cache interface {
	Get(externalID, driveID int) (domain.MatchResult, bool)
	Put(externalID, driveID int, match domain.MatchResult)
	Clear()
}
