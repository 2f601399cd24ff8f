// Package catalog orchestrates metadata discovery and service statistics.
package catalog

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bitaca/mediadex/internal/domain"
	"github.com/bitaca/mediadex/internal/repository/index"
	"github.com/bitaca/mediadex/internal/repository/matchcache"
)

// Stats aggregates service-wide counters for the stats endpoint.
type Stats struct {
	Index      index.Stats                 `json:"index"`
	MatchCache matchcache.Stats            `json:"match_cache"`
	History    int                         `json:"history"`
	Popular    []domain.SearchHistoryEntry `json:"popular_searches"`
}

// Service is the discovery orchestrator.
type Service struct {
	metadata Metadata
	idx      IndexStats
	cache    CacheStats
	history  HistoryStats
	logger   *zap.Logger
}

// New creates the orchestrator.
func New(metadata Metadata, idx IndexStats, cache CacheStats, history HistoryStats, logger *zap.Logger) *Service {
	return &Service{
		metadata: metadata,
		idx:      idx,
		cache:    cache,
		history:  history,
		logger:   logger,
	}
}

// Trending returns what is trending in the metadata catalog.
func (s *Service) Trending(ctx context.Context, window string) ([]domain.CatalogEntry, error) {
	entries, err := s.metadata.Trending(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("trending: %w", err)
	}
	return entries, nil
}

// Discover pulls catalog entries for each genre and media type, deduplicated
// by external ID across genres. A single failing genre degrades the result
// rather than failing it.
func (s *Service) Discover(ctx context.Context, genres []string, perGenre int) ([]domain.CatalogEntry, error) {
	if perGenre <= 0 {
		perGenre = 10
	}

	var combined []domain.CatalogEntry
	for _, genre := range genres {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("discover: %w", ctx.Err())
		}
		for _, mt := range []domain.MediaType{domain.MediaTypeMovie, domain.MediaTypeTV} {
			entries, err := s.metadata.DiscoverByGenre(ctx, mt, genre, 1)
			if err != nil {
				s.logger.Warn("Discovery failed for genre",
					zap.String("genre", genre),
					zap.String("media_type", string(mt)),
					zap.Error(err))
				continue
			}
			if len(entries) > perGenre {
				entries = entries[:perGenre]
			}
			combined = append(combined, entries...)
		}
	}

	seen := make(map[int]bool, len(combined))
	out := combined[:0]
	for _, e := range combined {
		if seen[e.ExternalID] {
			continue
		}
		seen[e.ExternalID] = true
		out = append(out, e)
	}
	return out, nil
}

// Stats reports corpus, cache, and history occupancy.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	idxStats, err := s.idx.Stats(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("index stats: %w", err)
	}

	return Stats{
		Index:      idxStats,
		MatchCache: s.cache.Stats(),
		History:    s.history.Len(),
		Popular:    s.history.Popular(5),
	}, nil
}
