// Package enrich runs the AI enrichment pipeline: every asset gets an
// embedding and smart tags, then lands in the vector index. Embedding
// failures are fatal for the asset; tagging failures degrade to defaults.
package enrich

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/bitaca/mediadex/internal/domain"
)

const (
	defaultBatchSize = 5
	defaultPoolSize  = 5
)

// Item is one unit of enrichment work: an asset, optionally with the
// catalog entry it was reconciled to.
type Item struct {
	Asset domain.MediaAsset    `json:"asset"`
	Entry *domain.CatalogEntry `json:"entry,omitempty"`
}

// Service is the enrichment pipeline.
type Service struct {
	embedder Embedder
	tagger   Tagger
	index    Indexer
	pool     *ants.Pool
	limiter  *rate.Limiter
	batch    int
	model    string
	logger   *zap.Logger
}

// Options tunes pipeline concurrency and pacing.
type Options struct {
	// BatchSize is the number of items enriched concurrently per chunk.
	BatchSize int
	// PoolSize caps goroutines across all chunks.
	PoolSize int
	// ChunkLimiter paces chunk starts against provider rate limits.
	// Nil disables pacing.
	ChunkLimiter *rate.Limiter
	// Model is recorded on every enriched record.
	Model string
}

// New creates the pipeline. index may be nil when the caller persists
// records itself.
func New(embedder Embedder, tagger Tagger, index Indexer, opts Options, logger *zap.Logger) (*Service, error) {
	batch := opts.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	poolSize := opts.PoolSize
	if poolSize <= 0 {
		poolSize = defaultPoolSize
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, fmt.Errorf("create enrichment pool: %w", err)
	}

	return &Service{
		embedder: embedder,
		tagger:   tagger,
		index:    index,
		pool:     pool,
		limiter:  opts.ChunkLimiter,
		batch:    batch,
		model:    opts.Model,
		logger:   logger,
	}, nil
}

// Release frees the worker pool.
func (s *Service) Release() {
	s.pool.Release()
}

// Enrich produces one enriched record. The embedding is mandatory; tags
// fall open to defaults when the tagging collaborator is degraded.
func (s *Service) Enrich(ctx context.Context, asset domain.MediaAsset, entry *domain.CatalogEntry) (domain.EnrichedContent, error) {
	title, description := asset.Name, ""
	if entry != nil {
		title, description = entry.Title, entry.Overview
	}

	emb, err := s.embedder.Embed(ctx, embeddingText(asset.Name, title, description))
	if err != nil {
		return domain.EnrichedContent{}, fmt.Errorf("enrich %s: %w", asset.AssetID, err)
	}

	tags, err := s.tagger.Tag(ctx, title, description)
	if err != nil {
		s.logger.Warn("Tagging degraded, using default tags",
			zap.String("asset_id", asset.AssetID),
			zap.String("title", title),
			zap.Error(err))
		tags = domain.DefaultSmartTags()
	}

	content := domain.EnrichedContent{
		MediaAsset:     asset,
		Embedding:      emb.Embedding,
		SmartTags:      tags,
		SearchText:     domain.BuildSearchText(asset.Name, tags),
		EnrichedAt:     time.Now().UTC(),
		EmbeddingModel: s.model,
		EmbeddingDims:  len(emb.Embedding),
	}
	if entry != nil {
		content.Title = entry.Title
		content.Synopsis = entry.Overview
	}
	if len(tags.Genres) > 0 {
		content.Genre = tags.Genres[0]
	}
	if len(tags.Themes) > 0 {
		content.Theme = tags.Themes[0]
	}

	return content, nil
}

// EnrichBatch runs items through the pool in chunks. Each chunk is an
// all-settled join: failures are logged and dropped, successes accumulate
// in completion order. Cancellation between chunks returns what finished.
// When an indexer is wired, successes are persisted at the end.
func (s *Service) EnrichBatch(ctx context.Context, items []Item) ([]domain.EnrichedContent, error) {
	var (
		mu       sync.Mutex
		enriched []domain.EnrichedContent
	)

	for start := 0; start < len(items); start += s.batch {
		if start > 0 && s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return enriched, fmt.Errorf("enrich batch: %w", err)
			}
		}
		if ctx.Err() != nil {
			return enriched, fmt.Errorf("enrich batch: %w", ctx.Err())
		}

		end := min(start+s.batch, len(items))
		chunk := items[start:end]

		var wg sync.WaitGroup
		for i := range chunk {
			item := chunk[i]
			wg.Add(1)
			submitErr := s.pool.Submit(func() {
				defer wg.Done()
				content, err := s.Enrich(ctx, item.Asset, item.Entry)
				if err != nil {
					s.logger.Warn("Enrichment failed, dropping asset",
						zap.String("asset_id", item.Asset.AssetID),
						zap.Error(err))
					return
				}
				mu.Lock()
				enriched = append(enriched, content)
				mu.Unlock()
			})
			if submitErr != nil {
				wg.Done()
				s.logger.Warn("Pool rejected enrichment task",
					zap.String("asset_id", item.Asset.AssetID),
					zap.Error(submitErr))
			}
		}
		wg.Wait()
	}

	if s.index != nil && len(enriched) > 0 {
		if err := s.index.UpsertBatch(ctx, enriched); err != nil {
			return enriched, fmt.Errorf("persist enriched batch: %w", err)
		}
	}
	return enriched, nil
}

// embeddingText is what the vectorizer sees: catalog identity when known,
// raw filename otherwise.
func embeddingText(name, title, description string) string {
	parts := make([]string, 0, 3)
	if title != "" && title != name {
		parts = append(parts, title)
	}
	parts = append(parts, name)
	if description != "" {
		parts = append(parts, description)
	}
	return strings.Join(parts, "\n")
}
