package mediadex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	dbRedis "github.com/bitaca/mediadex/internal/db/redis"
	"github.com/bitaca/mediadex/internal/domain"
	"github.com/bitaca/mediadex/internal/repository/embcache"
	"github.com/bitaca/mediadex/internal/repository/history"
	indexrepo "github.com/bitaca/mediadex/internal/repository/index"
	"github.com/bitaca/mediadex/internal/repository/matchcache"
	"github.com/bitaca/mediadex/internal/transport/assetsearch"
	openaiTransport "github.com/bitaca/mediadex/internal/transport/openai"
	"github.com/bitaca/mediadex/internal/transport/tmdb"
	cataloguc "github.com/bitaca/mediadex/internal/usecase/catalog"
	enrichuc "github.com/bitaca/mediadex/internal/usecase/enrich"
	healthuc "github.com/bitaca/mediadex/internal/usecase/health"
	matchuc "github.com/bitaca/mediadex/internal/usecase/match"
	searchuc "github.com/bitaca/mediadex/internal/usecase/search"
)

const defaultReadinessTimeout = 10 * time.Second

// Sentinel errors callers can test with errors.Is.
var (
	ErrNoMatch                 = domain.ErrNoMatch
	ErrNotFound                = domain.ErrNotFound
	ErrCollaboratorUnavailable = domain.ErrCollaboratorUnavailable
	ErrEnrichmentDisabled      = errors.New("mediadex: enrichment disabled, embedding and tagging keys required")
)

// Internal service interfaces for substitution in tests.
type searchService interface {
	Search(ctx context.Context, q searchuc.Query) ([]searchuc.Result, error)
	Autocomplete(ctx context.Context, query string, limit int) ([]searchuc.Suggestion, error)
	Suggestions() []string
	Related(ctx context.Context, assetID string, n int) ([]searchuc.Result, error)
}

type matchService interface {
	Reconcile(ctx context.Context, entry *domain.CatalogEntry, driveID int) (domain.MatchResult, error)
	ReconcileAll(ctx context.Context, entries []domain.CatalogEntry, driveID int) ([]domain.MatchResult, error)
}

type enrichService interface {
	EnrichBatch(ctx context.Context, items []enrichuc.Item) ([]domain.EnrichedContent, error)
	Release()
}

type catalogService interface {
	Trending(ctx context.Context, window string) ([]domain.CatalogEntry, error)
	Discover(ctx context.Context, genres []string, perGenre int) ([]domain.CatalogEntry, error)
	Stats(ctx context.Context) (cataloguc.Stats, error)
}

type healthService interface {
	Check(ctx context.Context) healthuc.Report
}

// Client is the mediadex SDK entry point.
type Client struct {
	store   *dbRedis.Store
	search  searchService
	match   matchService
	enrich  enrichService
	catalog catalogService
	health  healthService
}

// New creates a mediadex Client: it connects to the database, ensures the
// vector index, and wires the matching, enrichment, and retrieval services.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		dimensions:          1536,
		embeddingModel:      "text-embedding-3-small",
		taggingModel:        "gpt-4o-mini",
		cacheCapacity:       512,
		cacheTTL:            time.Hour,
		reconcileRatePerSec: 2,
		logger:              zap.NewNop(),
	}
	for _, o := range opts {
		o(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("mediadex: database address required (use WithRedis)")
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Username: cfg.username,
		Password: cfg.password,
		DB:       cfg.db,
	})
	if err != nil {
		return nil, fmt.Errorf("mediadex: create store: %w", err)
	}

	ctx := context.Background()
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("mediadex: database not ready: %w", err)
	}

	indexRepo := indexrepo.New(store, cfg.dimensions, cfg.logger)
	if err := indexRepo.EnsureIndex(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("mediadex: ensure index: %w", err)
	}

	var baseEmbedder *openaiTransport.Embedder
	var embedder domain.Embedder
	if cfg.embeddingKey != "" {
		baseEmbedder = openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:     cfg.embeddingKey,
			BaseURL:    cfg.embeddingBaseURL,
			Model:      cfg.embeddingModel,
			Dimensions: cfg.dimensions,
			Provider:   "openai",
			Logger:     cfg.logger,
		})
		embedder = embcache.New(baseEmbedder, store, nil, cfg.logger)
	}

	metadataClient := tmdb.New(&tmdb.Config{
		BearerToken: cfg.metadataToken,
		Language:    cfg.metadataLang,
		Logger:      cfg.logger,
	})

	assetClient := assetsearch.New(&assetsearch.Config{
		BaseURL:    cfg.assetSearchURL,
		RatePerSec: cfg.assetRatePerSec,
		Logger:     cfg.logger,
	})

	cache := matchcache.New(cfg.cacheCapacity, cfg.cacheTTL)
	hist := history.New(0)

	var reconcileLimiter *rate.Limiter
	if cfg.reconcileRatePerSec > 0 {
		reconcileLimiter = rate.NewLimiter(rate.Limit(cfg.reconcileRatePerSec), 1)
	}

	c := &Client{
		store: store,
		match: matchuc.New(assetClient, metadataClient, cache, reconcileLimiter, cfg.logger),
	}

	if embedder != nil && cfg.taggingKey != "" {
		tagger := openaiTransport.NewTagger(&openaiTransport.TaggerConfig{
			APIKey:   cfg.taggingKey,
			Model:    cfg.taggingModel,
			Provider: "openai",
			Logger:   cfg.logger,
		})
		enrichSvc, err := enrichuc.New(embedder, tagger, indexRepo, enrichuc.Options{
			Model: cfg.embeddingModel,
		}, cfg.logger)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("mediadex: create enrichment service: %w", err)
		}
		c.enrich = enrichSvc
	}

	var queryEmbedder searchuc.Embedder
	if embedder != nil {
		queryEmbedder = embedder
	}
	c.search = searchuc.New(indexRepo, queryEmbedder, hist, searchuc.Options{}, cfg.logger)
	c.catalog = cataloguc.New(metadataClient, indexRepo, cache, hist, cfg.logger)

	var embeddingChecker healthuc.EmbeddingChecker
	if baseEmbedder != nil {
		embeddingChecker = baseEmbedder
	}
	c.health = healthuc.New(store, embeddingChecker)

	return c, nil
}

// Close releases the enrichment pool and the database connection.
func (c *Client) Close() {
	if c.enrich != nil {
		c.enrich.Release()
	}
	if c.store != nil {
		c.store.Close()
	}
}

// Reconcile finds the asset backing one catalog entry on one drive.
// Returns ErrNoMatch when no candidate clears the acceptance threshold.
func (c *Client) Reconcile(ctx context.Context, entry Entry, drive int) (Match, error) {
	internal := entryToInternal(entry)
	m, err := c.match.Reconcile(ctx, &internal, drive)
	if err != nil {
		return Match{}, err
	}
	return matchFromInternal(m), nil
}

// ReconcileAll reconciles a batch of entries, skipping the unmatched ones.
func (c *Client) ReconcileAll(ctx context.Context, entries []Entry, drive int) ([]Match, error) {
	internal := make([]domain.CatalogEntry, len(entries))
	for i, e := range entries {
		internal[i] = entryToInternal(e)
	}

	results, err := c.match.ReconcileAll(ctx, internal, drive)
	matches := make([]Match, len(results))
	for i, m := range results {
		matches[i] = matchFromInternal(m)
	}
	return matches, err
}

// EnrichAssets runs assets through the enrichment pipeline and indexes the
// results. Returns the number of assets enriched.
func (c *Client) EnrichAssets(ctx context.Context, assets []Asset) (int, error) {
	if c.enrich == nil {
		return 0, ErrEnrichmentDisabled
	}

	items := make([]enrichuc.Item, len(assets))
	for i, a := range assets {
		items[i] = enrichuc.Item{Asset: assetToInternal(a)}
	}

	enriched, err := c.enrich.EnrichBatch(ctx, items)
	return len(enriched), err
}

// Search runs a free-text search over the enriched corpus.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	return c.Query(query).Limit(limit).Do(ctx)
}

// Autocomplete returns completion candidates for a partial query.
func (c *Client) Autocomplete(ctx context.Context, query string, limit int) ([]Suggestion, error) {
	suggestions, err := c.search.Autocomplete(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Suggestion, len(suggestions))
	for i, s := range suggestions {
		out[i] = Suggestion{Value: s.Value, Type: s.Type}
	}
	return out, nil
}

// Suggestions returns curated and popular search suggestions.
func (c *Client) Suggestions() []string {
	return c.search.Suggestions()
}

// Related returns content similar to the given asset.
// Returns ErrNotFound when the asset is not indexed.
func (c *Client) Related(ctx context.Context, assetID string, limit int) ([]Hit, error) {
	results, err := c.search.Related(ctx, assetID, limit)
	if err != nil {
		return nil, err
	}
	return hitsFromResults(results), nil
}

// Trending lists catalog entries trending over the given window ("day" or
// "week").
func (c *Client) Trending(ctx context.Context, window string) ([]Entry, error) {
	entries, err := c.catalog.Trending(ctx, window)
	if err != nil {
		return nil, err
	}
	return entriesFromInternal(entries), nil
}

// Discover lists catalog entries for a set of genres.
func (c *Client) Discover(ctx context.Context, genres []string, perGenre int) ([]Entry, error) {
	entries, err := c.catalog.Discover(ctx, genres, perGenre)
	if err != nil {
		return nil, err
	}
	return entriesFromInternal(entries), nil
}

// Stats reports corpus, cache, and history occupancy.
func (c *Client) Stats(ctx context.Context) (Stats, error) {
	stats, err := c.catalog.Stats(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Indexed:     stats.Index.Total,
		ByDrive:     stats.Index.ByDrive,
		CacheSize:   stats.MatchCache.Size,
		HistorySize: stats.History,
	}, nil
}

// Health reports the engine status: "healthy", "degraded", or "unhealthy".
func (c *Client) Health(ctx context.Context) string {
	return string(c.health.Check(ctx).Status)
}

func hitsFromResults(results []searchuc.Result) []Hit {
	hits := make([]Hit, len(results))
	for i, r := range results {
		hits[i] = hitFromResult(r)
	}
	return hits
}

func entriesFromInternal(entries []domain.CatalogEntry) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = entryFromInternal(e)
	}
	return out
}
