// Package match reconciles rich catalog entries with raw media assets. A
// catalog entry knows a clean title; the asset catalog knows noisy release
// filenames. The reconciler bridges them with fuzzy scoring over search
// variations.
package match

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/bitaca/mediadex/internal/domain"
	"github.com/bitaca/mediadex/internal/domain/scoring"
	"github.com/bitaca/mediadex/internal/metrics"
)

const (
	// minAcceptScore is the floor below which a candidate is never accepted.
	minAcceptScore = 0.5
	// earlyExitScore stops trying further variations once reached.
	earlyExitScore = 0.8
	// candidatesPerVariation bounds scoring work per asset search.
	candidatesPerVariation = 5
	// enrichedSearchTop bounds how many catalog hits an enriched search
	// tries to reconcile.
	enrichedSearchTop = 10

	// DriveAnime and DriveMovies are the two asset catalog partitions.
	DriveAnime  = 0
	DriveMovies = 1
)

// EnrichedSearch is the outcome of a metadata-first search: reconciled
// matches when the catalog knew the query, direct assets otherwise.
type EnrichedSearch struct {
	Matches []domain.MatchResult `json:"matches,omitempty"`
	Direct  []domain.MediaAsset  `json:"direct,omitempty"`
}

// Personalized groups reconciled matches by content kind.
type Personalized struct {
	Movies []domain.MatchResult `json:"movies"`
	TV     []domain.MatchResult `json:"tv"`
	Anime  []domain.MatchResult `json:"anime"`
	Total  int                  `json:"total"`
}

// Service is the reconciler.
type Service struct {
	assets   AssetSearcher
	metadata MetadataCatalog
	cache    Cache
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// New creates a reconciler. limiter paces asset catalog traffic across
// ReconcileAll batches; nil disables pacing.
func New(assets AssetSearcher, metadata MetadataCatalog, cache Cache, limiter *rate.Limiter, logger *zap.Logger) *Service {
	return &Service{
		assets:   assets,
		metadata: metadata,
		cache:    cache,
		limiter:  limiter,
		logger:   logger,
	}
}

// Reconcile finds the asset backing one catalog entry on one drive. Returns
// domain.ErrNoMatch when no candidate clears the acceptance threshold; the
// absence is not cached, so a later sync retries.
func (s *Service) Reconcile(ctx context.Context, entry *domain.CatalogEntry, driveID int) (domain.MatchResult, error) {
	if m, ok := s.cache.Get(entry.ExternalID, driveID); ok {
		metrics.MatchCacheTotal.WithLabelValues("hit").Inc()
		return m, nil
	}
	metrics.MatchCacheTotal.WithLabelValues("miss").Inc()

	variations := entry.SearchVariations
	if len(variations) == 0 {
		variations = domain.SearchVariations(entry.Title, entry.OriginalTitle)
	}

	var (
		best      *domain.MediaAsset
		bestScore float64
	)

	for _, variation := range variations {
		results, err := s.assets.Search(ctx, variation, driveID)
		if err != nil {
			if ctx.Err() != nil {
				metrics.MatchAttemptsTotal.WithLabelValues("error").Inc()
				return domain.MatchResult{}, fmt.Errorf("reconcile %q: %w", entry.Title, ctx.Err())
			}
			// One variation failing must not sink the whole entry.
			s.logger.Warn("Asset search failed for variation",
				zap.String("title", entry.Title),
				zap.String("variation", variation),
				zap.Error(err))
			continue
		}

		candidates := results
		if len(candidates) > candidatesPerVariation {
			candidates = candidates[:candidatesPerVariation]
		}
		for i := range candidates {
			score := scoring.Score(*entry, candidates[i])
			if score > bestScore && score > minAcceptScore {
				bestScore = score
				best = &candidates[i]
			}
		}

		if bestScore > earlyExitScore {
			break
		}
	}

	if best == nil {
		metrics.MatchAttemptsTotal.WithLabelValues("unmatched").Inc()
		return domain.MatchResult{}, fmt.Errorf("reconcile %q: %w", entry.Title, domain.ErrNoMatch)
	}

	m := domain.MatchResult{
		Asset:           *best,
		Entry:           *entry,
		MatchScore:      bestScore,
		MatchedFilename: best.Name,
	}
	s.cache.Put(entry.ExternalID, driveID, m)

	metrics.MatchAttemptsTotal.WithLabelValues("matched").Inc()
	metrics.MatchScore.Observe(bestScore)
	s.logger.Debug("Match accepted",
		zap.String("title", entry.Title),
		zap.String("asset", best.Name),
		zap.Float64("score", bestScore))

	return m, nil
}

// ReconcileAll drives a batch of entries through the shared rate limiter.
// Unmatched entries are skipped; cancellation returns the matches so far
// along with the context error.
func (s *Service) ReconcileAll(ctx context.Context, entries []domain.CatalogEntry, driveID int) ([]domain.MatchResult, error) {
	matches := make([]domain.MatchResult, 0, len(entries))

	for i := range entries {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return matches, fmt.Errorf("reconcile batch: %w", err)
			}
		} else if ctx.Err() != nil {
			return matches, fmt.Errorf("reconcile batch: %w", ctx.Err())
		}

		m, err := s.Reconcile(ctx, &entries[i], driveID)
		if err != nil {
			if ctx.Err() != nil {
				return matches, fmt.Errorf("reconcile batch: %w", ctx.Err())
			}
			continue
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// SearchWithEnrichment searches the metadata catalog first and reconciles
// the top hits; when the catalog knows nothing, it falls back to a direct
// asset search.
func (s *Service) SearchWithEnrichment(ctx context.Context, query string, driveID int) (EnrichedSearch, error) {
	entries, err := s.metadata.Search(ctx, query, "")
	if err != nil {
		s.logger.Warn("Metadata search failed, falling back to direct asset search",
			zap.String("query", query),
			zap.Error(err))
		entries = nil
	}

	if len(entries) > 0 {
		if len(entries) > enrichedSearchTop {
			entries = entries[:enrichedSearchTop]
		}
		matches, err := s.ReconcileAll(ctx, entries, driveID)
		if err != nil {
			return EnrichedSearch{Matches: matches}, err
		}
		return EnrichedSearch{Matches: matches}, nil
	}

	direct, err := s.assets.Search(ctx, query, driveID)
	if err != nil {
		return EnrichedSearch{}, fmt.Errorf("direct asset search: %w", err)
	}
	return EnrichedSearch{Direct: direct}, nil
}

// PersonalizedMatches discovers catalog entries for the given genres and
// reconciles them: movies and TV against the movie drive, animation against
// the anime drive. Partial collaborator failures degrade to fewer results.
func (s *Service) PersonalizedMatches(ctx context.Context, genres []string, perGenre int) (Personalized, error) {
	if perGenre <= 0 {
		perGenre = 10
	}

	var movies, tv []domain.CatalogEntry
	for _, genre := range genres {
		m, err := s.metadata.DiscoverByGenre(ctx, domain.MediaTypeMovie, genre, 1)
		if err != nil {
			s.logger.Warn("Movie discovery failed", zap.String("genre", genre), zap.Error(err))
		}
		movies = append(movies, truncate(m, perGenre)...)

		t, err := s.metadata.DiscoverByGenre(ctx, domain.MediaTypeTV, genre, 1)
		if err != nil {
			s.logger.Warn("TV discovery failed", zap.String("genre", genre), zap.Error(err))
		}
		tv = append(tv, truncate(t, perGenre)...)

		if ctx.Err() != nil {
			return Personalized{}, fmt.Errorf("personalized matches: %w", ctx.Err())
		}
	}

	var anime []domain.CatalogEntry
	if wantsAnime(genres) {
		anime = s.discoverAnime(ctx, perGenre*2)
	}

	movieMatches, err := s.ReconcileAll(ctx, dedupEntries(movies), DriveMovies)
	if err != nil {
		return Personalized{Movies: movieMatches}, err
	}
	tvMatches, err := s.ReconcileAll(ctx, dedupEntries(tv), DriveMovies)
	if err != nil {
		return Personalized{Movies: movieMatches, TV: tvMatches}, err
	}
	animeMatches, err := s.ReconcileAll(ctx, dedupEntries(anime), DriveAnime)
	if err != nil {
		return Personalized{Movies: movieMatches, TV: tvMatches, Anime: animeMatches}, err
	}

	return Personalized{
		Movies: movieMatches,
		TV:     tvMatches,
		Anime:  animeMatches,
		Total:  len(movieMatches) + len(tvMatches) + len(animeMatches),
	}, nil
}

// ClearCache drops all retained matches.
func (s *Service) ClearCache() {
	s.cache.Clear()
}

// discoverAnime pulls animation entries of both kinds and keeps the ones
// that look like anime.
func (s *Service) discoverAnime(ctx context.Context, limit int) []domain.CatalogEntry {
	var combined []domain.CatalogEntry
	for _, mt := range []domain.MediaType{domain.MediaTypeMovie, domain.MediaTypeTV} {
		entries, err := s.metadata.DiscoverByGenre(ctx, mt, "animation", 1)
		if err != nil {
			s.logger.Warn("Anime discovery failed", zap.String("media_type", string(mt)), zap.Error(err))
			continue
		}
		combined = append(combined, entries...)
	}

	anime := make([]domain.CatalogEntry, 0, limit)
	for i := range combined {
		if likelyAnime(&combined[i]) {
			anime = append(anime, combined[i])
			if len(anime) == limit {
				break
			}
		}
	}
	return anime
}

var animeKeywords = []string{
	"anime", "manga", "japan", "tokyo", "ninja", "samurai",
	"dragon ball", "naruto", "one piece",
}

func likelyAnime(e *domain.CatalogEntry) bool {
	for _, c := range e.OriginCountry {
		if c == "JP" {
			return true
		}
	}
	title := strings.ToLower(e.Title)
	overview := strings.ToLower(e.Overview)
	for _, kw := range animeKeywords {
		if strings.Contains(title, kw) || strings.Contains(overview, kw) {
			return true
		}
	}
	return false
}

func wantsAnime(genres []string) bool {
	for _, g := range genres {
		switch g {
		case "animation", "fantasy", "sci-fi", "adventure":
			return true
		}
	}
	return false
}

func dedupEntries(entries []domain.CatalogEntry) []domain.CatalogEntry {
	seen := make(map[int]bool, len(entries))
	out := entries[:0]
	for _, e := range entries {
		if seen[e.ExternalID] {
			continue
		}
		seen[e.ExternalID] = true
		out = append(out, e)
	}
	return out
}

func truncate(entries []domain.CatalogEntry, n int) []domain.CatalogEntry {
	if len(entries) > n {
		return entries[:n]
	}
	return entries
}
