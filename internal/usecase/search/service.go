// Package search is the retrieval facade over the enriched corpus. The
// semantic path embeds the query and runs KNN; without an embedder the query
// vector is approximated from the corpus and ranked in process; when both
// degrade, a keyword scan scores catalog fields directly. A search never
// hard-fails: degraded paths return fewer or zero results.
package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bitaca/mediadex/internal/domain"
	"github.com/bitaca/mediadex/internal/domain/scoring"
	"github.com/bitaca/mediadex/internal/domain/vectorops"
	"github.com/bitaca/mediadex/internal/metrics"
	"github.com/bitaca/mediadex/internal/repository/index"
)

const (
	defaultLimit          = 20
	defaultFuzzyThreshold = 0.6
	defaultCorpusLimit    = 1000
	autocompleteLimit     = 5
	popularSeedCount      = 3

	// keywordMaxScore normalizes raw field scores into [0,1].
	keywordMaxScore = 50
)

// defaultSeeds are the curated starting suggestions shown before the user
// has any history.
var defaultSeeds = []string{
	"sci-fi classics",
	"anime series",
	"feel-good comedies",
	"crime documentaries",
	"movies about space",
	"90s action",
	"dark thrillers",
}

// Result is one retrieval hit.
type Result struct {
	Content domain.EnrichedContent `json:"content"`
	Score   float64                `json:"score"`
	Mode    string                 `json:"mode"`
}

// Suggestion is one autocomplete candidate.
type Suggestion struct {
	Value string `json:"value"`
	Type  string `json:"type"`
}

// Query carries search parameters.
type Query struct {
	Text    string
	Limit   int
	DriveID *int
	Genres  []string
}

// Options tunes the facade.
type Options struct {
	FuzzyThreshold float64
	CorpusLimit    int
	Seeds          []string
}

// Service is the retrieval facade.
type Service struct {
	index    Index
	embedder Embedder // nil in offline mode
	history  History
	fuzzy    float64
	corpus   int
	seeds    []string
	logger   *zap.Logger
}

// New creates the facade. embedder may be nil; retrieval then approximates
// query vectors from the stored corpus.
func New(idx Index, embedder Embedder, history History, opts Options, logger *zap.Logger) *Service {
	fuzzy := opts.FuzzyThreshold
	if fuzzy <= 0 {
		fuzzy = defaultFuzzyThreshold
	}
	corpus := opts.CorpusLimit
	if corpus <= 0 {
		corpus = defaultCorpusLimit
	}
	seeds := opts.Seeds
	if len(seeds) == 0 {
		seeds = defaultSeeds
	}

	return &Service{
		index:    idx,
		embedder: embedder,
		history:  history,
		fuzzy:    fuzzy,
		corpus:   corpus,
		seeds:    seeds,
		logger:   logger,
	}
}

// Search retrieves content for a free-text query. The result list may be
// empty but the call only fails on context cancellation.
func (s *Service) Search(ctx context.Context, q Query) ([]Result, error) {
	if ctx.Err() != nil {
		return nil, fmt.Errorf("search: %w", ctx.Err())
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	start := time.Now()
	results, mode := s.searchSemantic(ctx, q, limit)
	if mode == "" {
		results = s.searchKeyword(ctx, q, limit)
		mode = "keyword"
	}

	metrics.SearchRequestsTotal.WithLabelValues(mode, "success").Inc()
	metrics.SearchRequestDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())

	s.history.Record(q.Text, len(results))
	return results, nil
}

// searchSemantic returns ("", nil) when the semantic path is unavailable
// and the caller should fall back to the keyword scan.
func (s *Service) searchSemantic(ctx context.Context, q Query, limit int) ([]Result, string) {
	if s.embedder == nil {
		return s.searchOffline(ctx, q, limit)
	}

	emb, err := s.embedder.Embed(ctx, q.Text)
	if err != nil {
		s.logger.Warn("Query embedding failed", zap.String("query", q.Text), zap.Error(err))
		return nil, ""
	}

	hits, err := s.index.Query(ctx, emb.Embedding, limit, index.Filters{DriveID: q.DriveID, Genres: q.Genres})
	if err != nil {
		s.logger.Warn("Vector query failed, falling back to keyword scan",
			zap.String("query", q.Text),
			zap.Error(err))
		return nil, ""
	}

	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = Result{Content: h.Content, Score: h.Score, Mode: "semantic"}
	}
	return results, "semantic"
}

// searchOffline approximates a query vector from the stored corpus and ranks
// candidates client-side. No embedding provider round trip, no index KNN.
func (s *Service) searchOffline(ctx context.Context, q Query, limit int) ([]Result, string) {
	contents, err := s.index.All(ctx, s.corpus)
	if err != nil || len(contents) == 0 {
		return nil, ""
	}

	candidates := make([]domain.EnrichedContent, 0, len(contents))
	for i := range contents {
		c := &contents[i]
		if len(c.Embedding) == 0 {
			continue
		}
		if q.DriveID != nil && c.DriveID != *q.DriveID {
			continue
		}
		if len(q.Genres) > 0 && !hasAnyGenre(c, q.Genres) {
			continue
		}
		candidates = append(candidates, *c)
	}
	if len(candidates) == 0 {
		return nil, ""
	}

	vectors := make([][]float32, len(candidates))
	for i := range candidates {
		vectors[i] = candidates[i].Embedding
	}
	vector, err := vectorops.ApproximateQuery(q.Text, vectors)
	if err != nil {
		return nil, ""
	}

	ranked, err := vectorops.Rank(vector, candidates, limit)
	if err != nil {
		s.logger.Warn("Offline ranking failed, falling back to keyword scan",
			zap.String("query", q.Text),
			zap.Error(err))
		return nil, ""
	}

	results := make([]Result, len(ranked))
	for i, r := range ranked {
		results[i] = Result{Content: r.Content, Score: r.Score, Mode: "semantic"}
	}
	return results, "semantic"
}

// searchKeyword scans the corpus and scores catalog fields.
func (s *Service) searchKeyword(ctx context.Context, q Query, limit int) []Result {
	contents, err := s.index.All(ctx, s.corpus)
	if err != nil {
		s.logger.Warn("Corpus scan failed, returning empty result",
			zap.String("query", q.Text),
			zap.Error(err))
		return []Result{}
	}

	lowerQuery := strings.ToLower(strings.TrimSpace(q.Text))
	results := make([]Result, 0, limit)
	for i := range contents {
		c := &contents[i]
		if q.DriveID != nil && c.DriveID != *q.DriveID {
			continue
		}
		if len(q.Genres) > 0 && !hasAnyGenre(c, q.Genres) {
			continue
		}
		score := s.keywordScore(lowerQuery, c)
		if score <= 0 {
			continue
		}
		results = append(results, Result{Content: *c, Score: score, Mode: "keyword"})
	}

	sortResults(results)
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// keywordScore weights field hits: title 10, creator 7, genre 5, theme 5,
// synopsis 3, tag membership 6, plus a fuzzy title bonus above the
// threshold. Normalized to [0,1].
func (s *Service) keywordScore(lowerQuery string, c *domain.EnrichedContent) float64 {
	score := 0.0
	title := strings.ToLower(c.DisplayTitle())

	if strings.Contains(title, lowerQuery) {
		score += 10
	}
	if c.Creator != "" && strings.Contains(strings.ToLower(c.Creator), lowerQuery) {
		score += 7
	}
	if c.Genre != "" && strings.Contains(strings.ToLower(c.Genre), lowerQuery) {
		score += 5
	}
	if c.Theme != "" && strings.Contains(strings.ToLower(c.Theme), lowerQuery) {
		score += 5
	}
	if c.Synopsis != "" && strings.Contains(strings.ToLower(c.Synopsis), lowerQuery) {
		score += 3
	}
	for _, tag := range c.SmartTags.All() {
		if strings.Contains(strings.ToLower(tag), lowerQuery) {
			score += 6
			break
		}
	}

	if sim := scoring.Similarity(lowerQuery, title); sim >= s.fuzzy {
		score += sim * 5
	}

	return score / keywordMaxScore
}

// Autocomplete suggests completions: title prefixes first, then contains
// matches on creators, genres, themes, and past queries. Deduplicated by
// value in that order.
func (s *Service) Autocomplete(ctx context.Context, query string, limit int) ([]Suggestion, error) {
	if limit <= 0 {
		limit = autocompleteLimit
	}
	lowerQuery := strings.ToLower(strings.TrimSpace(query))
	if lowerQuery == "" {
		return []Suggestion{}, nil
	}

	contents, err := s.index.All(ctx, s.corpus)
	if err != nil {
		return nil, fmt.Errorf("autocomplete: %w", err)
	}

	var suggestions []Suggestion
	seen := make(map[string]bool)
	add := func(value, kind string) {
		if value == "" || seen[strings.ToLower(value)] {
			return
		}
		seen[strings.ToLower(value)] = true
		suggestions = append(suggestions, Suggestion{Value: value, Type: kind})
	}

	// Server-side prefix search first; it sees the whole index, not just the
	// scanned corpus window. Errors degrade to the scan sources below.
	hits, err := s.index.RangePrefix(ctx, lowerQuery, limit, index.Filters{})
	if err != nil {
		s.logger.Warn("Prefix search failed", zap.String("query", lowerQuery), zap.Error(err))
	}
	for _, h := range hits {
		if title := h.Content.DisplayTitle(); strings.HasPrefix(strings.ToLower(title), lowerQuery) {
			add(title, "title")
		}
	}

	for i := range contents {
		if title := contents[i].DisplayTitle(); strings.HasPrefix(strings.ToLower(title), lowerQuery) {
			add(title, "title")
		}
	}
	for i := range contents {
		if creator := contents[i].Creator; creator != "" && strings.Contains(strings.ToLower(creator), lowerQuery) {
			add(creator, "creator")
		}
	}
	for i := range contents {
		for _, genre := range contents[i].SmartTags.Genres {
			if strings.Contains(strings.ToLower(genre), lowerQuery) {
				add(genre, "genre")
			}
		}
	}
	for i := range contents {
		for _, theme := range contents[i].SmartTags.Themes {
			if strings.Contains(strings.ToLower(theme), lowerQuery) {
				add(theme, "theme")
			}
		}
	}
	for _, h := range s.history.Recent(0) {
		if strings.Contains(strings.ToLower(h.Query), lowerQuery) {
			add(h.Query, "history")
		}
	}

	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	if suggestions == nil {
		suggestions = []Suggestion{}
	}
	return suggestions, nil
}

// Suggestions returns the curated seeds plus the most popular past queries.
func (s *Service) Suggestions() []string {
	out := make([]string, len(s.seeds))
	copy(out, s.seeds)

	seen := make(map[string]bool, len(out))
	for _, v := range out {
		seen[strings.ToLower(v)] = true
	}
	for _, h := range s.history.Popular(popularSeedCount) {
		if !seen[strings.ToLower(h.Query)] {
			out = append(out, h.Query)
		}
	}
	return out
}

// PopularSearches returns the n most repeated queries.
func (s *Service) PopularSearches(n int) []domain.SearchHistoryEntry {
	return s.history.Popular(n)
}

// RecentSearches returns the n most recent queries.
func (s *Service) RecentSearches(n int) []domain.SearchHistoryEntry {
	return s.history.Recent(n)
}

// Related returns content nearest to a stored record.
func (s *Service) Related(ctx context.Context, assetID string, n int) ([]Result, error) {
	if n <= 0 {
		n = defaultLimit
	}
	hits, err := s.index.Related(ctx, assetID, n)
	if err != nil {
		return nil, fmt.Errorf("related %s: %w", assetID, err)
	}

	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = Result{Content: h.Content, Score: h.Score, Mode: "semantic"}
	}
	return results, nil
}

func hasAnyGenre(c *domain.EnrichedContent, genres []string) bool {
	for _, want := range genres {
		for _, got := range c.SmartTags.Genres {
			if strings.EqualFold(want, got) {
				return true
			}
		}
	}
	return false
}

// sortResults orders by score descending, stable for ties.
func sortResults(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}
