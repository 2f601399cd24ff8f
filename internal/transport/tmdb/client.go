// Package tmdb is the client for the TMDB-shaped rich metadata catalog:
// discover by genre, title search, and trending windows. Responses are
// parsed straight into domain.CatalogEntry with search variations attached.
package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/bitaca/mediadex/internal/domain"
)

const (
	defaultBaseURL      = "https://api.themoviedb.org/3"
	defaultImageBaseURL = "https://image.tmdb.org/t/p"
	defaultTimeout      = 10 * time.Second
)

// genreIDs maps user-facing genre names to catalog genre IDs.
var genreIDs = map[string]int{
	"action":    28,
	"adventure": 12,
	"comedy":    35,
	"drama":     18,
	"fantasy":   14,
	"horror":    27,
	"mystery":   9648,
	"romance":   10749,
	"sci-fi":    878,
	"thriller":  53,
	"animation": 16,
	"family":    10751,
}

// Config holds the metadata catalog client settings.
type Config struct {
	BearerToken  string
	BaseURL      string
	ImageBaseURL string
	Language     string
	Timeout      time.Duration

	// RatePerSec throttles outgoing catalog requests. Zero disables
	// throttling.
	RatePerSec float64

	Logger *zap.Logger
}

// Client talks to the metadata catalog over its REST API.
type Client struct {
	http         *http.Client
	baseURL      string
	imageBaseURL string
	bearerToken  string
	language     string
	limiter      *rate.Limiter
	logger       *zap.Logger
}

// New creates a metadata catalog client.
func New(cfg *Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	imageBaseURL := cfg.ImageBaseURL
	if imageBaseURL == "" {
		imageBaseURL = defaultImageBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	var limiter *rate.Limiter
	if cfg.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1)
	}

	return &Client{
		http:         &http.Client{Timeout: timeout},
		baseURL:      baseURL,
		imageBaseURL: imageBaseURL,
		bearerToken:  cfg.BearerToken,
		language:     cfg.Language,
		limiter:      limiter,
		logger:       cfg.Logger,
	}
}

// GenreID resolves a user-facing genre name. ok is false for unmapped names.
func GenreID(name string) (int, bool) {
	id, ok := genreIDs[name]
	return id, ok
}

// DiscoverByGenre lists entries of one media type for a genre name, most
// popular first. Unmapped genres return an empty list.
func (c *Client) DiscoverByGenre(ctx context.Context, mediaType domain.MediaType, genre string, page int) ([]domain.CatalogEntry, error) {
	genreID, ok := genreIDs[genre]
	if !ok {
		c.logger.Warn("Genre not mapped to catalog", zap.String("genre", genre))
		return nil, nil
	}
	if page < 1 {
		page = 1
	}

	q := url.Values{}
	q.Set("with_genres", strconv.Itoa(genreID))
	q.Set("page", strconv.Itoa(page))
	q.Set("sort_by", "popularity.desc")

	var resp listResponse
	if err := c.get(ctx, "/discover/"+string(mediaType), q, &resp); err != nil {
		return nil, err
	}
	return c.parseEntries(resp.Results, mediaType), nil
}

// Search finds entries matching a free-text query. mediaType "" searches
// both kinds, letting each result declare its own.
func (c *Client) Search(ctx context.Context, query string, mediaType domain.MediaType) ([]domain.CatalogEntry, error) {
	endpoint := "/search/multi"
	if mediaType != "" {
		endpoint = "/search/" + string(mediaType)
	}

	q := url.Values{}
	q.Set("query", query)

	var resp listResponse
	if err := c.get(ctx, endpoint, q, &resp); err != nil {
		return nil, err
	}
	return c.parseEntries(resp.Results, mediaType), nil
}

// Trending lists entries trending over the given window ("day" or "week").
func (c *Client) Trending(ctx context.Context, window string) ([]domain.CatalogEntry, error) {
	if window == "" {
		window = "week"
	}

	var resp listResponse
	if err := c.get(ctx, "/trending/all/"+window, nil, &resp); err != nil {
		return nil, err
	}
	return c.parseEntries(resp.Results, ""), nil
}

func (c *Client) get(ctx context.Context, endpoint string, q url.Values, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("metadata rate wait: %w", err)
		}
	}

	u := c.baseURL + endpoint
	if q == nil {
		q = url.Values{}
	}
	if c.language != "" {
		q.Set("language", c.language)
	}
	if enc := q.Encode(); enc != "" {
		u += "?" + enc
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return fmt.Errorf("build metadata request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	req.Header.Set("Content-Type", "application/json;charset=utf-8")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("metadata request %s: %v: %w", endpoint, err, domain.ErrCollaboratorUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("metadata request %s: %w", endpoint, domain.ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("metadata request %s: status %d: %s: %w",
			endpoint, resp.StatusCode, body, domain.ErrCollaboratorUnavailable)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode metadata response: %w", err)
	}
	return nil
}

// listResponse is the wire shape of every catalog list endpoint.
type listResponse struct {
	Page    int         `json:"page"`
	Results []entryJSON `json:"results"`
}

// entryJSON covers both movie and TV result shapes; movies carry
// title/release_date, shows name/first_air_date.
type entryJSON struct {
	ID            int      `json:"id"`
	MediaType     string   `json:"media_type"`
	Title         string   `json:"title"`
	OriginalTitle string   `json:"original_title"`
	Name          string   `json:"name"`
	OriginalName  string   `json:"original_name"`
	Overview      string   `json:"overview"`
	ReleaseDate   string   `json:"release_date"`
	FirstAirDate  string   `json:"first_air_date"`
	PosterPath    string   `json:"poster_path"`
	BackdropPath  string   `json:"backdrop_path"`
	Popularity    float64  `json:"popularity"`
	VoteAverage   float64  `json:"vote_average"`
	GenreIDs      []int    `json:"genre_ids"`
	OriginCountry []string `json:"origin_country"`
}

// parseEntries converts wire entries, deduplicating by external ID. forced
// overrides the per-result media type when the endpoint fixes it.
func (c *Client) parseEntries(results []entryJSON, forced domain.MediaType) []domain.CatalogEntry {
	entries := make([]domain.CatalogEntry, 0, len(results))
	seen := make(map[int]bool, len(results))

	for i := range results {
		r := &results[i]
		mediaType := forced
		if mediaType == "" {
			mediaType = domain.MediaType(r.MediaType)
		}
		if mediaType != domain.MediaTypeMovie && mediaType != domain.MediaTypeTV {
			continue
		}
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true

		entries = append(entries, c.toEntry(r, mediaType))
	}
	return entries
}

func (c *Client) toEntry(r *entryJSON, mediaType domain.MediaType) domain.CatalogEntry {
	title, originalTitle, releaseDate := r.Title, r.OriginalTitle, r.ReleaseDate
	if mediaType == domain.MediaTypeTV {
		title, originalTitle, releaseDate = r.Name, r.OriginalName, r.FirstAirDate
	}

	e := domain.CatalogEntry{
		ExternalID:    r.ID,
		MediaType:     mediaType,
		Title:         title,
		OriginalTitle: originalTitle,
		Overview:      r.Overview,
		ReleaseDate:   releaseDate,
		Popularity:    r.Popularity,
		Rating:        r.VoteAverage,
		GenreIDs:      r.GenreIDs,
		OriginCountry: r.OriginCountry,
	}
	if r.PosterPath != "" {
		e.PosterURL = c.imageBaseURL + "/w500" + r.PosterPath
	}
	if r.BackdropPath != "" {
		e.BackdropURL = c.imageBaseURL + "/original" + r.BackdropPath
	}
	e.SearchVariations = domain.SearchVariations(e.Title, e.OriginalTitle)
	return e
}
