// Package assetsearch is the client for the raw media asset search service.
// The upstream indexes noisy filenames per drive partition; it is slow and
// flaky, so calls go through a rate limiter and a circuit breaker.
package assetsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/bitaca/mediadex/internal/domain"
)

const (
	defaultTimeout     = 15 * time.Second
	defaultMaxFailures = 5
	defaultOpenTimeout = 30 * time.Second
)

// Config holds the asset search client settings.
type Config struct {
	BaseURL string
	Timeout time.Duration

	// RatePerSec throttles outgoing searches. Zero disables throttling.
	RatePerSec float64
	Burst      int

	// MaxFailures consecutive failures trip the breaker open for OpenTimeout.
	MaxFailures uint32
	OpenTimeout time.Duration

	Logger *zap.Logger
}

// Client talks to the asset search service.
type Client struct {
	http    *http.Client
	baseURL string
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// New creates an asset search client.
func New(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultMaxFailures
	}
	openTimeout := cfg.OpenTimeout
	if openTimeout <= 0 {
		openTimeout = defaultOpenTimeout
	}

	logger := cfg.Logger

	var limiter *rate.Limiter
	if cfg.RatePerSec > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "asset-search",
		Timeout: openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Asset search breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: cfg.BaseURL,
		limiter: limiter,
		breaker: breaker,
		logger:  logger,
	}
}

// searchRequest is the upstream wire shape.
type searchRequest struct {
	Query     string `json:"q"`
	Partition int    `json:"partition"`
}

type searchResponse struct {
	Files []assetJSON `json:"files"`
}

type assetJSON struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Link         string `json:"link"`
	Path         string `json:"path"`
	Size         int64  `json:"size"`
	MimeType     string `json:"mimeType"`
	ModifiedTime string `json:"modifiedTime"`
	Thumbnail    string `json:"thumbnail"`
}

// Search queries one drive partition for assets matching the given text.
// Breaker-open, transport, and 5xx failures all map to
// domain.ErrCollaboratorUnavailable.
func (c *Client) Search(ctx context.Context, query string, driveID int) ([]domain.MediaAsset, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("asset search throttle: %w", err)
		}
	}

	result, err := c.breaker.Execute(func() (any, error) {
		return c.doSearch(ctx, query, driveID)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("asset search breaker open: %w", domain.ErrCollaboratorUnavailable)
		}
		return nil, err
	}

	assets, ok := result.([]domain.MediaAsset)
	if !ok {
		return nil, fmt.Errorf("asset search: unexpected result type %T", result)
	}
	return assets, nil
}

func (c *Client) doSearch(ctx context.Context, query string, driveID int) ([]domain.MediaAsset, error) {
	body, err := json.Marshal(searchRequest{Query: query, Partition: driveID})
	if err != nil {
		return nil, fmt.Errorf("marshal asset search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build asset search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("asset search request: %v: %w", err, domain.ErrCollaboratorUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("asset search: status %d: %s: %w",
			resp.StatusCode, raw, domain.ErrCollaboratorUnavailable)
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode asset search response: %w", err)
	}

	assets := make([]domain.MediaAsset, 0, len(sr.Files))
	for _, f := range sr.Files {
		assets = append(assets, domain.MediaAsset{
			AssetID:      f.ID,
			Name:         f.Name,
			URL:          f.Link,
			Path:         f.Path,
			SizeBytes:    f.Size,
			MimeType:     f.MimeType,
			DriveID:      driveID,
			ModifiedTime: f.ModifiedTime,
			IsVideo:      isVideoMime(f.MimeType),
			ThumbnailURL: f.Thumbnail,
		})
	}
	return assets, nil
}

func isVideoMime(mime string) bool {
	return len(mime) >= 6 && mime[:6] == "video/"
}
