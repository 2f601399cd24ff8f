package mediadex

import (
	"time"

	"go.uber.org/zap"
)

type clientConfig struct {
	addrs    []string
	username string
	password string
	db       int

	dimensions int

	embeddingKey     string
	embeddingBaseURL string
	embeddingModel   string

	taggingKey   string
	taggingModel string

	metadataToken string
	metadataLang  string

	assetSearchURL  string
	assetRatePerSec float64

	reconcileRatePerSec float64

	cacheCapacity int
	cacheTTL      time.Duration

	logger *zap.Logger
}

// Option configures the client.
type Option func(*clientConfig)

// WithRedis sets the Redis address and password.
func WithRedis(addr, password string) Option {
	return func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	}
}

// WithRedisCluster sets multiple Redis addresses.
func WithRedisCluster(addrs []string, username, password string) Option {
	return func(c *clientConfig) {
		c.addrs = addrs
		c.username = username
		c.password = password
	}
}

// WithDimensions sets the embedding vector dimensionality (default 1536).
func WithDimensions(n int) Option {
	return func(c *clientConfig) { c.dimensions = n }
}

// WithEmbedding enables semantic retrieval and enrichment with an
// OpenAI-compatible embedding provider.
func WithEmbedding(apiKey, model string) Option {
	return func(c *clientConfig) {
		c.embeddingKey = apiKey
		c.embeddingModel = model
	}
}

// WithEmbeddingBaseURL points the embedding provider at a compatible API.
func WithEmbeddingBaseURL(url string) Option {
	return func(c *clientConfig) { c.embeddingBaseURL = url }
}

// WithTagging enables smart-tag generation with a chat completion model.
func WithTagging(apiKey, model string) Option {
	return func(c *clientConfig) {
		c.taggingKey = apiKey
		c.taggingModel = model
	}
}

// WithMetadata sets the metadata catalog bearer token.
func WithMetadata(bearerToken string) Option {
	return func(c *clientConfig) { c.metadataToken = bearerToken }
}

// WithMetadataLanguage sets the metadata catalog response language.
func WithMetadataLanguage(lang string) Option {
	return func(c *clientConfig) { c.metadataLang = lang }
}

// WithAssetSearch sets the asset search service base URL.
func WithAssetSearch(baseURL string) Option {
	return func(c *clientConfig) { c.assetSearchURL = baseURL }
}

// WithAssetSearchRate throttles asset catalog traffic to n requests per second.
func WithAssetSearchRate(n float64) Option {
	return func(c *clientConfig) { c.assetRatePerSec = n }
}

// WithReconcileRate paces batch reconciliation to n entries per second
// (default 2). Zero or negative disables pacing.
func WithReconcileRate(n float64) Option {
	return func(c *clientConfig) { c.reconcileRatePerSec = n }
}

// WithMatchCache sizes the reconciliation cache.
func WithMatchCache(capacity int, ttl time.Duration) Option {
	return func(c *clientConfig) {
		c.cacheCapacity = capacity
		c.cacheTTL = ttl
	}
}

// WithLogger sets the logger (default: no-op).
func WithLogger(l *zap.Logger) Option {
	return func(c *clientConfig) { c.logger = l }
}
