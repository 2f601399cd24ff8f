package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the mediadex API configuration.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Database    DatabaseConfig    `yaml:"database"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Tagging     TaggingConfig     `yaml:"tagging"`
	Metadata    MetadataConfig    `yaml:"metadata"`
	AssetSearch AssetSearchConfig `yaml:"asset_search"`
	Match       MatchConfig       `yaml:"match"`
	Enrich      EnrichConfig      `yaml:"enrich"`
	Search      SearchConfig      `yaml:"search"`
	Auth        AuthConfig        `yaml:"auth"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// AuthConfig holds API authentication settings. An empty key list disables
// authentication.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds the embedding provider settings. An empty api_key
// disables the provider and the service falls back to keyword search.
type EmbeddingConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	Provider   string `yaml:"provider"`
	User       string `yaml:"user"`
}

// TaggingConfig holds the chat-completion tagging provider settings.
type TaggingConfig struct {
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
	Provider string `yaml:"provider"`
}

// MetadataConfig holds the metadata catalog client settings.
type MetadataConfig struct {
	BearerToken  string  `yaml:"bearer_token"`
	BaseURL      string  `yaml:"base_url"`
	ImageBaseURL string  `yaml:"image_base_url"`
	Language     string  `yaml:"language"`
	TimeoutSec   int     `yaml:"timeout_sec"`
	RatePerSec   float64 `yaml:"rate_per_sec"` // 0 = unthrottled
}

// AssetSearchConfig holds the asset search client settings.
type AssetSearchConfig struct {
	BaseURL     string  `yaml:"base_url"`
	TimeoutSec  int     `yaml:"timeout_sec"`
	RatePerSec  float64 `yaml:"rate_per_sec"` // 0 = unthrottled
	Burst       int     `yaml:"burst"`
	MaxFailures uint32  `yaml:"max_failures"`
	OpenSec     int     `yaml:"open_timeout_sec"`
}

// MatchConfig holds reconciliation settings.
type MatchConfig struct {
	CacheCapacity       int     `yaml:"cache_capacity"`
	CacheTTLSec         int     `yaml:"cache_ttl_sec"`
	ReconcileRatePerSec float64 `yaml:"reconcile_rate_per_sec"`
}

// EnrichConfig holds enrichment pipeline settings.
type EnrichConfig struct {
	BatchSize       int     `yaml:"batch_size"`
	PoolSize        int     `yaml:"pool_size"`
	ChunkRatePerSec float64 `yaml:"chunk_rate_per_sec"` // 0 = no pacing between chunks
}

// SearchConfig holds retrieval settings.
type SearchConfig struct {
	Limit          int      `yaml:"limit"`
	FuzzyThreshold float64  `yaml:"fuzzy_threshold"`
	CorpusLimit    int      `yaml:"corpus_limit"`
	Seeds          []string `yaml:"seeds"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 1536
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Tagging.Model == "" {
		c.Tagging.Model = "gpt-4o-mini"
	}
	if c.Tagging.Provider == "" {
		c.Tagging.Provider = "openai"
	}
	if c.Metadata.TimeoutSec <= 0 {
		c.Metadata.TimeoutSec = 10
	}
	if c.AssetSearch.TimeoutSec <= 0 {
		c.AssetSearch.TimeoutSec = 10
	}
	if c.AssetSearch.MaxFailures == 0 {
		c.AssetSearch.MaxFailures = 5
	}
	if c.AssetSearch.OpenSec <= 0 {
		c.AssetSearch.OpenSec = 30
	}
	if c.Match.CacheCapacity <= 0 {
		c.Match.CacheCapacity = 512
	}
	if c.Match.CacheTTLSec <= 0 {
		c.Match.CacheTTLSec = 3600
	}
	if c.Match.ReconcileRatePerSec <= 0 {
		c.Match.ReconcileRatePerSec = 2
	}
	if c.Enrich.BatchSize <= 0 {
		c.Enrich.BatchSize = 5
	}
	if c.Enrich.PoolSize <= 0 {
		c.Enrich.PoolSize = 5
	}
	if c.Search.Limit <= 0 {
		c.Search.Limit = 20
	}
	if c.Search.FuzzyThreshold <= 0 {
		c.Search.FuzzyThreshold = 0.6
	}
	if c.Search.CorpusLimit <= 0 {
		c.Search.CorpusLimit = 1000
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Tagging.APIKey != "" && c.Embedding.APIKey == "" {
		return fmt.Errorf("tagging.api_key is set but embedding.api_key is empty; enrichment requires an embedding provider")
	}
	if c.Search.FuzzyThreshold > 1 {
		return fmt.Errorf("search.fuzzy_threshold must be at most 1, got %g", c.Search.FuzzyThreshold)
	}
	if c.AssetSearch.RatePerSec < 0 {
		return fmt.Errorf("asset_search.rate_per_sec must not be negative, got %g", c.AssetSearch.RatePerSec)
	}
	if c.Metadata.RatePerSec < 0 {
		return fmt.Errorf("metadata.rate_per_sec must not be negative, got %g", c.Metadata.RatePerSec)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
