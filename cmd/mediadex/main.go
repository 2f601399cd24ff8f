package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/bitaca/mediadex/internal/config"
	dbRedis "github.com/bitaca/mediadex/internal/db/redis"
	"github.com/bitaca/mediadex/internal/domain"
	logpkg "github.com/bitaca/mediadex/internal/logger"
	"github.com/bitaca/mediadex/internal/metrics"
	"github.com/bitaca/mediadex/internal/repository/embcache"
	"github.com/bitaca/mediadex/internal/repository/history"
	indexrepo "github.com/bitaca/mediadex/internal/repository/index"
	"github.com/bitaca/mediadex/internal/repository/matchcache"
	"github.com/bitaca/mediadex/internal/transport/assetsearch"
	chiTransport "github.com/bitaca/mediadex/internal/transport/chi"
	openaiTransport "github.com/bitaca/mediadex/internal/transport/openai"
	"github.com/bitaca/mediadex/internal/transport/tmdb"
	cataloguc "github.com/bitaca/mediadex/internal/usecase/catalog"
	enrichuc "github.com/bitaca/mediadex/internal/usecase/enrich"
	healthuc "github.com/bitaca/mediadex/internal/usecase/health"
	matchuc "github.com/bitaca/mediadex/internal/usecase/match"
	searchuc "github.com/bitaca/mediadex/internal/usecase/search"
	"github.com/bitaca/mediadex/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting mediadex API server",
		zap.String("build", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterCollectors()

	indexRepo := indexrepo.New(store, cfg.Embedding.Dimensions, logger)
	if err := indexRepo.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure vector index", zap.Error(err))
	}

	// Embedding provider. Absent key means offline mode: retrieval degrades
	// to keyword search and enrichment is disabled.
	var baseEmbedder *openaiTransport.Embedder
	var embedder domain.Embedder
	if cfg.Embedding.APIKey != "" {
		baseEmbedder = openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			User:       cfg.Embedding.User,
			Provider:   cfg.Embedding.Provider,
			Logger:     logger,
		})
		embedder = embcache.New(baseEmbedder, store, metrics.EmbeddingCacheTotal, logger)
		logger.Info("Embedder created",
			zap.String("provider", cfg.Embedding.Provider),
			zap.String("model", cfg.Embedding.Model),
			zap.Int("dimensions", cfg.Embedding.Dimensions),
		)
	} else {
		logger.Warn("No embedding API key configured, running in keyword-only mode")
	}

	var tagger *openaiTransport.Tagger
	if cfg.Tagging.APIKey != "" {
		tagger = openaiTransport.NewTagger(&openaiTransport.TaggerConfig{
			APIKey:   cfg.Tagging.APIKey,
			BaseURL:  cfg.Tagging.BaseURL,
			Model:    cfg.Tagging.Model,
			Provider: cfg.Tagging.Provider,
			Logger:   logger,
		})
	}

	metadataClient := tmdb.New(&tmdb.Config{
		BearerToken:  cfg.Metadata.BearerToken,
		BaseURL:      cfg.Metadata.BaseURL,
		ImageBaseURL: cfg.Metadata.ImageBaseURL,
		Language:     cfg.Metadata.Language,
		Timeout:      time.Duration(cfg.Metadata.TimeoutSec) * time.Second,
		RatePerSec:   cfg.Metadata.RatePerSec,
		Logger:       logger,
	})

	assetClient := assetsearch.New(&assetsearch.Config{
		BaseURL:     cfg.AssetSearch.BaseURL,
		Timeout:     time.Duration(cfg.AssetSearch.TimeoutSec) * time.Second,
		RatePerSec:  cfg.AssetSearch.RatePerSec,
		Burst:       cfg.AssetSearch.Burst,
		MaxFailures: cfg.AssetSearch.MaxFailures,
		OpenTimeout: time.Duration(cfg.AssetSearch.OpenSec) * time.Second,
		Logger:      logger,
	})

	cache := matchcache.New(cfg.Match.CacheCapacity, time.Duration(cfg.Match.CacheTTLSec)*time.Second)
	hist := history.New(0)

	reconcileLimiter := rate.NewLimiter(rate.Limit(cfg.Match.ReconcileRatePerSec), 1)
	matchSvc := matchuc.New(assetClient, metadataClient, cache, reconcileLimiter, logger)

	// Enrichment needs both providers; without them the endpoint reports 503.
	var enrichSvc *enrichuc.Service
	if embedder != nil && tagger != nil {
		var chunkLimiter *rate.Limiter
		if cfg.Enrich.ChunkRatePerSec > 0 {
			chunkLimiter = rate.NewLimiter(rate.Limit(cfg.Enrich.ChunkRatePerSec), 1)
		}
		enrichSvc, err = enrichuc.New(embedder, tagger, indexRepo, enrichuc.Options{
			BatchSize:    cfg.Enrich.BatchSize,
			PoolSize:     cfg.Enrich.PoolSize,
			ChunkLimiter: chunkLimiter,
			Model:        cfg.Embedding.Model,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to create enrichment service", zap.Error(err))
		}
		defer enrichSvc.Release()
	}

	// Pass nil interface (not typed nil pointer!) when embedding is not
	// configured. Go gotcha: a typed nil wrapped in an interface != nil.
	var queryEmbedder searchuc.Embedder
	if embedder != nil {
		queryEmbedder = embedder
	}
	searchSvc := searchuc.New(indexRepo, queryEmbedder, hist, searchuc.Options{
		FuzzyThreshold: cfg.Search.FuzzyThreshold,
		CorpusLimit:    cfg.Search.CorpusLimit,
		Seeds:          cfg.Search.Seeds,
	}, logger)

	catalogSvc := cataloguc.New(metadataClient, indexRepo, cache, hist, logger)

	var embeddingChecker healthuc.EmbeddingChecker
	if baseEmbedder != nil {
		embeddingChecker = baseEmbedder
	}
	healthSvc := healthuc.New(store, embeddingChecker)

	server := chiTransport.NewServer(matchSvc, enrichSvc, searchSvc, catalogSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Mount(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
