// Package app builds the shared runtime components from Config for the API
// server and the pipeline CLI.
package app

import (
	"context"
	"log"
	"time"

	"github.com/delarge95/ai-news-aggregator/internal/ai"
	"github.com/delarge95/ai-news-aggregator/internal/cache"
	"github.com/delarge95/ai-news-aggregator/internal/config"
	"github.com/delarge95/ai-news-aggregator/internal/normalize"
	"github.com/delarge95/ai-news-aggregator/internal/pipeline"
	"github.com/delarge95/ai-news-aggregator/internal/repository"
)

// Store bundles the persistence backends. Ping is nil for the memory store.
type Store struct {
	Sessions repository.SessionFactory
	Runs     repository.RunsRepository
	Ping     func(ctx context.Context) error
	Close    func()
}

// OpenStore connects to Postgres when DATABASE_URL is set, falling back to
// the in-memory store when it is not or the connection fails.
func OpenStore(ctx context.Context, cfg config.Config, logger *log.Logger) Store {
	if cfg.DatabaseURL == "" {
		logf(logger, "DATABASE_URL not configured, using in-memory store")
		return memoryStore()
	}

	pool, err := repository.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logf(logger, "failed to initialize postgres store, fallback to memory: %v", err)
		return memoryStore()
	}
	if cfg.DatabaseMigrate {
		if err := repository.Migrate(pool); err != nil {
			logf(logger, "database migration failed, fallback to memory: %v", err)
			pool.Close()
			return memoryStore()
		}
		logf(logger, "database migrations applied")
	}
	logf(logger, "postgres store initialized")
	return Store{
		Sessions: repository.NewPostgresStore(pool),
		Runs:     repository.NewPostgresRunsRepository(pool),
		Ping:     pool.Ping,
		Close:    pool.Close,
	}
}

func memoryStore() Store {
	return Store{
		Sessions: repository.NewMemoryStore(),
		Runs:     repository.NewMemoryRunsRepository(),
		Close:    func() {},
	}
}

// NewTextGenerator returns the client of the configured LLM provider. Its
// retries follow the processing config.
func NewTextGenerator(cfg config.Config) ai.TextGenerator {
	retry := RetryPolicy(cfg.Processing())
	timeout := time.Duration(cfg.LLMTimeoutMS) * time.Millisecond

	if cfg.LLMProvider == "openai" {
		return ai.NewOpenAIClient(ai.OpenAIClientConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Timeout: timeout,
			Retry:   retry,
		})
	}
	return ai.NewOpenRouterClient(ai.OpenRouterClientConfig{
		APIKey:  cfg.OpenRouterAPIKey,
		BaseURL: cfg.OpenRouterBaseURL,
		Timeout: timeout,
		Retry:   retry,
		SiteURL: cfg.OpenRouterSiteURL,
		AppName: cfg.OpenRouterAppName,
	})
}

// RetryPolicy maps the processing retry settings onto the provider clients.
func RetryPolicy(processing config.ProcessingConfig) ai.RetryPolicy {
	processing = processing.WithDefaults()
	return ai.RetryPolicy{
		MaxRetries: processing.RetryAttempts,
		BaseDelay:  processing.RetryDelay,
	}
}

func NewModelRouter(cfg config.Config) *ai.ModelRouter {
	return ai.NewModelRouter(ai.ModelRouterConfig{
		Primary:         cfg.ModelPrimary,
		Fallback:        cfg.ModelFallback,
		SummaryPrimary:  cfg.ModelSummaryPrimary,
		SummaryFallback: cfg.ModelSummaryFallback,
	})
}

// AnalysisCache is the configured cache plus its closer and health probe.
type AnalysisCache struct {
	Cache cache.AnalysisCache
	Ping  func(ctx context.Context) error
	Close func()
}

// NewAnalysisCache shares results through Redis when REDIS_ADDR is set and
// keeps them in process otherwise.
func NewAnalysisCache(ctx context.Context, cfg config.Config, logger *log.Logger) AnalysisCache {
	ttl := time.Duration(cfg.AnalysisCacheTTLSeconds) * time.Second
	local := AnalysisCache{
		Cache: cache.NewMemoryCache(cache.Config{TTL: ttl, MaxEntries: cfg.AnalysisCacheMaxEntries}),
		Close: func() {},
	}
	if cfg.RedisAddr == "" {
		return local
	}

	redisCache, err := cache.NewRedisCache(ctx, cache.RedisConfig{
		Addr:      cfg.RedisAddr,
		Password:  cfg.RedisPassword,
		DB:        cfg.RedisDB,
		KeyPrefix: cfg.RedisKeyPrefix,
		TTL:       ttl,
	}, logger)
	if err != nil {
		logf(logger, "failed to initialize redis cache, fallback to memory: %v", err)
		return local
	}
	logf(logger, "redis analysis cache initialized")
	return AnalysisCache{
		Cache: redisCache,
		Ping:  redisCache.Ping,
		Close: func() { _ = redisCache.Close() },
	}
}

// NewOrchestrator wires the pipeline with the standard normalizer.
func NewOrchestrator(cfg config.Config, client ai.TextGenerator, analysisCache cache.AnalysisCache, logger *log.Logger) *pipeline.Orchestrator {
	return pipeline.New(pipeline.OrchestratorDependencies{
		Config:     cfg.Processing(),
		Normalizer: normalize.NewNormalizer(),
		Client:     client,
		Router:     NewModelRouter(cfg),
		Cache:      analysisCache,
		Logger:     logger,
	})
}

func logf(logger *log.Logger, format string, args ...any) {
	if logger != nil {
		logger.Printf(format, args...)
	}
}
