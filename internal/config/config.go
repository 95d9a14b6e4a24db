package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/delarge95/ai-news-aggregator/internal/domain"
)

// Config centralizes runtime settings for the API, the worker and the CLI.
type Config struct {
	Port string

	AuthToken string

	DatabaseURL     string
	DatabaseMigrate bool

	LLMProvider string

	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	OpenRouterSiteURL string
	OpenRouterAppName string

	OpenAIAPIKey  string
	OpenAIBaseURL string

	LLMTimeoutMS         int
	ModelPrimary         string
	ModelFallback        string
	ModelSummaryPrimary  string
	ModelSummaryFallback string

	AnalysisCacheTTLSeconds int
	AnalysisCacheMaxEntries int

	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisKeyPrefix string

	RateLimitRPS   float64
	RateLimitBurst int

	CORSAllowedOrigins []string

	PipelineBatchSize             int
	PipelineMaxConcurrentBatches  int
	PipelineMaxConcurrentAnalyses int
	PipelineAnalysisTimeoutMS     int
	PipelineTemperature           float64
	PipelineTokensSentiment       int
	PipelineTokensTopics          int
	PipelineTokensSummary         int
	PipelineTokensRelevance       int
	PipelineTokensBias            int
	PipelineMinTitleLength        int
	PipelineMaxTitleLength        int
	PipelineMaxContentLength      int
	PipelineMaxPromptChars        int
	PipelineRetryAttempts         int
	PipelineRetryDelayMS          int
	PipelineParallel              bool
	PipelineValidation            bool
	PipelineCaching               bool
	PipelineCommitPolicy          string

	QueueBackend     string
	QueueBufferSize  int
	QueueMaxAttempts int
	QueueStream      string
	QueueGroup       string
	QueueConsumer    string
	WorkerEnabled    bool
}

func Load() Config {
	return Config{
		Port: getEnv("PORT", "8080"),

		AuthToken: getEnv("API_AUTH_TOKEN", ""),

		DatabaseURL:     getEnv("DATABASE_URL", ""),
		DatabaseMigrate: getEnvBool("DATABASE_MIGRATE", true),

		LLMProvider: strings.ToLower(getEnv("LLM_PROVIDER", "openrouter")),

		OpenRouterAPIKey:  getEnv("OPENROUTER_API_KEY", ""),
		OpenRouterBaseURL: getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		OpenRouterSiteURL: getEnv("OPENROUTER_SITE_URL", ""),
		OpenRouterAppName: getEnv("OPENROUTER_APP_NAME", "AI News Aggregator"),

		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),

		LLMTimeoutMS:         getEnvInt("LLM_TIMEOUT_MS", 30000),
		ModelPrimary:         getEnv("LLM_MODEL_PRIMARY", "openai/gpt-4.1-mini"),
		ModelFallback:        getEnv("LLM_MODEL_FALLBACK", "openai/gpt-4.1-nano"),
		ModelSummaryPrimary:  getEnv("LLM_MODEL_SUMMARY_PRIMARY", ""),
		ModelSummaryFallback: getEnv("LLM_MODEL_SUMMARY_FALLBACK", ""),

		AnalysisCacheTTLSeconds: getEnvInt("ANALYSIS_CACHE_TTL_SECONDS", 3600),
		AnalysisCacheMaxEntries: getEnvInt("ANALYSIS_CACHE_MAX_ENTRIES", 5000),

		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        getEnvInt("REDIS_DB", 0),
		RedisKeyPrefix: getEnv("REDIS_KEY_PREFIX", "news-ai:analysis:"),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 20),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", nil),

		PipelineBatchSize:             getEnvInt("PIPELINE_BATCH_SIZE", 10),
		PipelineMaxConcurrentBatches:  getEnvInt("PIPELINE_MAX_CONCURRENT_BATCHES", 3),
		PipelineMaxConcurrentAnalyses: getEnvInt("PIPELINE_MAX_CONCURRENT_ANALYSES", 5),
		PipelineAnalysisTimeoutMS:     getEnvInt("PIPELINE_ANALYSIS_TIMEOUT_MS", 30000),
		PipelineTemperature:           getEnvFloat("PIPELINE_TEMPERATURE", 0.3),
		PipelineTokensSentiment:       getEnvInt("PIPELINE_TOKENS_SENTIMENT", 150),
		PipelineTokensTopics:          getEnvInt("PIPELINE_TOKENS_TOPICS", 200),
		PipelineTokensSummary:         getEnvInt("PIPELINE_TOKENS_SUMMARY", 300),
		PipelineTokensRelevance:       getEnvInt("PIPELINE_TOKENS_RELEVANCE", 100),
		PipelineTokensBias:            getEnvInt("PIPELINE_TOKENS_BIAS", 150),
		PipelineMinTitleLength:        getEnvInt("PIPELINE_MIN_TITLE_LENGTH", 10),
		PipelineMaxTitleLength:        getEnvInt("PIPELINE_MAX_TITLE_LENGTH", 500),
		PipelineMaxContentLength:      getEnvInt("PIPELINE_MAX_CONTENT_LENGTH", 50000),
		PipelineMaxPromptChars:        getEnvInt("PIPELINE_MAX_PROMPT_CHARS", 3000),
		PipelineRetryAttempts:         getEnvInt("PIPELINE_RETRY_ATTEMPTS", 2),
		PipelineRetryDelayMS:          getEnvInt("PIPELINE_RETRY_DELAY_MS", 350),
		PipelineParallel:              getEnvBool("PIPELINE_PARALLEL", true),
		PipelineValidation:            getEnvBool("PIPELINE_VALIDATION", true),
		PipelineCaching:               getEnvBool("PIPELINE_CACHING", true),
		PipelineCommitPolicy:          getEnv("PIPELINE_COMMIT_POLICY", string(CommitAllOrNothing)),

		QueueBackend:     strings.ToLower(getEnv("QUEUE_BACKEND", "local")),
		QueueBufferSize:  getEnvInt("QUEUE_BUFFER_SIZE", 256),
		QueueMaxAttempts: getEnvInt("QUEUE_MAX_ATTEMPTS", 3),
		QueueStream:      getEnv("QUEUE_STREAM", "news_batches"),
		QueueGroup:       getEnv("QUEUE_GROUP", "news_workers"),
		QueueConsumer:    getEnv("QUEUE_CONSUMER", "api-1"),
		WorkerEnabled:    getEnvBool("WORKER_ENABLED", true),
	}
}

// Processing builds the immutable pipeline configuration.
func (c Config) Processing() ProcessingConfig {
	return ProcessingConfig{
		BatchSize:             c.PipelineBatchSize,
		MaxConcurrentBatches:  c.PipelineMaxConcurrentBatches,
		MaxConcurrentAnalyses: c.PipelineMaxConcurrentAnalyses,
		AnalysisTimeout:       time.Duration(c.PipelineAnalysisTimeoutMS) * time.Millisecond,
		MaxTokens: map[domain.AnalysisType]int{
			domain.AnalysisSentiment: c.PipelineTokensSentiment,
			domain.AnalysisTopics:    c.PipelineTokensTopics,
			domain.AnalysisSummary:   c.PipelineTokensSummary,
			domain.AnalysisRelevance: c.PipelineTokensRelevance,
			domain.AnalysisBias:      c.PipelineTokensBias,
		},
		Temperature:      c.PipelineTemperature,
		MinTitleLength:   c.PipelineMinTitleLength,
		MaxTitleLength:   c.PipelineMaxTitleLength,
		MaxContentLength: c.PipelineMaxContentLength,
		MaxPromptChars:   c.PipelineMaxPromptChars,
		RetryAttempts:    c.PipelineRetryAttempts,
		RetryDelay:       time.Duration(c.PipelineRetryDelayMS) * time.Millisecond,
		EnableParallel:   c.PipelineParallel,
		EnableValidation: c.PipelineValidation,
		EnableCaching:    c.PipelineCaching,
		CommitPolicy:     CommitPolicy(c.PipelineCommitPolicy),
	}.WithDefaults()
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
