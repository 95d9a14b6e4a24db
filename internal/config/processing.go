package config

import (
	"strings"
	"time"

	"github.com/delarge95/ai-news-aggregator/internal/domain"
)

// CommitPolicy selects how the postprocessor commits a batch.
type CommitPolicy string

const (
	// CommitAllOrNothing issues one commit per batch and rolls back the whole
	// batch on any persistence error.
	CommitAllOrNothing CommitPolicy = "all_or_nothing"
	// CommitPerArticle commits after every article so one bad article only
	// discards its own writes.
	CommitPerArticle CommitPolicy = "per_article"
)

// ProcessingConfig is built once per orchestrator and never mutated.
type ProcessingConfig struct {
	BatchSize             int
	MaxConcurrentBatches  int
	MaxConcurrentAnalyses int
	AnalysisTimeout       time.Duration
	MaxTokens             map[domain.AnalysisType]int
	Temperature           float64

	MinTitleLength   int
	MaxTitleLength   int
	MaxContentLength int
	MaxPromptChars   int

	RetryAttempts int
	RetryDelay    time.Duration

	EnableParallel   bool
	EnableValidation bool
	EnableCaching    bool

	CommitPolicy CommitPolicy
}

var defaultMaxTokens = map[domain.AnalysisType]int{
	domain.AnalysisSentiment: 150,
	domain.AnalysisTopics:    200,
	domain.AnalysisSummary:   300,
	domain.AnalysisRelevance: 100,
	domain.AnalysisBias:      150,
}

// DefaultProcessingConfig returns the defaults with every toggle enabled.
func DefaultProcessingConfig() ProcessingConfig {
	return ProcessingConfig{
		Temperature:      0.3,
		RetryAttempts:    2,
		EnableParallel:   true,
		EnableValidation: true,
		EnableCaching:    true,
	}.WithDefaults()
}

// WithDefaults fills every non-positive numeric field and unknown policy with
// its default. Toggles are left untouched.
func (c ProcessingConfig) WithDefaults() ProcessingConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = 10
	}
	if c.MaxConcurrentBatches <= 0 {
		c.MaxConcurrentBatches = 3
	}
	if c.MaxConcurrentAnalyses <= 0 {
		c.MaxConcurrentAnalyses = 5
	}
	if c.AnalysisTimeout <= 0 {
		c.AnalysisTimeout = 30 * time.Second
	}
	tokens := make(map[domain.AnalysisType]int, len(defaultMaxTokens))
	for kind, fallback := range defaultMaxTokens {
		tokens[kind] = fallback
		if value, ok := c.MaxTokens[kind]; ok && value > 0 {
			tokens[kind] = value
		}
	}
	c.MaxTokens = tokens
	if c.Temperature < 0 || c.Temperature > 2 {
		c.Temperature = 0.3
	}
	if c.MinTitleLength <= 0 {
		c.MinTitleLength = 10
	}
	if c.MaxTitleLength <= 0 {
		c.MaxTitleLength = 500
	}
	if c.MaxContentLength <= 0 {
		c.MaxContentLength = 50000
	}
	if c.MaxPromptChars <= 0 {
		c.MaxPromptChars = 3000
	}
	if c.RetryAttempts < 0 {
		c.RetryAttempts = 2
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 350 * time.Millisecond
	}
	switch CommitPolicy(strings.ToLower(strings.TrimSpace(string(c.CommitPolicy)))) {
	case CommitPerArticle:
		c.CommitPolicy = CommitPerArticle
	default:
		c.CommitPolicy = CommitAllOrNothing
	}
	return c
}

// TokensFor returns the max output token budget of one analysis type.
func (c ProcessingConfig) TokensFor(kind domain.AnalysisType) int {
	if value, ok := c.MaxTokens[kind]; ok && value > 0 {
		return value
	}
	return defaultMaxTokens[kind]
}
