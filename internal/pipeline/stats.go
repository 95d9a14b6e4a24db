package pipeline

import (
	"sync"

	"github.com/delarge95/ai-news-aggregator/internal/domain"
)

// statsCounter accumulates run statistics for one orchestrator.
type statsCounter struct {
	mu    sync.Mutex
	stats domain.Stats
}

func (c *statsCounter) record(result domain.BatchResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.Runs++
	if result.State == domain.StateError {
		c.stats.FailedRuns++
	}
	meta := result.Metadata
	c.stats.ArticlesReceived += int64(result.TotalArticles)
	c.stats.ArticlesProcessed += int64(meta.Preprocessing.Processed)
	c.stats.ArticlesInvalid += int64(meta.Preprocessing.Invalid)
	c.stats.AnalysesCompleted += int64(result.SuccessfulCount)
	c.stats.AnalysesFailed += int64(result.FailedCount)
	c.stats.ArticlesSaved += int64(meta.Postprocessing.Saved)
	c.stats.PersistenceErrors += int64(meta.Postprocessing.Errors)
	c.stats.ProcessingTime += result.ProcessingTime
}

func (c *statsCounter) snapshot() domain.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *statsCounter) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = domain.Stats{}
}
