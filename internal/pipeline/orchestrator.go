// Package pipeline runs the news analysis pipeline: preprocessing,
// multi-step model analysis and persistence of one batch.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/delarge95/ai-news-aggregator/internal/ai"
	"github.com/delarge95/ai-news-aggregator/internal/cache"
	"github.com/delarge95/ai-news-aggregator/internal/config"
	"github.com/delarge95/ai-news-aggregator/internal/domain"
	"github.com/delarge95/ai-news-aggregator/internal/repository"
)

type OrchestratorDependencies struct {
	Config     config.ProcessingConfig
	Normalizer Normalizer
	Client     ai.TextGenerator
	Router     *ai.ModelRouter
	Cache      cache.AnalysisCache
	Logger     *log.Logger
}

// Orchestrator sequences the pipeline phases for one batch per call. It is
// safe for concurrent use; calls share only the statistics.
type Orchestrator struct {
	config        config.ProcessingConfig
	preprocessor  *Preprocessor
	runner        *Runner
	postprocessor *Postprocessor
	logger        *log.Logger
	stats         statsCounter
}

func New(deps OrchestratorDependencies) *Orchestrator {
	cfg := deps.Config.WithDefaults()
	return &Orchestrator{
		config:       cfg,
		preprocessor: NewPreprocessor(cfg, deps.Normalizer, deps.Logger),
		runner: NewRunner(RunnerDependencies{
			Config: cfg,
			Client: deps.Client,
			Router: deps.Router,
			Cache:  deps.Cache,
			Logger: deps.Logger,
		}),
		postprocessor: NewPostprocessor(cfg.CommitPolicy, deps.Logger),
		logger:        deps.Logger,
	}
}

// Config returns the processing configuration the orchestrator was built with.
func (o *Orchestrator) Config() config.ProcessingConfig {
	return o.config
}

// Run processes one raw batch. It never panics or returns an error: the
// outcome is in the result's state, counts, errors and per-result statuses.
// A nil session skips persistence. Cancelling ctx aborts the batch: steps not
// yet started fail without calling the model.
func (o *Orchestrator) Run(
	ctx context.Context,
	raw []domain.RawArticle,
	sourceType string,
	session repository.Session,
) (result domain.BatchResult) {
	started := time.Now()
	result = domain.BatchResult{
		BatchID:       uuid.NewString(),
		State:         domain.StatePending,
		TotalArticles: len(raw),
	}
	defer func() {
		if recovered := recover(); recovered != nil {
			critical := &domain.CriticalPipelineError{Phase: result.State, Reason: fmt.Sprint(recovered)}
			o.logf("pipeline batch_id=%s panic: %v", result.BatchID, critical)
			result.State = domain.StateError
			result.Errors = append(result.Errors, critical.Error())
		}
		result.ProcessingTime = time.Since(started)
		o.stats.record(result)
		o.logf(
			"pipeline batch_id=%s finished state=%s articles=%d completed=%d failed=%d persisted=%t duration_ms=%d",
			result.BatchID,
			result.State,
			result.TotalArticles,
			result.SuccessfulCount,
			result.FailedCount,
			result.Persisted,
			result.ProcessingTime.Milliseconds(),
		)
	}()

	if len(raw) == 0 {
		result.Metadata.Postprocessing.Skipped = true
		o.transition(&result, domain.StateDone)
		return result
	}

	o.transition(&result, domain.StatePreprocessing)
	processed, invalid := o.preprocessor.Process(ctx, raw, sourceType)
	result.Metadata.Preprocessing = domain.PreprocessingMeta{
		Input:     len(raw),
		Processed: len(processed),
		Invalid:   len(invalid),
		Rejected:  invalid,
	}
	if len(processed) == 0 {
		critical := &domain.CriticalPipelineError{
			Phase:  domain.StatePreprocessing,
			Reason: fmt.Sprintf("no articles survived preprocessing (input=%d invalid=%d)", len(raw), len(invalid)),
		}
		result.Errors = append(result.Errors, critical.Error())
		result.Metadata.Postprocessing.Skipped = true
		o.transition(&result, domain.StateError)
		return result
	}

	o.transition(&result, domain.StateAnalyzing)
	results := o.runner.Analyze(ctx, processed)
	completed, failed := domain.CountResults(results)
	result.Results = results
	result.SuccessfulCount = completed
	result.FailedCount = failed
	result.Metadata.Analysis = domain.AnalysisMeta{
		Articles:    len(processed),
		Results:     len(results),
		SuccessRate: successRate(completed, len(results)),
	}

	if session == nil {
		result.Errors = append(result.Errors, domain.ErrNoSession.Error())
		result.Metadata.Postprocessing.Skipped = true
		o.transition(&result, domain.StateDone)
		return result
	}

	o.transition(&result, domain.StatePostprocessing)
	saved, errs := o.postprocessor.Commit(ctx, processed, results, session)
	result.Errors = append(result.Errors, errs...)
	result.Persisted = saved > 0
	result.Metadata.Postprocessing = domain.PostprocessingMeta{
		Saved:  saved,
		Errors: len(errs),
	}
	o.transition(&result, domain.StateDone)
	return result
}

// AnalyzeArticle runs a one-article batch and unwraps its outcome.
func (o *Orchestrator) AnalyzeArticle(
	ctx context.Context,
	raw domain.RawArticle,
	sourceType string,
	session repository.Session,
) domain.ArticleOutcome {
	batch := o.Run(ctx, []domain.RawArticle{raw}, sourceType, session)
	outcome := domain.ArticleOutcome{
		BatchID:   batch.BatchID,
		State:     batch.State,
		Results:   batch.Results,
		Errors:    batch.Errors,
		Persisted: batch.Persisted,
	}
	if len(batch.Results) > 0 {
		outcome.ArticleID = batch.Results[0].Meta().ArticleID
	}
	for _, rejected := range batch.Metadata.Preprocessing.Rejected {
		outcome.ArticleID = rejected.Article.ID
		outcome.Errors = append(outcome.Errors, rejected.Reasons...)
	}
	if outcome.Results == nil {
		outcome.Results = []domain.AnalysisResult{}
	}
	if outcome.Errors == nil {
		outcome.Errors = []string{}
	}
	return outcome
}

// Stats returns a snapshot of the cumulative counters.
func (o *Orchestrator) Stats() domain.Stats {
	return o.stats.snapshot()
}

// ResetStats zeroes the cumulative counters.
func (o *Orchestrator) ResetStats() {
	o.stats.reset()
}

func (o *Orchestrator) transition(result *domain.BatchResult, next domain.PipelineState) {
	o.logf("pipeline batch_id=%s state=%s->%s", result.BatchID, result.State, next)
	result.State = next
}

func successRate(completed, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(completed)/float64(total)*10000) / 10000
}

func (o *Orchestrator) logf(format string, args ...any) {
	if o.logger == nil {
		return
	}
	o.logger.Printf(format, args...)
}
