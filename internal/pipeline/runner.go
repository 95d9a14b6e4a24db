package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/delarge95/ai-news-aggregator/internal/ai"
	"github.com/delarge95/ai-news-aggregator/internal/cache"
	"github.com/delarge95/ai-news-aggregator/internal/config"
	"github.com/delarge95/ai-news-aggregator/internal/domain"
	"github.com/delarge95/ai-news-aggregator/internal/parsing"
	"github.com/delarge95/ai-news-aggregator/internal/quality"
)

type RunnerDependencies struct {
	Config config.ProcessingConfig
	Client ai.TextGenerator
	Router *ai.ModelRouter
	Cache  cache.AnalysisCache
	Logger *log.Logger
}

// Runner executes the fixed analysis sequence for every article.
type Runner struct {
	config config.ProcessingConfig
	client ai.TextGenerator
	router *ai.ModelRouter
	cache  cache.AnalysisCache
	logger *log.Logger
}

func NewRunner(deps RunnerDependencies) *Runner {
	router := deps.Router
	if router == nil {
		router = ai.NewModelRouter(ai.ModelRouterConfig{})
	}
	return &Runner{
		config: deps.Config.WithDefaults(),
		client: deps.Client,
		router: router,
		cache:  deps.Cache,
		logger: deps.Logger,
	}
}

// Analyze returns up to domain.StepsPerArticle results per article. Results
// of different articles interleave in completion order.
func (r *Runner) Analyze(ctx context.Context, articles []domain.Article) []domain.AnalysisResult {
	results := make([]domain.AnalysisResult, 0, len(articles)*domain.StepsPerArticle)
	if !r.config.EnableParallel {
		for _, article := range articles {
			results = append(results, r.analyzeArticle(ctx, article)...)
		}
		return results
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = semaphore.NewWeighted(int64(r.config.MaxConcurrentAnalyses))
	)
	for _, article := range articles {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Cancelled: every remaining step fails fast without calling the model.
			articleResults := r.analyzeArticle(ctx, article)
			mu.Lock()
			results = append(results, articleResults...)
			mu.Unlock()
			continue
		}
		wg.Add(1)
		go func(article domain.Article) {
			defer wg.Done()
			defer sem.Release(1)
			articleResults := r.analyzeArticle(ctx, article)
			mu.Lock()
			results = append(results, articleResults...)
			mu.Unlock()
		}(article)
	}
	wg.Wait()
	return results
}

// analyzeArticle runs the steps in order. A failed step never stops the
// sequence. A panic discards the article's results.
func (r *Runner) analyzeArticle(ctx context.Context, article domain.Article) (results []domain.AnalysisResult) {
	defer func() {
		if recovered := recover(); recovered != nil {
			r.logf("analysis article_id=%s panic, results discarded: %v", article.ID, recovered)
			results = nil
		}
	}()

	data := promptData{
		Title:   article.Title,
		Source:  article.SourceName,
		Content: quality.TruncateAtWord(article.Body(), r.config.MaxPromptChars),
	}
	results = make([]domain.AnalysisResult, 0, domain.StepsPerArticle)
	for _, kind := range domain.AnalysisOrder {
		results = append(results, r.runStep(ctx, article, kind, data))
	}
	return results
}

func (r *Runner) runStep(
	ctx context.Context,
	article domain.Article,
	kind domain.AnalysisType,
	data promptData,
) domain.AnalysisResult {
	started := time.Now()
	meta := domain.ResultMeta{ArticleID: article.ID, Type: kind}
	fail := func(err error) domain.AnalysisResult {
		meta.Latency = time.Since(started)
		r.logf("analysis article_id=%s type=%s failed: %v", article.ID, kind, err)
		return domain.Failed{ResultMeta: meta, Error: err.Error()}
	}
	stepError := func(err error) error {
		return &domain.AnalysisStepError{ArticleID: article.ID, Type: kind, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return fail(stepError(fmt.Errorf("batch cancelled: %w", err)))
	}

	prompt, err := renderPrompt(kind, data)
	if err != nil {
		return fail(stepError(err))
	}

	profile := r.router.Select(ai.TaskKind(kind))
	signature := ""
	if r.config.EnableCaching && r.cache != nil {
		signature = cache.BuildSignature(string(kind), profile.PrimaryModel, data.Title, data.Content)
		if entry, ok := r.cache.Get(ctx, signature); ok {
			meta.Latency = time.Since(started)
			return domain.Completed{
				ResultMeta: meta,
				Payload:    entry.Payload,
				Confidence: entry.Confidence,
				Model:      entry.ModelID,
			}
		}
	}

	text, model, err := r.generate(ctx, kind, profile, prompt)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return fail(stepError(fmt.Errorf("batch cancelled: %w", ctx.Err())))
		case ai.IsTimeout(err):
			// Zero when the provider client's own timeout fired first.
			var timeout time.Duration
			if errors.Is(err, errAnalysisDeadline) {
				timeout = r.config.AnalysisTimeout
			}
			return fail(&domain.AnalysisTimeoutError{
				ArticleID: article.ID,
				Type:      kind,
				Timeout:   timeout,
				Err:       err,
			})
		default:
			return fail(stepError(err))
		}
	}

	parser, err := parsing.ForType(kind)
	if err != nil {
		return fail(stepError(err))
	}
	parsed, err := parser.Parse(text)
	if err != nil {
		return fail(stepError(fmt.Errorf("parse response: %w", err)))
	}

	confidence := quality.ScoreConfidence(kind, text, parsed.Structured)
	if signature != "" {
		r.cache.Set(ctx, signature, cache.Entry{
			Payload:    parsed.Payload,
			Confidence: confidence,
			ModelID:    model,
			CreatedAt:  time.Now().UTC(),
		})
	}

	meta.Latency = time.Since(started)
	return domain.Completed{
		ResultMeta: meta,
		Payload:    parsed.Payload,
		Confidence: confidence,
		Model:      model,
	}
}

// generate calls the primary model and, on a non-timeout failure, the
// fallback model. Every call gets its own deadline.
func (r *Runner) generate(
	ctx context.Context,
	kind domain.AnalysisType,
	profile ai.ModelProfile,
	prompt string,
) (string, string, error) {
	if r.client == nil || !r.client.Available() {
		return "", "", ai.ErrUnavailable
	}

	text, model, err := r.call(ctx, kind, profile.PrimaryModel, prompt)
	if err == nil {
		return text, model, nil
	}
	if ai.IsTimeout(err) || ctx.Err() != nil {
		return "", "", err
	}
	if strings.TrimSpace(profile.FallbackModel) == "" || profile.FallbackModel == profile.PrimaryModel {
		return "", "", err
	}

	r.logf("analysis type=%s primary model failed, trying fallback: %v", kind, err)
	text, model, fallbackErr := r.call(ctx, kind, profile.FallbackModel, prompt)
	if fallbackErr != nil {
		if ai.IsTimeout(fallbackErr) {
			return "", "", fallbackErr
		}
		return "", "", fmt.Errorf("primary model failed: %v; fallback failed: %w", err, fallbackErr)
	}
	return text, model, nil
}

func (r *Runner) call(ctx context.Context, kind domain.AnalysisType, model, prompt string) (string, string, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.config.AnalysisTimeout)
	defer cancel()

	result, err := r.client.Generate(callCtx, ai.GenerateRequest{
		Model:           model,
		Instructions:    systemInstructions,
		Input:           prompt,
		Temperature:     r.config.Temperature,
		MaxOutputTokens: r.config.TokensFor(kind),
	})
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return "", "", fmt.Errorf("%w: %w: %v", ai.ErrTimeout, errAnalysisDeadline, err)
		}
		return "", "", err
	}
	if strings.TrimSpace(result.Text) == "" {
		return "", "", ai.ErrEmptyOutput
	}
	return result.Text, firstNonEmpty(result.ModelID, model), nil
}

var errAnalysisDeadline = errors.New("analysis deadline exceeded")

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func (r *Runner) logf(format string, args ...any) {
	if r.logger == nil {
		return
	}
	r.logger.Printf(format, args...)
}
