package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/delarge95/ai-news-aggregator/internal/config"
	"github.com/delarge95/ai-news-aggregator/internal/domain"
	"github.com/delarge95/ai-news-aggregator/internal/repository"
)

// Postprocessor persists analyzed articles through a session. With
// CommitAllOrNothing one failing article discards the whole batch.
type Postprocessor struct {
	policy config.CommitPolicy
	logger *log.Logger
	now    func() time.Time
}

func NewPostprocessor(policy config.CommitPolicy, logger *log.Logger) *Postprocessor {
	if policy != config.CommitPerArticle {
		policy = config.CommitAllOrNothing
	}
	return &Postprocessor{
		policy: policy,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Commit writes every article with its completed analyses and returns how
// many articles were durably saved together with the persistence errors.
func (p *Postprocessor) Commit(
	ctx context.Context,
	articles []domain.Article,
	results []domain.AnalysisResult,
	session repository.Session,
) (int, []string) {
	if session == nil {
		return 0, []string{domain.ErrNoSession.Error()}
	}
	grouped := domain.GroupByArticle(results)
	sources := make(map[string]*domain.Source)

	if p.policy == config.CommitPerArticle {
		return p.commitPerArticle(ctx, articles, grouped, sources, session)
	}

	for _, article := range articles {
		if _, err := p.stageArticle(ctx, session, article, grouped[article.ID], sources); err != nil {
			p.rollback(ctx, session)
			persistErr := &domain.PersistenceError{Op: "batch", Err: fmt.Errorf("article %s: %w", article.ID, err)}
			p.logf("postprocess rollback articles=%d: %v", len(articles), persistErr)
			return 0, []string{persistErr.Error()}
		}
	}
	if err := session.Commit(ctx); err != nil {
		p.rollback(ctx, session)
		persistErr := &domain.PersistenceError{Op: "commit", Err: err}
		p.logf("postprocess commit failed articles=%d: %v", len(articles), persistErr)
		return 0, []string{persistErr.Error()}
	}
	return len(articles), nil
}

func (p *Postprocessor) commitPerArticle(
	ctx context.Context,
	articles []domain.Article,
	grouped map[string][]domain.AnalysisResult,
	sources map[string]*domain.Source,
	session repository.Session,
) (int, []string) {
	saved := 0
	var errs []string
	for _, article := range articles {
		created, err := p.stageArticle(ctx, session, article, grouped[article.ID], sources)
		op := "article"
		if err == nil {
			op = "commit"
			err = session.Commit(ctx)
		}
		if err != nil {
			p.rollback(ctx, session)
			for _, key := range created {
				delete(sources, key)
			}
			persistErr := &domain.PersistenceError{Op: op, Err: fmt.Errorf("article %s: %w", article.ID, err)}
			p.logf("postprocess article_id=%s rolled back: %v", article.ID, persistErr)
			errs = append(errs, persistErr.Error())
			continue
		}
		saved++
	}
	return saved, errs
}

// stageArticle adds the source, the article and its analysis records to the
// session. It returns the source keys it created so a rollback can forget them.
func (p *Postprocessor) stageArticle(
	ctx context.Context,
	session repository.Session,
	article domain.Article,
	results []domain.AnalysisResult,
	sources map[string]*domain.Source,
) ([]string, error) {
	source, createdKey, err := p.resolveSource(ctx, session, article, sources)
	var created []string
	if createdKey != "" {
		created = append(created, createdKey)
	}
	if err != nil {
		return created, err
	}

	now := p.now()
	stored := domain.StoredArticle{
		ID:          article.ID,
		SourceID:    source.ID,
		Title:       article.Title,
		Content:     article.Content,
		Description: article.Description,
		URL:         article.URL,
		PublishedAt: article.PublishedAt,
		CreatedAt:   now,
	}

	records := make([]domain.AnalysisRecord, 0, len(results))
	for _, result := range results {
		completed, ok := result.(domain.Completed)
		if !ok {
			continue
		}
		project(&stored, completed)
		records = append(records, domain.AnalysisRecord{
			ID:         uuid.NewString(),
			ArticleID:  article.ID,
			Type:       completed.Type,
			Payload:    completed.Payload,
			Confidence: completed.Confidence,
			Model:      completed.Model,
			LatencyMS:  completed.Latency.Milliseconds(),
			CreatedAt:  now,
		})
	}

	if err := session.AddArticle(ctx, &stored); err != nil {
		return created, err
	}
	for index := range records {
		if err := session.AddAnalysis(ctx, &records[index]); err != nil {
			return created, err
		}
	}
	return created, nil
}

func (p *Postprocessor) resolveSource(
	ctx context.Context,
	session repository.Session,
	article domain.Article,
	sources map[string]*domain.Source,
) (*domain.Source, string, error) {
	name := strings.TrimSpace(article.SourceName)
	if name == "" {
		name = "unknown"
	}
	key := strings.ToLower(name)
	if source, ok := sources[key]; ok {
		return source, "", nil
	}

	source, err := session.FindSourceByName(ctx, name)
	if err == nil {
		sources[key] = source
		return source, "", nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, "", fmt.Errorf("find source %q: %w", name, err)
	}

	source = &domain.Source{
		ID:        uuid.NewString(),
		Name:      name,
		Type:      article.SourceType,
		CreatedAt: p.now(),
	}
	if err := session.AddSource(ctx, source); err != nil {
		return nil, "", fmt.Errorf("add source %q: %w", name, err)
	}
	sources[key] = source
	return source, key, nil
}

// project copies the well-known analysis fields onto the stored article.
func project(stored *domain.StoredArticle, completed domain.Completed) {
	payload := completed.Payload
	switch completed.Type {
	case domain.AnalysisSummary:
		if summary, ok := payload["summary"].(string); ok {
			stored.Summary = summary
		}
	case domain.AnalysisSentiment:
		stored.SentimentScore = numberField(payload, "sentiment_score")
		if label, ok := payload["sentiment_label"].(string); ok {
			stored.SentimentLabel = label
		}
	case domain.AnalysisRelevance:
		stored.RelevanceScore = numberField(payload, "relevance_score")
	case domain.AnalysisBias:
		stored.BiasScore = numberField(payload, "bias_score")
	case domain.AnalysisTopics:
		stored.Topics = stringsField(payload, "topics")
	}
}

func numberField(payload map[string]any, key string) *float64 {
	var value float64
	switch typed := payload[key].(type) {
	case float64:
		value = typed
	case float32:
		value = float64(typed)
	case int:
		value = float64(typed)
	case json.Number:
		parsed, err := typed.Float64()
		if err != nil {
			return nil
		}
		value = parsed
	default:
		return nil
	}
	return &value
}

// stringsField accepts both []string and the []any a JSON round trip yields.
func stringsField(payload map[string]any, key string) []string {
	switch typed := payload[key].(type) {
	case []string:
		return append([]string(nil), typed...)
	case []any:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			if value, ok := item.(string); ok {
				items = append(items, value)
			}
		}
		return items
	default:
		return nil
	}
}

func (p *Postprocessor) rollback(ctx context.Context, session repository.Session) {
	if err := session.Rollback(ctx); err != nil {
		p.logf("postprocess rollback failed: %v", err)
	}
}

func (p *Postprocessor) logf(format string, args ...any) {
	if p.logger == nil {
		return
	}
	p.logger.Printf(format, args...)
}
