package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/delarge95/ai-news-aggregator/internal/ai"
	"github.com/delarge95/ai-news-aggregator/internal/config"
	"github.com/delarge95/ai-news-aggregator/internal/domain"
	"github.com/delarge95/ai-news-aggregator/internal/repository"
)

var taskHeaders = map[string]domain.AnalysisType{
	"Task: sentiment": domain.AnalysisSentiment,
	"Task: topic":     domain.AnalysisTopics,
	"Task: summary":   domain.AnalysisSummary,
	"Task: relevance": domain.AnalysisRelevance,
	"Task: bias":      domain.AnalysisBias,
}

var validResponses = map[domain.AnalysisType]string{
	domain.AnalysisSentiment: `{"sentiment_score": 0.7, "sentiment_label": "positive", "explanation": "Upbeat coverage of the rally."}`,
	domain.AnalysisTopics:    `{"topics": ["economy", "markets"]}`,
	domain.AnalysisSummary:   `{"summary": "Stocks rose after the central bank signalled a rate cut."}`,
	domain.AnalysisRelevance: `{"relevance_score": 0.8, "reasoning": "Broad economic impact."}`,
	domain.AnalysisBias:      `{"bias_score": 0.2, "bias_direction": "center"}`,
}

type generatorCall struct {
	Title string
	Kind  domain.AnalysisType
}

// stepGenerator is a scripted TextGenerator that records every call and the
// peak number of concurrent calls.
type stepGenerator struct {
	respond func(ctx context.Context, call generatorCall) (string, error)
	delay   time.Duration

	mu        sync.Mutex
	calls     []generatorCall
	active    atomic.Int32
	maxActive atomic.Int32
}

func (g *stepGenerator) Available() bool { return true }

func (g *stepGenerator) Generate(ctx context.Context, request ai.GenerateRequest) (ai.GenerateResult, error) {
	current := g.active.Add(1)
	defer g.active.Add(-1)
	for {
		peak := g.maxActive.Load()
		if current <= peak || g.maxActive.CompareAndSwap(peak, current) {
			break
		}
	}

	call := generatorCall{Title: titleOf(request.Input), Kind: kindOf(request.Input)}
	g.mu.Lock()
	g.calls = append(g.calls, call)
	g.mu.Unlock()

	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return ai.GenerateResult{}, ctx.Err()
		}
	}

	respond := g.respond
	if respond == nil {
		respond = respondValid
	}
	text, err := respond(ctx, call)
	if err != nil {
		return ai.GenerateResult{}, err
	}
	return ai.GenerateResult{Text: text, ModelID: request.Model}, nil
}

func (g *stepGenerator) Calls() []generatorCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]generatorCall(nil), g.calls...)
}

func (g *stepGenerator) CallsFor(title string) []domain.AnalysisType {
	var kinds []domain.AnalysisType
	for _, call := range g.Calls() {
		if call.Title == title {
			kinds = append(kinds, call.Kind)
		}
	}
	return kinds
}

func respondValid(_ context.Context, call generatorCall) (string, error) {
	return validResponses[call.Kind], nil
}

func kindOf(prompt string) domain.AnalysisType {
	for header, kind := range taskHeaders {
		if strings.HasPrefix(prompt, header) {
			return kind
		}
	}
	return ""
}

func titleOf(prompt string) string {
	for _, line := range strings.Split(prompt, "\n") {
		if strings.HasPrefix(line, "Title: ") {
			return strings.TrimPrefix(line, "Title: ")
		}
	}
	return ""
}

func testConfig() config.ProcessingConfig {
	cfg := config.DefaultProcessingConfig()
	cfg.AnalysisTimeout = time.Second
	cfg.EnableCaching = false
	return cfg
}

// sameModelRouter disables the fallback call so call sequences are exact.
func sameModelRouter() *ai.ModelRouter {
	return ai.NewModelRouter(ai.ModelRouterConfig{Primary: "test-model", Fallback: "test-model"})
}

func rawArticle(id, title string) domain.RawArticle {
	return domain.RawArticle{
		"id":           id,
		"title":        title,
		"content":      "Stocks climbed across major indexes on Tuesday as traders priced in a rate cut.",
		"url":          fmt.Sprintf("https://news.example.com/%s", id),
		"source_name":  "Reuters",
		"published_at": "2026-10-01T09:30:00Z",
	}
}

func rawBatch(count int) []domain.RawArticle {
	batch := make([]domain.RawArticle, 0, count)
	for i := 0; i < count; i++ {
		batch = append(batch, rawArticle(fmt.Sprintf("a-%d", i), fmt.Sprintf("Markets rally on rate cut hopes %d", i)))
	}
	return batch
}

// failingSession fails AddArticle for one URL and delegates everything else.
type failingSession struct {
	repository.Session
	failURL string
}

func (s *failingSession) AddArticle(ctx context.Context, article *domain.StoredArticle) error {
	if article.URL == s.failURL {
		return errors.New("constraint violation")
	}
	return s.Session.AddArticle(ctx, article)
}

// recordingNormalizer normalizes through fn and tracks concurrent calls.
type recordingNormalizer struct {
	fn    func(raw []domain.RawArticle) ([]domain.Article, error)
	delay time.Duration

	calls     atomic.Int32
	active    atomic.Int32
	maxActive atomic.Int32
}

func (n *recordingNormalizer) BatchNormalize(_ context.Context, raw []domain.RawArticle, _ string) ([]domain.Article, error) {
	n.calls.Add(1)
	current := n.active.Add(1)
	defer n.active.Add(-1)
	for {
		peak := n.maxActive.Load()
		if current <= peak || n.maxActive.CompareAndSwap(peak, current) {
			break
		}
	}
	if n.delay > 0 {
		time.Sleep(n.delay)
	}
	return n.fn(raw)
}

func passthrough(raw []domain.RawArticle) ([]domain.Article, error) {
	articles := make([]domain.Article, 0, len(raw))
	for _, record := range raw {
		articles = append(articles, domain.Article{
			ID:         record.String("id"),
			Title:      record.String("title"),
			Content:    record.String("content"),
			URL:        record.String("url"),
			SourceName: record.String("source_name"),
		})
	}
	return articles, nil
}
