package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/delarge95/ai-news-aggregator/internal/config"
	"github.com/delarge95/ai-news-aggregator/internal/domain"
	"github.com/delarge95/ai-news-aggregator/internal/repository"
)

func analyzedBatch(t *testing.T, titles ...string) ([]domain.Article, []domain.AnalysisResult) {
	t.Helper()
	articles := testArticles(titles...)
	runner := NewRunner(RunnerDependencies{Config: testConfig(), Client: &stepGenerator{}, Router: sameModelRouter()})
	return articles, runner.Analyze(context.Background(), articles)
}

func TestCommitPersistsArticlesAndProjections(t *testing.T) {
	articles, results := analyzedBatch(t, "First persisted article", "Second persisted article")
	store := repository.NewMemoryStore()
	session, _ := store.NewSession(context.Background())

	saved, errs := NewPostprocessor(config.CommitAllOrNothing, nil).Commit(context.Background(), articles, results, session)
	if saved != 2 || len(errs) != 0 {
		t.Fatalf("expected 2 saved without errors, got %d %v", saved, errs)
	}

	stored := store.Articles()
	if len(stored) != 2 {
		t.Fatalf("expected 2 stored articles, got %d", len(stored))
	}
	for _, article := range stored {
		if article.Summary == "" || article.SentimentScore == nil || *article.SentimentScore != 0.7 {
			t.Fatalf("expected projected summary and sentiment, got %+v", article)
		}
		if article.RelevanceScore == nil || article.BiasScore == nil || len(article.Topics) != 2 {
			t.Fatalf("expected projected relevance, bias and topics, got %+v", article)
		}
	}
	if len(store.Analyses()) != 2*domain.StepsPerArticle {
		t.Fatalf("expected one record per completed step, got %d", len(store.Analyses()))
	}
	if len(store.Sources()) != 1 {
		t.Fatalf("expected a single shared source, got %d", len(store.Sources()))
	}
}

func TestCommitSkipsFailedResults(t *testing.T) {
	articles, results := analyzedBatch(t, "Article with one failure")
	results[0] = domain.Failed{ResultMeta: results[0].Meta(), Error: "boom"}
	store := repository.NewMemoryStore()
	session, _ := store.NewSession(context.Background())

	NewPostprocessor(config.CommitAllOrNothing, nil).Commit(context.Background(), articles, results, session)
	if len(store.Analyses()) != domain.StepsPerArticle-1 {
		t.Fatalf("expected failed result not persisted, got %d records", len(store.Analyses()))
	}
}

func TestCommitAllOrNothingRollsBackWholeBatch(t *testing.T) {
	articles, results := analyzedBatch(t, "Good article one", "Broken article two", "Good article three")
	store := repository.NewMemoryStore()
	inner, _ := store.NewSession(context.Background())
	session := &failingSession{Session: inner, failURL: articles[1].URL}

	saved, errs := NewPostprocessor(config.CommitAllOrNothing, nil).Commit(context.Background(), articles, results, session)
	if saved != 0 || len(errs) != 1 {
		t.Fatalf("expected nothing saved and one aggregate error, got %d %v", saved, errs)
	}
	if !strings.Contains(errs[0], "persistence batch failed") {
		t.Fatalf("unexpected error: %s", errs[0])
	}
	if len(store.Articles()) != 0 || len(store.Analyses()) != 0 {
		t.Fatalf("expected rollback of every write")
	}
	if _, rollbacks := store.Counts(); rollbacks != 1 {
		t.Fatalf("expected one rollback, got %d", rollbacks)
	}
}

func TestCommitPerArticleKeepsHealthyArticles(t *testing.T) {
	articles, results := analyzedBatch(t, "Good article one", "Broken article two", "Good article three")
	store := repository.NewMemoryStore()
	inner, _ := store.NewSession(context.Background())
	session := &failingSession{Session: inner, failURL: articles[1].URL}

	saved, errs := NewPostprocessor(config.CommitPerArticle, nil).Commit(context.Background(), articles, results, session)
	if saved != 2 || len(errs) != 1 {
		t.Fatalf("expected 2 saved and 1 error, got %d %v", saved, errs)
	}
	if !strings.Contains(errs[0], articles[1].ID) {
		t.Fatalf("expected error naming the broken article, got %s", errs[0])
	}
	if len(store.Articles()) != 2 || len(store.Analyses()) != 2*domain.StepsPerArticle {
		t.Fatalf("unexpected stored state: %d articles %d analyses", len(store.Articles()), len(store.Analyses()))
	}
	commits, rollbacks := store.Counts()
	if commits != 2 || rollbacks != 1 {
		t.Fatalf("expected 2 commits and 1 rollback, got %d and %d", commits, rollbacks)
	}
}

func TestCommitReusesExistingSource(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()
	postprocessor := NewPostprocessor(config.CommitAllOrNothing, nil)

	articles, results := analyzedBatch(t, "First run article")
	session, _ := store.NewSession(ctx)
	postprocessor.Commit(ctx, articles, results, session)

	articles, results = analyzedBatch(t, "Second run article")
	articles[0].URL = "https://news.example.com/second"
	articles[0].SourceName = "REUTERS"
	session, _ = store.NewSession(ctx)
	if saved, errs := postprocessor.Commit(ctx, articles, results, session); saved != 1 {
		t.Fatalf("expected second commit to save, got %d %v", saved, errs)
	}
	if len(store.Sources()) != 1 {
		t.Fatalf("expected the source to be reused by name, got %d", len(store.Sources()))
	}
}
