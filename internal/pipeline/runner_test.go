package pipeline

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/delarge95/ai-news-aggregator/internal/ai"
	"github.com/delarge95/ai-news-aggregator/internal/cache"
	"github.com/delarge95/ai-news-aggregator/internal/domain"
)

func testArticles(titles ...string) []domain.Article {
	articles := make([]domain.Article, 0, len(titles))
	for i, title := range titles {
		article := validArticle()
		article.ID = title
		article.Title = title
		article.URL = "https://news.example.com/" + string(rune('a'+i))
		articles = append(articles, article)
	}
	return articles
}

func TestAnalyzeRunsStepsInOrderDespiteFailures(t *testing.T) {
	generator := &stepGenerator{respond: func(_ context.Context, call generatorCall) (string, error) {
		if call.Title == "Failing sentiment article" && call.Kind == domain.AnalysisSentiment {
			return "", errors.New("provider exploded")
		}
		return validResponses[call.Kind], nil
	}}
	runner := NewRunner(RunnerDependencies{Config: testConfig(), Client: generator, Router: sameModelRouter()})

	results := runner.Analyze(context.Background(), testArticles("Failing sentiment article", "Healthy article title"))
	if len(results) != 2*domain.StepsPerArticle {
		t.Fatalf("expected %d results, got %d", 2*domain.StepsPerArticle, len(results))
	}

	expectedOrder := domain.AnalysisOrder[:]
	if got := generator.CallsFor("Failing sentiment article"); !reflect.DeepEqual(got, expectedOrder) {
		t.Fatalf("expected call order %v, got %v", expectedOrder, got)
	}

	grouped := domain.GroupByArticle(results)
	failing := grouped["Failing sentiment article"]
	for index, result := range failing {
		if result.Meta().Type != domain.AnalysisOrder[index] {
			t.Fatalf("result %d: expected %s, got %s", index, domain.AnalysisOrder[index], result.Meta().Type)
		}
		switch typed := result.(type) {
		case domain.Failed:
			if typed.Type != domain.AnalysisSentiment {
				t.Fatalf("only sentiment should fail, got failure for %s", typed.Type)
			}
			if !strings.Contains(typed.Error, "sentiment analysis failed") {
				t.Fatalf("unexpected error message: %s", typed.Error)
			}
		case domain.Completed:
			if typed.Type == domain.AnalysisSentiment {
				t.Fatalf("sentiment should have failed")
			}
		}
	}
}

func TestAnalyzeBoundsConcurrentArticles(t *testing.T) {
	generator := &stepGenerator{delay: 10 * time.Millisecond}
	cfg := testConfig()
	cfg.MaxConcurrentAnalyses = 2
	runner := NewRunner(RunnerDependencies{Config: cfg, Client: generator, Router: sameModelRouter()})

	titles := []string{"Article number one", "Article number two", "Article number three",
		"Article number four", "Article number five", "Article number six"}
	results := runner.Analyze(context.Background(), testArticles(titles...))

	if len(results) != len(titles)*domain.StepsPerArticle {
		t.Fatalf("expected %d results, got %d", len(titles)*domain.StepsPerArticle, len(results))
	}
	if peak := generator.maxActive.Load(); peak > 2 || peak < 1 {
		t.Fatalf("expected between 1 and 2 concurrent calls, observed %d", peak)
	}
}

func TestAnalyzeTimesOutEveryStep(t *testing.T) {
	generator := &stepGenerator{respond: func(ctx context.Context, _ generatorCall) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	cfg := testConfig()
	cfg.AnalysisTimeout = 20 * time.Millisecond
	runner := NewRunner(RunnerDependencies{Config: cfg, Client: generator})

	results := runner.Analyze(context.Background(), testArticles("Slow article number one", "Slow article number two"))
	completed, failed := domain.CountResults(results)
	if completed != 0 || failed != 2*domain.StepsPerArticle {
		t.Fatalf("expected all %d steps failed, got completed=%d failed=%d", 2*domain.StepsPerArticle, completed, failed)
	}
	for _, result := range results {
		failure := result.(domain.Failed)
		if !strings.Contains(failure.Error, "timed out after 20ms") {
			t.Fatalf("expected timeout message, got %q", failure.Error)
		}
	}
	// The fallback model is not tried after a timeout.
	if len(generator.Calls()) != 2*domain.StepsPerArticle {
		t.Fatalf("expected one call per step, got %d", len(generator.Calls()))
	}
}

func TestAnalyzeReportsProviderTimeoutWithoutAnalysisDeadline(t *testing.T) {
	generator := &stepGenerator{respond: func(context.Context, generatorCall) (string, error) {
		return "", fmt.Errorf("openrouter %w: context deadline exceeded", ai.ErrTimeout)
	}}
	runner := NewRunner(RunnerDependencies{Config: testConfig(), Client: generator, Router: sameModelRouter()})

	results := runner.Analyze(context.Background(), testArticles("Provider side timeout story"))
	if len(results) != domain.StepsPerArticle {
		t.Fatalf("expected %d results, got %d", domain.StepsPerArticle, len(results))
	}
	for _, result := range results {
		failure := result.(domain.Failed)
		if !strings.Contains(failure.Error, "timed out at the provider") || strings.Contains(failure.Error, "after 1s") {
			t.Fatalf("expected provider timeout message, got %q", failure.Error)
		}
	}
}

func TestAnalyzeFallsBackToSecondModel(t *testing.T) {
	generator := &stepGenerator{}
	generator.respond = func(_ context.Context, call generatorCall) (string, error) {
		if len(generator.Calls())%2 == 1 {
			return "", &ai.ProviderError{Provider: "openrouter", StatusCode: 400, Message: "model not found"}
		}
		return validResponses[call.Kind], nil
	}
	router := ai.NewModelRouter(ai.ModelRouterConfig{Primary: "primary-model", Fallback: "fallback-model"})
	runner := NewRunner(RunnerDependencies{Config: testConfig(), Client: generator, Router: router})

	results := runner.Analyze(context.Background(), testArticles("Article needing fallback"))
	for _, result := range results {
		completed, ok := result.(domain.Completed)
		if !ok {
			t.Fatalf("expected completed result, got %+v", result)
		}
		if completed.Model != "fallback-model" {
			t.Fatalf("expected fallback model, got %s", completed.Model)
		}
	}
}

func TestAnalyzeUsesCacheForRepeatedArticles(t *testing.T) {
	generator := &stepGenerator{}
	cfg := testConfig()
	cfg.EnableCaching = true
	runner := NewRunner(RunnerDependencies{
		Config: cfg,
		Client: generator,
		Router: sameModelRouter(),
		Cache:  cache.NewMemoryCache(cache.Config{}),
	})

	articles := testArticles("Cached article title")
	first := runner.Analyze(context.Background(), articles)
	second := runner.Analyze(context.Background(), articles)

	if len(generator.Calls()) != domain.StepsPerArticle {
		t.Fatalf("expected second run served from cache, got %d calls", len(generator.Calls()))
	}
	completedFirst, _ := domain.CountResults(first)
	completedSecond, _ := domain.CountResults(second)
	if completedFirst != domain.StepsPerArticle || completedSecond != domain.StepsPerArticle {
		t.Fatalf("expected all steps completed, got %d and %d", completedFirst, completedSecond)
	}
}

func TestAnalyzeDiscardsArticleThatPanics(t *testing.T) {
	generator := &stepGenerator{respond: func(_ context.Context, call generatorCall) (string, error) {
		if call.Title == "Article that panics" && call.Kind == domain.AnalysisSummary {
			panic("unexpected nil map")
		}
		return validResponses[call.Kind], nil
	}}
	runner := NewRunner(RunnerDependencies{Config: testConfig(), Client: generator, Router: sameModelRouter()})

	results := runner.Analyze(context.Background(), testArticles("Article that panics", "Article that behaves"))
	grouped := domain.GroupByArticle(results)
	if len(grouped["Article that panics"]) != 0 {
		t.Fatalf("expected panicking article to contribute nothing")
	}
	if len(grouped["Article that behaves"]) != domain.StepsPerArticle {
		t.Fatalf("expected sibling article unaffected, got %d results", len(grouped["Article that behaves"]))
	}
}

func TestAnalyzeStopsCallingModelWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	generator := &stepGenerator{respond: func(_ context.Context, call generatorCall) (string, error) {
		cancel()
		return validResponses[call.Kind], nil
	}}
	cfg := testConfig()
	cfg.EnableParallel = false
	runner := NewRunner(RunnerDependencies{Config: cfg, Client: generator, Router: sameModelRouter()})

	results := runner.Analyze(ctx, testArticles("First cancelled article", "Second cancelled article"))
	if len(generator.Calls()) != 1 {
		t.Fatalf("expected a single model call, got %d", len(generator.Calls()))
	}
	completed, failed := domain.CountResults(results)
	if completed != 1 || failed != 2*domain.StepsPerArticle-1 {
		t.Fatalf("unexpected counts completed=%d failed=%d", completed, failed)
	}
	for _, result := range results {
		if failure, ok := result.(domain.Failed); ok && !strings.Contains(failure.Error, "batch cancelled") {
			t.Fatalf("expected cancellation message, got %q", failure.Error)
		}
	}
}

func TestAnalyzeReportsUnavailableClient(t *testing.T) {
	runner := NewRunner(RunnerDependencies{Config: testConfig()})
	results := runner.Analyze(context.Background(), testArticles("Article without a client"))
	_, failed := domain.CountResults(results)
	if failed != domain.StepsPerArticle {
		t.Fatalf("expected every step failed, got %d", failed)
	}
	if !strings.Contains(results[0].(domain.Failed).Error, ai.ErrUnavailable.Error()) {
		t.Fatalf("unexpected error: %s", results[0].(domain.Failed).Error)
	}
}
