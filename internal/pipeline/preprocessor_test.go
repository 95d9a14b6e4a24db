package pipeline

import (
	"context"
	"errors"
	"io"
	"log"
	"sort"
	"testing"
	"time"

	"github.com/delarge95/ai-news-aggregator/internal/domain"
	"github.com/delarge95/ai-news-aggregator/internal/normalize"
)

func TestProcessSplitsValidAndInvalid(t *testing.T) {
	raw := []domain.RawArticle{
		rawArticle("a-1", "Markets rally on rate cut hopes"),
		rawArticle("a-2", ""),
		rawArticle("a-3", "Central bank holds rates steady"),
	}
	preprocessor := NewPreprocessor(testConfig(), normalize.NewNormalizer(), nil)

	processed, invalid := preprocessor.Process(context.Background(), raw, "newsapi")
	if len(processed) != 2 || len(invalid) != 1 {
		t.Fatalf("expected 2 valid and 1 invalid, got %d and %d", len(processed), len(invalid))
	}
	if invalid[0].Article.ID != "a-2" {
		t.Fatalf("expected a-2 rejected, got %s", invalid[0].Article.ID)
	}
	if invalid[0].Reasons[0] != "title is required" {
		t.Fatalf("unexpected reasons: %v", invalid[0].Reasons)
	}
}

func TestProcessIsolatesFailingSubBatches(t *testing.T) {
	normalizer := &recordingNormalizer{fn: func(raw []domain.RawArticle) ([]domain.Article, error) {
		switch raw[0].String("id") {
		case "a-2":
			return nil, errors.New("upstream decode failure")
		case "a-4":
			panic("normalizer bug")
		}
		return passthrough(raw)
	}}
	cfg := testConfig()
	cfg.BatchSize = 2
	preprocessor := NewPreprocessor(cfg, normalizer, log.New(io.Discard, "", 0))

	processed, _ := preprocessor.Process(context.Background(), rawBatch(7), "newsapi")

	ids := make([]string, 0, len(processed))
	for _, article := range processed {
		ids = append(ids, article.ID)
	}
	sort.Strings(ids)
	expected := []string{"a-0", "a-1", "a-6"}
	if len(ids) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, ids)
	}
	for i := range expected {
		if ids[i] != expected[i] {
			t.Fatalf("expected %v, got %v", expected, ids)
		}
	}
	if normalizer.calls.Load() != 4 {
		t.Fatalf("expected 4 sub-batches, got %d", normalizer.calls.Load())
	}
}

func TestProcessBoundsConcurrentSubBatches(t *testing.T) {
	normalizer := &recordingNormalizer{fn: passthrough, delay: 15 * time.Millisecond}
	cfg := testConfig()
	cfg.BatchSize = 1
	cfg.MaxConcurrentBatches = 2
	preprocessor := NewPreprocessor(cfg, normalizer, nil)

	processed, _ := preprocessor.Process(context.Background(), rawBatch(6), "newsapi")
	if len(processed) != 6 {
		t.Fatalf("expected 6 articles, got %d", len(processed))
	}
	if peak := normalizer.maxActive.Load(); peak > 2 {
		t.Fatalf("expected at most 2 concurrent sub-batches, observed %d", peak)
	}
}

func TestProcessSequentialKeepsOrder(t *testing.T) {
	normalizer := &recordingNormalizer{fn: passthrough}
	cfg := testConfig()
	cfg.BatchSize = 2
	cfg.EnableParallel = false
	preprocessor := NewPreprocessor(cfg, normalizer, nil)

	processed, _ := preprocessor.Process(context.Background(), rawBatch(5), "newsapi")
	for i, article := range processed {
		if want := rawBatch(5)[i].String("id"); article.ID != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, article.ID)
		}
	}
	if normalizer.maxActive.Load() != 1 {
		t.Fatalf("expected sequential sub-batches, observed %d concurrent", normalizer.maxActive.Load())
	}
}

func TestProcessWithoutValidationPassesEverything(t *testing.T) {
	cfg := testConfig()
	cfg.EnableValidation = false
	preprocessor := NewPreprocessor(cfg, &recordingNormalizer{fn: passthrough}, nil)

	raw := []domain.RawArticle{rawArticle("a-1", "")}
	processed, invalid := preprocessor.Process(context.Background(), raw, "newsapi")
	if len(processed) != 1 || len(invalid) != 0 {
		t.Fatalf("expected validation to be skipped, got %d processed %d invalid", len(processed), len(invalid))
	}
}

func TestProcessRejectsDuplicateIDsWithoutValidation(t *testing.T) {
	cfg := testConfig()
	cfg.EnableValidation = false
	cfg.EnableParallel = false
	preprocessor := NewPreprocessor(cfg, normalize.NewNormalizer(), nil)

	raw := []domain.RawArticle{
		rawArticle("dup", "Markets rally on rate cut hopes"),
		rawArticle("unique", "Central bank holds rates steady"),
		rawArticle("dup", "Oil prices slip on supply worries"),
	}
	processed, invalid := preprocessor.Process(context.Background(), raw, "newsapi")
	if len(processed) != 2 || processed[0].Title != "Markets rally on rate cut hopes" {
		t.Fatalf("expected first dup kept plus unique, got %+v", processed)
	}
	if len(invalid) != 1 || invalid[0].Article.Title != "Oil prices slip on supply worries" || invalid[0].Reasons[0] != "duplicate article id" {
		t.Fatalf("unexpected rejections: %+v", invalid)
	}
}
