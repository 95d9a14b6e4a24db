package normalize

import (
	"context"
	"testing"

	"github.com/delarge95/ai-news-aggregator/internal/domain"
)

func TestBatchNormalizeStripsMarkupAndFillsDefaults(t *testing.T) {
	normalizer := NewNormalizer()
	raw := []domain.RawArticle{
		{
			"title":        "  <b>Markets</b> rally   after &amp; rate cut ",
			"content":      "<p>Stocks rose <script>alert(1)</script>sharply.</p>",
			"url":          " https://news.example.com/markets ",
			"published_at": "2024-05-01T10:00:00Z",
		},
		{"title": "", "url": "", "content": "", "description": ""},
		nil,
	}

	articles, err := normalizer.BatchNormalize(context.Background(), raw, "newsapi")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("expected the empty record to be dropped, got %d articles", len(articles))
	}

	article := articles[0]
	if article.Title != "Markets rally after & rate cut" {
		t.Fatalf("unexpected title %q", article.Title)
	}
	if article.Content != "Stocks rose sharply." {
		t.Fatalf("unexpected content %q", article.Content)
	}
	if article.URL != "https://news.example.com/markets" {
		t.Fatalf("unexpected url %q", article.URL)
	}
	if article.SourceName != "newsapi" || article.SourceType != "newsapi" {
		t.Fatalf("expected source defaults from source type, got %q/%q", article.SourceName, article.SourceType)
	}
	if article.ID == "" {
		t.Fatalf("expected generated id")
	}
	if article.PublishedAt == nil || article.PublishedAt.Year() != 2024 {
		t.Fatalf("expected parsed published_at, got %v", article.PublishedAt)
	}
}

func TestBatchNormalizeKeepsEmptyTitleWithURL(t *testing.T) {
	articles, err := NewNormalizer().BatchNormalize(context.Background(), []domain.RawArticle{
		{"title": "", "url": "https://news.example.com/a", "description": "desc", "source_name": "Reuters"},
	}, "guardian")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(articles) != 1 || articles[0].SourceName != "Reuters" {
		t.Fatalf("expected article kept for validation, got %+v", articles)
	}
}

func TestBatchNormalizeHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewNormalizer().BatchNormalize(ctx, []domain.RawArticle{{"title": "x"}}, "rss"); err == nil {
		t.Fatalf("expected context error")
	}
}
