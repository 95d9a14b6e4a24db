// Package sources produces raw article records for the pipeline.
package sources

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/delarge95/ai-news-aggregator/internal/domain"
)

// FeedFetcher reads RSS and Atom feeds.
type FeedFetcher struct {
	parser *gofeed.Parser
}

func NewFeedFetcher(timeout time.Duration) *FeedFetcher {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: timeout}
	parser.UserAgent = "ai-news-aggregator/1.0"
	return &FeedFetcher{parser: parser}
}

// Fetch downloads a feed and converts its items. At most limit items are
// returned when limit is positive.
func (f *FeedFetcher) Fetch(ctx context.Context, feedURL string, limit int) ([]domain.RawArticle, error) {
	feed, err := f.parser.ParseURLWithContext(strings.TrimSpace(feedURL), ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}
	return FeedItems(feed, limit), nil
}

// FeedItems maps feed items to raw records with the pipeline's keys.
func FeedItems(feed *gofeed.Feed, limit int) []domain.RawArticle {
	if feed == nil {
		return nil
	}
	items := feed.Items
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	records := make([]domain.RawArticle, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		record := domain.RawArticle{
			"title":       item.Title,
			"content":     item.Content,
			"description": item.Description,
			"url":         item.Link,
			"source_name": strings.TrimSpace(feed.Title),
		}
		switch {
		case item.PublishedParsed != nil:
			record["published_at"] = *item.PublishedParsed
		case item.UpdatedParsed != nil:
			record["published_at"] = *item.UpdatedParsed
		}
		records = append(records, record)
	}
	return records
}
