// Package normalize cleans raw fetcher records into domain articles.
package normalize

import (
	"context"
	"html"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/delarge95/ai-news-aggregator/internal/domain"
)

var publishedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Normalizer strips markup and whitespace noise from raw records. Records
// without any of title, url, content or description are dropped.
type Normalizer struct {
	policy *bluemonday.Policy
	now    func() time.Time
}

func NewNormalizer() *Normalizer {
	return &Normalizer{
		policy: bluemonday.StrictPolicy(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (n *Normalizer) BatchNormalize(
	ctx context.Context,
	raw []domain.RawArticle,
	sourceType string,
) ([]domain.Article, error) {
	articles := make([]domain.Article, 0, len(raw))
	for _, record := range raw {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if record == nil {
			continue
		}
		article, ok := n.normalize(record, sourceType)
		if !ok {
			continue
		}
		articles = append(articles, article)
	}
	return articles, nil
}

func (n *Normalizer) normalize(record domain.RawArticle, sourceType string) (domain.Article, bool) {
	article := domain.Article{
		ID:          record.String("id"),
		Title:       n.clean(record.String("title")),
		Content:     n.clean(record.String("content")),
		Description: n.clean(record.String("description")),
		URL:         strings.TrimSpace(record.String("url")),
		SourceName:  n.clean(record.String("source_name")),
		SourceType:  strings.TrimSpace(sourceType),
	}
	if article.Title == "" && article.URL == "" && article.Content == "" && article.Description == "" {
		return domain.Article{}, false
	}
	if article.ID == "" {
		article.ID = uuid.NewString()
	}
	if article.SourceName == "" {
		article.SourceName = article.SourceType
	}
	if article.SourceName == "" {
		article.SourceName = "unknown"
	}
	article.PublishedAt = n.publishedAt(record["published_at"])
	return article, true
}

func (n *Normalizer) clean(value string) string {
	if value == "" {
		return ""
	}
	stripped := n.policy.Sanitize(value)
	return strings.Join(strings.Fields(html.UnescapeString(stripped)), " ")
}

func (n *Normalizer) publishedAt(value any) *time.Time {
	switch typed := value.(type) {
	case time.Time:
		utc := typed.UTC()
		return &utc
	case *time.Time:
		if typed == nil {
			return nil
		}
		utc := typed.UTC()
		return &utc
	case string:
		trimmed := strings.TrimSpace(typed)
		for _, layout := range publishedLayouts {
			if parsed, err := time.Parse(layout, trimmed); err == nil {
				utc := parsed.UTC()
				if utc.After(n.now().Add(24 * time.Hour)) {
					return nil
				}
				return &utc
			}
		}
	}
	return nil
}
