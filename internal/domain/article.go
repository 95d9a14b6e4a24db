package domain

import (
	"fmt"
	"strings"
	"time"
)

// RawArticle is the loosely typed record produced by the news fetchers.
// Known keys: title, content, description, url, source_name, published_at.
type RawArticle map[string]any

// String returns the trimmed string value stored under key, or "".
func (r RawArticle) String(key string) string {
	value, ok := r[key]
	if !ok || value == nil {
		return ""
	}
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case fmt.Stringer:
		return strings.TrimSpace(typed.String())
	default:
		return strings.TrimSpace(fmt.Sprint(typed))
	}
}

// Article is a normalized article ready for validation and analysis.
type Article struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Content     string     `json:"content,omitempty"`
	Description string     `json:"description,omitempty"`
	URL         string     `json:"url"`
	SourceName  string     `json:"source_name"`
	SourceType  string     `json:"source_type,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// Body returns the content, falling back to the description.
func (a Article) Body() string {
	if strings.TrimSpace(a.Content) != "" {
		return a.Content
	}
	return a.Description
}

// InvalidArticle is an article rejected by validation together with the reasons.
type InvalidArticle struct {
	Article Article  `json:"article"`
	Reasons []string `json:"reasons"`
}

// Source is the persisted publisher record, resolved by name.
type Source struct {
	ID        string
	Name      string
	Type      string
	CreatedAt time.Time
}

// StoredArticle is the persisted article with the projected analysis fields
// used for fast querying.
type StoredArticle struct {
	ID             string
	SourceID       string
	Title          string
	Content        string
	Description    string
	URL            string
	PublishedAt    *time.Time
	Summary        string
	SentimentScore *float64
	SentimentLabel string
	RelevanceScore *float64
	BiasScore      *float64
	Topics         []string
	CreatedAt      time.Time
}

// AnalysisRecord is one immutable analysis row, one per completed step.
type AnalysisRecord struct {
	ID         string
	ArticleID  string
	Type       AnalysisType
	Payload    map[string]any
	Confidence float64
	Model      string
	LatencyMS  int64
	CreatedAt  time.Time
}
