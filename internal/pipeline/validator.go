package pipeline

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/delarge95/ai-news-aggregator/internal/config"
	"github.com/delarge95/ai-news-aggregator/internal/domain"
)

// Validator checks the structure of normalized articles. It holds only the
// thresholds, so Validate is a pure function of its argument.
type Validator struct {
	minTitleLength   int
	maxTitleLength   int
	maxContentLength int
}

func NewValidator(cfg config.ProcessingConfig) Validator {
	cfg = cfg.WithDefaults()
	return Validator{
		minTitleLength:   cfg.MinTitleLength,
		maxTitleLength:   cfg.MaxTitleLength,
		maxContentLength: cfg.MaxContentLength,
	}
}

// Validate reports whether article is usable and, if not, every reason why.
func (v Validator) Validate(article domain.Article) (bool, []string) {
	var reasons []string

	title := strings.TrimSpace(article.Title)
	titleLength := utf8.RuneCountInString(title)
	switch {
	case title == "":
		reasons = append(reasons, "title is required")
	case titleLength < v.minTitleLength:
		reasons = append(reasons, fmt.Sprintf("title length %d is below minimum %d", titleLength, v.minTitleLength))
	case titleLength > v.maxTitleLength:
		reasons = append(reasons, fmt.Sprintf("title length %d exceeds maximum %d", titleLength, v.maxTitleLength))
	}

	rawURL := strings.TrimSpace(article.URL)
	if rawURL == "" {
		reasons = append(reasons, "url is required")
	} else if parsed, err := url.Parse(rawURL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		reasons = append(reasons, "url must have a scheme and host")
	}

	content := strings.TrimSpace(article.Content)
	if content == "" && strings.TrimSpace(article.Description) == "" {
		reasons = append(reasons, "content or description is required")
	}
	if contentLength := utf8.RuneCountInString(content); contentLength > v.maxContentLength {
		reasons = append(reasons, fmt.Sprintf("content length %d exceeds maximum %d", contentLength, v.maxContentLength))
	}

	return len(reasons) == 0, reasons
}

// Check is Validate as an error: nil for a usable article, otherwise a
// *domain.ValidationError carrying every reason.
func (v Validator) Check(article domain.Article) error {
	if ok, reasons := v.Validate(article); !ok {
		return &domain.ValidationError{ArticleID: article.ID, Reasons: reasons}
	}
	return nil
}

// BatchValidate partitions articles into valid ones and rejected ones with
// their reasons. Input order is kept in both lists.
func (v Validator) BatchValidate(articles []domain.Article) ([]domain.Article, []domain.InvalidArticle) {
	valid := make([]domain.Article, 0, len(articles))
	var invalid []domain.InvalidArticle
	for _, article := range articles {
		err := v.Check(article)
		if err == nil {
			valid = append(valid, article)
			continue
		}
		invalid = append(invalid, rejection(article, err))
	}
	return valid, invalid
}

func rejection(article domain.Article, err error) domain.InvalidArticle {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		return domain.InvalidArticle{Article: article, Reasons: validationErr.Reasons}
	}
	return domain.InvalidArticle{Article: article, Reasons: []string{err.Error()}}
}
