package pipeline

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/delarge95/ai-news-aggregator/internal/domain"
)

func validArticle() domain.Article {
	return domain.Article{
		ID:         "a-1",
		Title:      "Markets rally on rate cut hopes",
		Content:    "Stocks climbed across major indexes.",
		URL:        "https://news.example.com/a-1",
		SourceName: "Reuters",
	}
}

func TestValidateAcceptsWellFormedArticle(t *testing.T) {
	validator := NewValidator(testConfig())
	ok, reasons := validator.Validate(validArticle())
	if !ok || len(reasons) != 0 {
		t.Fatalf("expected valid article, got ok=%t reasons=%v", ok, reasons)
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := testConfig()
	cfg.MaxContentLength = 10
	validator := NewValidator(cfg)

	article := domain.Article{
		Title:   "Short",
		URL:     "not a url",
		Content: "this content is far too long",
	}
	ok, reasons := validator.Validate(article)
	if ok {
		t.Fatalf("expected invalid article")
	}
	joined := strings.Join(reasons, "|")
	for _, expected := range []string{"below minimum", "scheme and host", "exceeds maximum 10"} {
		if !strings.Contains(joined, expected) {
			t.Fatalf("expected reason containing %q, got %v", expected, reasons)
		}
	}
}

func TestValidateRequiresBodyAndURL(t *testing.T) {
	validator := NewValidator(testConfig())
	article := validArticle()
	article.Content = ""
	article.URL = ""

	_, reasons := validator.Validate(article)
	if !reflect.DeepEqual(reasons, []string{"url is required", "content or description is required"}) {
		t.Fatalf("unexpected reasons: %v", reasons)
	}

	article.Description = "A description is enough."
	article.URL = "https://news.example.com/a-1"
	if ok, reasons := validator.Validate(article); !ok {
		t.Fatalf("expected description to satisfy body check, got %v", reasons)
	}
}

func TestValidateCountsTitleRunes(t *testing.T) {
	cfg := testConfig()
	cfg.MaxTitleLength = 12
	validator := NewValidator(cfg)

	article := validArticle()
	article.Title = "Ação é notícia"
	if ok, reasons := validator.Validate(article); ok {
		t.Fatalf("expected 14-rune title to exceed 12")
	} else if !strings.Contains(reasons[0], "title length 14") {
		t.Fatalf("expected rune count in reason, got %v", reasons)
	}
}

func TestValidateIsPure(t *testing.T) {
	validator := NewValidator(testConfig())
	article := domain.Article{Title: "", URL: "ftp://", Content: ""}

	ok1, reasons1 := validator.Validate(article)
	ok2, reasons2 := validator.Validate(article)
	if ok1 != ok2 || !reflect.DeepEqual(reasons1, reasons2) {
		t.Fatalf("expected identical results, got (%t,%v) and (%t,%v)", ok1, reasons1, ok2, reasons2)
	}
	if article.Title != "" || article.URL != "ftp://" {
		t.Fatalf("validate must not modify its input")
	}
}

func TestBatchValidatePartitions(t *testing.T) {
	validator := NewValidator(testConfig())
	bad := validArticle()
	bad.ID = "a-2"
	bad.Title = ""

	valid, invalid := validator.BatchValidate([]domain.Article{validArticle(), bad})
	if len(valid) != 1 || len(invalid) != 1 {
		t.Fatalf("expected 1 valid and 1 invalid, got %d and %d", len(valid), len(invalid))
	}
	if invalid[0].Article.ID != "a-2" || invalid[0].Reasons[0] != "title is required" {
		t.Fatalf("unexpected invalid entry: %+v", invalid[0])
	}
}

func TestCheckReturnsValidationError(t *testing.T) {
	validator := NewValidator(testConfig())
	if err := validator.Check(validArticle()); err != nil {
		t.Fatalf("expected nil error for valid article, got %v", err)
	}

	article := validArticle()
	article.URL = ""
	err := validator.Check(article)
	var validationErr *domain.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected *domain.ValidationError, got %T", err)
	}
	if validationErr.ArticleID != "a-1" || !reflect.DeepEqual(validationErr.Reasons, []string{"url is required"}) {
		t.Fatalf("unexpected validation error: %+v", validationErr)
	}
	if !strings.Contains(err.Error(), "article a-1 invalid: url is required") {
		t.Fatalf("unexpected message: %v", err)
	}

	_, invalid := validator.BatchValidate([]domain.Article{validArticle(), article})
	if len(invalid) != 1 || !reflect.DeepEqual(invalid[0].Reasons, validationErr.Reasons) {
		t.Fatalf("expected batch reasons to match Check, got %+v", invalid)
	}
}
