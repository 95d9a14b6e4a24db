package repository

import (
	"context"

	"github.com/delarge95/ai-news-aggregator/internal/domain"
)

// ErrNotFound is returned by lookups that match nothing.
var ErrNotFound = domain.ErrNotFound

// Session is a transactional unit of work. Writes are visible to the same
// session immediately and to everyone else only after Commit. A session may
// be reused after Commit or Rollback. It is not safe for concurrent use.
type Session interface {
	FindSourceByName(ctx context.Context, name string) (*domain.Source, error)
	AddSource(ctx context.Context, source *domain.Source) error
	AddArticle(ctx context.Context, article *domain.StoredArticle) error
	AddAnalysis(ctx context.Context, record *domain.AnalysisRecord) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// SessionFactory opens sessions against one store.
type SessionFactory interface {
	NewSession(ctx context.Context) (Session, error)
}
