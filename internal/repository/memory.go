package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/delarge95/ai-news-aggregator/internal/domain"
)

// MemoryStore keeps committed entities in memory for local development and
// tests. Article URLs are unique, as in the SQL schema.
type MemoryStore struct {
	mu        sync.RWMutex
	sources   map[string]*domain.Source
	articles  map[string]*domain.StoredArticle
	urls      map[string]string
	analyses  []*domain.AnalysisRecord
	commits   int
	rollbacks int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sources:  make(map[string]*domain.Source),
		articles: make(map[string]*domain.StoredArticle),
		urls:     make(map[string]string),
	}
}

func (s *MemoryStore) NewSession(_ context.Context) (Session, error) {
	return &memorySession{store: s}, nil
}

// Articles returns a snapshot of committed articles.
func (s *MemoryStore) Articles() []domain.StoredArticle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.StoredArticle, 0, len(s.articles))
	for _, article := range s.articles {
		result = append(result, cloneArticle(*article))
	}
	return result
}

// Analyses returns a snapshot of committed analysis records.
func (s *MemoryStore) Analyses() []domain.AnalysisRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.AnalysisRecord, 0, len(s.analyses))
	for _, record := range s.analyses {
		result = append(result, *record)
	}
	return result
}

// Sources returns a snapshot of committed sources.
func (s *MemoryStore) Sources() []domain.Source {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Source, 0, len(s.sources))
	for _, source := range s.sources {
		result = append(result, *source)
	}
	return result
}

// Counts reports how many commits and rollbacks sessions issued.
func (s *MemoryStore) Counts() (commits, rollbacks int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.commits, s.rollbacks
}

type memorySession struct {
	store    *MemoryStore
	sources  []*domain.Source
	articles []*domain.StoredArticle
	analyses []*domain.AnalysisRecord
}

func sourceKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (m *memorySession) FindSourceByName(_ context.Context, name string) (*domain.Source, error) {
	key := sourceKey(name)
	for _, source := range m.sources {
		if sourceKey(source.Name) == key {
			clone := *source
			return &clone, nil
		}
	}

	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	source, ok := m.store.sources[key]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *source
	return &clone, nil
}

func (m *memorySession) AddSource(_ context.Context, source *domain.Source) error {
	clone := *source
	m.sources = append(m.sources, &clone)
	return nil
}

func (m *memorySession) AddArticle(_ context.Context, article *domain.StoredArticle) error {
	clone := cloneArticle(*article)
	m.articles = append(m.articles, &clone)
	return nil
}

func (m *memorySession) AddAnalysis(_ context.Context, record *domain.AnalysisRecord) error {
	clone := *record
	m.analyses = append(m.analyses, &clone)
	return nil
}

func (m *memorySession) Commit(_ context.Context) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	seen := make(map[string]struct{}, len(m.articles))
	for _, article := range m.articles {
		if _, exists := m.store.urls[article.URL]; exists {
			return fmt.Errorf("commit: duplicate article url %s", article.URL)
		}
		if _, exists := seen[article.URL]; exists {
			return fmt.Errorf("commit: duplicate article url %s", article.URL)
		}
		seen[article.URL] = struct{}{}
	}
	for _, record := range m.analyses {
		if _, exists := m.store.articles[record.ArticleID]; exists {
			continue
		}
		if !m.stagedArticle(record.ArticleID) {
			return fmt.Errorf("commit: analysis %s references unknown article %s", record.ID, record.ArticleID)
		}
	}

	for _, source := range m.sources {
		m.store.sources[sourceKey(source.Name)] = source
	}
	for _, article := range m.articles {
		m.store.articles[article.ID] = article
		m.store.urls[article.URL] = article.ID
	}
	m.store.analyses = append(m.store.analyses, m.analyses...)
	m.store.commits++
	m.reset()
	return nil
}

func (m *memorySession) Rollback(_ context.Context) error {
	m.store.mu.Lock()
	m.store.rollbacks++
	m.store.mu.Unlock()
	m.reset()
	return nil
}

func (m *memorySession) stagedArticle(id string) bool {
	for _, article := range m.articles {
		if article.ID == id {
			return true
		}
	}
	return false
}

func (m *memorySession) reset() {
	m.sources = nil
	m.articles = nil
	m.analyses = nil
}

func cloneArticle(article domain.StoredArticle) domain.StoredArticle {
	clone := article
	clone.Topics = append([]string(nil), article.Topics...)
	return clone
}
