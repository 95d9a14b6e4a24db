package repository

import (
	"context"
	"sync"

	"github.com/delarge95/ai-news-aggregator/internal/domain"
)

// RunsRepository stores asynchronous batch submissions.
type RunsRepository interface {
	CreateRun(ctx context.Context, run *domain.BatchRun) error
	UpdateRun(ctx context.Context, run *domain.BatchRun) error
	GetRun(ctx context.Context, runID string) (*domain.BatchRun, error)
}

// MemoryRunsRepository stores runs in memory for local development.
type MemoryRunsRepository struct {
	mu   sync.RWMutex
	runs map[string]*domain.BatchRun
}

func NewMemoryRunsRepository() *MemoryRunsRepository {
	return &MemoryRunsRepository{
		runs: make(map[string]*domain.BatchRun),
	}
}

func (r *MemoryRunsRepository) CreateRun(_ context.Context, run *domain.BatchRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.runs[run.ID] = cloneRun(run)
	return nil
}

func (r *MemoryRunsRepository) UpdateRun(_ context.Context, run *domain.BatchRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.runs[run.ID]; !ok {
		return ErrNotFound
	}
	r.runs[run.ID] = cloneRun(run)
	return nil
}

func (r *MemoryRunsRepository) GetRun(_ context.Context, runID string) (*domain.BatchRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.runs[runID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRun(run), nil
}

func cloneRun(run *domain.BatchRun) *domain.BatchRun {
	if run == nil {
		return nil
	}
	clone := *run
	clone.Payload = append([]byte(nil), run.Payload...)
	clone.Result = append([]byte(nil), run.Result...)
	return &clone
}
