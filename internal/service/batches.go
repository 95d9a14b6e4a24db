package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/delarge95/ai-news-aggregator/internal/domain"
	"github.com/delarge95/ai-news-aggregator/internal/queue"
	"github.com/delarge95/ai-news-aggregator/internal/repository"
)

var ErrQueueUnavailable = errors.New("async processing is disabled")

// BatchRunner is the pipeline entry point the service drives.
type BatchRunner interface {
	Run(ctx context.Context, raw []domain.RawArticle, sourceType string, session repository.Session) domain.BatchResult
	AnalyzeArticle(ctx context.Context, raw domain.RawArticle, sourceType string, session repository.Session) domain.ArticleOutcome
	Stats() domain.Stats
	ResetStats()
}

type BatchesDependencies struct {
	Runs     repository.RunsRepository
	Producer queue.Producer
	Pipeline BatchRunner
	Sessions repository.SessionFactory
	Logger   *log.Logger
}

// BatchInput is one batch submission.
type BatchInput struct {
	Articles   []domain.RawArticle
	SourceType string
	Persist    bool
}

type BatchesService struct {
	runs     repository.RunsRepository
	producer queue.Producer
	pipeline BatchRunner
	sessions repository.SessionFactory
	logger   *log.Logger
}

func NewBatchesService(deps BatchesDependencies) *BatchesService {
	return &BatchesService{
		runs:     deps.Runs,
		producer: deps.Producer,
		pipeline: deps.Pipeline,
		sessions: deps.Sessions,
		logger:   deps.Logger,
	}
}

// RunSync runs the batch on the caller's goroutine.
func (s *BatchesService) RunSync(ctx context.Context, input BatchInput) (domain.BatchResult, error) {
	session, err := s.openSession(ctx, input.Persist)
	if err != nil {
		return domain.BatchResult{}, err
	}
	return s.pipeline.Run(ctx, input.Articles, input.SourceType, session), nil
}

// AnalyzeArticle runs a single article synchronously.
func (s *BatchesService) AnalyzeArticle(
	ctx context.Context,
	article domain.RawArticle,
	sourceType string,
	persist bool,
) (domain.ArticleOutcome, error) {
	session, err := s.openSession(ctx, persist)
	if err != nil {
		return domain.ArticleOutcome{}, err
	}
	return s.pipeline.AnalyzeArticle(ctx, article, sourceType, session), nil
}

// Submit stores a pending run and hands it to the queue.
func (s *BatchesService) Submit(ctx context.Context, input BatchInput) (*domain.BatchRun, error) {
	if s.producer == nil || s.runs == nil {
		return nil, ErrQueueUnavailable
	}

	payload, err := json.Marshal(input.Articles)
	if err != nil {
		return nil, fmt.Errorf("encode articles: %w", err)
	}

	now := time.Now().UTC()
	run := &domain.BatchRun{
		ID:         uuid.NewString(),
		SourceType: input.SourceType,
		Persist:    input.Persist,
		Payload:    payload,
		Status:     domain.RunStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.runs.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	message := domain.QueueMessage{
		RunID:       run.ID,
		SourceType:  run.SourceType,
		Persist:     run.Persist,
		RequestedAt: now,
	}
	if err := s.producer.Enqueue(ctx, message); err != nil {
		run.Status = domain.RunStatusFailed
		run.ErrorMessage = err.Error()
		run.UpdatedAt = time.Now().UTC()
		_ = s.runs.UpdateRun(ctx, run)
		return nil, fmt.Errorf("enqueue run: %w", err)
	}
	return run, nil
}

// ExecuteRun decodes a stored run and processes it.
func (s *BatchesService) ExecuteRun(ctx context.Context, run *domain.BatchRun) (domain.BatchResult, error) {
	var articles []domain.RawArticle
	if err := json.Unmarshal(run.Payload, &articles); err != nil {
		return domain.BatchResult{}, fmt.Errorf("decode run payload: %w", err)
	}
	return s.RunSync(ctx, BatchInput{
		Articles:   articles,
		SourceType: run.SourceType,
		Persist:    run.Persist,
	})
}

func (s *BatchesService) GetRun(ctx context.Context, runID string) (*domain.BatchRun, error) {
	if s.runs == nil {
		return nil, repository.ErrNotFound
	}
	return s.runs.GetRun(ctx, runID)
}

func (s *BatchesService) Stats() domain.Stats {
	return s.pipeline.Stats()
}

func (s *BatchesService) ResetStats() {
	s.pipeline.ResetStats()
}

// openSession returns nil when persistence was not requested or no store is
// wired; the pipeline then reports the skipped persistence itself.
func (s *BatchesService) openSession(ctx context.Context, persist bool) (repository.Session, error) {
	if !persist || s.sessions == nil {
		return nil, nil
	}
	session, err := s.sessions.NewSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	return session, nil
}
