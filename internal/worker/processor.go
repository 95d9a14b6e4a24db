package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/delarge95/ai-news-aggregator/internal/domain"
	"github.com/delarge95/ai-news-aggregator/internal/queue"
	"github.com/delarge95/ai-news-aggregator/internal/repository"
)

// RunExecutor processes one stored batch run.
type RunExecutor interface {
	ExecuteRun(ctx context.Context, run *domain.BatchRun) (domain.BatchResult, error)
}

// Processor consumes queued runs one at a time and records their status
// transitions.
type Processor struct {
	consumer queue.Consumer
	repo     repository.RunsRepository
	executor RunExecutor
	logger   *log.Logger
}

func NewProcessor(
	consumer queue.Consumer,
	repo repository.RunsRepository,
	executor RunExecutor,
	logger *log.Logger,
) *Processor {
	return &Processor{
		consumer: consumer,
		repo:     repo,
		executor: executor,
		logger:   logger,
	}
}

func (p *Processor) Start(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		err := p.consumer.Consume(ctx, p.processMessage)
		if err == nil || ctx.Err() != nil {
			return
		}
		p.logf("worker consume loop error: %v", err)

		timer := time.NewTimer(2 * time.Second)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (p *Processor) processMessage(ctx context.Context, message domain.QueueMessage) error {
	run, err := p.repo.GetRun(ctx, message.RunID)
	if err != nil {
		return fmt.Errorf("load run %s: %w", message.RunID, err)
	}
	if run.Status == domain.RunStatusDone {
		return nil
	}

	run.Status = domain.RunStatusProcessing
	run.Attempts = message.Attempt + 1
	run.UpdatedAt = time.Now().UTC()
	if err := p.repo.UpdateRun(ctx, run); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	result, execErr := p.executor.ExecuteRun(ctx, run)
	if execErr != nil {
		run.Status = domain.RunStatusFailed
		run.ErrorMessage = execErr.Error()
		run.UpdatedAt = time.Now().UTC()
		_ = p.repo.UpdateRun(ctx, run)
		return execErr
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode batch result: %w", err)
	}

	// A pipeline error state is a final answer, not a reason to retry.
	run.Status = domain.RunStatusDone
	run.ErrorMessage = ""
	if result.State == domain.StateError {
		run.Status = domain.RunStatusFailed
		run.ErrorMessage = strings.Join(result.Errors, "; ")
	}
	run.Result = encoded
	run.UpdatedAt = time.Now().UTC()
	if err := p.repo.UpdateRun(ctx, run); err != nil {
		return fmt.Errorf("mark %s: %w", run.Status, err)
	}

	p.logf(
		"run processed run_id=%s batch_id=%s state=%s completed=%d failed=%d",
		run.ID, result.BatchID, result.State, result.SuccessfulCount, result.FailedCount,
	)
	return nil
}

func (p *Processor) logf(format string, args ...any) {
	if p.logger == nil {
		return
	}
	p.logger.Printf(format, args...)
}
