package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/delarge95/ai-news-aggregator/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRunsRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRunsRepository(pool *pgxpool.Pool) *PostgresRunsRepository {
	return &PostgresRunsRepository{pool: pool}
}

func (r *PostgresRunsRepository) CreateRun(ctx context.Context, run *domain.BatchRun) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO batch_runs (
			id,
			source_type,
			persist,
			payload,
			status,
			result,
			error_message,
			attempts,
			created_at,
			updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		run.ID,
		run.SourceType,
		run.Persist,
		[]byte(run.Payload),
		string(run.Status),
		nullableJSON(run.Result),
		run.ErrorMessage,
		run.Attempts,
		run.CreatedAt,
		run.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (r *PostgresRunsRepository) UpdateRun(ctx context.Context, run *domain.BatchRun) error {
	command, err := r.pool.Exec(ctx, `
		UPDATE batch_runs
		SET status = $2,
			result = $3,
			error_message = $4,
			attempts = $5,
			updated_at = $6
		WHERE id = $1
	`, run.ID, string(run.Status), nullableJSON(run.Result), run.ErrorMessage, run.Attempts, run.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if command.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRunsRepository) GetRun(ctx context.Context, runID string) (*domain.BatchRun, error) {
	var (
		run     domain.BatchRun
		status  string
		payload []byte
		result  []byte
	)

	err := r.pool.QueryRow(ctx, `
		SELECT id, source_type, persist, payload, status, result, error_message, attempts, created_at, updated_at
		FROM batch_runs
		WHERE id = $1
	`, runID).Scan(
		&run.ID,
		&run.SourceType,
		&run.Persist,
		&payload,
		&status,
		&result,
		&run.ErrorMessage,
		&run.Attempts,
		&run.CreatedAt,
		&run.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query run: %w", err)
	}

	run.Status = domain.RunStatus(status)
	run.Payload = payload
	run.Result = result
	return &run, nil
}

func nullableJSON(value []byte) any {
	if len(value) == 0 {
		return nil
	}
	return value
}
