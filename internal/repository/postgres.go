package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/delarge95/ai-news-aggregator/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OpenPostgres creates a pool and checks connectivity.
func OpenPostgres(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pg pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping pg: %w", err)
	}
	return pool, nil
}

// PostgresStore opens one database transaction per session.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) NewSession(_ context.Context) (Session, error) {
	return &pgSession{pool: s.pool}, nil
}

type pgSession struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

// begin starts the transaction on first use so a session that never writes
// holds no connection.
func (p *pgSession) begin(ctx context.Context) (pgx.Tx, error) {
	if p.tx != nil {
		return p.tx, nil
	}
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	p.tx = tx
	return tx, nil
}

func (p *pgSession) FindSourceByName(ctx context.Context, name string) (*domain.Source, error) {
	tx, err := p.begin(ctx)
	if err != nil {
		return nil, err
	}

	var source domain.Source
	err = tx.QueryRow(ctx, `
		SELECT id, name, source_type, created_at
		FROM sources
		WHERE lower(name) = lower($1)
	`, name).Scan(&source.ID, &source.Name, &source.Type, &source.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query source: %w", err)
	}
	return &source, nil
}

func (p *pgSession) AddSource(ctx context.Context, source *domain.Source) error {
	tx, err := p.begin(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO sources (id, name, source_type, created_at)
		VALUES ($1,$2,$3,$4)
	`, source.ID, source.Name, source.Type, source.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert source: %w", err)
	}
	return nil
}

func (p *pgSession) AddArticle(ctx context.Context, article *domain.StoredArticle) error {
	tx, err := p.begin(ctx)
	if err != nil {
		return err
	}
	topics, err := json.Marshal(article.Topics)
	if err != nil {
		return fmt.Errorf("encode topics: %w", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO articles (
			id,
			source_id,
			title,
			content,
			description,
			url,
			published_at,
			summary,
			sentiment_score,
			sentiment_label,
			relevance_score,
			bias_score,
			topics,
			created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`,
		article.ID,
		article.SourceID,
		article.Title,
		article.Content,
		article.Description,
		article.URL,
		article.PublishedAt,
		article.Summary,
		article.SentimentScore,
		article.SentimentLabel,
		article.RelevanceScore,
		article.BiasScore,
		topics,
		article.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert article: %w", err)
	}
	return nil
}

func (p *pgSession) AddAnalysis(ctx context.Context, record *domain.AnalysisRecord) error {
	tx, err := p.begin(ctx)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(record.Payload)
	if err != nil {
		return fmt.Errorf("encode analysis payload: %w", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO article_analyses (id, article_id, analysis_type, payload, confidence, model, latency_ms, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		record.ID,
		record.ArticleID,
		string(record.Type),
		payload,
		record.Confidence,
		record.Model,
		record.LatencyMS,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

func (p *pgSession) Commit(ctx context.Context) error {
	if p.tx == nil {
		return nil
	}
	tx := p.tx
	p.tx = nil
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (p *pgSession) Rollback(ctx context.Context) error {
	if p.tx == nil {
		return nil
	}
	tx := p.tx
	p.tx = nil
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("rollback tx: %w", err)
	}
	return nil
}
