package pipeline

import (
	"context"
	"errors"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/delarge95/ai-news-aggregator/internal/config"
	"github.com/delarge95/ai-news-aggregator/internal/domain"
)

// Normalizer cleans raw fetcher records. It may drop unusable records
// without returning an error.
type Normalizer interface {
	BatchNormalize(ctx context.Context, raw []domain.RawArticle, sourceType string) ([]domain.Article, error)
}

// Preprocessor normalizes a raw batch in sub-batches and validates the
// combined output. In parallel mode the output order does not follow the
// input order; callers correlate by article id.
type Preprocessor struct {
	config     config.ProcessingConfig
	normalizer Normalizer
	validator  Validator
	logger     *log.Logger
}

func NewPreprocessor(cfg config.ProcessingConfig, normalizer Normalizer, logger *log.Logger) *Preprocessor {
	cfg = cfg.WithDefaults()
	return &Preprocessor{
		config:     cfg,
		normalizer: normalizer,
		validator:  NewValidator(cfg),
		logger:     logger,
	}
}

func (p *Preprocessor) Process(
	ctx context.Context,
	raw []domain.RawArticle,
	sourceType string,
) ([]domain.Article, []domain.InvalidArticle) {
	chunks := splitBatches(raw, p.config.BatchSize)
	normalized := make([]domain.Article, 0, len(raw))

	if p.config.EnableParallel && len(chunks) > 1 {
		var (
			mu    sync.Mutex
			group errgroup.Group
		)
		group.SetLimit(p.config.MaxConcurrentBatches)
		for index, chunk := range chunks {
			index, chunk := index, chunk
			group.Go(func() error {
				articles := p.normalizeChunk(ctx, index, chunk, sourceType)
				mu.Lock()
				normalized = append(normalized, articles...)
				mu.Unlock()
				return nil
			})
		}
		_ = group.Wait()
	} else {
		for index, chunk := range chunks {
			normalized = append(normalized, p.normalizeChunk(ctx, index, chunk, sourceType)...)
		}
	}

	unique, duplicates := rejectDuplicateIDs(normalized)
	for _, duplicate := range duplicates {
		p.logf("preprocess rejected article_id=%s url=%s: %s", duplicate.Article.ID, duplicate.Article.URL, duplicate.Reasons[0])
	}

	if !p.config.EnableValidation {
		return unique, duplicates
	}
	valid, invalid := p.validator.BatchValidate(unique)
	return valid, append(invalid, duplicates...)
}

const reasonDuplicateID = "duplicate article id"

// rejectDuplicateIDs keeps the first article seen for every id. Results are
// grouped and persisted by id, so a second article under the same id would
// be merged into the first.
func rejectDuplicateIDs(articles []domain.Article) ([]domain.Article, []domain.InvalidArticle) {
	seen := make(map[string]struct{}, len(articles))
	unique := make([]domain.Article, 0, len(articles))
	var duplicates []domain.InvalidArticle
	for _, article := range articles {
		if _, exists := seen[article.ID]; exists {
			duplicates = append(duplicates, domain.InvalidArticle{Article: article, Reasons: []string{reasonDuplicateID}})
			continue
		}
		seen[article.ID] = struct{}{}
		unique = append(unique, article)
	}
	return unique, duplicates
}

// normalizeChunk isolates one sub-batch: an error or panic drops the chunk
// and nothing else.
func (p *Preprocessor) normalizeChunk(
	ctx context.Context,
	index int,
	chunk []domain.RawArticle,
	sourceType string,
) (articles []domain.Article) {
	defer func() {
		if recovered := recover(); recovered != nil {
			p.logf("preprocess sub_batch=%d size=%d panic: %v", index, len(chunk), recovered)
			articles = nil
		}
	}()

	if p.normalizer == nil {
		p.logf("preprocess sub_batch=%d skipped: %v", index, errNoNormalizer)
		return nil
	}
	result, err := p.normalizer.BatchNormalize(ctx, chunk, sourceType)
	if err != nil {
		p.logf("preprocess sub_batch=%d size=%d failed: %v", index, len(chunk), err)
		return nil
	}
	return result
}

var errNoNormalizer = errors.New("no normalizer configured")

func splitBatches(raw []domain.RawArticle, size int) [][]domain.RawArticle {
	if len(raw) == 0 {
		return nil
	}
	if size <= 0 {
		size = len(raw)
	}
	chunks := make([][]domain.RawArticle, 0, (len(raw)+size-1)/size)
	for start := 0; start < len(raw); start += size {
		end := min(start+size, len(raw))
		chunks = append(chunks, raw[start:end])
	}
	return chunks
}

func (p *Preprocessor) logf(format string, args ...any) {
	if p.logger == nil {
		return
	}
	p.logger.Printf(format, args...)
}
