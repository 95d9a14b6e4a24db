package domain

import (
	"encoding/json"
	"time"
)

// PipelineState is the state of one orchestrator run.
type PipelineState string

const (
	StatePending        PipelineState = "pending"
	StatePreprocessing  PipelineState = "preprocessing"
	StateAnalyzing      PipelineState = "analyzing"
	StatePostprocessing PipelineState = "postprocessing"
	StateDone           PipelineState = "done"
	StateError          PipelineState = "error"
)

type PreprocessingMeta struct {
	Input     int              `json:"input"`
	Processed int              `json:"processed"`
	Invalid   int              `json:"invalid"`
	Rejected  []InvalidArticle `json:"rejected,omitempty"`
}

type AnalysisMeta struct {
	Articles    int     `json:"articles"`
	Results     int     `json:"results"`
	SuccessRate float64 `json:"success_rate"`
}

type PostprocessingMeta struct {
	Saved   int  `json:"saved"`
	Errors  int  `json:"errors"`
	Skipped bool `json:"skipped"`
}

type BatchMetadata struct {
	Preprocessing  PreprocessingMeta  `json:"preprocessing"`
	Analysis       AnalysisMeta       `json:"analysis"`
	Postprocessing PostprocessingMeta `json:"postprocessing"`
}

// BatchResult aggregates one orchestrator run. Counts refer to analysis
// results, not articles: one article yields up to StepsPerArticle results.
// Results are not ordered; correlate them by ArticleID.
type BatchResult struct {
	BatchID         string
	State           PipelineState
	TotalArticles   int
	SuccessfulCount int
	FailedCount     int
	ProcessingTime  time.Duration
	Results         []AnalysisResult
	Errors          []string
	Persisted       bool
	Metadata        BatchMetadata
}

func (b BatchResult) MarshalJSON() ([]byte, error) {
	results := b.Results
	if results == nil {
		results = []AnalysisResult{}
	}
	errs := b.Errors
	if errs == nil {
		errs = []string{}
	}
	return json.Marshal(struct {
		BatchID          string           `json:"batch_id"`
		State            PipelineState    `json:"state"`
		TotalArticles    int              `json:"total_articles"`
		SuccessfulCount  int              `json:"successful_count"`
		FailedCount      int              `json:"failed_count"`
		ProcessingTimeMS int64            `json:"processing_time_ms"`
		Persisted        bool             `json:"persisted"`
		Results          []AnalysisResult `json:"results"`
		Errors           []string         `json:"errors"`
		Metadata         BatchMetadata    `json:"metadata"`
	}{
		BatchID:          b.BatchID,
		State:            b.State,
		TotalArticles:    b.TotalArticles,
		SuccessfulCount:  b.SuccessfulCount,
		FailedCount:      b.FailedCount,
		ProcessingTimeMS: b.ProcessingTime.Milliseconds(),
		Persisted:        b.Persisted,
		Results:          results,
		Errors:           errs,
		Metadata:         b.Metadata,
	})
}

// ArticleOutcome is the unwrapped result of a single-article run.
type ArticleOutcome struct {
	BatchID   string           `json:"batch_id"`
	ArticleID string           `json:"article_id,omitempty"`
	State     PipelineState    `json:"state"`
	Results   []AnalysisResult `json:"results"`
	Errors    []string         `json:"errors"`
	Persisted bool             `json:"persisted"`
}

// Stats are the cumulative counters owned by one orchestrator.
type Stats struct {
	Runs              int64         `json:"runs"`
	FailedRuns        int64         `json:"failed_runs"`
	ArticlesReceived  int64         `json:"articles_received"`
	ArticlesProcessed int64         `json:"articles_processed"`
	ArticlesInvalid   int64         `json:"articles_invalid"`
	AnalysesCompleted int64         `json:"analyses_completed"`
	AnalysesFailed    int64         `json:"analyses_failed"`
	ArticlesSaved     int64         `json:"articles_saved"`
	PersistenceErrors int64         `json:"persistence_errors"`
	ProcessingTime    time.Duration `json:"processing_time_ns"`
}
