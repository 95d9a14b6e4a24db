package domain

import (
	"encoding/json"
	"time"
)

type AnalysisType string

const (
	AnalysisSentiment AnalysisType = "sentiment"
	AnalysisTopics    AnalysisType = "topics"
	AnalysisSummary   AnalysisType = "summary"
	AnalysisRelevance AnalysisType = "relevance"
	AnalysisBias      AnalysisType = "bias"
)

// AnalysisOrder is the fixed order in which every article is analyzed.
var AnalysisOrder = [...]AnalysisType{
	AnalysisSentiment,
	AnalysisTopics,
	AnalysisSummary,
	AnalysisRelevance,
	AnalysisBias,
}

// StepsPerArticle is the number of analysis steps attempted for each article.
// It is untyped so it compares against int and int64 counters alike.
const StepsPerArticle = 5

// Compile-time check that StepsPerArticle matches AnalysisOrder.
var (
	_ [StepsPerArticle - len(AnalysisOrder)]struct{}
	_ [len(AnalysisOrder) - StepsPerArticle]struct{}
)

const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ResultMeta identifies the (article, analysis type) pair a result belongs to.
type ResultMeta struct {
	ArticleID string        `json:"article_id"`
	Type      AnalysisType  `json:"analysis_type"`
	Latency   time.Duration `json:"-"`
}

// AnalysisResult is either Completed or Failed. The interface is sealed so a
// type switch over the two implementations is exhaustive.
type AnalysisResult interface {
	Meta() ResultMeta
	Status() string
	sealed()
}

// Completed carries the parsed payload of a successful analysis step.
type Completed struct {
	ResultMeta
	Payload    map[string]any
	Confidence float64
	Model      string
}

// Failed carries the error message of a failed analysis step.
type Failed struct {
	ResultMeta
	Error string
}

func (c Completed) Meta() ResultMeta { return c.ResultMeta }
func (c Completed) Status() string   { return StatusCompleted }
func (Completed) sealed()            {}

func (f Failed) Meta() ResultMeta { return f.ResultMeta }
func (f Failed) Status() string   { return StatusFailed }
func (Failed) sealed()            {}

func (c Completed) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ArticleID  string         `json:"article_id"`
		Type       AnalysisType   `json:"analysis_type"`
		Status     string         `json:"status"`
		Payload    map[string]any `json:"payload"`
		Confidence float64        `json:"confidence"`
		Model      string         `json:"model"`
		LatencyMS  int64          `json:"latency_ms"`
	}{
		ArticleID:  c.ArticleID,
		Type:       c.Type,
		Status:     StatusCompleted,
		Payload:    c.Payload,
		Confidence: c.Confidence,
		Model:      c.Model,
		LatencyMS:  c.Latency.Milliseconds(),
	})
}

func (f Failed) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ArticleID string       `json:"article_id"`
		Type      AnalysisType `json:"analysis_type"`
		Status    string       `json:"status"`
		Error     string       `json:"error"`
		LatencyMS int64        `json:"latency_ms"`
	}{
		ArticleID: f.ArticleID,
		Type:      f.Type,
		Status:    StatusFailed,
		Error:     f.Error,
		LatencyMS: f.Latency.Milliseconds(),
	})
}

// CountResults returns the number of completed and failed results.
func CountResults(results []AnalysisResult) (completed, failed int) {
	for _, result := range results {
		switch result.(type) {
		case Completed:
			completed++
		case Failed:
			failed++
		}
	}
	return completed, failed
}

// GroupByArticle indexes results by article id, keeping the step order.
func GroupByArticle(results []AnalysisResult) map[string][]AnalysisResult {
	grouped := make(map[string][]AnalysisResult)
	for _, result := range results {
		id := result.Meta().ArticleID
		grouped[id] = append(grouped[id], result)
	}
	return grouped
}
