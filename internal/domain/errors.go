package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound  = errors.New("resource not found")
	ErrNoSession = errors.New("no persistence session provided; results were not persisted")
)

// ValidationError describes why an article was rejected. Validator.Check
// returns it; runs only record its reasons on the invalid list.
type ValidationError struct {
	ArticleID string
	Reasons   []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("article %s invalid: %s", e.ArticleID, strings.Join(e.Reasons, "; "))
}

// AnalysisStepError is a failure of one analysis type for one article.
type AnalysisStepError struct {
	ArticleID string
	Type      AnalysisType
	Err       error
}

func (e *AnalysisStepError) Error() string {
	return fmt.Sprintf("%s analysis failed for article %s: %v", e.Type, e.ArticleID, e.Err)
}

func (e *AnalysisStepError) Unwrap() error { return e.Err }

// AnalysisTimeoutError is an analysis step that exceeded its deadline.
type AnalysisTimeoutError struct {
	ArticleID string
	Type      AnalysisType
	Timeout   time.Duration
	Err       error
}

// Error names the expired deadline when it is known. A zero Timeout means the
// provider's transport timeout fired, whose length the runner does not see.
func (e *AnalysisTimeoutError) Error() string {
	if e.Timeout <= 0 {
		return fmt.Sprintf("%s analysis timed out at the provider for article %s", e.Type, e.ArticleID)
	}
	return fmt.Sprintf("%s analysis timed out after %s for article %s", e.Type, e.Timeout, e.ArticleID)
}

func (e *AnalysisTimeoutError) Unwrap() error { return e.Err }

// PersistenceError is a failure while writing or committing analysis output.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// CriticalPipelineError short-circuits a run into the error state.
type CriticalPipelineError struct {
	Phase  PipelineState
	Reason string
}

func (e *CriticalPipelineError) Error() string {
	return fmt.Sprintf("critical pipeline error during %s: %s", e.Phase, e.Reason)
}
