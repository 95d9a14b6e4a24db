package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/delarge95/ai-news-aggregator/internal/domain"
	"github.com/delarge95/ai-news-aggregator/internal/repository"
	"github.com/delarge95/ai-news-aggregator/internal/service"
)

type batchRequest struct {
	Articles   []domain.RawArticle `json:"articles"`
	SourceType string              `json:"source_type,omitempty"`
	Persist    bool                `json:"persist,omitempty"`
	Async      bool                `json:"async,omitempty"`
}

// Batches runs a batch inline, or queues it when async is set.
func (api *API) Batches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	var request batchRequest
	if err := decodeJSON(w, r, &request); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON payload")
		return
	}
	if len(request.Articles) > maxBatchArticles {
		writeError(w, r, http.StatusRequestEntityTooLarge, "batch_too_large",
			fmt.Sprintf("a batch accepts at most %d articles", maxBatchArticles))
		return
	}
	request.SourceType = strings.TrimSpace(request.SourceType)

	input := service.BatchInput{
		Articles:   request.Articles,
		SourceType: request.SourceType,
		Persist:    request.Persist,
	}
	if request.Async {
		api.submitBatch(w, r, request, input)
		return
	}

	result, err := api.batches.RunSync(r.Context(), input)
	if err != nil {
		writeError(w, r, http.StatusServiceUnavailable, "storage_unavailable", "failed to open persistence session")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (api *API) submitBatch(w http.ResponseWriter, r *http.Request, request batchRequest, input service.BatchInput) {
	idempotencyKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	payloadHash := hashPayload(request)
	if idempotencyKey != "" {
		if entry, ok := api.idempotency.Get(idempotencyKey); ok {
			if entry.PayloadHash != payloadHash {
				writeError(w, r, http.StatusConflict, "idempotency_conflict", "Idempotency-Key reused with a different payload")
				return
			}
			writeAccepted(w, entry.RunID, domain.RunStatusPending)
			return
		}
	}

	run, err := api.batches.Submit(r.Context(), input)
	if err != nil {
		if errors.Is(err, service.ErrQueueUnavailable) {
			writeError(w, r, http.StatusServiceUnavailable, "queue_unavailable", "async processing is disabled")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to queue batch")
		return
	}
	if idempotencyKey != "" {
		api.idempotency.Put(idempotencyKey, payloadHash, run.ID)
	}
	writeAccepted(w, run.ID, run.Status)
}

func writeAccepted(w http.ResponseWriter, runID string, status domain.RunStatus) {
	writeJSON(w, http.StatusAccepted, map[string]any{
		"run_id":     runID,
		"status":     status,
		"status_url": "/v1/batches/" + runID,
	})
}

// BatchStatus reports an async run and, once finished, its result.
func (api *API) BatchStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	runID := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, "/v1/batches/"))
	if runID == "" || strings.Contains(runID, "/") {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "run_id is required")
		return
	}

	run, err := api.batches.GetRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "not_found", "run not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to load run")
		return
	}

	response := map[string]any{
		"run_id":      run.ID,
		"status":      run.Status,
		"source_type": run.SourceType,
		"persist":     run.Persist,
		"attempts":    run.Attempts,
		"created_at":  run.CreatedAt,
		"updated_at":  run.UpdatedAt,
	}
	if len(run.Result) > 0 {
		response["result"] = jsonRawOrFallback(run.Result)
	}
	if strings.TrimSpace(run.ErrorMessage) != "" {
		response["error"] = map[string]any{
			"code":    "processing_error",
			"message": run.ErrorMessage,
		}
	}
	writeJSON(w, http.StatusOK, response)
}
