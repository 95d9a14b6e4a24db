package handlers

import (
	"net/http"
	"strings"

	"github.com/delarge95/ai-news-aggregator/internal/domain"
)

type articleRequest struct {
	Article    domain.RawArticle `json:"article"`
	SourceType string            `json:"source_type,omitempty"`
	Persist    bool              `json:"persist,omitempty"`
}

func (api *API) AnalyzeArticle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	var request articleRequest
	if err := decodeJSON(w, r, &request); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON payload")
		return
	}
	if len(request.Article) == 0 {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "article is required")
		return
	}

	outcome, err := api.batches.AnalyzeArticle(
		r.Context(),
		request.Article,
		strings.TrimSpace(request.SourceType),
		request.Persist,
	)
	if err != nil {
		writeError(w, r, http.StatusServiceUnavailable, "storage_unavailable", "failed to open persistence session")
		return
	}
	if outcome.Results == nil {
		outcome.Results = []domain.AnalysisResult{}
	}
	if outcome.Errors == nil {
		outcome.Errors = []string{}
	}
	writeJSON(w, http.StatusOK, outcome)
}
