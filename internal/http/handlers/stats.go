package handlers

import "net/http"

func (api *API) Stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	stats := api.batches.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"stats":              stats,
		"processing_time_ms": stats.ProcessingTime.Milliseconds(),
	})
}

func (api *API) ResetStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	api.batches.ResetStats()
	w.WriteHeader(http.StatusNoContent)
}
