package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"
)

const healthCheckTimeout = 2 * time.Second

func (api *API) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	names := make([]string, 0, len(api.checks))
	for name := range api.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := "ok"
	statusCode := http.StatusOK
	dependencies := make(map[string]string, len(names))
	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := api.checks[name](ctx)
		cancel()
		if err != nil {
			dependencies[name] = err.Error()
			status = "degraded"
			statusCode = http.StatusServiceUnavailable
			continue
		}
		dependencies[name] = "ok"
	}

	response := map[string]any{"status": status}
	if len(dependencies) > 0 {
		response["dependencies"] = dependencies
	}
	writeJSON(w, statusCode, response)
}
