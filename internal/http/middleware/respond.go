package middleware

import (
	"encoding/json"
	"net/http"
)

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	RequestID string `json:"request_id"`
}

// WriteError writes the JSON error envelope shared by middleware and handlers.
func WriteError(w http.ResponseWriter, r *http.Request, statusCode int, code, message string) {
	body := errorBody{RequestID: GetRequestID(r.Context())}
	body.Error.Code = code
	body.Error.Message = message

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}
