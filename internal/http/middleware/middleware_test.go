package middleware

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthRejectsWrongToken(t *testing.T) {
	handler := RequestID(Auth("secret-token")(okHandler()))

	request := httptest.NewRequest(http.MethodGet, "/v1/stats", nil)
	request.Header.Set("Authorization", "Bearer wrong")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", recorder.Code)
	}
	var body errorBody
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body.Error.Code != "unauthorized" || body.RequestID == "" || body.RequestID == "unknown" {
		t.Fatalf("unexpected error body: %+v", body)
	}
}

func TestAuthAllowsHealthAndValidToken(t *testing.T) {
	handler := Auth("secret-token")(okHandler())

	health := httptest.NewRecorder()
	handler.ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if health.Code != http.StatusOK {
		t.Fatalf("expected healthz to skip auth, got %d", health.Code)
	}

	request := httptest.NewRequest(http.MethodGet, "/v1/stats", nil)
	request.Header.Set("Authorization", "Bearer secret-token")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected valid token accepted, got %d", recorder.Code)
	}
}

func TestRateLimitRejectsBurstOverflow(t *testing.T) {
	handler := RateLimit(0.001, 2)(okHandler())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		request := httptest.NewRequest(http.MethodPost, "/v1/batches", nil)
		request.RemoteAddr = "203.0.113.7:5000"
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)
		codes = append(codes, recorder.Code)
		if recorder.Code == http.StatusTooManyRequests && recorder.Header().Get("Retry-After") == "" {
			t.Fatalf("expected Retry-After on rejection")
		}
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status sequence: %v", codes)
	}
}

func TestRequestIDReplacesInvalidHeader(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	request := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	request.Header.Set("X-Request-Id", "has spaces\tinside")
	handler.ServeHTTP(httptest.NewRecorder(), request)
	if seen == "has spaces\tinside" || len(seen) != 36 {
		t.Fatalf("expected generated uuid, got %q", seen)
	}

	request.Header.Set("X-Request-Id", "req-123")
	handler.ServeHTTP(httptest.NewRecorder(), request)
	if seen != "req-123" {
		t.Fatalf("expected propagated request id, got %q", seen)
	}
}

func TestTraceLogsStatus(t *testing.T) {
	var buffer bytes.Buffer
	handler := Trace(log.New(&buffer, "", 0))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/batches", nil))
	if !strings.Contains(buffer.String(), "status=202") || !strings.Contains(buffer.String(), "path=/v1/batches") {
		t.Fatalf("unexpected trace line: %q", buffer.String())
	}
}
