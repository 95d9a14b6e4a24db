package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"hash/fnv"
	"net/http"
	"sync"
	"time"

	"github.com/delarge95/ai-news-aggregator/internal/http/middleware"
	"github.com/delarge95/ai-news-aggregator/internal/service"
)

const (
	maxBatchArticles  = 500
	maxRequestBytes   = 8 << 20
	idempotencyMaxAge = 24 * time.Hour
)

var errInvalidPayload = errors.New("invalid payload")

// HealthCheck probes one backing dependency.
type HealthCheck func(ctx context.Context) error

type API struct {
	batches     *service.BatchesService
	idempotency *idempotencyStore
	checks      map[string]HealthCheck
}

func NewAPI(batches *service.BatchesService) *API {
	return &API{
		batches:     batches,
		idempotency: newIdempotencyStore(),
		checks:      make(map[string]HealthCheck),
	}
}

// AddHealthCheck registers a named probe reported by /healthz.
func (api *API) AddHealthCheck(name string, check HealthCheck) {
	if check != nil {
		api.checks[name] = check
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, r *http.Request, statusCode int, code, message string) {
	middleware.WriteError(w, r, statusCode, code, message)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, value any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(value); err != nil {
		return errInvalidPayload
	}
	return nil
}

type idempotencyEntry struct {
	PayloadHash uint64
	RunID       string
	CreatedAt   time.Time
}

// idempotencyStore remembers which run an Idempotency-Key produced so a
// retried async submission does not enqueue a second run.
type idempotencyStore struct {
	mu      sync.Mutex
	entries map[string]idempotencyEntry
}

func newIdempotencyStore() *idempotencyStore {
	return &idempotencyStore{
		entries: make(map[string]idempotencyEntry),
	}
}

func (s *idempotencyStore) Get(key string) (idempotencyEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if ok && time.Since(entry.CreatedAt) > idempotencyMaxAge {
		delete(s.entries, key)
		return idempotencyEntry{}, false
	}
	return entry, ok
}

func (s *idempotencyStore) Put(key string, payloadHash uint64, runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = idempotencyEntry{
		PayloadHash: payloadHash,
		RunID:       runID,
		CreatedAt:   time.Now().UTC(),
	}
}

func hashPayload(value any) uint64 {
	payload, _ := json.Marshal(value)
	hasher := fnv.New64a()
	_, _ = hasher.Write(payload)
	return hasher.Sum64()
}

func jsonRawOrFallback(value []byte) any {
	var decoded any
	if err := json.Unmarshal(value, &decoded); err == nil {
		return decoded
	}
	return string(value)
}
