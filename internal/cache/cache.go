package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Entry is one cached completed analysis step.
type Entry struct {
	Payload    map[string]any `json:"payload"`
	Confidence float64        `json:"confidence"`
	ModelID    string         `json:"model_id"`
	CreatedAt  time.Time      `json:"created_at"`
}

// AnalysisCache stores completed analysis payloads by signature. Misses and
// backend failures both report ok == false.
type AnalysisCache interface {
	Get(ctx context.Context, signature string) (Entry, bool)
	Set(ctx context.Context, signature string, entry Entry)
}

type Config struct {
	TTL        time.Duration
	MaxEntries int
}

func (c Config) withDefaults() Config {
	if c.TTL <= 0 {
		c.TTL = time.Hour
	}
	if c.MaxEntries <= 0 {
		c.MaxEntries = 5000
	}
	return c
}

// BuildSignature hashes the case-folded, trimmed parts into a stable key.
func BuildSignature(parts ...string) string {
	normalized := make([]string, 0, len(parts))
	for _, part := range parts {
		normalized = append(normalized, strings.ToLower(strings.TrimSpace(part)))
	}
	sum := sha256.Sum256([]byte(strings.Join(normalized, "||")))
	return hex.EncodeToString(sum[:])
}

func clonePayload(payload map[string]any) map[string]any {
	if payload == nil {
		return nil
	}
	clone := make(map[string]any, len(payload))
	for key, value := range payload {
		if items, ok := value.([]string); ok {
			value = append([]string(nil), items...)
		}
		clone[key] = value
	}
	return clone
}
