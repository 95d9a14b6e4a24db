package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCacheRoundTripAndIsolation(t *testing.T) {
	cache := NewMemoryCache(Config{TTL: time.Minute, MaxEntries: 10})
	ctx := context.Background()
	key := BuildSignature("sentiment", "model", "Title", "content")

	cache.Set(ctx, key, Entry{Payload: map[string]any{"sentiment_score": 0.4}, Confidence: 0.8, ModelID: "m"})

	entry, ok := cache.Get(ctx, key)
	if !ok {
		t.Fatalf("expected cache hit")
	}
	if entry.Payload["sentiment_score"] != 0.4 || entry.ModelID != "m" {
		t.Fatalf("unexpected entry %+v", entry)
	}

	entry.Payload["sentiment_score"] = 1.0
	again, _ := cache.Get(ctx, key)
	if again.Payload["sentiment_score"] != 0.4 {
		t.Fatalf("expected cached payload to be isolated from callers")
	}
}

func TestMemoryCacheExpiresEntries(t *testing.T) {
	cache := NewMemoryCache(Config{TTL: time.Minute})
	current := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return current }

	cache.Set(context.Background(), "k", Entry{Payload: map[string]any{"summary": "s"}})
	current = current.Add(2 * time.Minute)

	if _, ok := cache.Get(context.Background(), "k"); ok {
		t.Fatalf("expected expired entry to miss")
	}
	if cache.Len() != 0 {
		t.Fatalf("expected expired entry to be deleted")
	}
}

func TestMemoryCacheEvictsOldest(t *testing.T) {
	cache := NewMemoryCache(Config{TTL: time.Hour, MaxEntries: 2})
	current := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	cache.now = func() time.Time {
		current = current.Add(time.Second)
		return current
	}
	ctx := context.Background()

	cache.Set(ctx, "a", Entry{})
	cache.Set(ctx, "b", Entry{})
	cache.Set(ctx, "c", Entry{})

	if _, ok := cache.Get(ctx, "a"); ok {
		t.Fatalf("expected oldest entry to be evicted")
	}
	if _, ok := cache.Get(ctx, "c"); !ok {
		t.Fatalf("expected newest entry to be present")
	}
}

func TestBuildSignatureIsCaseAndSpaceInsensitive(t *testing.T) {
	if BuildSignature(" Topics ", "Model") != BuildSignature("topics", "model") {
		t.Fatalf("expected normalized signatures to match")
	}
	if BuildSignature("a", "b") == BuildSignature("ab") {
		t.Fatalf("expected separator to distinguish parts")
	}
}
