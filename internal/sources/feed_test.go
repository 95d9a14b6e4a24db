package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Example Wire</title>
  <link>https://wire.example.com</link>
  <item>
    <title>Central bank holds rates</title>
    <link>https://wire.example.com/rates</link>
    <description>Policy makers kept rates unchanged.</description>
    <pubDate>Wed, 01 May 2024 10:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Elections scheduled for autumn</title>
    <link>https://wire.example.com/elections</link>
    <description>The vote will take place in October.</description>
  </item>
</channel>
</rss>`

func TestFeedItemsMapsFields(t *testing.T) {
	feed, err := gofeed.NewParser().ParseString(sampleRSS)
	if err != nil {
		t.Fatalf("parse sample feed: %v", err)
	}

	records := FeedItems(feed, 0)
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	first := records[0]
	if first.String("title") != "Central bank holds rates" || first.String("url") != "https://wire.example.com/rates" {
		t.Fatalf("unexpected first record %v", first)
	}
	if first.String("source_name") != "Example Wire" {
		t.Fatalf("expected feed title as source, got %q", first.String("source_name"))
	}
	published, ok := first["published_at"].(time.Time)
	if !ok || published.Year() != 2024 {
		t.Fatalf("expected parsed publish date, got %v", first["published_at"])
	}
	if _, ok := records[1]["published_at"]; ok {
		t.Fatalf("expected no publish date on second record")
	}

	if limited := FeedItems(feed, 1); len(limited) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(limited))
	}
}

func TestFeedFetcherFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleRSS))
	}))
	defer server.Close()

	records, err := NewFeedFetcher(time.Second).Fetch(context.Background(), server.URL, 0)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
}
