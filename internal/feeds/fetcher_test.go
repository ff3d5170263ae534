package feeds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/trungvh/gazette/internal/models"
)

const testRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Test Feed</title>
  <item>
    <title>First Feed Story</title>
    <link>https://example.com/first</link>
    <description>About the first thing</description>
    <pubDate>Mon, 31 Aug 2026 08:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Second Feed Story</title>
    <link>https://example.com/second</link>
    <description>About the second thing</description>
  </item>
</channel>
</rss>`

// newFeedServer serves the given body as RSS and returns a feed source for it.
func newFeedServer(t *testing.T, body string, status int) models.Source {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			http.Error(w, "unavailable", status)
			return
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	return models.Source{
		Name:     "Test Feed",
		Endpoint: srv.URL,
		Kind:     models.KindFeed,
		Category: "technology",
		Priority: 1,
	}
}

func TestFetchAll_ParsesFeed(t *testing.T) {
	src := newFeedServer(t, testRSS, http.StatusOK)
	f := NewFetcher()

	result := f.FetchAll(context.Background(), []models.Source{src}, Options{Workers: 2})
	if len(result.Failed) != 0 {
		t.Fatalf("Failed = %v, want none", result.Failed)
	}
	if len(result.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(result.Items))
	}
	if result.Items[0].Title != "First Feed Story" {
		t.Errorf("Items[0].Title = %q, want %q", result.Items[0].Title, "First Feed Story")
	}
	if result.Items[0].PublishedAt == nil {
		t.Error("Items[0].PublishedAt = nil, want parsed pubDate")
	}
	if result.Items[1].PublishedAt != nil {
		t.Error("Items[1].PublishedAt != nil, want nil for missing pubDate")
	}
}

func TestFetchAll_AbsorbsSourceFailure(t *testing.T) {
	good := newFeedServer(t, testRSS, http.StatusOK)
	bad := newFeedServer(t, "", http.StatusInternalServerError)
	bad.Name = "Broken Feed"
	malformed := newFeedServer(t, "this is not xml at all", http.StatusOK)
	malformed.Name = "Malformed Feed"

	f := NewFetcher()
	result := f.FetchAll(context.Background(), []models.Source{good, bad, malformed}, Options{Workers: 3})

	if len(result.Items) != 2 {
		t.Errorf("got %d items from the healthy source, want 2", len(result.Items))
	}
	if len(result.Failed) != 2 {
		t.Fatalf("got %d failures, want 2", len(result.Failed))
	}
	failedNames := map[string]bool{}
	for _, fs := range result.Failed {
		failedNames[fs.Source] = true
	}
	if !failedNames["Broken Feed"] || !failedNames["Malformed Feed"] {
		t.Errorf("Failed = %v, want Broken Feed and Malformed Feed", result.Failed)
	}
}

func TestFetchAll_TimeoutAbandonsSlowSources(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	t.Cleanup(slow.Close)

	src := models.Source{Name: "Slow Feed", Endpoint: slow.URL, Kind: models.KindFeed}
	f := NewFetcher()

	start := time.Now()
	result := f.FetchAll(context.Background(), []models.Source{src}, Options{
		Workers: 1,
		Timeout: 100 * time.Millisecond,
	})
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("FetchAll took %v, want bounded by the run timeout", elapsed)
	}
	if len(result.Failed) != 1 {
		t.Fatalf("got %d failures, want the slow source abandoned", len(result.Failed))
	}
	if len(result.Items) != 0 {
		t.Errorf("got %d items, want none", len(result.Items))
	}
}

func TestWaitForRateLimit_CancelledContextReturnsEarly(t *testing.T) {
	f := NewFetcher()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// First call primes the domain; the second would normally block for
	// the full delay.
	f.waitForRateLimit(ctx, "example.com")
	start := time.Now()
	f.waitForRateLimit(ctx, "example.com")

	if elapsed := time.Since(start); elapsed >= rateLimitDelay {
		t.Errorf("waited %v despite cancelled context", elapsed)
	}
}

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"https://example.com/feed", "example.com"},
		{"https://sub.example.com:8080/x", "sub.example.com"},
		{"not a url", ""},
	}

	for _, tt := range tests {
		if got := extractDomain(tt.input); got != tt.want {
			t.Errorf("extractDomain(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
