// Package feeds retrieves raw items from configured sources and normalizes
// them into canonical articles. RSS and Atom endpoints are parsed with
// gofeed; page-scrape endpoints are walked with goquery. Per-source failures
// are absorbed and reported, never fatal to a fetch run.
package feeds

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/trungvh/gazette/internal/models"
	"golang.org/x/sync/errgroup"
)

const (
	httpTimeout     = 30 * time.Second
	rateLimitDelay  = 1 * time.Second
	maxExcerptWords = 120
)

// Options controls a fetch run.
type Options struct {
	// Workers bounds how many sources are fetched concurrently.
	Workers int

	// Timeout is the wall-clock budget for the whole run. Sources still
	// unfinished when it expires are abandoned and reported as failures.
	Timeout time.Duration
}

// FailedSource records a source that could not be fetched this cycle.
type FailedSource struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

// Result contains the raw items fetched from all sources plus any per-source
// failures. The next scheduled cycle is the retry mechanism for failures.
type Result struct {
	Items  []models.RawItem
	Failed []FailedSource
}

// Fetcher retrieves raw items from news sources with per-domain rate
// limiting and bounded concurrency.
type Fetcher struct {
	client      *http.Client
	rateLimiter map[string]time.Time // per-domain last request time
	mu          sync.Mutex           // protects rateLimiter
}

// NewFetcher creates a Fetcher with a 30-second-per-request HTTP client and
// a browser-like User-Agent.
func NewFetcher() *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: httpTimeout,
			Transport: &userAgentTransport{
				base: http.DefaultTransport,
			},
		},
		rateLimiter: make(map[string]time.Time),
	}
}

// userAgentTransport wraps an http.RoundTripper to inject a custom User-Agent
// header on every request.
type userAgentTransport struct {
	base http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	// Use a browser-like User-Agent to avoid bot detection on some sites.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	return t.base.RoundTrip(req)
}

// FetchAll fetches every source concurrently, bounded by opts.Workers, under
// the run-wide opts.Timeout. Individual source failures are collected in
// Result.Failed rather than failing the run.
func (f *Fetcher) FetchAll(ctx context.Context, sources []models.Source, opts Options) *Result {
	if opts.Workers <= 0 {
		opts.Workers = 8
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	var (
		result Result
		mu     sync.Mutex
	)

	g := new(errgroup.Group)
	g.SetLimit(opts.Workers)

	for _, src := range sources {
		g.Go(func() error {
			items, err := f.fetchSource(ctx, src)
			if err != nil {
				slog.Warn("failed to fetch source",
					"source", src.Name,
					"endpoint", src.Endpoint,
					"error", err,
				)

				mu.Lock()
				result.Failed = append(result.Failed, FailedSource{
					Source: src.Name,
					Error:  err.Error(),
				})
				mu.Unlock()

				return nil // absorb, don't fail the run
			}

			mu.Lock()
			result.Items = append(result.Items, items...)
			mu.Unlock()

			slog.Info("fetched source",
				"source", src.Name,
				"items", len(items),
			)
			return nil
		})
	}

	// Goroutines only return nil; Wait just joins them.
	_ = g.Wait()

	return &result
}

// fetchSource retrieves raw items from a single source, dispatching on its
// kind.
func (f *Fetcher) fetchSource(ctx context.Context, src models.Source) ([]models.RawItem, error) {
	f.waitForRateLimit(ctx, extractDomain(src.Endpoint))

	switch src.Kind {
	case models.KindPage:
		items, err := f.scrapePage(ctx, src)
		if err != nil {
			return nil, err
		}
		// Listing pages rarely carry snippets; pull short excerpts for
		// the top few entries so the ranker has something to work with.
		f.fillExcerpts(ctx, items)
		return items, nil
	default:
		return f.fetchFeed(ctx, src)
	}
}

// fetchFeed retrieves and parses an RSS/Atom feed.
func (f *Fetcher) fetchFeed(ctx context.Context, src models.Source) ([]models.RawItem, error) {
	fp := gofeed.NewParser()
	fp.Client = f.client

	feed, err := fp.ParseURLWithContext(src.Endpoint, ctx)
	if err != nil {
		return nil, err
	}

	return parseFeedItems(src, feed), nil
}

// waitForRateLimit enforces a minimum delay of 1 second between requests to
// the same domain. It stops waiting as soon as ctx is done so a cancelled
// run does not hold worker goroutines.
func (f *Fetcher) waitForRateLimit(ctx context.Context, domain string) {
	f.mu.Lock()
	lastReq, ok := f.rateLimiter[domain]
	if ok {
		if wait := rateLimitDelay - time.Since(lastReq); wait > 0 {
			f.mu.Unlock()
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
			}
			f.mu.Lock()
		}
	}
	f.rateLimiter[domain] = time.Now()
	f.mu.Unlock()
}

// extractDomain parses a URL and returns its hostname. If parsing fails, it
// returns the raw URL as a fallback key.
func extractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}
