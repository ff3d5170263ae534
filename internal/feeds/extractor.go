package feeds

import (
	"context"
	"fmt"
	"net/http"

	readability "github.com/go-shiori/go-readability"
)

// browserHeaders sets browser-like request headers so sites that check Accept
// or User-Agent don't reject the request with 406.
func browserHeaders(r *http.Request) {
	r.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	r.Header.Set("User-Agent", "Mozilla/5.0 (compatible; Gazette/1.0)")
}

// ExtractExcerpt fetches the article page at the given URL and returns a
// short readable excerpt using go-readability.
func (f *Fetcher) ExtractExcerpt(ctx context.Context, articleURL string) (string, error) {
	f.waitForRateLimit(ctx, extractDomain(articleURL))

	article, err := readability.FromURL(articleURL, httpTimeout, browserHeaders)
	if err != nil {
		return "", fmt.Errorf("readability extraction from %q: %w", articleURL, err)
	}

	if article.Excerpt != "" {
		return truncateWords(article.Excerpt, maxExcerptWords), nil
	}
	return truncateWords(article.TextContent, maxExcerptWords), nil
}
