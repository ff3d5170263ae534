package feeds

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"github.com/trungvh/gazette/internal/models"
)

const (
	maxScrapeItems   = 20
	excerptedPerPage = 3
)

// scrapePage fetches an HTML listing page and extracts article entries from
// it. Listing pages vary wildly, so extraction is selector-based and
// best-effort: <article> blocks first, headline links as a fallback.
func (f *Fetcher) scrapePage(ctx context.Context, src models.Source) ([]models.RawItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.Endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %q: %w", src.Endpoint, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %q: %w", src.Endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %q: HTTP %d", src.Endpoint, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML from %q: %w", src.Endpoint, err)
	}

	base, err := url.Parse(src.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing endpoint %q: %w", src.Endpoint, err)
	}

	items := scrapeArticleBlocks(doc, src, base)
	if len(items) == 0 {
		items = scrapeHeadlineLinks(doc, src, base)
	}

	return items, nil
}

// scrapeArticleBlocks extracts one item per <article> element: the first
// heading link is the title, a <time> element (datetime attribute or text)
// the published date.
func scrapeArticleBlocks(doc *goquery.Document, src models.Source, base *url.URL) []models.RawItem {
	var items []models.RawItem

	doc.Find("article").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		link := sel.Find("h1 a, h2 a, h3 a, a").First()
		href, ok := link.Attr("href")
		title := strings.TrimSpace(link.Text())
		if !ok || title == "" {
			return true
		}

		items = append(items, models.RawItem{
			Source:      src,
			Title:       title,
			Link:        resolveLink(base, href),
			PublishedAt: scrapeDate(sel),
		})
		return len(items) < maxScrapeItems
	})

	return items
}

// scrapeHeadlineLinks is the fallback extraction: any heading that wraps a
// link is treated as an article entry.
func scrapeHeadlineLinks(doc *goquery.Document, src models.Source, base *url.URL) []models.RawItem {
	var items []models.RawItem
	seen := make(map[string]bool)

	doc.Find("h1 a, h2 a, h3 a").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, ok := sel.Attr("href")
		title := strings.TrimSpace(sel.Text())
		if !ok || title == "" {
			return true
		}

		link := resolveLink(base, href)
		if seen[link] {
			return true
		}
		seen[link] = true

		items = append(items, models.RawItem{
			Source: src,
			Title:  title,
			Link:   link,
		})
		return len(items) < maxScrapeItems
	})

	return items
}

// scrapeDate finds a publication date inside an article block. It prefers a
// <time datetime> attribute and falls back to loose text parsing of the
// element's content ("Jan 29, 2026", "2026-01-29", ...).
func scrapeDate(sel *goquery.Selection) *time.Time {
	timeEl := sel.Find("time").First()
	if timeEl.Length() == 0 {
		return nil
	}

	raw, ok := timeEl.Attr("datetime")
	if !ok {
		raw = strings.TrimSpace(timeEl.Text())
	}
	if raw == "" {
		return nil
	}

	t, err := dateparse.ParseAny(raw)
	if err != nil {
		return nil
	}
	return &t
}

// resolveLink makes a possibly-relative href absolute against the listing
// page URL.
func resolveLink(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// fillExcerpts extracts readable text for the first few scraped items that
// have no description. Extraction failures are logged and skipped; an item
// without an excerpt is still a valid item.
func (f *Fetcher) fillExcerpts(ctx context.Context, items []models.RawItem) {
	filled := 0
	for i := range items {
		if filled >= excerptedPerPage {
			return
		}
		if items[i].Description != "" {
			continue
		}
		if ctx.Err() != nil {
			return
		}

		excerpt, err := f.ExtractExcerpt(ctx, items[i].Link)
		if err != nil {
			continue
		}
		items[i].Description = excerpt
		filled++
	}
}
