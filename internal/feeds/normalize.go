package feeds

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/trungvh/gazette/internal/models"
)

const minTitleLength = 10

// Promotional noise that has no place in a news digest.
var spamPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(click here|read more|subscribe now)\b`),
	regexp.MustCompile(`(?i)\b(discount|sale|special offer)\b`),
	// Three or more all-caps words in a row. A single capitalized brand
	// name like NVIDIA must not trip this.
	regexp.MustCompile(`\b[A-Z]{2,}(?:[\s,.!]+[A-Z]{2,}\b){2,}`),
}

// trackingParams are query parameters stripped during link canonicalization.
// utm_* parameters are handled by prefix.
var trackingParams = map[string]bool{
	"fbclid": true,
	"gclid":  true,
	"mc_cid": true,
	"mc_eid": true,
	"ref":    true,
	"cmpid":  true,
	"icid":   true,
	"ncid":   true,
}

// Normalize converts raw items into canonical articles. Malformed items
// (missing title or link, unparseable link, too-short or promotional titles)
// are dropped with a logged reason, never propagated as errors. Items with
// no source-supplied timestamp get now as their published time.
func Normalize(items []models.RawItem, now time.Time) []models.Article {
	articles := make([]models.Article, 0, len(items))
	for _, item := range items {
		article, reason := normalizeItem(item, now)
		if reason != "" {
			slog.Warn("dropping malformed item",
				"source", item.Source.Name,
				"title", item.Title,
				"reason", reason,
			)
			continue
		}
		articles = append(articles, article)
	}
	return articles
}

// normalizeItem converts one raw item. A non-empty reason means the item was
// rejected.
func normalizeItem(item models.RawItem, now time.Time) (models.Article, string) {
	title := strings.TrimSpace(item.Title)
	link := strings.TrimSpace(item.Link)

	if title == "" || link == "" {
		return models.Article{}, "missing title or link"
	}
	if utf8.RuneCountInString(title) < minTitleLength {
		return models.Article{}, "title too short"
	}
	for _, p := range spamPatterns {
		if p.MatchString(title) {
			return models.Article{}, "promotional title"
		}
	}

	canonical, err := CanonicalizeLink(link)
	if err != nil {
		return models.Article{}, "unparseable link"
	}

	publishedAt := now
	if item.PublishedAt != nil {
		publishedAt = item.PublishedAt.UTC()
	}

	return models.Article{
		ID:          ArticleID(item.Source.Name, canonical, title),
		Title:       title,
		Link:        canonical,
		Source:      item.Source.Name,
		Category:    item.Source.Category,
		PublishedAt: publishedAt,
		Excerpt:     item.Description,
		DedupKey:    canonical,
		IngestedAt:  now,
	}, ""
}

// CanonicalizeLink normalizes a URL so that the same story linked with
// different tracking parameters or host casing yields the same string:
// scheme and host are lowercased, default ports and fragments dropped,
// tracking query parameters removed, remaining parameters sorted, and a
// trailing slash trimmed from the path.
func CanonicalizeLink(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("parsing link %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("link %q is not absolute", raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	// Strip default ports.
	switch {
	case u.Scheme == "http" && strings.HasSuffix(u.Host, ":80"):
		u.Host = strings.TrimSuffix(u.Host, ":80")
	case u.Scheme == "https" && strings.HasSuffix(u.Host, ":443"):
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	// Drop tracking parameters; url.Values.Encode sorts the rest.
	q := u.Query()
	for key := range q {
		if trackingParams[key] || strings.HasPrefix(key, "utm_") {
			q.Del(key)
		}
	}
	u.RawQuery = q.Encode()

	if len(u.Path) > 1 {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}

	return u.String(), nil
}

// ArticleID derives the stable identifier of a story copy from its source,
// canonical link, and title. The same copy re-ingested always hashes to the
// same ID, while copies of one story from different sources get distinct
// IDs so the suppressed copy stays queryable as a duplicate record.
func ArticleID(source, canonicalLink, title string) string {
	normTitle := strings.Join(strings.Fields(strings.ToLower(title)), " ")
	h := sha256.Sum256([]byte(source + "\n" + canonicalLink + "\n" + normTitle))
	return hex.EncodeToString(h[:16])
}
