package feeds

import (
	"html"
	"regexp"
	"strings"

	"github.com/mmcdole/gofeed"
	"github.com/trungvh/gazette/internal/models"
)

var htmlTagPattern = regexp.MustCompile("<[^>]*>")

// parseFeedItems converts gofeed items into RawItems. Items with empty Title
// or Link are skipped here; everything else is left to the normalizer.
func parseFeedItems(src models.Source, feed *gofeed.Feed) []models.RawItem {
	var items []models.RawItem
	for _, item := range feed.Items {
		if item.Title == "" || item.Link == "" {
			continue
		}

		published := item.PublishedParsed
		if published == nil {
			published = item.UpdatedParsed
		}

		description := item.Description
		if description == "" {
			description = item.Content
		}

		items = append(items, models.RawItem{
			Source:      src,
			Title:       strings.TrimSpace(item.Title),
			Description: truncateWords(stripHTML(description), maxExcerptWords),
			Link:        strings.TrimSpace(item.Link),
			PublishedAt: published,
		})
	}

	return items
}

// stripHTML removes HTML tags from s and unescapes HTML entities.
func stripHTML(s string) string {
	clean := htmlTagPattern.ReplaceAllString(s, "")
	return strings.TrimSpace(html.UnescapeString(clean))
}

// truncateWords returns the first maxWords whitespace-delimited words from s.
// If s contains fewer than maxWords words, it is returned unchanged.
func truncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ")
}
