package ranking

import (
	"strings"
	"time"

	"github.com/trungvh/gazette/internal/models"
)

var reputableSources = []string{
	"techcrunch",
	"ars technica",
	"the verge",
	"bbc",
	"reuters",
	"wired",
}

// RelevanceScore estimates how promising an article is, in [0, 1],
// without consulting the oracle. Fresh articles, articles with substantial
// text, and articles from well-known outlets score higher. The estimate
// decides which unscored articles reach the oracle first.
func RelevanceScore(art models.Article, now time.Time) float64 {
	score := 0.0

	if !art.PublishedAt.IsZero() {
		age := now.Sub(art.PublishedAt)
		switch {
		case age <= 24*time.Hour:
			score += 0.3
		case age <= 3*24*time.Hour:
			score += 0.2
		case age <= 7*24*time.Hour:
			score += 0.1
		}
	}

	contentLength := len(art.Title) + len(art.Excerpt)
	switch {
	case contentLength > 200:
		score += 0.2
	case contentLength > 100:
		score += 0.1
	}

	source := strings.ToLower(art.Source)
	for _, reputable := range reputableSources {
		if strings.Contains(source, reputable) {
			score += 0.2
			break
		}
	}

	if score > 1 {
		score = 1
	}
	return score
}
