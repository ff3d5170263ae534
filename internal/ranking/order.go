package ranking

import (
	"sort"

	"github.com/trungvh/gazette/internal/models"
)

// Order sorts articles for digest selection. Scored articles come first,
// highest score first. Ties, and all unscored articles, fall back to
// recency, then source priority (lower wins), then ID, so the order is
// total and reproducible even when the oracle never ran. The input slice
// is not modified.
func Order(articles []models.Article, priorities map[string]int) []models.Article {
	out := make([]models.Article, len(articles))
	copy(out, articles)

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]

		switch {
		case a.RankScore != nil && b.RankScore == nil:
			return true
		case a.RankScore == nil && b.RankScore != nil:
			return false
		case a.RankScore != nil && b.RankScore != nil && *a.RankScore != *b.RankScore:
			return *a.RankScore > *b.RankScore
		}

		if !a.PublishedAt.Equal(b.PublishedAt) {
			return a.PublishedAt.After(b.PublishedAt)
		}

		pa, pb := sourcePriority(a.Source, priorities), sourcePriority(b.Source, priorities)
		if pa != pb {
			return pa < pb
		}

		return a.ID < b.ID
	})

	return out
}

func sourcePriority(source string, priorities map[string]int) int {
	if p, ok := priorities[source]; ok {
		return p
	}
	return int(^uint(0) >> 1)
}
