// Package ranking scores articles for newsworthiness and assembles the
// ordered candidate list a digest is built from. Scoring is delegated to
// an LLM oracle in bounded batches; everything else here is deterministic
// so a cycle without a working oracle still produces a usable digest.
package ranking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/trungvh/gazette/internal/ai"
	"github.com/trungvh/gazette/internal/models"
)

// ErrRankingUnavailable indicates that no oracle batch succeeded, so no
// new scores were produced this cycle.
var ErrRankingUnavailable = errors.New("ranking unavailable")

const (
	minScore = 0
	maxScore = 10
)

// Ranker scores unscored articles through an oracle in batches.
type Ranker struct {
	oracle    ai.Oracle
	batchSize int
}

// NewRanker returns a Ranker. oracle may be nil, in which case Rank
// reports ErrRankingUnavailable without attempting any calls. A batch
// size below 1 is raised to 1.
func NewRanker(oracle ai.Oracle, batchSize int) *Ranker {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Ranker{
		oracle:    oracle,
		batchSize: batchSize,
	}
}

// Rank fills in scores and reasons for articles that have none yet.
// Already-scored articles pass through untouched, so re-running a cycle
// does not repeat oracle work. Unscored articles are submitted most
// promising first, so if the cycle budget expires mid-ranking the best
// candidates have already been scored. A failed batch is logged and
// skipped; Rank returns ErrRankingUnavailable only when every batch
// failed.
func (r *Ranker) Rank(ctx context.Context, articles []models.Article) ([]models.Article, error) {
	if r.oracle == nil {
		return articles, ErrRankingUnavailable
	}

	byID := make(map[string]int, len(articles))
	var unscored []models.Article
	for i, art := range articles {
		byID[art.ID] = i
		if art.RankScore == nil {
			unscored = append(unscored, art)
		}
	}
	if len(unscored) == 0 {
		return articles, nil
	}

	now := time.Now().UTC()
	sort.SliceStable(unscored, func(i, j int) bool {
		return RelevanceScore(unscored[i], now) > RelevanceScore(unscored[j], now)
	})

	out := make([]models.Article, len(articles))
	copy(out, articles)

	batches := 0
	failed := 0
	for start := 0; start < len(unscored); start += r.batchSize {
		end := min(start+r.batchSize, len(unscored))
		batches++

		ranked, err := r.oracle.RankArticles(ctx, toEntries(unscored[start:end]))
		if err != nil {
			failed++
			slog.Warn("oracle batch failed", "batch", batches, "error", err)
			continue
		}

		for _, res := range ranked {
			idx, ok := byID[res.ID]
			if !ok {
				slog.Warn("oracle returned unknown article ID", "id", res.ID)
				continue
			}
			score := clampScore(res.Score)
			out[idx].RankScore = &score
			out[idx].Summary = res.Reason
		}
	}

	if failed == batches {
		return articles, fmt.Errorf("all %d batches failed: %w", batches, ErrRankingUnavailable)
	}
	return out, nil
}

func clampScore(score float64) float64 {
	if score < minScore {
		return minScore
	}
	if score > maxScore {
		return maxScore
	}
	return score
}

func toEntries(articles []models.Article) []ai.ArticleEntry {
	entries := make([]ai.ArticleEntry, 0, len(articles))
	for _, art := range articles {
		published := ""
		if !art.PublishedAt.IsZero() {
			published = art.PublishedAt.Format("2006-01-02")
		}
		entries = append(entries, ai.ArticleEntry{
			ID:          art.ID,
			Title:       art.Title,
			Source:      art.Source,
			Category:    art.Category,
			PublishedAt: published,
			Excerpt:     art.Excerpt,
		})
	}
	return entries
}
