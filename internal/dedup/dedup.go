// Package dedup collapses articles that cover the same story. Detection is
// two-tiered: an exact match on the canonical link, then a fuzzy match on
// normalized titles. The surviving copy of each story is chosen by source
// priority, so a duplicate from a better source displaces an earlier keeper.
package dedup

import (
	"github.com/trungvh/gazette/internal/models"
)

// Duplicate pairs a suppressed article with the ID of the article that
// supersedes it.
type Duplicate struct {
	Article     models.Article
	CanonicalID string
}

// Result partitions a batch into articles to keep and articles to mark
// as duplicates. Keepers preserve the order in which they were first seen.
type Result struct {
	Keep       []models.Article
	Duplicates []Duplicate
}

// Deduplicator holds the similarity threshold and the per-source priority
// table used to break ties between duplicates.
type Deduplicator struct {
	threshold  float64
	priorities map[string]int
}

// New returns a Deduplicator. threshold is the minimum title similarity
// treated as a duplicate; priorities maps source names to their rank,
// where a lower number wins.
func New(threshold float64, priorities map[string]int) *Deduplicator {
	return &Deduplicator{
		threshold:  threshold,
		priorities: priorities,
	}
}

type candidate struct {
	id        string
	dedupKey  string
	normTitle string
}

// Partition compares a batch of freshly normalized articles against each
// other and against existing stored articles. Re-ingestions of a known
// article (same ID) are kept so the upsert path can refresh them. An
// article matching a different existing article is suppressed in its
// favor. Within the batch, the copy from the higher-priority source wins
// and the others point at it; copies sharing an ID collapse to the
// better-sourced one regardless of batch order.
func (d *Deduplicator) Partition(batch []models.Article, existing []models.Article) Result {
	var res Result

	existingByKey := make(map[string]string, len(existing))
	existingCands := make([]candidate, 0, len(existing))
	for _, art := range existing {
		existingByKey[art.DedupKey] = art.ID
		existingCands = append(existingCands, candidate{
			id:        art.ID,
			dedupKey:  art.DedupKey,
			normTitle: NormalizeTitle(art.Title),
		})
	}

	// seen maps each article ID to its index in res.Keep, or -1 once the
	// copy that carried it was suppressed as a duplicate.
	seen := make(map[string]int, len(batch))

	for _, art := range batch {
		if idx, ok := seen[art.ID]; ok {
			// Same ID twice in one batch: both copies map to one stored
			// row, so keep whichever comes from the better source.
			if idx >= 0 && d.priority(art.Source) < d.priority(res.Keep[idx].Source) {
				res.Keep[idx] = art
			}
			continue
		}

		if canonical, ok := d.matchExisting(art, existingByKey, existingCands); ok {
			seen[art.ID] = -1
			res.Duplicates = append(res.Duplicates, Duplicate{Article: art, CanonicalID: canonical})
			continue
		}

		if idx, ok := d.matchKeeper(art, res.Keep); ok {
			kept := res.Keep[idx]
			if d.priority(art.Source) < d.priority(kept.Source) {
				// The new copy comes from a better source; demote the keeper.
				res.Keep[idx] = art
				seen[kept.ID] = -1
				seen[art.ID] = idx
				res.Duplicates = append(res.Duplicates, Duplicate{Article: kept, CanonicalID: art.ID})
			} else {
				seen[art.ID] = -1
				res.Duplicates = append(res.Duplicates, Duplicate{Article: art, CanonicalID: kept.ID})
			}
			continue
		}

		seen[art.ID] = len(res.Keep)
		res.Keep = append(res.Keep, art)
	}

	return res
}

func (d *Deduplicator) matchExisting(art models.Article, byKey map[string]string, cands []candidate) (string, bool) {
	if id, ok := byKey[art.DedupKey]; ok {
		if id == art.ID {
			return "", false
		}
		return id, true
	}

	norm := NormalizeTitle(art.Title)
	for _, cand := range cands {
		if cand.id == art.ID {
			continue
		}
		if Similarity(norm, cand.normTitle) >= d.threshold {
			return cand.id, true
		}
	}
	return "", false
}

func (d *Deduplicator) matchKeeper(art models.Article, keep []models.Article) (int, bool) {
	norm := NormalizeTitle(art.Title)
	for i, kept := range keep {
		if kept.DedupKey == art.DedupKey {
			return i, true
		}
		if Similarity(norm, NormalizeTitle(kept.Title)) >= d.threshold {
			return i, true
		}
	}
	return -1, false
}

func (d *Deduplicator) priority(source string) int {
	if p, ok := d.priorities[source]; ok {
		return p
	}
	return int(^uint(0) >> 1)
}
