package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/trungvh/gazette/internal/dedup"
	"github.com/trungvh/gazette/internal/feeds"
	"github.com/trungvh/gazette/internal/models"
	"github.com/trungvh/gazette/internal/pipeline"
	"github.com/trungvh/gazette/internal/ranking"
	"github.com/trungvh/gazette/internal/storage"
)

// newTestStore creates an in-memory SQLite store with migrations applied.
// It registers a cleanup function to close the database when the test
// completes.
func newTestStore(t *testing.T) *storage.Store {
	t.Helper()

	db, err := storage.OpenDatabase(":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := storage.RunMigrations(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	return storage.NewStore(db)
}

// newTestPipeline builds a pipeline over the given sources with no oracle.
func newTestPipeline(t *testing.T, store *storage.Store, sources ...models.Source) *pipeline.Pipeline {
	t.Helper()

	return pipeline.New(
		store,
		feeds.NewFetcher(),
		dedup.New(0.85, nil),
		ranking.NewRanker(nil, 10),
		ranking.NewSummarizer(nil, 10),
		pipeline.Options{
			Sources:        sources,
			Fetch:          feeds.Options{Workers: 2, Timeout: 10 * time.Second},
			CycleBudget:    time.Minute,
			TrailingWindow: 48 * time.Hour,
		},
	)
}

// seedDigest stores articles and publishes a digest over them, returning
// the article IDs in digest order.
func seedDigest(t *testing.T, store *storage.Store, summary string, titles ...string) []string {
	t.Helper()

	ctx := context.Background()
	now := time.Now().UTC()

	ids := make([]string, 0, len(titles))
	for i, title := range titles {
		art := models.Article{
			ID:          string(rune('a'+i)) + "-digest-article",
			Title:       title,
			Link:        "https://news.example.com/" + title,
			Source:      "Test Wire",
			Category:    "news",
			PublishedAt: now.Add(-time.Duration(i) * time.Hour),
			DedupKey:    "https://news.example.com/" + title,
			IngestedAt:  now,
		}
		if err := store.UpsertArticle(ctx, &art); err != nil {
			t.Fatalf("seeding article: %v", err)
		}
		ids = append(ids, art.ID)
	}

	if _, err := store.PublishDigest(ctx, summary, ids, now); err != nil {
		t.Fatalf("publishing digest: %v", err)
	}
	return ids
}
