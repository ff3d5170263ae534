package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/trungvh/gazette/internal/models"
)

// testArticle builds a minimal article for storage tests.
func testArticle(id, title, link string, ingested time.Time) models.Article {
	return models.Article{
		ID:          id,
		Title:       title,
		Link:        link,
		Source:      "Test Source",
		Category:    "technology",
		PublishedAt: ingested,
		DedupKey:    link,
		IngestedAt:  ingested,
	}
}

func TestUpsertArticle_CreatesNew(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	a := testArticle("abc123", "Test Story", "https://test.com/story-1", now)
	a.Excerpt = "An excerpt"

	if err := store.UpsertArticle(ctx, &a); err != nil {
		t.Fatalf("UpsertArticle() error: %v", err)
	}

	got, err := store.GetArticle(ctx, "abc123")
	if err != nil {
		t.Fatalf("GetArticle() error: %v", err)
	}
	if got.Title != "Test Story" {
		t.Errorf("Title = %q, want %q", got.Title, "Test Story")
	}
	if got.Excerpt != "An excerpt" {
		t.Errorf("Excerpt = %q, want %q", got.Excerpt, "An excerpt")
	}
	if got.RankScore != nil {
		t.Errorf("RankScore = %v, want nil before ranking", *got.RankScore)
	}
	if !got.IngestedAt.Equal(now) {
		t.Errorf("IngestedAt = %v, want %v", got.IngestedAt, now)
	}
}

func TestUpsertArticle_Idempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	a := testArticle("same-id", "Same Story", "https://test.com/story", now)

	if err := store.UpsertArticle(ctx, &a); err != nil {
		t.Fatalf("first UpsertArticle() error: %v", err)
	}

	// Re-ingest the same story an hour later with a refreshed excerpt.
	later := a
	later.Excerpt = "refreshed excerpt"
	later.IngestedAt = now.Add(time.Hour)
	if err := store.UpsertArticle(ctx, &later); err != nil {
		t.Fatalf("second UpsertArticle() error: %v", err)
	}

	var count int
	if err := store.db.QueryRow(`SELECT COUNT(*) FROM articles`).Scan(&count); err != nil {
		t.Fatalf("counting articles: %v", err)
	}
	if count != 1 {
		t.Fatalf("article count = %d after re-ingestion, want 1", count)
	}

	got, err := store.GetArticle(ctx, "same-id")
	if err != nil {
		t.Fatalf("GetArticle() error: %v", err)
	}
	if got.Excerpt != "refreshed excerpt" {
		t.Errorf("Excerpt = %q, want %q", got.Excerpt, "refreshed excerpt")
	}
	// IngestedAt must survive the re-ingestion unchanged.
	if !got.IngestedAt.Equal(now) {
		t.Errorf("IngestedAt = %v, want original %v", got.IngestedAt, now)
	}
}

func TestUpsertArticle_PreservesEnrichment(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	a := testArticle("enriched", "Enriched Story", "https://test.com/enriched", now)
	if err := store.UpsertArticle(ctx, &a); err != nil {
		t.Fatalf("UpsertArticle() error: %v", err)
	}

	score := 0.9
	a.RankScore = &score
	a.Summary = "important because reasons"
	if err := store.SetRankScores(ctx, []models.Article{a}); err != nil {
		t.Fatalf("SetRankScores() error: %v", err)
	}

	// A later re-ingestion of the raw story must not wipe the score.
	if err := store.UpsertArticle(ctx, &a); err != nil {
		t.Fatalf("re-UpsertArticle() error: %v", err)
	}

	got, err := store.GetArticle(ctx, "enriched")
	if err != nil {
		t.Fatalf("GetArticle() error: %v", err)
	}
	if got.RankScore == nil || *got.RankScore != 0.9 {
		t.Errorf("RankScore = %v, want 0.9 preserved across upsert", got.RankScore)
	}
	if got.Summary != "important because reasons" {
		t.Errorf("Summary = %q, want preserved", got.Summary)
	}
}

func TestGetArticle_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetArticle(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

func TestGetArticleByDedupKey(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	a := testArticle("key-1", "Keyed Story", "https://test.com/keyed", now)
	if err := store.UpsertArticle(ctx, &a); err != nil {
		t.Fatalf("UpsertArticle() error: %v", err)
	}

	got, err := store.GetArticleByDedupKey(ctx, "https://test.com/keyed")
	if err != nil {
		t.Fatalf("GetArticleByDedupKey() error: %v", err)
	}
	if got.ID != "key-1" {
		t.Errorf("ID = %q, want %q", got.ID, "key-1")
	}

	if _, err := store.GetArticleByDedupKey(ctx, "https://test.com/other"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown key, got: %v", err)
	}
}

func TestMarkDuplicate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	kept := testArticle("kept", "GPT-5 Released", "https://a.com/gpt5", now)
	dup := testArticle("dup", "GPT-5 Released!", "https://b.com/gpt5-released", now)
	for _, a := range []models.Article{kept, dup} {
		if err := store.UpsertArticle(ctx, &a); err != nil {
			t.Fatalf("UpsertArticle(%q) error: %v", a.ID, err)
		}
	}

	if err := store.MarkDuplicate(ctx, "dup", "kept"); err != nil {
		t.Fatalf("MarkDuplicate() error: %v", err)
	}

	// The duplicate stays queryable by its own ID.
	got, err := store.GetArticle(ctx, "dup")
	if err != nil {
		t.Fatalf("GetArticle(dup) error: %v", err)
	}
	if got.CanonicalID != "kept" {
		t.Errorf("CanonicalID = %q, want %q", got.CanonicalID, "kept")
	}
	if !got.IsDuplicate() {
		t.Error("IsDuplicate() = false, want true")
	}

	// But it is excluded from the candidate set.
	candidates, err := store.ArticlesSince(ctx, now.Add(-time.Minute))
	if err != nil {
		t.Fatalf("ArticlesSince() error: %v", err)
	}
	if len(candidates) != 1 || candidates[0].ID != "kept" {
		t.Errorf("ArticlesSince() = %v, want only the kept article", candidates)
	}
}

func TestMarkDuplicate_NotFound(t *testing.T) {
	store := newTestStore(t)

	err := store.MarkDuplicate(context.Background(), "missing", "also-missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

func TestArticlesSince_FiltersByTime(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	old := testArticle("old", "Old Story", "https://test.com/old", now.Add(-72*time.Hour))
	recent := testArticle("recent", "Recent Story", "https://test.com/recent", now)
	for _, a := range []models.Article{old, recent} {
		if err := store.UpsertArticle(ctx, &a); err != nil {
			t.Fatalf("UpsertArticle(%q) error: %v", a.ID, err)
		}
	}

	got, err := store.ArticlesSince(ctx, now.Add(-48*time.Hour))
	if err != nil {
		t.Fatalf("ArticlesSince() error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "recent" {
		t.Fatalf("ArticlesSince() returned %d articles, want only the recent one", len(got))
	}
}

func TestSetRankScores_SkipsNilScores(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	a := testArticle("unscored", "Unscored", "https://test.com/unscored", now)
	if err := store.UpsertArticle(ctx, &a); err != nil {
		t.Fatalf("UpsertArticle() error: %v", err)
	}

	// No RankScore set: SetRankScores must leave the row alone.
	if err := store.SetRankScores(ctx, []models.Article{a}); err != nil {
		t.Fatalf("SetRankScores() error: %v", err)
	}

	got, err := store.GetArticle(ctx, "unscored")
	if err != nil {
		t.Fatalf("GetArticle() error: %v", err)
	}
	if got.RankScore != nil {
		t.Errorf("RankScore = %v, want nil", *got.RankScore)
	}
}
