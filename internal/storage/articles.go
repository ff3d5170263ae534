package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/trungvh/gazette/internal/models"
)

// UpsertArticle inserts an article or updates it if a row with the same ID
// already exists. On conflict only the mutable fields (excerpt, published_at,
// category) are refreshed; id, ingested_at, rank_score, summary, and
// canonical_id are left untouched so that re-ingesting a story never creates
// a duplicate row and never wipes enrichment from an earlier cycle.
func (s *Store) UpsertArticle(ctx context.Context, a *models.Article) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO articles (id, title, link, source, category, published_at, excerpt, dedup_key, ingested_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			excerpt      = excluded.excerpt,
			published_at = excluded.published_at,
			category     = excluded.category`,
		a.ID, a.Title, a.Link, a.Source, a.Category,
		formatTime(a.PublishedAt), nullableString(a.Excerpt), a.DedupKey,
		formatTime(a.IngestedAt),
	)
	if err != nil {
		return fmt.Errorf("upserting article %q: %w", a.ID, err)
	}
	return nil
}

// UpsertArticles batch-upserts multiple articles inside a single transaction.
func (s *Store) UpsertArticles(ctx context.Context, articles []models.Article) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO articles (id, title, link, source, category, published_at, excerpt, dedup_key, ingested_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			excerpt      = excluded.excerpt,
			published_at = excluded.published_at,
			category     = excluded.category`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i := range articles {
		a := &articles[i]
		if _, err := stmt.ExecContext(ctx,
			a.ID, a.Title, a.Link, a.Source, a.Category,
			formatTime(a.PublishedAt), nullableString(a.Excerpt), a.DedupKey,
			formatTime(a.IngestedAt),
		); err != nil {
			return fmt.Errorf("upserting article %q: %w", a.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetArticle returns the article with the given ID.
// Returns nil, ErrNotFound if no matching row exists.
func (s *Store) GetArticle(ctx context.Context, id string) (*models.Article, error) {
	row := s.db.QueryRowContext(ctx, selectArticle+` WHERE id = ?`, id)

	article, err := scanArticle(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting article %q: %w", id, err)
	}
	return article, nil
}

// GetArticleByDedupKey returns the non-duplicate article with the given
// canonical-link dedup key, or ErrNotFound.
func (s *Store) GetArticleByDedupKey(ctx context.Context, key string) (*models.Article, error) {
	row := s.db.QueryRowContext(ctx,
		selectArticle+` WHERE dedup_key = ? AND canonical_id IS NULL`, key)

	article, err := scanArticle(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting article by dedup key %q: %w", key, err)
	}
	return article, nil
}

// MarkDuplicate records that the article with the given ID is a duplicate of
// the article with canonicalID. The duplicate stays queryable by its own ID
// but is excluded from ranking candidates and digests.
func (s *Store) MarkDuplicate(ctx context.Context, id, canonicalID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE articles SET canonical_id = ? WHERE id = ?`, canonicalID, id)
	if err != nil {
		return fmt.Errorf("marking article %q duplicate of %q: %w", id, canonicalID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("marking article %q duplicate: rows affected: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ArticlesSince returns all non-duplicate articles ingested at or after the
// given time, most recently published first.
func (s *Store) ArticlesSince(ctx context.Context, since time.Time) ([]models.Article, error) {
	rows, err := s.db.QueryContext(ctx,
		selectArticle+` WHERE ingested_at >= ? AND canonical_id IS NULL
		 ORDER BY published_at DESC, id`,
		formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("querying articles since %v: %w", since, err)
	}
	defer rows.Close()

	return collectArticles(rows)
}

// SetRankScores persists oracle scores and per-article rationale in a single
// transaction. Entries whose ID no longer exists are ignored.
func (s *Store) SetRankScores(ctx context.Context, scores []models.Article) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	stmt, err := tx.PrepareContext(ctx,
		`UPDATE articles SET rank_score = ?, summary = ? WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i := range scores {
		a := &scores[i]
		if a.RankScore == nil {
			continue
		}
		if _, err := stmt.ExecContext(ctx, *a.RankScore, nullableString(a.Summary), a.ID); err != nil {
			return fmt.Errorf("setting rank score for %q: %w", a.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

const selectArticle = `
	SELECT id, title, link, source, category, published_at, excerpt,
	       dedup_key, rank_score, summary, canonical_id, ingested_at
	FROM articles`

// scanner is a minimal interface satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanArticle scans a single article row into a models.Article.
func scanArticle(row scanner) (*models.Article, error) {
	var (
		a           models.Article
		publishedAt string
		excerpt     sql.NullString
		rankScore   sql.NullFloat64
		summary     sql.NullString
		canonicalID sql.NullString
		ingestedAt  string
	)

	if err := row.Scan(
		&a.ID, &a.Title, &a.Link, &a.Source, &a.Category, &publishedAt,
		&excerpt, &a.DedupKey, &rankScore, &summary, &canonicalID, &ingestedAt,
	); err != nil {
		return nil, err
	}

	a.PublishedAt = parseTime(publishedAt)
	a.Excerpt = excerpt.String
	a.Summary = summary.String
	a.CanonicalID = canonicalID.String
	a.IngestedAt = parseTime(ingestedAt)
	if rankScore.Valid {
		v := rankScore.Float64
		a.RankScore = &v
	}

	return &a, nil
}

// collectArticles drains a result set into a slice.
func collectArticles(rows *sql.Rows) ([]models.Article, error) {
	var articles []models.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning article: %w", err)
		}
		articles = append(articles, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating articles: %w", err)
	}
	return articles, nil
}

// nullableString converts an empty string to nil for nullable TEXT columns.
func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
