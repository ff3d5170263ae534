package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/trungvh/gazette/internal/models"
)

// PublishDigest inserts a new digest covering the given ordered article IDs
// and swaps the current-digest pointer to it, all in one transaction. The
// generation number is one past the previous digest's. Constituent articles
// must already be upserted; a foreign key violation here aborts the publish
// and leaves the prior digest current.
func (s *Store) PublishDigest(ctx context.Context, summary string, articleIDs []string, createdAt time.Time) (*models.Digest, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	var generation int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(generation), 0) + 1 FROM digests`).Scan(&generation); err != nil {
		return nil, fmt.Errorf("computing digest generation: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO digests (generation, created_at, summary) VALUES (?, ?, ?)`,
		generation, formatTime(createdAt), nullableString(summary))
	if err != nil {
		return nil, fmt.Errorf("inserting digest: %w", err)
	}
	digestID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting digest id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO digest_articles (digest_id, article_id, position) VALUES (?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i, id := range articleIDs {
		if _, err := stmt.ExecContext(ctx, digestID, id, i); err != nil {
			return nil, fmt.Errorf("linking article %q to digest: %w", id, err)
		}
	}

	// The pointer swap is the commit point of the whole cycle.
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO digest_pointer (id, digest_id) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET digest_id = excluded.digest_id`,
		digestID); err != nil {
		return nil, fmt.Errorf("swapping digest pointer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing digest: %w", err)
	}

	return &models.Digest{
		ID:         digestID,
		Generation: generation,
		CreatedAt:  createdAt.UTC().Truncate(time.Second),
		Summary:    summary,
		ArticleIDs: articleIDs,
	}, nil
}

// LatestDigest returns the currently published digest, or ErrNoDigest if no
// cycle has completed yet.
func (s *Store) LatestDigest(ctx context.Context) (*models.Digest, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT d.id, d.generation, d.created_at, d.summary
		 FROM digest_pointer p
		 JOIN digests d ON d.id = p.digest_id
		 WHERE p.id = 1`)

	var (
		d         models.Digest
		createdAt string
		summary   sql.NullString
	)
	if err := row.Scan(&d.ID, &d.Generation, &createdAt, &summary); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoDigest
		}
		return nil, fmt.Errorf("getting latest digest: %w", err)
	}
	d.CreatedAt = parseTime(createdAt)
	d.Summary = summary.String

	ids, err := s.digestArticleIDs(ctx, d.ID)
	if err != nil {
		return nil, err
	}
	d.ArticleIDs = ids

	return &d, nil
}

// DigestArticles returns the digest's articles in digest order.
func (s *Store) DigestArticles(ctx context.Context, digestID int64) ([]models.Article, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.id, a.title, a.link, a.source, a.category, a.published_at, a.excerpt,
		        a.dedup_key, a.rank_score, a.summary, a.canonical_id, a.ingested_at
		 FROM digest_articles da
		 JOIN articles a ON a.id = da.article_id
		 WHERE da.digest_id = ?
		 ORDER BY da.position`,
		digestID)
	if err != nil {
		return nil, fmt.Errorf("querying digest %d articles: %w", digestID, err)
	}
	defer rows.Close()

	return collectArticles(rows)
}

// digestArticleIDs returns the ordered article IDs of a digest.
func (s *Store) digestArticleIDs(ctx context.Context, digestID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT article_id FROM digest_articles WHERE digest_id = ? ORDER BY position`,
		digestID)
	if err != nil {
		return nil, fmt.Errorf("querying digest %d article ids: %w", digestID, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning digest article id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating digest article ids: %w", err)
	}
	return ids, nil
}
