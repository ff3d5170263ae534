package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/trungvh/gazette/internal/models"
	"github.com/trungvh/gazette/internal/storage"
)

// headlinesResponse is the body of GET /api/digest/headlines.
type headlinesResponse struct {
	Generation int64             `json:"generation"`
	CreatedAt  time.Time         `json:"created_at"`
	Headlines  []models.Headline `json:"headlines"`
}

// summaryResponse is the body of GET /api/digest/summary.
type summaryResponse struct {
	Generation   int64     `json:"generation"`
	CreatedAt    time.Time `json:"created_at"`
	Summary      string    `json:"summary"`
	ArticleCount int       `json:"article_count"`
}

// GetHeadlines handles GET /api/digest/headlines. It returns the
// headlines of the latest published digest, in digest order.
func GetHeadlines(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		digest, err := store.LatestDigest(ctx)
		if err != nil {
			if errors.Is(err, storage.ErrNoDigest) {
				writeError(w, http.StatusNotFound, "No digest published yet")
				return
			}
			slog.Error("failed to load digest", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to load digest")
			return
		}

		articles, err := store.DigestArticles(ctx, digest.ID)
		if err != nil {
			slog.Error("failed to load digest articles", "digest", digest.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to load digest")
			return
		}

		headlines := make([]models.Headline, 0, len(articles))
		for _, art := range articles {
			headlines = append(headlines, models.Headline{
				Title:    art.Title,
				Link:     art.Link,
				Category: art.Category,
				Source:   art.Source,
			})
		}

		writeJSON(w, http.StatusOK, headlinesResponse{
			Generation: digest.Generation,
			CreatedAt:  digest.CreatedAt,
			Headlines:  headlines,
		})
	}
}

// GetDigestSummary handles GET /api/digest/summary. It returns the
// editorial summary of the latest published digest. The summary may be
// empty when the oracle was unavailable during the publishing cycle.
func GetDigestSummary(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		digest, err := store.LatestDigest(ctx)
		if err != nil {
			if errors.Is(err, storage.ErrNoDigest) {
				writeError(w, http.StatusNotFound, "No digest published yet")
				return
			}
			slog.Error("failed to load digest", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to load digest")
			return
		}

		writeJSON(w, http.StatusOK, summaryResponse{
			Generation:   digest.Generation,
			CreatedAt:    digest.CreatedAt,
			Summary:      digest.Summary,
			ArticleCount: len(digest.ArticleIDs),
		})
	}
}
