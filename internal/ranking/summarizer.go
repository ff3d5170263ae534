package ranking

import (
	"context"
	"errors"
	"fmt"

	"github.com/trungvh/gazette/internal/ai"
	"github.com/trungvh/gazette/internal/models"
)

// ErrSummarizationUnavailable indicates the oracle could not produce a
// digest summary. The digest is still published, with an empty summary.
var ErrSummarizationUnavailable = errors.New("summarization unavailable")

// Summarizer selects the digest's articles and writes its editorial
// summary.
type Summarizer struct {
	oracle     ai.Oracle
	digestSize int
}

// NewSummarizer returns a Summarizer that builds digests of up to
// digestSize articles. oracle may be nil.
func NewSummarizer(oracle ai.Oracle, digestSize int) *Summarizer {
	return &Summarizer{
		oracle:     oracle,
		digestSize: digestSize,
	}
}

// Select returns the top digest candidates from an already-ordered list.
func (s *Summarizer) Select(ordered []models.Article) []models.Article {
	if len(ordered) <= s.digestSize {
		return ordered
	}
	return ordered[:s.digestSize]
}

// Summarize asks the oracle for an editorial summary of the chosen
// articles. On any oracle failure it returns an empty summary and an
// error wrapping ErrSummarizationUnavailable, so callers can publish a
// summary-less digest rather than drop the cycle's work.
func (s *Summarizer) Summarize(ctx context.Context, top []models.Article) (string, error) {
	if len(top) == 0 {
		return "", nil
	}
	if s.oracle == nil {
		return "", ErrSummarizationUnavailable
	}

	summary, err := s.oracle.SummarizeDigest(ctx, toEntries(top))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSummarizationUnavailable, err)
	}
	return summary, nil
}
