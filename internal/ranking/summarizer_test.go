package ranking

import (
	"context"
	"errors"
	"testing"

	"github.com/trungvh/gazette/internal/ai"
	"github.com/trungvh/gazette/internal/models"
)

func TestSelect_TruncatesToDigestSize(t *testing.T) {
	s := NewSummarizer(nil, 2)

	ordered := []models.Article{
		{ID: "a1"}, {ID: "a2"}, {ID: "a3"},
	}

	top := s.Select(ordered)

	if len(top) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(top))
	}
	if top[0].ID != "a1" || top[1].ID != "a2" {
		t.Errorf("selection must keep order, got %q, %q", top[0].ID, top[1].ID)
	}
}

func TestSelect_FewerThanDigestSize(t *testing.T) {
	s := NewSummarizer(nil, 10)

	top := s.Select([]models.Article{{ID: "a1"}})

	if len(top) != 1 {
		t.Fatalf("expected all articles kept, got %d", len(top))
	}
}

func TestSummarize_Success(t *testing.T) {
	oracle := &stubOracle{
		summarizeFn: func(articles []ai.ArticleEntry) (string, error) {
			if len(articles) != 1 {
				t.Fatalf("expected 1 article in prompt, got %d", len(articles))
			}
			return "The week's biggest AI story is a model launch.", nil
		},
	}
	s := NewSummarizer(oracle, 10)

	summary, err := s.Summarize(context.Background(), []models.Article{{ID: "a1", Title: "Launch"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary == "" {
		t.Error("expected non-empty summary")
	}
}

func TestSummarize_OracleFailure(t *testing.T) {
	oracle := &stubOracle{
		summarizeFn: func([]ai.ArticleEntry) (string, error) {
			return "", errors.New("oracle down")
		},
	}
	s := NewSummarizer(oracle, 10)

	summary, err := s.Summarize(context.Background(), []models.Article{{ID: "a1"}})
	if !errors.Is(err, ErrSummarizationUnavailable) {
		t.Fatalf("expected ErrSummarizationUnavailable, got %v", err)
	}
	if summary != "" {
		t.Errorf("failed summarize must return empty summary, got %q", summary)
	}
}

func TestSummarize_NilOracle(t *testing.T) {
	s := NewSummarizer(nil, 10)

	_, err := s.Summarize(context.Background(), []models.Article{{ID: "a1"}})
	if !errors.Is(err, ErrSummarizationUnavailable) {
		t.Fatalf("expected ErrSummarizationUnavailable, got %v", err)
	}
}

func TestSummarize_EmptySelection(t *testing.T) {
	s := NewSummarizer(nil, 10)

	summary, err := s.Summarize(context.Background(), nil)
	if err != nil {
		t.Fatalf("empty selection must not error, got %v", err)
	}
	if summary != "" {
		t.Errorf("expected empty summary, got %q", summary)
	}
}
