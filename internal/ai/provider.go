package ai

import (
	"context"
	"fmt"
)

// Oracle is the interface that all LLM providers must implement.
type Oracle interface {
	// RankArticles scores a batch of articles for newsworthiness. Each
	// result carries a score in [0, 10] and a one-sentence reason. The
	// oracle may omit articles it considers irrelevant.
	RankArticles(ctx context.Context, articles []ArticleEntry) ([]RankedArticle, error)

	// SummarizeDigest writes a short editorial summary covering the
	// given top-ranked articles.
	SummarizeDigest(ctx context.Context, articles []ArticleEntry) (string, error)
}

// NewProvider creates the appropriate provider based on config.
func NewProvider(cfg ProviderConfig) (Oracle, error) {
	switch cfg.Provider {
	case "anthropic":
		return NewAnthropicProvider(cfg.APIKey, cfg.Model, cfg.Timeout), nil
	case "openai":
		return NewOpenAIProvider(cfg.APIKey, cfg.Model, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unsupported oracle provider: %s", cfg.Provider)
	}
}
