package ai

import "time"

// ProviderConfig holds the configuration needed to create an oracle provider.
type ProviderConfig struct {
	Provider string // "anthropic" | "openai"
	APIKey   string
	Model    string
	Timeout  time.Duration // per-call HTTP timeout; 0 means 60s
}

// ArticleEntry is a compact article representation for oracle prompts.
type ArticleEntry struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Source      string `json:"source"`
	Category    string `json:"category"`
	PublishedAt string `json:"published_at"`
	Excerpt     string `json:"excerpt"`
}

// RankedArticle is a single result from the rank operation.
type RankedArticle struct {
	ID     string  `json:"id"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}
