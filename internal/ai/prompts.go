package ai

import (
	"fmt"
	"strings"
)

const rankSystemPrompt = `You are a news editor for a daily AI and technology briefing. Given a list of recent articles, score each one from 0 to 10 for newsworthiness to an audience of engineers and researchers following AI closely. Weigh novelty, technical substance, and likely impact; penalize rumors, reposts, and marketing fluff. Return ONLY valid JSON: an array of objects with "id" (the article ID as given), "score" (a number from 0 to 10), and "reason" (one sentence explaining the score). Include every article exactly once.`

const digestSystemPrompt = `You are a news editor writing the opening summary of a daily AI briefing. Given today's top-ranked articles, write 3-5 sentences capturing the most important developments and how they connect. Lead with the single biggest story. Be specific about companies, models, and numbers mentioned in the articles. Do NOT include any prefix like "Summary:" or a heading; start directly with the first sentence.`

// RankPrompt builds the system and user prompts for the article ranking
// operation.
func RankPrompt(articles []ArticleEntry) (systemPrompt string, userPrompt string) {
	systemPrompt = rankSystemPrompt

	var b strings.Builder
	b.WriteString("Recent Articles:\n")
	for i, art := range articles {
		fmt.Fprintf(&b, "%d. ID: %s | Title: %s | Source: %s | Category: %s | Published: %s | Excerpt: %s\n",
			i+1, art.ID, art.Title, art.Source, art.Category, art.PublishedAt, art.Excerpt)
	}

	userPrompt = b.String()
	return systemPrompt, userPrompt
}

// DigestPrompt builds the system and user prompts for the digest
// summarization operation.
func DigestPrompt(articles []ArticleEntry) (systemPrompt string, userPrompt string) {
	systemPrompt = digestSystemPrompt

	var b strings.Builder
	b.WriteString("Top Articles:\n")
	for i, art := range articles {
		fmt.Fprintf(&b, "%d. Title: %s | Source: %s | Excerpt: %s\n",
			i+1, art.Title, art.Source, art.Excerpt)
	}

	userPrompt = b.String()
	return systemPrompt, userPrompt
}

// extractJSON strips markdown code fences from a string that may contain
// JSON wrapped in ```json ... ``` or ``` ... ``` blocks. This handles the
// common case where LLMs return JSON inside code fences.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)

	// Try ```json ... ``` first.
	if after, found := strings.CutPrefix(s, "```json"); found {
		if idx := strings.LastIndex(after, "```"); idx >= 0 {
			after = after[:idx]
		}
		return strings.TrimSpace(after)
	}

	// Try plain ``` ... ```.
	if after, found := strings.CutPrefix(s, "```"); found {
		if idx := strings.LastIndex(after, "```"); idx >= 0 {
			after = after[:idx]
		}
		return strings.TrimSpace(after)
	}

	return s
}
