package models

import "time"

// SourceKind distinguishes how a source's endpoint is fetched.
type SourceKind string

const (
	// KindFeed marks an RSS or Atom feed endpoint.
	KindFeed SourceKind = "feed"
	// KindPage marks an HTML listing page that is scraped for article links.
	KindPage SourceKind = "page"
)

// Source is one configured news source. The source list is loaded once at
// startup and is immutable for the lifetime of the process.
type Source struct {
	Name     string     `json:"name"`
	Endpoint string     `json:"endpoint"`
	Kind     SourceKind `json:"kind"`
	Category string     `json:"category"`
	// Priority orders sources for dedup tie-breaking; lower wins.
	Priority int `json:"priority"`
}

// RawItem is a single entry as it came off a source, before normalization.
// RawItems are transient and discarded once normalized.
type RawItem struct {
	Source      Source
	Title       string
	Description string
	Link        string
	PublishedAt *time.Time
}

// Article is the canonical, persisted form of a news story.
//
// ID is a stable hash of the canonicalized link and normalized title, so
// re-ingesting the same story is an update, never a new row. CanonicalID is
// empty for a kept article and holds the ID of the kept copy for articles
// recorded as duplicates.
type Article struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	Source      string    `json:"source"`
	Category    string    `json:"category"`
	PublishedAt time.Time `json:"published_at"`
	Excerpt     string    `json:"excerpt,omitempty"`
	DedupKey    string    `json:"dedup_key"`
	RankScore   *float64  `json:"rank_score,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	CanonicalID string    `json:"canonical_id,omitempty"`
	IngestedAt  time.Time `json:"ingested_at"`
}

// IsDuplicate reports whether the article was collapsed into another one.
func (a *Article) IsDuplicate() bool {
	return a.CanonicalID != ""
}

// Digest is the published artifact of one pipeline cycle: an ordered list of
// article IDs plus an optional summary. Superseded digests are retained; the
// store's digest pointer decides which one is current.
type Digest struct {
	ID         int64     `json:"id"`
	Generation int64     `json:"generation"`
	CreatedAt  time.Time `json:"created_at"`
	Summary    string    `json:"summary,omitempty"`
	ArticleIDs []string  `json:"article_ids"`
}

// Headline is the bounded view of an article served to the messaging layer.
type Headline struct {
	Title    string `json:"title"`
	Link     string `json:"link"`
	Category string `json:"category"`
	Source   string `json:"source"`
}
