// Package pipeline drives the ingestion cycle: fetch sources, normalize
// and deduplicate the haul, rank it through the oracle, and publish a
// fresh digest. One cycle runs at a time; a tick that lands while the
// previous cycle is still working is skipped.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/trungvh/gazette/internal/dedup"
	"github.com/trungvh/gazette/internal/feeds"
	"github.com/trungvh/gazette/internal/models"
	"github.com/trungvh/gazette/internal/ranking"
	"github.com/trungvh/gazette/internal/storage"
)

// ErrCycleRunning is returned when a cycle is requested while another
// one holds the pipeline.
var ErrCycleRunning = errors.New("a cycle is already running")

// Stage names one step of the ingestion cycle, reported by Status.
type Stage string

const (
	StageIdle          Stage = "idle"
	StageFetching      Stage = "fetching"
	StageNormalizing   Stage = "normalizing"
	StageDeduplicating Stage = "deduplicating"
	StageRanking       Stage = "ranking"
	StageSummarizing   Stage = "summarizing"
	StagePublishing    Stage = "publishing"
)

// Status is a snapshot of the pipeline's progress.
type Status struct {
	Stage        Stage     `json:"stage"`
	Running      bool      `json:"running"`
	CyclesDone   int64     `json:"cycles_done"`
	LastStarted  time.Time `json:"last_started,omitzero"`
	LastFinished time.Time `json:"last_finished,omitzero"`
	LastError    string    `json:"last_error,omitempty"`
}

// Options configures cycle behavior.
type Options struct {
	Sources        []models.Source
	Fetch          feeds.Options
	CycleBudget    time.Duration
	TrailingWindow time.Duration
}

// Pipeline owns one end-to-end ingestion cycle.
type Pipeline struct {
	store      *storage.Store
	fetcher    *feeds.Fetcher
	dedup      *dedup.Deduplicator
	ranker     *ranking.Ranker
	summarizer *ranking.Summarizer
	opts       Options
	priorities map[string]int

	// runMu is held for the whole cycle; TryLock implements tick skipping.
	runMu sync.Mutex

	statusMu sync.Mutex
	status   Status
}

// New assembles a Pipeline from its stages.
func New(store *storage.Store, fetcher *feeds.Fetcher, deduper *dedup.Deduplicator, ranker *ranking.Ranker, summarizer *ranking.Summarizer, opts Options) *Pipeline {
	priorities := make(map[string]int, len(opts.Sources))
	for _, src := range opts.Sources {
		priorities[src.Name] = src.Priority
	}
	return &Pipeline{
		store:      store,
		fetcher:    fetcher,
		dedup:      deduper,
		ranker:     ranker,
		summarizer: summarizer,
		opts:       opts,
		priorities: priorities,
		status:     Status{Stage: StageIdle},
	}
}

// Status returns a copy of the current pipeline status.
func (p *Pipeline) Status() Status {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	return p.status
}

// Run executes one full cycle. It returns ErrCycleRunning without doing
// any work if another cycle is in progress. Oracle failures degrade the
// cycle but do not abort it; storage failures do.
func (p *Pipeline) Run(ctx context.Context) error {
	if !p.runMu.TryLock() {
		return ErrCycleRunning
	}
	defer p.runMu.Unlock()

	return p.runLocked(ctx)
}

// StartCycle launches a cycle in the background. It returns
// ErrCycleRunning immediately if another cycle is in progress, so HTTP
// callers get a synchronous answer without waiting for the cycle.
func (p *Pipeline) StartCycle(ctx context.Context) error {
	if !p.runMu.TryLock() {
		return ErrCycleRunning
	}
	go func() {
		defer p.runMu.Unlock()
		if err := p.runLocked(ctx); err != nil {
			slog.Error("cycle failed", "error", err)
		}
	}()
	return nil
}

// runLocked executes one cycle. The caller must hold runMu.
func (p *Pipeline) runLocked(ctx context.Context) error {
	if p.opts.CycleBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.CycleBudget)
		defer cancel()
	}

	started := time.Now().UTC()
	p.setRunning(started)

	err := p.runCycle(ctx, started)
	p.setFinished(err)
	if err != nil {
		return fmt.Errorf("cycle: %w", err)
	}
	return nil
}

func (p *Pipeline) runCycle(ctx context.Context, now time.Time) error {
	p.setStage(StageFetching)
	res := p.fetcher.FetchAll(ctx, p.opts.Sources, p.opts.Fetch)
	if len(res.Failed) > 0 {
		slog.Warn("some sources failed", "failed", len(res.Failed), "total", len(p.opts.Sources))
	}
	slog.Info("fetch complete", "items", len(res.Items))

	p.setStage(StageNormalizing)
	articles := feeds.Normalize(res.Items, now)

	p.setStage(StageDeduplicating)
	since := now.Add(-p.opts.TrailingWindow)
	existing, err := p.store.ArticlesSince(ctx, since)
	if err != nil {
		return fmt.Errorf("loading window articles: %w", err)
	}

	part := p.dedup.Partition(articles, existing)
	if err := p.store.UpsertArticles(ctx, part.Keep); err != nil {
		return fmt.Errorf("storing articles: %w", err)
	}
	for _, dup := range part.Duplicates {
		if err := p.store.UpsertArticle(ctx, &dup.Article); err != nil {
			return fmt.Errorf("storing duplicate: %w", err)
		}
		if err := p.store.MarkDuplicate(ctx, dup.Article.ID, dup.CanonicalID); err != nil {
			return fmt.Errorf("marking duplicate: %w", err)
		}
	}
	slog.Info("dedup complete", "kept", len(part.Keep), "duplicates", len(part.Duplicates))

	p.setStage(StageRanking)
	window, err := p.store.ArticlesSince(ctx, since)
	if err != nil {
		return fmt.Errorf("loading ranking window: %w", err)
	}

	ranked, err := p.ranker.Rank(ctx, window)
	if err != nil {
		slog.Warn("ranking degraded, using fallback order", "error", err)
	}
	if err := p.store.SetRankScores(ctx, ranked); err != nil {
		return fmt.Errorf("storing rank scores: %w", err)
	}

	p.setStage(StageSummarizing)
	ordered := ranking.Order(ranked, p.priorities)
	top := p.summarizer.Select(ordered)
	if len(top) == 0 {
		slog.Info("nothing to publish this cycle")
		return nil
	}

	summary, err := p.summarizer.Summarize(ctx, top)
	if err != nil {
		slog.Warn("digest summary unavailable, publishing without one", "error", err)
	}

	p.setStage(StagePublishing)
	ids := make([]string, 0, len(top))
	for _, art := range top {
		ids = append(ids, art.ID)
	}

	digest, err := p.store.PublishDigest(ctx, summary, ids, now)
	if err != nil {
		return fmt.Errorf("publishing digest: %w", err)
	}
	slog.Info("digest published", "generation", digest.Generation, "articles", len(ids))

	return nil
}

func (p *Pipeline) setStage(stage Stage) {
	p.statusMu.Lock()
	p.status.Stage = stage
	p.statusMu.Unlock()
	slog.Debug("pipeline stage", "stage", stage)
}

func (p *Pipeline) setRunning(started time.Time) {
	p.statusMu.Lock()
	p.status.Running = true
	p.status.LastStarted = started
	p.status.LastError = ""
	p.statusMu.Unlock()
}

func (p *Pipeline) setFinished(err error) {
	p.statusMu.Lock()
	p.status.Running = false
	p.status.Stage = StageIdle
	p.status.LastFinished = time.Now().UTC()
	if err != nil {
		p.status.LastError = err.Error()
	} else {
		p.status.CyclesDone++
	}
	p.statusMu.Unlock()
}
