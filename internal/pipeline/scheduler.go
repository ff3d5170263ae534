package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// startupDelay postpones the first cycle so the HTTP server is already
// serving before any fetching starts.
const startupDelay = 5 * time.Second

// Scheduler runs the pipeline on a fixed interval.
type Scheduler struct {
	cron     *cron.Cron
	pipeline *Pipeline
}

// NewScheduler returns a Scheduler that runs a cycle every interval.
func NewScheduler(p *Pipeline, interval time.Duration) (*Scheduler, error) {
	c := cron.New()
	s := &Scheduler{
		cron:     c,
		pipeline: p,
	}

	spec := fmt.Sprintf("@every %s", interval)
	if _, err := c.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("scheduling cycle: %w", err)
	}

	return s, nil
}

// Start begins ticking and schedules the first cycle after a short
// startup delay.
func (s *Scheduler) Start() {
	s.cron.Start()
	time.AfterFunc(startupDelay, func() {
		go s.tick()
	})
}

// Stop halts the ticker and returns a context that is done once any
// in-flight jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) tick() {
	err := s.pipeline.Run(context.Background())
	switch {
	case errors.Is(err, ErrCycleRunning):
		slog.Info("previous cycle still running, skipping tick")
	case err != nil:
		slog.Error("cycle failed", "error", err)
	}
}
