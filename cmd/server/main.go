package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/trungvh/gazette/internal/ai"
	"github.com/trungvh/gazette/internal/api"
	"github.com/trungvh/gazette/internal/config"
	"github.com/trungvh/gazette/internal/dedup"
	"github.com/trungvh/gazette/internal/feeds"
	"github.com/trungvh/gazette/internal/pipeline"
	"github.com/trungvh/gazette/internal/ranking"
	"github.com/trungvh/gazette/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to config file")
	dataDir := flag.String("data-dir", "./data", "path to data directory")
	flag.Parse()

	// Load configuration (auto-creates default if missing).
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Ensure data directory exists.
	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		slog.Error("failed to create data directory", "error", err)
		os.Exit(1)
	}

	// Open database with WAL mode and pragmas.
	db, err := storage.OpenDatabase(filepath.Join(*dataDir, "gazette.db"))
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run schema migrations.
	if err := storage.RunMigrations(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	store := storage.NewStore(db)

	// Create the oracle (nil without an API key -- ranking degrades to
	// fallback ordering and digests go out without summaries).
	var oracle ai.Oracle
	if cfg.Oracle.APIKey != "" {
		oracle, err = ai.NewProvider(ai.ProviderConfig{
			Provider: cfg.Oracle.Provider,
			APIKey:   cfg.Oracle.APIKey,
			Model:    cfg.Oracle.Model,
			Timeout:  time.Duration(cfg.Oracle.TimeoutSeconds) * time.Second,
		})
		if err != nil {
			slog.Error("failed to create oracle provider", "error", err)
			os.Exit(1)
		}
		slog.Info("oracle configured", "provider", cfg.Oracle.Provider, "model", cfg.Oracle.Model)
	} else {
		slog.Warn("no oracle API key configured, digests will use fallback ordering")
	}

	sources := cfg.SourceList()
	priorities := make(map[string]int, len(sources))
	for _, src := range sources {
		priorities[src.Name] = src.Priority
	}

	p := pipeline.New(
		store,
		feeds.NewFetcher(),
		dedup.New(cfg.Pipeline.SimilarityThreshold, priorities),
		ranking.NewRanker(oracle, cfg.Oracle.BatchSize),
		ranking.NewSummarizer(oracle, cfg.Pipeline.DigestSize),
		pipeline.Options{
			Sources: sources,
			Fetch: feeds.Options{
				Workers: cfg.Pipeline.FetchWorkers,
				Timeout: time.Duration(cfg.Pipeline.FetchTimeoutSeconds) * time.Second,
			},
			CycleBudget:    time.Duration(cfg.Pipeline.CycleBudgetMinutes) * time.Minute,
			TrailingWindow: time.Duration(cfg.Pipeline.TrailingWindowHours) * time.Hour,
		},
	)

	scheduler, err := pipeline.NewScheduler(p, time.Duration(cfg.Pipeline.IntervalMinutes)*time.Minute)
	if err != nil {
		slog.Error("failed to create scheduler", "error", err)
		os.Exit(1)
	}
	scheduler.Start()

	router := api.NewRouter(store, p)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("starting server", "addr", addr, "interval_minutes", cfg.Pipeline.IntervalMinutes)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}

	// Wait for any in-flight cron job to finish.
	select {
	case <-scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		slog.Warn("gave up waiting for the running cycle")
	}
}
