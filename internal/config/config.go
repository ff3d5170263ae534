package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/trungvh/gazette/internal/models"
)

// Config holds all application configuration.
type Config struct {
	Oracle   OracleConfig   `toml:"oracle"`
	Server   ServerConfig   `toml:"server"`
	Pipeline PipelineConfig `toml:"pipeline"`
	Sources  []SourceConfig `toml:"sources"`
}

// OracleConfig holds LLM scoring-oracle settings.
type OracleConfig struct {
	Provider       string `toml:"provider"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	BatchSize      int    `toml:"batch_size"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `toml:"port"`
}

// PipelineConfig holds the tunables of the ingestion-and-ranking cycle.
type PipelineConfig struct {
	IntervalMinutes     int     `toml:"interval_minutes"`
	CycleBudgetMinutes  int     `toml:"cycle_budget_minutes"`
	FetchTimeoutSeconds int     `toml:"fetch_timeout_seconds"`
	FetchWorkers        int     `toml:"fetch_workers"`
	SimilarityThreshold float64 `toml:"similarity_threshold"`
	TrailingWindowHours int     `toml:"trailing_window_hours"`
	DigestSize          int     `toml:"digest_size"`
}

// SourceConfig describes one news source in the config file.
type SourceConfig struct {
	Name     string `toml:"name"`
	Endpoint string `toml:"endpoint"`
	Kind     string `toml:"kind"`
	Category string `toml:"category"`
	Priority int    `toml:"priority"`
}

const defaultConfigContent = `[oracle]
provider = "anthropic"            # "anthropic" or "openai"
api_key = ""                      # Your API key (or set ORACLE_API_KEY env var)
model = "claude-haiku-4-5"
batch_size = 10
timeout_seconds = 60

[server]
port = 8080

[pipeline]
interval_minutes = 30
cycle_budget_minutes = 5
fetch_timeout_seconds = 120
fetch_workers = 8
similarity_threshold = 0.85
trailing_window_hours = 48
digest_size = 10

[[sources]]
name = "TechCrunch"
endpoint = "https://techcrunch.com/feed/"
kind = "feed"
category = "technology"
priority = 1

[[sources]]
name = "Ars Technica"
endpoint = "https://feeds.arstechnica.com/arstechnica/index"
kind = "feed"
category = "technology"
priority = 2

[[sources]]
name = "The Verge"
endpoint = "https://www.theverge.com/rss/index.xml"
kind = "feed"
category = "technology"
priority = 3

[[sources]]
name = "BBC Technology"
endpoint = "https://feeds.bbci.co.uk/news/technology/rss.xml"
kind = "feed"
category = "technology"
priority = 4

[[sources]]
name = "Wired"
endpoint = "https://www.wired.com/feed/rss"
kind = "feed"
category = "technology"
priority = 5

[[sources]]
name = "MIT Technology Review"
endpoint = "https://www.technologyreview.com/feed/"
kind = "feed"
category = "technology"
priority = 6

[[sources]]
name = "VentureBeat"
endpoint = "https://venturebeat.com/feed/"
kind = "feed"
category = "technology"
priority = 7
`

// Load reads and parses the TOML config from the given path. If the file does
// not exist, it creates a default config file at that path. Environment
// variables override values from the file with highest priority.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := createDefault(path); err != nil {
			return nil, fmt.Errorf("creating default config: %w", err)
		}
		slog.Info("created default config file", "path", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Validate explicitly-set values before applying defaults, so that
	// explicitly writing "port = 0" is an error rather than silently
	// being replaced with the default.
	if err := validateExplicit(&cfg, md); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SourceList converts the configured sources into domain Source values,
// preserving config-file order.
func (c *Config) SourceList() []models.Source {
	sources := make([]models.Source, 0, len(c.Sources))
	for _, s := range c.Sources {
		sources = append(sources, models.Source{
			Name:     s.Name,
			Endpoint: s.Endpoint,
			Kind:     models.SourceKind(s.Kind),
			Category: s.Category,
			Priority: s.Priority,
		})
	}
	return sources
}

// createDefault writes the default config content to the given path,
// creating any parent directories as needed.
func createDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigContent), 0o644); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}

// validateExplicit checks values that were explicitly set in the TOML file.
// This catches cases like "port = 0" which would otherwise be silently
// replaced by the default value.
func validateExplicit(cfg *Config, md toml.MetaData) error {
	if md.IsDefined("server", "port") {
		if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
			return fmt.Errorf("invalid server.port %d: must be between 1 and 65535", cfg.Server.Port)
		}
	}
	if md.IsDefined("oracle", "batch_size") {
		if cfg.Oracle.BatchSize < 1 {
			return fmt.Errorf("invalid oracle.batch_size %d: must be >= 1", cfg.Oracle.BatchSize)
		}
	}
	if md.IsDefined("pipeline", "interval_minutes") {
		if cfg.Pipeline.IntervalMinutes < 1 {
			return fmt.Errorf("invalid pipeline.interval_minutes %d: must be >= 1", cfg.Pipeline.IntervalMinutes)
		}
	}
	if md.IsDefined("pipeline", "similarity_threshold") {
		if cfg.Pipeline.SimilarityThreshold <= 0 || cfg.Pipeline.SimilarityThreshold > 1 {
			return fmt.Errorf("invalid pipeline.similarity_threshold %g: must be in (0, 1]", cfg.Pipeline.SimilarityThreshold)
		}
	}
	return nil
}

// applyDefaults sets default values for any zero-valued fields.
func applyDefaults(cfg *Config) {
	if cfg.Oracle.Provider == "" {
		cfg.Oracle.Provider = "anthropic"
	}
	if cfg.Oracle.Model == "" {
		cfg.Oracle.Model = "claude-haiku-4-5"
	}
	if cfg.Oracle.BatchSize == 0 {
		cfg.Oracle.BatchSize = 10
	}
	if cfg.Oracle.TimeoutSeconds == 0 {
		cfg.Oracle.TimeoutSeconds = 60
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Pipeline.IntervalMinutes == 0 {
		cfg.Pipeline.IntervalMinutes = 30
	}
	if cfg.Pipeline.CycleBudgetMinutes == 0 {
		cfg.Pipeline.CycleBudgetMinutes = 5
	}
	if cfg.Pipeline.FetchTimeoutSeconds == 0 {
		cfg.Pipeline.FetchTimeoutSeconds = 120
	}
	if cfg.Pipeline.FetchWorkers == 0 {
		cfg.Pipeline.FetchWorkers = 8
	}
	if cfg.Pipeline.SimilarityThreshold == 0 {
		cfg.Pipeline.SimilarityThreshold = 0.85
	}
	if cfg.Pipeline.TrailingWindowHours == 0 {
		cfg.Pipeline.TrailingWindowHours = 48
	}
	if cfg.Pipeline.DigestSize == 0 {
		cfg.Pipeline.DigestSize = 10
	}
	if len(cfg.Sources) == 0 {
		cfg.Sources = defaultSources()
	}
}

// defaultSources returns the built-in source list used when the config file
// defines no [[sources]] tables.
func defaultSources() []SourceConfig {
	return []SourceConfig{
		{Name: "TechCrunch", Endpoint: "https://techcrunch.com/feed/", Kind: "feed", Category: "technology", Priority: 1},
		{Name: "Ars Technica", Endpoint: "https://feeds.arstechnica.com/arstechnica/index", Kind: "feed", Category: "technology", Priority: 2},
		{Name: "The Verge", Endpoint: "https://www.theverge.com/rss/index.xml", Kind: "feed", Category: "technology", Priority: 3},
		{Name: "BBC Technology", Endpoint: "https://feeds.bbci.co.uk/news/technology/rss.xml", Kind: "feed", Category: "technology", Priority: 4},
		{Name: "Reuters Technology", Endpoint: "https://feeds.reuters.com/reuters/technologyNews", Kind: "feed", Category: "technology", Priority: 5},
		{Name: "Wired", Endpoint: "https://www.wired.com/feed/rss", Kind: "feed", Category: "technology", Priority: 6},
		{Name: "MIT Technology Review", Endpoint: "https://www.technologyreview.com/feed/", Kind: "feed", Category: "technology", Priority: 7},
		{Name: "VentureBeat", Endpoint: "https://venturebeat.com/feed/", Kind: "feed", Category: "technology", Priority: 8},
	}
}

// applyEnvOverrides applies environment variable overrides. Environment
// variables take highest priority over config file values.
//
// Priority for oracle.api_key:
//  1. ORACLE_API_KEY (generic, highest)
//  2. ANTHROPIC_API_KEY (when provider is "anthropic")
//  3. OPENAI_API_KEY (when provider is "openai")
func applyEnvOverrides(cfg *Config) {
	// Apply provider-specific env var first (lower priority).
	switch cfg.Oracle.Provider {
	case "anthropic":
		if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
			cfg.Oracle.APIKey = v
		}
	case "openai":
		if v := os.Getenv("OPENAI_API_KEY"); v != "" {
			cfg.Oracle.APIKey = v
		}
	}

	// ORACLE_API_KEY overrides everything (highest priority).
	if v := os.Getenv("ORACLE_API_KEY"); v != "" {
		cfg.Oracle.APIKey = v
	}
}

// validate checks that configuration values are within acceptable ranges.
func validate(cfg *Config) error {
	switch cfg.Oracle.Provider {
	case "anthropic", "openai":
		// valid
	default:
		return fmt.Errorf("invalid oracle.provider %q: must be \"anthropic\" or \"openai\"", cfg.Oracle.Provider)
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d: must be between 1 and 65535", cfg.Server.Port)
	}

	if cfg.Pipeline.SimilarityThreshold <= 0 || cfg.Pipeline.SimilarityThreshold > 1 {
		return fmt.Errorf("invalid pipeline.similarity_threshold %g: must be in (0, 1]", cfg.Pipeline.SimilarityThreshold)
	}

	if cfg.Oracle.BatchSize < 1 {
		return fmt.Errorf("invalid oracle.batch_size %d: must be >= 1", cfg.Oracle.BatchSize)
	}

	if cfg.Pipeline.CycleBudgetMinutes < 1 {
		return fmt.Errorf("invalid pipeline.cycle_budget_minutes %d: must be >= 1", cfg.Pipeline.CycleBudgetMinutes)
	}

	seen := make(map[string]bool, len(cfg.Sources))
	for i, s := range cfg.Sources {
		if s.Name == "" || s.Endpoint == "" {
			return fmt.Errorf("source %d: name and endpoint are required", i)
		}
		if s.Kind != string(models.KindFeed) && s.Kind != string(models.KindPage) {
			return fmt.Errorf("source %q: invalid kind %q: must be \"feed\" or \"page\"", s.Name, s.Kind)
		}
		if seen[s.Name] {
			return fmt.Errorf("source %q: duplicate source name", s.Name)
		}
		seen[s.Name] = true
	}

	if cfg.Oracle.APIKey == "" {
		slog.Warn("oracle.api_key is empty: ranking and summaries will use the deterministic fallback")
	}

	return nil
}
