// Package config loads the orchestrator's runtime tunables (§6.3) from the
// environment, following the teacher's env-var-with-validated-fallback
// idiom (pkg/database.LoadConfigFromEnv, pkg/config.DefaultQueueConfig).
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds every tunable in §6.3 plus the ambient connection settings
// (database DSN, artifact root, ranking/completion endpoints) a complete
// deployment needs that the distilled spec treats as given.
type Config struct {
	MaxParallelRuns         int
	MaxParallelNodesPerRun  int
	MaxUSDPerRun            float64
	NodeTimeoutSeconds      int
	RunTimeoutSeconds       int
	PollIntervalMs          int
	MaxAdmitsPerSecond      float64

	DatabaseURL   string
	ArtifactsHome string

	CompletionBaseURL string
	CompletionAPIKey  string

	OpenRouterAPIKey string

	HTTPAddr string

	RankerRefreshInterval string // parsed by caller; kept as string to avoid importing time here twice
}

// Defaults mirrors the §6.3 default column.
func Defaults() Config {
	return Config{
		MaxParallelRuns:        2,
		MaxParallelNodesPerRun: 4,
		MaxUSDPerRun:           5.0,
		NodeTimeoutSeconds:     180,
		RunTimeoutSeconds:      1800,
		PollIntervalMs:         1200,
		MaxAdmitsPerSecond:     5,
		ArtifactsHome:          "./data/artifacts",
		HTTPAddr:               ":8080",
		RankerRefreshInterval:  "6h",
	}
}

// LoadFromEnv builds a Config from environment variables layered over
// Defaults, validating every positive-integer tunable.
func LoadFromEnv() (*Config, error) {
	cfg := Defaults()

	var err error
	if cfg.MaxParallelRuns, err = envPositiveInt("MAX_PARALLEL_RUNS", cfg.MaxParallelRuns); err != nil {
		return nil, err
	}
	if cfg.MaxParallelNodesPerRun, err = envPositiveInt("MAX_PARALLEL_NODES_PER_RUN", cfg.MaxParallelNodesPerRun); err != nil {
		return nil, err
	}
	if cfg.NodeTimeoutSeconds, err = envPositiveInt("NODE_TIMEOUT_SECONDS", cfg.NodeTimeoutSeconds); err != nil {
		return nil, err
	}
	if cfg.RunTimeoutSeconds, err = envPositiveInt("RUN_TIMEOUT_SECONDS", cfg.RunTimeoutSeconds); err != nil {
		return nil, err
	}
	if cfg.PollIntervalMs, err = envPositiveInt("POLL_INTERVAL_MS", cfg.PollIntervalMs); err != nil {
		return nil, err
	}
	if v := os.Getenv("MAX_USD_PER_RUN"); v != "" {
		f, perr := strconv.ParseFloat(v, 64)
		if perr != nil || f <= 0 {
			return nil, fmt.Errorf("MAX_USD_PER_RUN must be a positive number, got %q", v)
		}
		cfg.MaxUSDPerRun = f
	}
	if v := os.Getenv("MAX_ADMITS_PER_SECOND"); v != "" {
		f, perr := strconv.ParseFloat(v, 64)
		if perr != nil || f <= 0 {
			return nil, fmt.Errorf("MAX_ADMITS_PER_SECOND must be a positive number, got %q", v)
		}
		cfg.MaxAdmitsPerSecond = f
	}

	cfg.DatabaseURL = envOrDefault("DATABASE_URL", cfg.DatabaseURL)
	cfg.ArtifactsHome = envOrDefault("ARTIFACTS_HOME", cfg.ArtifactsHome)
	cfg.CompletionBaseURL = envOrDefault("COMPLETION_BASE_URL", cfg.CompletionBaseURL)
	cfg.CompletionAPIKey = envOrDefault("COMPLETION_API_KEY", cfg.CompletionAPIKey)
	cfg.OpenRouterAPIKey = envOrDefault("OPENROUTER_API_KEY", cfg.OpenRouterAPIKey)
	cfg.HTTPAddr = envOrDefault("HTTP_ADDR", cfg.HTTPAddr)
	cfg.RankerRefreshInterval = envOrDefault("RANKER_REFRESH_INTERVAL", cfg.RankerRefreshInterval)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks invariants that span more than one field.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.ArtifactsHome == "" {
		return fmt.Errorf("ARTIFACTS_HOME is required")
	}
	if c.MaxParallelRuns <= 0 || c.MaxParallelNodesPerRun <= 0 {
		return fmt.Errorf("parallelism limits must be positive")
	}
	if c.MaxUSDPerRun <= 0 {
		return fmt.Errorf("MAX_USD_PER_RUN must be positive")
	}
	return nil
}

func envPositiveInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, v)
	}
	return n, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
