// Command orchestrator runs the model-routing HTTP API, the background
// ranker refresh loop and the run admission controller in one process.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/swarmrouter/core/pkg/api"
	"github.com/swarmrouter/core/pkg/artifactstore"
	"github.com/swarmrouter/core/pkg/completion"
	"github.com/swarmrouter/core/pkg/config"
	"github.com/swarmrouter/core/pkg/executor"
	"github.com/swarmrouter/core/pkg/planner"
	"github.com/swarmrouter/core/pkg/queue"
	"github.com/swarmrouter/core/pkg/ranker"
	"github.com/swarmrouter/core/pkg/store"
)

func main() {
	envPath := flag.String("env-file", os.Getenv("ENV_FILE"), "Path to a .env file to load")
	flag.Parse()

	if *envPath != "" {
		if err := godotenv.Load(*envPath); err != nil {
			slog.Warn("could not load env file", "path", *envPath, "error", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialization order (§9): config -> store -> artifact dir -> ranker
	// snapshot load -> queue -> background ranker refresh.
	cfg, err := config.LoadFromEnv()
	if err != nil {
		slog.Error("loading configuration", "error", err)
		os.Exit(1)
	}

	st, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("opening store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	artifacts, err := artifactstore.New(cfg.ArtifactsHome)
	if err != nil {
		slog.Error("opening artifact store", "error", err)
		os.Exit(1)
	}

	rankerCfg := ranker.DefaultConfig()
	rankerCfg.OpenRouterAPIKey = cfg.OpenRouterAPIKey
	if d, err := time.ParseDuration(cfg.RankerRefreshInterval); err == nil {
		rankerCfg.RefreshInterval = d
	}
	rk, err := ranker.New(ctx, rankerCfg, st)
	if err != nil {
		slog.Error("loading ranker snapshot", "error", err)
		os.Exit(1)
	}

	completionClient := completion.New(cfg.CompletionBaseURL, cfg.CompletionAPIKey)

	pl := planner.New(rk)
	ex := executor.New(st, artifacts, completionClient, rk.PricingFor, executor.Config{
		MaxParallelNodesPerRun: cfg.MaxParallelNodesPerRun,
		MaxUSDPerRun:           cfg.MaxUSDPerRun,
		NodeTimeoutSeconds:     cfg.NodeTimeoutSeconds,
		RunTimeoutSeconds:      cfg.RunTimeoutSeconds,
	})
	admitter := queue.New(st, artifacts, pl, ex, queue.Config{
		MaxParallelRuns:    cfg.MaxParallelRuns,
		PollIntervalMs:     cfg.PollIntervalMs,
		MaxAdmitsPerSecond: cfg.MaxAdmitsPerSecond,
	})

	go admitter.Run(ctx)
	go rk.RunBackgroundRefresh(ctx)

	server := api.NewServer(st, artifacts, admitter, rk, cfg.CompletionAPIKey != "")

	go func() {
		<-ctx.Done()
		admitter.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutting down http server", "error", err)
		}
	}()

	slog.Info("orchestrator starting", "addr", cfg.HTTPAddr)
	if err := server.Start(cfg.HTTPAddr); err != nil && !isServerClosed(err) {
		slog.Error("http server exited", "error", err)
		os.Exit(1)
	}
}

func isServerClosed(err error) bool {
	return err.Error() == "http: Server closed"
}
