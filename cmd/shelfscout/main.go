package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/shelfscout/api"
	"github.com/use-agent/shelfscout/app"
	"github.com/use-agent/shelfscout/config"
	"github.com/use-agent/shelfscout/logging"
	"github.com/use-agent/shelfscout/webhook"
)

func main() {
	// ── 1. Configuration and logging ────────────────────────────────
	cfg := config.Load()
	logging.Init(cfg.Log, os.Stdout)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	slog.Info("shelfscout starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"strategies", len(cfg.Retrieval.Strategies),
	)
	if cfg.LLM.APIKey == "" {
		slog.Warn("no LLM API key configured; extraction requests will fail")
	}

	// ── 2. Stages ───────────────────────────────────────────────────
	sc, err := app.NewScraper(cfg)
	if err != nil {
		slog.Error("failed to initialise scraper", "error", err)
		os.Exit(1)
	}
	stage, releaseStage := app.NewStage(cfg)
	defer releaseStage()

	// ── 3. Router ───────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	router := api.NewRouter(ctx, cfg, api.Deps{
		Retriever: sc,
		Extractor: stage,
		Notifier:  webhook.NewNotifier(),
		StartTime: time.Now(),
	})

	// ── 4. Serve ────────────────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 5. Graceful shutdown ────────────────────────────────────────
	<-ctx.Done()
	slog.Info("shutdown signal received")

	// Canceling ctx already aborts a running retrieval; give requests
	// five seconds to drain.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}
	slog.Info("shelfscout stopped")
}
