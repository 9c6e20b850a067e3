package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/opensource-health/heron/internal/api"
	"github.com/opensource-health/heron/internal/bus"
	"github.com/opensource-health/heron/internal/cache"
	"github.com/opensource-health/heron/internal/consult"
	"github.com/opensource-health/heron/internal/domain"
	"github.com/opensource-health/heron/internal/metrics"
	"github.com/opensource-health/heron/internal/patient"
	"github.com/opensource-health/heron/internal/reports"
	"github.com/opensource-health/heron/internal/repository"
	"github.com/opensource-health/heron/internal/rules"
	"github.com/opensource-health/heron/internal/worker"
)

func serveCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and bus worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}
}

func runServer(cfg *domain.Config) error {
	slog.Info("starting heron",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)
	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := repository.New(cfg.Repository)
	if err != nil {
		return fmt.Errorf("failed to initialize repository: %w", err)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type, "two_phase", cfg.Cache.EnableTwoPhase)

	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		return fmt.Errorf("failed to initialize event bus: %w", err)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	e, err := buildEngines(cfg)
	if err != nil {
		return err
	}
	slog.Info("knowledge catalog loaded",
		"version", e.catalog.Version,
		"conditions", len(e.catalog.Conditions),
		"interactions", e.checker.RulesCount(),
	)

	// Stored rules override the defaults; a bad store keeps the defaults running
	count, err := rules.ReloadFromStore(ctx, e.engine, repo, e.defaults)
	if err != nil {
		slog.Warn("failed to load stored clinical rules, using defaults", "error", err)
	} else {
		slog.Info("clinical rules loaded", "count", count, "modules", e.engine.Modules())
	}

	m := metrics.New()
	patients := patient.NewService(repo)
	consultSvc := consult.NewService(e.catalog, e.matcher, e.checker, e.engine, patients, nil)

	var asyncWorker *worker.Worker
	if cfg.Worker.Enabled {
		asyncWorker = worker.NewWorker(busImpl, consultSvc, m)
		if err := asyncWorker.Start(worker.Config{WorkerCount: cfg.Worker.Concurrency}); err != nil {
			slog.Error("failed to start async worker", "error", err)
			asyncWorker = nil
		}
	}

	srv := api.NewServer(cfg.Server, api.Deps{
		Catalog:      e.catalog,
		Matcher:      e.matcher,
		Checker:      e.checker,
		Engine:       e.engine,
		Consult:      consultSvc,
		Patients:     patients,
		Reports:      reports.NewService(repo),
		DefaultRules: e.defaults,
		Repo:         repo,
		Cache:        cacheImpl,
		Bus:          busImpl,
		Metrics:      m,
		Version:      Version,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	slog.Info("heron is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)
	printBanner(cfg, Version)

	select {
	case <-ctx.Done():
		slog.Info("shutting down...")
	case err := <-errCh:
		slog.Error("server failed", "error", err)
		return err
	}

	if asyncWorker != nil {
		if err := asyncWorker.Stop(); err != nil {
			slog.Error("failed to stop async worker", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("heron shutdown complete")
	return nil
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ==========================================")
	fmt.Println("                  HERON")
	fmt.Println("       Clinical Rule Matching Engine")
	fmt.Println("  ==========================================")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /symptoms/analyze     - Rank conditions for symptoms")
	fmt.Println("    POST /interactions/check   - Check drug pairs")
	fmt.Println("    POST /cds/evaluate         - Decision support for a patient")
	fmt.Println("    POST /consult              - All evaluators with an assessment")
	fmt.Println("    GET  /cds/rules            - List clinical rules")
	fmt.Println("    POST /cds/rules/reload     - Hot-reload clinical rules")
	fmt.Println("    POST /calculators/{id}     - bmi, bmr, ibw, crcl")
	fmt.Println("    POST /reports/{type}       - Practice reports")
	fmt.Println("    GET  /health               - Health check")
	fmt.Println("    GET  /metrics              - Prometheus metrics")
	fmt.Println()
}
