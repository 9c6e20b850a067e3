// Heron - Clinical rule matching for the single-practice desk.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/opensource-health/heron/internal/config"
	"github.com/opensource-health/heron/internal/domain"
	"github.com/opensource-health/heron/internal/knowledge"
	"github.com/opensource-health/heron/internal/rules"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "heron",
		Short:         "Clinical rule matching engine",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML or .env config file")

	loadConfig := func() (*domain.Config, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		setupLogger(cfg.Logging)
		return cfg, nil
	}

	rootCmd.AddCommand(serveCmd(loadConfig))
	rootCmd.AddCommand(analyzeCmd(loadConfig))
	rootCmd.AddCommand(interactionsCmd(loadConfig))
	rootCmd.AddCommand(evaluateCmd(loadConfig))
	rootCmd.AddCommand(catalogCmd(loadConfig))

	return rootCmd
}

type configLoader func() (*domain.Config, error)

// setupLogger installs the default slog logger.
func setupLogger(cfg domain.LoggingConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// engines bundles the evaluators built from one config.
type engines struct {
	catalog  *knowledge.Catalog
	matcher  *rules.SymptomMatcher
	checker  *rules.InteractionChecker
	engine   *rules.Engine
	defaults []*domain.ClinicalRule
}

// buildEngines loads the catalog and the default clinical rules.
func buildEngines(cfg *domain.Config) (*engines, error) {
	catalog, err := knowledge.Load(cfg.Knowledge.CatalogPath)
	if err != nil {
		return nil, err
	}

	engine, err := rules.NewEngine()
	if err != nil {
		return nil, err
	}

	defaults := rules.DefaultClinicalRules(cfg.Clinical)
	if err := engine.LoadRules(defaults); err != nil {
		return nil, fmt.Errorf("failed to load default clinical rules: %w", err)
	}

	return &engines{
		catalog:  catalog,
		matcher:  rules.NewSymptomMatcher(cfg.Matching.MinScore),
		checker:  rules.NewInteractionChecker(catalog.Interactions),
		engine:   engine,
		defaults: defaults,
	}, nil
}
