// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/ordwiz/internal/api"
	"github.com/ManuGH/ordwiz/internal/api/middleware"
	"github.com/ManuGH/ordwiz/internal/catalog"
	"github.com/ManuGH/ordwiz/internal/config"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/coordinator"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/store"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/sweeper"
	"github.com/ManuGH/ordwiz/internal/domain/wizard/workflow"
	"github.com/ManuGH/ordwiz/internal/log"
	"github.com/ManuGH/ordwiz/internal/persistence/sqlite"
	"github.com/ManuGH/ordwiz/internal/receipt"
	"github.com/ManuGH/ordwiz/internal/telemetry"
	"github.com/ManuGH/ordwiz/internal/version"
)

func newServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the session sweeper and the catalog watcher",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to config file (YAML)")
	return cmd
}

// loadConfig loads the configuration and configures the global logger from it.
func loadConfig(path string) (config.AppConfig, error) {
	cfg, err := config.NewLoader(path, version.Version).Load()
	if err != nil {
		return cfg, err
	}
	log.Configure(log.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.Log.Service,
		Version: cfg.Version,
	})

	logger := log.WithComponent("ordwiz")
	source := "env+defaults"
	if path != "" {
		source = "file"
	}
	logger.Info().
		Str("event", "config.loaded").
		Str("source", source).
		Str(log.FieldPath, path).
		Msg("configuration loaded")
	return cfg, nil
}

func openStore(cfg config.AppConfig) (store.Store, error) {
	opts := cfg.StoreOptions()
	if opts.Path != "" {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o750); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	return store.Open(opts, log.WithComponent("store"))
}

func runServe(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger := log.WithComponent("ordwiz")

	tp, err := telemetry.NewProvider(ctx, cfg.TelemetryOptions())
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("telemetry shutdown failed")
		}
	}()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	cat, err := catalog.NewProvider(cfg.Catalog.Path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Orders.DBPath), 0o750); err != nil {
		return fmt.Errorf("create orders dir: %w", err)
	}
	db, err := sqlite.Open(cfg.Orders.DBPath, sqlite.DefaultConfig())
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	repo, err := sqlite.NewRepository(ctx, db)
	if err != nil {
		return err
	}

	renderer, err := receipt.New(repo, cat, cfg.ReceiptOptions())
	if err != nil {
		return err
	}

	svc := workflow.New(&workflow.Deps{
		Store:     st,
		Catalog:   cat,
		Modifiers: cat,
		Clients:   repo,
		Branches:  cat,
		NewID:     uuid.NewString,
	})
	wiz, err := coordinator.New(coordinator.Config{
		Store:    st,
		Services: svc,
		Orders:   repo,
		Receipts: renderer,
	})
	if err != nil {
		return err
	}

	stack := middleware.StackConfig{
		EnableMetrics: true,
		EnableLogging: true,
		RateLimit: middleware.RateLimitConfig{
			RequestLimit: cfg.API.RateLimit.Requests,
			WindowSize:   cfg.API.RateLimit.Window,
		},
		SessionEvents: middleware.ThrottleConfig{
			PerSecond: cfg.API.SessionEvents.PerSecond,
			Burst:     cfg.API.SessionEvents.Burst,
		},
	}
	if cfg.Telemetry.Enabled {
		stack.TracingService = cfg.Log.Service
	}
	srv, err := api.New(api.Deps{
		Wizard:    wiz,
		Catalog:   cat,
		Modifiers: cat,
		Receipts:  renderer,
		Clients:   repo,
		Stack:     stack,
		Version:   cfg.Version,
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.ListenAndServe(gctx, cfg.API.Listen) })
	g.Go(func() error {
		sweeper.New(st, cfg.SweeperOptions()).Run(gctx)
		return nil
	})
	if cfg.Catalog.Watch {
		g.Go(func() error { return cat.Watch(gctx) })
	}

	logger.Info().Str("version", cfg.Version).Str("listen", cfg.API.Listen).Msg("ordwiz started")
	err = g.Wait()
	logger.Info().Msg("ordwiz stopped")
	return err
}
