package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/claude/movementmemory/internal/config"
	"github.com/claude/movementmemory/internal/engine"
	"github.com/claude/movementmemory/internal/ingest/alpha"
	"github.com/claude/movementmemory/internal/observability"
	"github.com/claude/movementmemory/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	csvPath := flag.String("file", "", "Alpha Progression CSV export (required)")
	userID := flag.Int("user", 1, "user ID to import for")
	migrationsPath := flag.String("migrations", "migrations", "path to migrations directory")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *csvPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: movementmemory-import -config config.yaml -file export.csv [-user N]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if cfg.Database.Driver == config.DriverPostgres {
		if err := storage.RunMigrations(cfg.Database.DSN(), *migrationsPath); err != nil {
			log.Error("migration failed", "error", err)
			os.Exit(1)
		}
		log.Info("migrations applied")
	}

	ctx := context.Background()
	store, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		log.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	f, err := os.Open(*csvPath)
	if err != nil {
		log.Error("failed to open export", "error", err)
		os.Exit(1)
	}
	defer func() { _ = f.Close() }()

	svc := engine.NewService(store, engine.Config{Workers: cfg.Engine.RefreshWorkers}, observability.NewMetrics(cfg.Metrics.Namespace, prometheus.NewRegistry()), log)
	result, err := alpha.NewProvider(store, svc, log).Ingest(ctx, f, *userID)
	if err != nil {
		log.Error("import failed", "error", err)
		os.Exit(1)
	}

	log.Info("import complete",
		"sessions", result.SessionsReceived,
		"sets_received", result.SetsReceived,
		"sets_inserted", result.SetsInserted,
		"exercises_recomputed", result.ExercisesRecomputed,
	)
}
