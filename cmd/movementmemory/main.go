package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
	"tailscale.com/tsnet"

	"github.com/claude/movementmemory/internal/config"
	"github.com/claude/movementmemory/internal/engine"
	"github.com/claude/movementmemory/internal/ingest/alpha"
	"github.com/claude/movementmemory/internal/logging"
	"github.com/claude/movementmemory/internal/mcp"
	"github.com/claude/movementmemory/internal/observability"
	"github.com/claude/movementmemory/internal/progression"
	"github.com/claude/movementmemory/internal/refresh"
	"github.com/claude/movementmemory/internal/server"
	"github.com/claude/movementmemory/internal/storage"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	migrationsPath := flag.String("migrations", "migrations", "path to migrations directory")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, logCloser := logging.New(cfg.Logging)
	log.Info("movement memory starting", "version", Version, "driver", cfg.Database.Driver)

	if err := run(cfg, log, *migrationsPath, *migrateOnly); err != nil {
		log.Error("fatal", "error", err)
		_ = logCloser.Close()
		os.Exit(1)
	}
	_ = logCloser.Close()
}

func run(cfg *config.Config, log *slog.Logger, migrationsPath string, migrateOnly bool) (err error) {
	if cfg.Database.Driver == config.DriverPostgres {
		if err := storage.RunMigrations(cfg.Database.DSN(), migrationsPath); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		log.Info("migrations applied")
	}
	if migrateOnly {
		log.Info("migrate-only: exiting")
		return nil
	}

	ctx := context.Background()
	store, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer func() { err = multierr.Append(err, store.Close()) }()
	log.Info("store ready")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if db, ok := store.(*storage.DB); ok {
		reg.MustRegister(pgxpoolprometheus.NewCollector(db.Pool, map[string]string{"db_name": cfg.Database.Name}))
	}
	metrics := observability.NewMetrics(cfg.Metrics.Namespace, reg)

	svc := engine.NewService(store, engine.Config{
		Options: progression.Options{
			RecentSessions:      cfg.Engine.RecentSessions,
			ConsistencySessions: cfg.Engine.ConsistencySessions,
		},
		Suggest: progression.SuggestOptions{
			StaleAfterDays:  cfg.Engine.StaleAfterDays,
			PlateauSessions: cfg.Engine.PlateauSessions,
		},
		CacheSizeBytes: cfg.Cache.SizeMB * 1024 * 1024,
		CacheTTL:       cfg.Cache.TTL(),
		Workers:        cfg.Engine.RefreshWorkers,
	}, metrics, log)

	alphaProvider := alpha.NewProvider(store, svc, log)

	srv := server.New(store, svc, alphaProvider, cfg.Auth.APIKey, metrics, log)
	srv.SetMetricsHandler(observability.Handler(reg))
	srv.SetMCP(mcp.New(svc, Version, log))

	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { err = multierr.Append(err, rdb.Close()) }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable", "addr", cfg.Redis.Addr, "error", err)
		}
		srv.SetRateLimiter(redis_rate.NewLimiter(rdb), cfg.Redis.SetsPerMinute)
		log.Info("rate limiting enabled", "sets_per_minute", cfg.Redis.SetsPerMinute)
	}

	refresher, err := refresh.New(svc, cfg.Engine.RefreshSchedule, 0, log)
	if err != nil {
		return err
	}
	refresher.Start()
	defer refresher.Stop()

	// Start server, tsnet or plain HTTP
	var listener net.Listener
	if cfg.Tailscale.Enabled {
		tsServer := &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			return fmt.Errorf("tsnet start failed: %w", err)
		}
		defer func() { err = multierr.Append(err, tsServer.Close()) }()

		lc, err := tsServer.LocalClient()
		if err != nil {
			return fmt.Errorf("tsnet local client failed: %w", err)
		}
		srv.SetTailscale(lc)

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			return fmt.Errorf("tsnet listen failed: %w", err)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := net.JoinHostPort(cfg.Server.Host, fmt.Sprint(cfg.Server.Port))
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", addr, err)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{Handler: srv, ReadHeaderTimeout: 10 * time.Second}
	serveErr := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("shutting down", "signal", sig)
	case err := <-serveErr:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}
