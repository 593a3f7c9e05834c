package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	corecfg "github.com/aevon-lab/eventfold/internal/core/config"
	"github.com/aevon-lab/eventfold/internal/core/storage"
	"github.com/aevon-lab/eventfold/internal/core/storage/memory"
	"github.com/aevon-lab/eventfold/internal/core/storage/postgres"
	"github.com/aevon-lab/eventfold/internal/core/storage/telemetry"
	"github.com/aevon-lab/eventfold/internal/ingestion"
	"github.com/aevon-lab/eventfold/internal/migrations"
	"github.com/aevon-lab/eventfold/internal/projection"
	"github.com/aevon-lab/eventfold/internal/server"
	"github.com/aevon-lab/eventfold/internal/tracing"
)

// backend is an event log the binary can health-check and close.
type backend interface {
	storage.EventStore
	server.HealthChecker
	Close() error
}

func main() {
	configPath := flag.String("config", "eventfold.yaml", "Path to configuration file")
	flag.Parse()

	// 0. Bootstrap logger until the configured level is known
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	// 1. Load Configuration
	cfg, err := corecfg.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()})))
	slog.Info("Loaded config",
		"database", cfg.Database.Type,
		"page_size", cfg.Rehydration.PageSize,
		"fold_timeout", cfg.Rehydration.FoldTimeout,
		"rules", len(cfg.Rules),
		"telemetry", cfg.Telemetry.Enabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Initialize Tracing and Metrics
	if cfg.Telemetry.Enabled {
		shutdown, err := tracing.Init(ctx, tracing.Config{ServiceName: cfg.Telemetry.ServiceName})
		if err != nil {
			slog.Error("Failed to initialize telemetry", "error", err)
			os.Exit(1)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(flushCtx); err != nil {
				slog.Error("Failed to flush telemetry", "error", err)
			}
		}()
	}

	// 3. Initialize Storage
	db, err := openStore(cfg.Database)
	if err != nil {
		slog.Error("Failed to initialize event store", "type", cfg.Database.Type, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var store storage.EventStore = db
	if cfg.Telemetry.Enabled {
		instrumented, err := telemetry.Wrap(db)
		if err != nil {
			slog.Error("Failed to instrument event store", "error", err)
			os.Exit(1)
		}
		store = instrumented
	}

	// 4. Initialize Ingestion and Projection
	ingestionSvc := ingestion.NewService(store, cfg.Server.MaxBodySizeMB)
	projectionSvc := projection.NewService(store, cfg.Rules, cfg.Rehydration.PageSize, cfg.Rehydration.FoldTimeout)

	// 5. Initialize Server
	srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), db, cfg.Server.Mode)
	ingestionSvc.RegisterRoutes(srv.Engine)
	projectionSvc.RegisterRoutes(srv.Engine)

	// HTTP server blocks until a signal cancels ctx.
	if err := srv.Run(ctx); err != nil {
		slog.Error("Server stopped with error", "error", err)
	}

	slog.Info("Shutdown complete")
}

func openStore(cfg corecfg.DatabaseConfig) (backend, error) {
	switch cfg.Type {
	case "memory":
		slog.Warn("Using in-memory event store; events are lost on restart")
		return memory.NewStore(), nil
	case "postgres":
		db, err := postgres.Connect(cfg.DSN, cfg.MaxOpenConns, cfg.MaxIdleConns)
		if err != nil {
			return nil, err
		}
		// Migrations run before the adapter checks the schema.
		if err := migrations.RunMigrations(db, cfg.AutoMigrate); err != nil {
			db.Close()
			return nil, fmt.Errorf("run database migrations: %w", err)
		}
		adapter, err := postgres.Open(db)
		if err != nil {
			return nil, err
		}
		return adapter, nil
	default:
		return nil, fmt.Errorf("unsupported database type %q", cfg.Type)
	}
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
