package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Catarin0/lifta/internal/amqp"
	"github.com/Catarin0/lifta/internal/config"
	"github.com/Catarin0/lifta/internal/storage"
	"github.com/Catarin0/lifta/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting lifta-auditor")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	auditor := worker.NewAuditWorker(repo, cfg.AuditConcurrency)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Event-driven audits arrive over AMQP; without it only the periodic
	// sweep runs.
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()

		go func() {
			if err := amqpClient.ConsumeBalanceEvents(ctx, auditor.HandleBalanceEvent); err != nil {
				if err != context.Canceled {
					logger.Error("Balance event consumption failed", "error", err)
				}
				cancel()
			}
		}()
		logger.Info("Consuming balance events", "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - running periodic sweeps only")
	}

	// Full sweep on startup picks up drift accumulated while the auditor was
	// down.
	if err := auditor.AuditAll(ctx); err != nil {
		logger.Error("Startup audit failed", "error", err)
	}

	ticker := time.NewTicker(cfg.AuditInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := auditor.AuditAll(ctx); err != nil {
					logger.Error("Periodic audit failed", "error", err)
				}
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	cancel()
	logger.Info("Auditor shutdown complete")
}
