package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"labelsim/internal/balance"
	"labelsim/internal/config"
	"labelsim/internal/db"
	"labelsim/internal/feed"
	"labelsim/internal/store/pgstore"
	"labelsim/internal/telemetry"
	"labelsim/internal/turn"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadWorkerFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	shutdownTracing, err := telemetry.Setup(ctx, "labelsim-worker", cfg.OTelEndpoint)
	if err != nil {
		logger.Error("telemetry setup failed", "err", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	balanceCfg, err := balance.LoadFile(cfg.BalanceFile)
	if err != nil {
		logger.Error("load balance tables failed", "err", err)
		os.Exit(1)
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL, cfg.MaxConns)
	if err != nil {
		logger.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	st := pgstore.New(pool, logger)
	if err := st.Migrate(ctx); err != nil {
		logger.Error("migrate failed", "err", err)
		os.Exit(1)
	}

	sinks, closeSinks, err := feed.FromConfig(ctx, logger, cfg.Sinks)
	if err != nil {
		logger.Error("sink setup failed", "err", err)
		os.Exit(1)
	}
	defer closeSinks()

	w := &worker{
		store: st,
		turns: turn.New(st, balanceCfg, logger),
		sinks: sinks,
		batch: cfg.BatchSize,
		log:   logger,
	}

	runOnce := strings.EqualFold(strings.TrimSpace(os.Getenv("LABELSIM_WORKER_RUN_ONCE")), "true")
	if runOnce {
		if err := w.tick(ctx); err != nil {
			logger.Error("tick failed", "err", err)
			os.Exit(1)
		}
		logger.Info("worker run-once completed")
		return
	}

	ticker := time.NewTicker(cfg.TickEvery)
	defer ticker.Stop()

	logger.Info("worker started", "tick_every", cfg.TickEvery.String(), "batch", cfg.BatchSize, "balance_version", balanceCfg.Version)
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker shutdown")
			return
		case <-ticker.C:
			if err := w.tick(ctx); err != nil {
				logger.Error("auto-advance tick failed", "err", err)
			}
		}
	}
}
