package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"labelsim/internal/api"
	"labelsim/internal/balance"
	"labelsim/internal/config"
	"labelsim/internal/db"
	"labelsim/internal/feed"
	"labelsim/internal/store/pgstore"
	"labelsim/internal/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	shutdownTracing, err := telemetry.Setup(ctx, "labelsim-api", cfg.OTelEndpoint)
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

	server := api.New(balanceCfg, logger, st, api.Options{
		ROITTL:  cfg.ROICacheTTL,
		ROISize: cfg.ROICacheSize,
		Sink:    sinks,
	})
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("labelsim api listening", "addr", cfg.Addr, "balance_version", balanceCfg.Version)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}
