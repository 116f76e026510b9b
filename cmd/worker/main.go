package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/felixgeelhaar/featureboard/adapter/api"
	"github.com/felixgeelhaar/featureboard/internal/app"
	"github.com/felixgeelhaar/featureboard/pkg/config"
	"github.com/felixgeelhaar/featureboard/pkg/observability"
)

const statsInterval = time.Minute

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load()
	logger := observability.LoggerFromEnv()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger.Info("starting featureboard worker",
		"storage", cfg.StorageBackend,
		"signals", cfg.SignalTransport,
	)

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize container", "error", err)
		os.Exit(1)
	}
	defer container.Close()

	container.StartRelay(ctx)

	srvCfg := api.DefaultServerConfig()
	if cfg.APIAddr != "" {
		srvCfg.Addr = cfg.APIAddr
	}
	srvCfg.MockEndpoint = cfg.MockEndpointEnabled
	srv := api.NewServer(srvCfg, api.NewHandlers(api.Services{
		Boards:    container.Boards,
		ListItems: container.ListItems,
		Keys:      container.Keys,
		Accounts:  container.Accounts,
		Health:    container.Health,
		Metrics:   container.Metrics,
	}, logger), logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server error", "error", err)
			stop()
		}
	}()

	statsTicker := time.NewTicker(statsInterval)
	defer statsTicker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-statsTicker.C:
				container.Metrics.Gauge("boards.open", float64(container.Boards.Count()))
				health := container.Health.GetOverallHealth(ctx)
				logger.Info("worker stats",
					"health", health.Status,
					"boards_open", container.Boards.Count(),
					"metrics", container.Metrics.Snapshot(),
				)
			}
		}
	}()

	// Wait for shutdown
	<-ctx.Done()
	logger.Info("shutting down worker")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("api server shutdown error", "error", err)
	}
	logger.Info("worker stopped")
}
