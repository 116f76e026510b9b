package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/featureboard/adapter/cli"
	cliAPIKey "github.com/felixgeelhaar/featureboard/adapter/cli/apikey"
	cliAuth "github.com/felixgeelhaar/featureboard/adapter/cli/auth"
	"github.com/felixgeelhaar/featureboard/adapter/cli/feedback"
	"github.com/felixgeelhaar/featureboard/adapter/cli/mcp"
	"github.com/felixgeelhaar/featureboard/adapter/cli/serve"
	cliWidget "github.com/felixgeelhaar/featureboard/adapter/cli/widget"
	"github.com/felixgeelhaar/featureboard/internal/app"
	"github.com/felixgeelhaar/featureboard/pkg/config"
	"github.com/felixgeelhaar/featureboard/pkg/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load()
	logger := observability.LoggerFromEnv()
	if err != nil {
		logger.Warn("failed to load config, using development mode", "error", err)
		cfg = &config.Config{AppEnv: "development", StorageBackend: config.StorageMemory, SignalTransport: config.TransportInProcess}
	}
	cli.SetLogger(logger)

	var cliApp *cli.App
	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		if !cfg.IsDevelopment() {
			logger.Error("failed to initialize container", "error", err)
			os.Exit(1)
		}
		// Commands report ErrNotInitialized; version and help still work.
		logger.Warn("failed to initialize container, running in limited mode", "error", err)
	} else {
		defer container.Close()

		cliApp = cli.NewApp(container.Boards, container.ListItems, container.Keys, container.Accounts)
		cliApp.SetCurrentUserID(cfg.UserID)
		cliApp.Widget = container.WidgetConfig()
		cliApp.OpenWidget = container.OpenWidget
		cliApp.Health = container.Health
		cliApp.Metrics = container.Metrics
		cliApp.StartRelay = container.StartRelay
		cliApp.APIAddr = cfg.APIAddr
		cliApp.MockAPI = cfg.MockEndpointEnabled
	}
	cli.SetApp(cliApp)

	// Register commands
	cli.AddCommand(feedback.Cmd)
	cli.AddCommand(cliWidget.Cmd)
	cli.AddCommand(cliAPIKey.Cmd)
	cli.AddCommand(cliAuth.Cmd)
	cli.AddCommand(serve.Cmd)
	cli.AddCommand(mcp.Cmd)

	cli.Execute(ctx)
}
