// Package serve runs the HTTP API from the CLI.
package serve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/featureboard/adapter/api"
	"github.com/felixgeelhaar/featureboard/adapter/cli"
)

const shutdownTimeout = 10 * time.Second

var (
	addr   string
	noMock bool
)

// Cmd serves the feedback API until interrupted.
var Cmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the feedback HTTP API",
	Long: `Serve the feedback API, the account endpoints and the mock widget
endpoint. Change signals from other processes are relayed into open boards
while the server runs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.Boards == nil {
			return cli.ErrNotInitialized
		}
		ctx := cmd.Context()
		srv := newServer(app)

		if app.StartRelay != nil {
			app.StartRelay(ctx)
		}

		errCh := make(chan error, 1)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()
		fmt.Fprintf(cmd.OutOrStdout(), "Serving feedback API on %s\n", listenAddr(app))

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func listenAddr(app *cli.App) string {
	if addr != "" {
		return addr
	}
	if app.APIAddr != "" {
		return app.APIAddr
	}
	return api.DefaultServerConfig().Addr
}

func newServer(app *cli.App) *api.Server {
	cfg := api.DefaultServerConfig()
	cfg.Addr = listenAddr(app)
	cfg.MockEndpoint = app.MockAPI && !noMock

	handlers := api.NewHandlers(api.Services{
		Boards:    app.Boards,
		ListItems: app.ListItems,
		Keys:      app.Keys,
		Accounts:  app.Accounts,
		Health:    app.Health,
		Metrics:   app.Metrics,
	}, cli.Logger())
	return api.NewServer(cfg, handlers, cli.Logger())
}

func init() {
	Cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from API_ADDR)")
	Cmd.Flags().BoolVar(&noMock, "no-mock", false, "disable the mock widget endpoint")
}
