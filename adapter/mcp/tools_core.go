package mcp

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/felixgeelhaar/featureboard/pkg/observability"
)

type healthOutput struct {
	Status string                                     `json:"status"`
	Checks map[string]observability.HealthCheckResult `json:"checks,omitempty"`
}

func registerCoreTools(srv *mcp.Server, deps ToolDependencies) error {
	app := deps.App

	srv.Tool("cli.health").
		Description("Check wiring and component health").
		Handler(func(ctx context.Context, input struct{}) (healthOutput, error) {
			if app == nil {
				return healthOutput{}, errors.New("app not initialized")
			}
			if app.Health == nil {
				return healthOutput{Status: "ok"}, nil
			}
			overall := app.Health.GetOverallHealth(ctx)
			return healthOutput{Status: string(overall.Status), Checks: overall.Checks}, nil
		})

	srv.Tool("cli.metrics").
		Description("Snapshot of the in-process counters and gauges").
		Handler(func(ctx context.Context, input struct{}) (map[string]float64, error) {
			if app == nil || app.Metrics == nil {
				return map[string]float64{}, nil
			}
			return app.Metrics.Snapshot(), nil
		})

	return nil
}
