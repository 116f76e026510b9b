package mcp

import (
	"github.com/felixgeelhaar/featureboard/adapter/cli"
	"github.com/felixgeelhaar/featureboard/internal/app"
)

// NewCLIApp creates a CLI application instance backed by the provided container.
func NewCLIApp(container *app.Container, currentUser string) *cli.App {
	cliApp := cli.NewApp(
		container.Boards,
		container.ListItems,
		container.Keys,
		container.Accounts,
	)

	cliApp.SetCurrentUserID(currentUser)
	cliApp.Widget = container.WidgetConfig()
	cliApp.OpenWidget = container.OpenWidget
	cliApp.Health = container.Health
	cliApp.Metrics = container.Metrics
	cliApp.StartRelay = container.StartRelay

	if container.Config != nil {
		cliApp.APIAddr = container.Config.APIAddr
		cliApp.MockAPI = container.Config.MockEndpointEnabled
	}

	return cliApp
}
