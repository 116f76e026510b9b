package mcp

import (
	"context"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/felixgeelhaar/featureboard/adapter/cli"
	"github.com/felixgeelhaar/featureboard/internal/feedback/domain"
	"github.com/felixgeelhaar/featureboard/internal/widget"
)

type widgetInput struct {
	APIKey     string `json:"api_key,omitempty"`
	DataSource string `json:"data_source,omitempty"`
	Endpoint   string `json:"endpoint,omitempty"`
	Search     string `json:"search,omitempty"`
}

type widgetSubmitInput struct {
	APIKey      string `json:"api_key,omitempty"`
	DataSource  string `json:"data_source,omitempty"`
	Endpoint    string `json:"endpoint,omitempty"`
	Title       string `json:"title" jsonschema:"required"`
	Description string `json:"description" jsonschema:"required"`
	LabelID     string `json:"label_id,omitempty"`
}

func registerWidgetTools(srv *mcp.Server, deps ToolDependencies) error {
	app := deps.App

	srv.Tool("widget.config").
		Description("Effective widget configuration after overrides").
		Handler(func(ctx context.Context, input widgetInput) (widget.Config, error) {
			return widgetConfig(app, input)
		})

	srv.Tool("widget.list").
		Description("What the widget shows: public items, most upvoted first").
		Handler(func(ctx context.Context, input widgetInput) ([]domain.Item, error) {
			var items []domain.Item
			err := withWidget(ctx, app, input, func(w *widget.Widget) error {
				items = w.List(input.Search)
				return nil
			})
			return items, err
		})

	srv.Tool("widget.submit").
		Description("Submit an idea as an anonymous widget visitor").
		Handler(func(ctx context.Context, input widgetSubmitInput) (domain.Item, error) {
			var item domain.Item
			target := widgetInput{APIKey: input.APIKey, DataSource: input.DataSource, Endpoint: input.Endpoint}
			err := withWidget(ctx, app, target, func(w *widget.Widget) error {
				var err error
				item, err = w.Submit(ctx, input.Title, input.Description, input.LabelID)
				return err
			})
			return item, err
		})

	return nil
}

func widgetConfig(app *cli.App, input widgetInput) (widget.Config, error) {
	if app == nil {
		return widget.Config{}, cli.ErrNotInitialized
	}
	cfg := app.Widget.Merge(widget.Config{
		APIKey:     input.APIKey,
		DataSource: widget.DataSource(input.DataSource),
		Endpoint:   input.Endpoint,
	})
	if err := cfg.Validate(); err != nil {
		return widget.Config{}, err
	}
	return cfg, nil
}

func withWidget(ctx context.Context, app *cli.App, input widgetInput, fn func(w *widget.Widget) error) error {
	cfg, err := widgetConfig(app, input)
	if err != nil {
		return err
	}
	if app.OpenWidget == nil {
		return cli.ErrNotInitialized
	}
	w, err := app.OpenWidget(ctx, cfg)
	if err != nil {
		return err
	}
	if app.Boards != nil {
		defer app.Boards.Close(w.Board())
	}
	return fn(w)
}
