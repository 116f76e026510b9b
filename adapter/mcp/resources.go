package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/felixgeelhaar/featureboard/internal/feedback/application/queries"
	"github.com/felixgeelhaar/featureboard/internal/feedback/domain"
)

// RegisterResources registers MCP resources that expose board data.
func RegisterResources(srv *mcp.Server, deps ToolDependencies) error {
	if srv == nil {
		return fmt.Errorf("server is required")
	}

	if err := registerFeedbackResources(srv, deps); err != nil {
		return err
	}
	return registerSystemResources(srv, deps)
}

func registerFeedbackResources(srv *mcp.Server, deps ToolDependencies) error {
	app := deps.App

	list := func(ctx context.Context, q queries.ListItemsQuery) ([]domain.Item, error) {
		if app == nil || app.ListItems == nil {
			return nil, fmt.Errorf("feedback listing requires a board")
		}
		q.Namespace = domain.Global
		return app.ListItems.Handle(ctx, q)
	}

	srv.Resource("featureboard://feedback").
		Name("Feedback").
		Description("Every item on the global board, newest first").
		MimeType("application/json").
		Handler(func(ctx context.Context, uri string, params map[string]string) (*mcp.ResourceContent, error) {
			items, err := list(ctx, queries.ListItemsQuery{Criteria: domain.Criteria{Sort: domain.SortNewest}})
			if err != nil {
				return nil, err
			}
			return jsonResource(uri, items)
		})

	srv.Resource("featureboard://feedback/public").
		Name("Public Feedback").
		Description("What the widget shows, most upvoted first").
		MimeType("application/json").
		Handler(func(ctx context.Context, uri string, params map[string]string) (*mcp.ResourceContent, error) {
			items, err := list(ctx, queries.ListItemsQuery{
				PublicOnly: true,
				Criteria:   domain.Criteria{Sort: domain.SortMostUpvotes},
			})
			if err != nil {
				return nil, err
			}
			return jsonResource(uri, items)
		})

	srv.Resource("featureboard://feedback/pending").
		Name("Pending Feedback").
		Description("Items waiting for triage").
		MimeType("application/json").
		Handler(func(ctx context.Context, uri string, params map[string]string) (*mcp.ResourceContent, error) {
			items, err := list(ctx, queries.ListItemsQuery{
				Criteria: domain.Criteria{Statuses: []domain.Status{domain.StatusPending}, Sort: domain.SortOldest},
			})
			if err != nil {
				return nil, err
			}
			return jsonResource(uri, items)
		})

	srv.Resource("featureboard://labels").
		Name("Labels").
		Description("The labels items can carry").
		MimeType("application/json").
		Handler(func(ctx context.Context, uri string, params map[string]string) (*mcp.ResourceContent, error) {
			return jsonResource(uri, domain.BuiltinLabels())
		})

	return nil
}

func registerSystemResources(srv *mcp.Server, deps ToolDependencies) error {
	app := deps.App

	srv.Resource("featureboard://widget/config").
		Name("Widget Configuration").
		Description("The widget configuration embedders get by default").
		MimeType("application/json").
		Handler(func(ctx context.Context, uri string, params map[string]string) (*mcp.ResourceContent, error) {
			if app == nil {
				return nil, fmt.Errorf("app not initialized")
			}
			cfg := app.Widget
			cfg.APIKey = ""
			return jsonResource(uri, cfg)
		})

	return nil
}

func jsonResource(uri string, v any) (*mcp.ResourceContent, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return &mcp.ResourceContent{
		URI:      uri,
		MimeType: "application/json",
		Text:     string(data),
	}, nil
}
