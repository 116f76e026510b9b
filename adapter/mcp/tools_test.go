package mcp

import (
	"context"
	"testing"
	"time"

	"github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/featureboard/adapter/cli"
	internalApp "github.com/felixgeelhaar/featureboard/internal/app"
	"github.com/felixgeelhaar/featureboard/internal/feedback/domain"
	"github.com/felixgeelhaar/featureboard/internal/widget"
	"github.com/felixgeelhaar/featureboard/pkg/config"
	"github.com/felixgeelhaar/featureboard/pkg/observability"
)

func newTestApp(t *testing.T) *cli.App {
	t.Helper()
	container, err := internalApp.NewContainer(context.Background(), &config.Config{
		StorageBackend:  config.StorageMemory,
		SignalTransport: config.TransportInProcess,
		AuthLatency:     -1,
		APIKeyCacheTTL:  time.Minute,
	}, observability.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	app := cli.NewApp(container.Boards, container.ListItems, container.Keys, container.Accounts)
	app.SetCurrentUserID("1")
	app.Widget = container.WidgetConfig()
	app.OpenWidget = container.OpenWidget
	app.Health = container.Health
	app.Metrics = container.Metrics
	return app
}

func TestRegisterCLITools_ListTools(t *testing.T) {
	srv := mcp.NewServer(mcp.ServerInfo{
		Name:    "test",
		Version: "1.0.0",
		Capabilities: mcp.Capabilities{
			Tools: true,
		},
	})

	app := &cli.App{}
	require.NoError(t, RegisterCLITools(srv, ToolDependencies{App: app}))

	tc := testutil.NewTestClient(t, srv)
	defer tc.Close()

	tools, err := tc.ListTools()
	require.NoError(t, err)

	names := make(map[any]bool, len(tools))
	for _, tool := range tools {
		names[tool["name"]] = true
	}
	for _, want := range []string{
		"cli.health", "feedback.list", "feedback.create", "feedback.update",
		"feedback.delete", "feedback.comment", "feedback.upvote", "feedback.unvote",
		"feedback.labels", "apikey.issue", "widget.list",
	} {
		assert.True(t, names[want], "%s should be registered", want)
	}
}

func TestRegisterCLITools_RequiresApp(t *testing.T) {
	srv := mcp.NewServer(mcp.ServerInfo{Name: "test", Version: "1.0.0"})
	assert.Error(t, RegisterCLITools(srv, ToolDependencies{}))
	assert.Error(t, RegisterCLITools(nil, ToolDependencies{App: &cli.App{}}))
}

func TestRegisterResourcesAndPrompts(t *testing.T) {
	srv := mcp.NewServer(mcp.ServerInfo{
		Name:         "test",
		Version:      "1.0.0",
		Capabilities: mcp.Capabilities{Resources: true, Prompts: true},
	})
	deps := ToolDependencies{App: &cli.App{}}
	assert.NoError(t, RegisterResources(srv, deps))
	assert.NoError(t, RegisterPrompts(srv, deps))
}

func TestFeedbackTools(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	item, err := createFeedback(ctx, app, feedbackCreateInput{
		Title:   "Slack integration",
		Summary: "Post new ideas to a channel",
		Labels:  []string{"feature"},
		Author:  "Ana",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPublic, item.Status)
	require.Len(t, item.Labels, 1)
	assert.Equal(t, "4", item.Labels[0].ID)

	_, err = createFeedback(ctx, app, feedbackCreateInput{Title: "No summary"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	status := "internal"
	updated, err := updateFeedback(ctx, app, feedbackUpdateInput{ID: item.ID, Status: &status})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInternal, updated.Status)

	_, err = updateFeedback(ctx, app, feedbackUpdateInput{ID: item.ID})
	assert.Error(t, err)
	_, err = updateFeedback(ctx, app, feedbackUpdateInput{ID: "missing", Status: &status})
	assert.Error(t, err)

	comment, err := commentFeedback(ctx, app, feedbackCommentInput{ID: item.ID, Content: "On the roadmap", Internal: true})
	require.NoError(t, err)
	assert.False(t, comment.IsPublic)
	assert.Equal(t, "Admin", comment.Author)

	vote, err := upvoteFeedback(ctx, app, feedbackUpvoteInput{ID: item.ID})
	require.NoError(t, err)
	assert.Equal(t, "1", vote.UserID)

	out, err := listFeedback(ctx, app, feedbackListInput{Statuses: []string{"internal"}, Where: "upvotes >= 1"})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Total)

	out, err = listFeedback(ctx, app, feedbackListInput{Public: true})
	require.NoError(t, err)
	require.Equal(t, 1, out.Total, "only the public seed item")
	assert.Equal(t, "1", out.Items[0].ID)

	_, err = listFeedback(ctx, app, feedbackListInput{Statuses: []string{"bogus"}})
	assert.Error(t, err)
	_, err = listFeedback(ctx, app, feedbackListInput{From: "17/10/2026"})
	assert.Error(t, err)
}

func TestFeedbackTools_APIKeyNamespace(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	key, err := issueAPIKey(ctx, app, apiKeyIssueInput{UserID: "2"})
	require.NoError(t, err)
	assert.True(t, domain.IsAPIKey(key.APIKey))

	_, err = createFeedback(ctx, app, feedbackCreateInput{APIKey: key.APIKey, Title: "Scoped", Summary: "Only for key"})
	require.NoError(t, err)

	scoped, err := listFeedback(ctx, app, feedbackListInput{APIKey: key.APIKey})
	require.NoError(t, err)
	assert.Equal(t, 1, scoped.Total)

	global, err := listFeedback(ctx, app, feedbackListInput{Search: "scoped"})
	require.NoError(t, err)
	assert.Equal(t, 0, global.Total)

	_, err = listFeedback(ctx, app, feedbackListInput{APIKey: "fdk_unknown"})
	assert.Error(t, err)
}

func TestWidgetTools(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	cfg, err := widgetConfig(app, widgetInput{})
	require.NoError(t, err)
	assert.Equal(t, widget.DataSourceLocal, cfg.DataSource)

	_, err = widgetConfig(app, widgetInput{DataSource: "remote"})
	assert.ErrorIs(t, err, widget.ErrInvalidConfig)

	var submitted domain.Item
	err = withWidget(ctx, app, widgetInput{}, func(w *widget.Widget) error {
		submitted, err = w.Submit(ctx, "Keyboard shortcuts", "For power users", "")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, widget.AnonymousUser, submitted.Author)
	assert.Equal(t, 0, app.Boards.Count(), "widget sessions are closed after use")

	out, err := listFeedback(ctx, app, feedbackListInput{Search: "keyboard"})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Total)
}

func TestHelpers(t *testing.T) {
	end, err := parseEndDate("2026-10-17")
	require.NoError(t, err)
	assert.Equal(t, 23, end.Hour())

	none, err := parseDate("")
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = resolveLabels([]string{"BUG", "nope"})
	assert.Error(t, err)
}
