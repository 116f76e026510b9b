package feedback

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/featureboard/adapter/cli"
	internalApp "github.com/felixgeelhaar/featureboard/internal/app"
	"github.com/felixgeelhaar/featureboard/internal/feedback/domain"
	"github.com/felixgeelhaar/featureboard/pkg/config"
	"github.com/felixgeelhaar/featureboard/pkg/observability"
)

func setupTestApp(t *testing.T) (*cli.App, *internalApp.Container) {
	t.Helper()

	cfg := &config.Config{
		AppEnv:          "test",
		StorageBackend:  config.StorageMemory,
		SignalTransport: config.TransportInProcess,
		UserID:          "1",
		AuthLatency:     -1,
		APIKeyCacheTTL:  time.Minute,
	}
	container, err := internalApp.NewContainer(context.Background(), cfg, observability.Discard())
	require.NoError(t, err)

	app := cli.NewApp(container.Boards, container.ListItems, container.Keys, container.Accounts)
	app.SetCurrentUserID(cfg.UserID)
	cli.SetApp(app)
	t.Cleanup(func() {
		cli.SetApp(nil)
		_ = container.Close()
		resetFlags()
	})
	return app, container
}

func resetFlags() {
	apiKey = ""
	search, sortBy, from, to, where = "", "", "", "", ""
	statuses, labelRefs = nil, nil
	publicOnly, asJSON = false, false
	createSummary, createStatus, createAuthor = "", "", ""
	createLabels = nil
	commentAuthor, commentInternal = "Admin", false
	voterID, voterName = "", ""
	watchCount = 0
}

func run(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetContext(context.Background())
	err := cmd.RunE(cmd, args)
	return out.String(), err
}

func TestListCommand(t *testing.T) {
	setupTestApp(t)

	out, err := run(t, listCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "gcjgv")
	assert.Contains(t, out, "FIX,ANNOUNCEMENT")

	search = "nothing-matches"
	out, err = run(t, listCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "No feedback found.")

	search = ""
	sortBy = "sideways"
	_, err = run(t, listCmd)
	assert.Error(t, err)

	sortBy = ""
	statuses = []string{"bogus"}
	_, err = run(t, listCmd)
	assert.Error(t, err)
}

func TestCreateCommand(t *testing.T) {
	app, _ := setupTestApp(t)
	ctx := context.Background()

	createSummary = "Please add a dark theme"
	createLabels = []string{"feature", "5"}
	out, err := run(t, createCmd, "Dark mode")
	require.NoError(t, err)
	assert.Contains(t, out, "Feedback created:")

	board, err := app.Board(ctx, "")
	require.NoError(t, err)
	items := board.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "Dark mode", items[0].Title)
	assert.Equal(t, "FEATURE,BUG", labelNames(items[0].Labels))

	createSummary = ""
	_, err = run(t, createCmd, "No summary")
	assert.ErrorIs(t, err, domain.ErrValidation)

	createSummary = "x"
	createLabels = []string{"NOPE"}
	_, err = run(t, createCmd, "Bad label")
	assert.Error(t, err)
}

func TestUpdateDeleteCommands(t *testing.T) {
	app, _ := setupTestApp(t)
	board, err := app.Board(context.Background(), "")
	require.NoError(t, err)

	require.NoError(t, updateCmd.Flags().Set("status", "archived"))
	t.Cleanup(func() { updateCmd.Flags().Lookup("status").Changed = false })

	_, err = run(t, updateCmd, "1")
	require.NoError(t, err)
	item, ok := board.Get("1")
	require.True(t, ok)
	assert.Equal(t, domain.StatusArchived, item.Status)

	_, err = run(t, updateCmd, "missing")
	assert.Error(t, err)

	out, err := run(t, deleteCmd, "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Feedback deleted: 1")
	assert.Empty(t, board.Items())

	_, err = run(t, deleteCmd, "1")
	assert.Error(t, err)
}

func TestCommentAndVoteCommands(t *testing.T) {
	app, _ := setupTestApp(t)
	board, err := app.Board(context.Background(), "")
	require.NoError(t, err)

	commentInternal = true
	out, err := run(t, commentCmd, "1", "Looking into it")
	require.NoError(t, err)
	assert.Contains(t, out, "(internal)")

	out, err = run(t, upvoteCmd, "1")
	require.NoError(t, err)
	assert.Contains(t, out, "as 1 (2 votes)")

	out, err = run(t, unvoteCmd, "1")
	require.NoError(t, err)
	assert.Contains(t, out, "(1 votes)")

	out, err = run(t, unvoteCmd, "1")
	require.NoError(t, err)
	assert.Contains(t, out, "No upvote from 1")

	item, _ := board.Get("1")
	assert.Len(t, item.Comments, 2)
	assert.False(t, item.Comments[1].IsPublic)
}

func TestNamespaceSelection(t *testing.T) {
	app, container := setupTestApp(t)
	ctx := context.Background()

	key, err := container.Keys.GetOrCreateAPIKey(ctx, "1")
	require.NoError(t, err)

	apiKey = key
	createSummary = "Scoped"
	_, err = run(t, createCmd, "Widget only")
	require.NoError(t, err)

	scoped, err := app.Board(ctx, key)
	require.NoError(t, err)
	assert.Len(t, scoped.Items(), 1)

	global, err := app.Board(ctx, "")
	require.NoError(t, err)
	assert.Len(t, global.Items(), 1)
	assert.Equal(t, "1", global.Items()[0].ID)

	apiKey = "fdk_unknown"
	_, err = run(t, listCmd)
	assert.Error(t, err)

	apiKey = "sk_live"
	_, err = run(t, listCmd)
	assert.Error(t, err)
}

func TestWatchCommand(t *testing.T) {
	app, _ := setupTestApp(t)
	ctx := context.Background()

	watchCount = 1
	var out bytes.Buffer
	watchCmd.SetOut(&out)
	watchCmd.SetContext(ctx)

	done := make(chan error, 1)
	go func() { done <- watchCmd.RunE(watchCmd, nil) }()

	board, err := app.Board(ctx, "")
	require.NoError(t, err)

	var runErr error
	require.Eventually(t, func() bool {
		select {
		case runErr = <-done:
			return true
		default:
			board.AddUpvote(ctx, "1", domain.UpvoteInput{UserID: "watcher"})
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, runErr)
	assert.Contains(t, out.String(), "Watching global")
	assert.Contains(t, out.String(), "upvotes")
}

func TestWatchCommand_StartsRelay(t *testing.T) {
	app, _ := setupTestApp(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var started bool
	app.StartRelay = func(context.Context) { started = true }

	watchCmd.SetOut(&bytes.Buffer{})
	watchCmd.SetContext(ctx)
	require.NoError(t, watchCmd.RunE(watchCmd, nil))
	assert.True(t, started)
}

func TestCommandsWithoutApp(t *testing.T) {
	cli.SetApp(nil)
	for _, cmd := range []*cobra.Command{listCmd, createCmd, deleteCmd, watchCmd} {
		_, err := run(t, cmd, "x", "y")
		assert.ErrorIs(t, err, cli.ErrNotInitialized, cmd.Name())
	}
}
