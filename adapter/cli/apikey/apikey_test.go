package apikey

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/featureboard/adapter/cli"
	internalApp "github.com/felixgeelhaar/featureboard/internal/app"
	"github.com/felixgeelhaar/featureboard/pkg/config"
	"github.com/felixgeelhaar/featureboard/pkg/observability"
)

func setup(t *testing.T) {
	t.Helper()
	container, err := internalApp.NewContainer(context.Background(), &config.Config{
		StorageBackend:  config.StorageMemory,
		SignalTransport: config.TransportInProcess,
		APIKeyCacheTTL:  time.Minute,
	}, observability.Discard())
	require.NoError(t, err)

	app := cli.NewApp(container.Boards, container.ListItems, container.Keys, container.Accounts)
	app.SetCurrentUserID("1")
	cli.SetApp(app)
	t.Cleanup(func() {
		cli.SetApp(nil)
		userID = ""
		_ = container.Close()
	})
}

func run(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetContext(context.Background())
	err := cmd.RunE(cmd, args)
	return strings.TrimSpace(out.String()), err
}

func TestAPIKeyCommand(t *testing.T) {
	setup(t)

	key, err := run(t, Cmd)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "fdk_"))

	again, err := run(t, Cmd)
	require.NoError(t, err)
	assert.Equal(t, key, again, "keys are stable per user")

	userID = "2"
	other, err := run(t, Cmd)
	require.NoError(t, err)
	assert.NotEqual(t, key, other)

	out, err := run(t, resolveCmd, key)
	require.NoError(t, err)
	assert.Equal(t, "user: 1", out)

	_, err = run(t, resolveCmd, "fdk_nobody")
	assert.Error(t, err)
}

func TestAPIKeyCommand_NoApp(t *testing.T) {
	cli.SetApp(nil)
	_, err := run(t, Cmd)
	assert.ErrorIs(t, err, cli.ErrNotInitialized)
}
