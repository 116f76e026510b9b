package app

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/featureboard/internal/feedback/application"
	"github.com/felixgeelhaar/featureboard/internal/feedback/domain"
	"github.com/felixgeelhaar/featureboard/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/featureboard/internal/widget"
	"github.com/felixgeelhaar/featureboard/pkg/config"
	"github.com/felixgeelhaar/featureboard/pkg/observability"
)

func testConfig(backend string) *config.Config {
	return &config.Config{
		AppEnv:          "test",
		LogLevel:        "error",
		UserID:          "1",
		StorageBackend:  backend,
		SlotTable:       "storage_slots",
		SignalTransport: config.TransportInProcess,
		AuthLatency:     -1,
		APIKeyCacheTTL:  time.Minute,
		RemoteTimeout:   time.Second,
	}
}

func newTestContainer(t *testing.T, cfg *config.Config) *Container {
	t.Helper()
	c, err := NewContainer(context.Background(), cfg, observability.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNewContainer_Memory(t *testing.T) {
	ctx := context.Background()
	c := newTestContainer(t, testConfig(config.StorageMemory))

	board := c.Boards.Get(ctx, domain.Global)
	require.Len(t, board.Items(), 1, "global namespace starts with the seed item")

	_, err := board.Create(ctx, domain.Draft{Title: "Export", Summary: "CSV export please"})
	require.NoError(t, err)

	stored, err := c.FeedbackStore.Load(ctx, domain.Global)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
	assert.Equal(t, int64(1), c.Metrics.GetCounter(observability.MetricBoardMutations,
		observability.T("namespace", "global"), observability.T("op", "create")))
}

func TestNewContainer_SQLite(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(config.StorageSQLite)
	cfg.SQLitePath = filepath.Join(t.TempDir(), "featureboard.db")
	c := newTestContainer(t, cfg)

	key, err := c.Keys.GetOrCreateAPIKey(ctx, cfg.UserID)
	require.NoError(t, err)
	ns := domain.ForAPIKey(key)

	items, err := c.FeedbackStore.Load(ctx, ns)
	require.NoError(t, err)
	assert.Empty(t, items)

	health := c.Health.GetOverallHealth(ctx)
	assert.Equal(t, observability.HealthStatusHealthy, health.Status)
	assert.Contains(t, health.Checks, "database")

	user, err := c.Accounts.Login(ctx, "admin@example.com", "admin123")
	require.NoError(t, err)
	assert.Equal(t, "1", user.ID)
}

func TestContainer_WidgetSync(t *testing.T) {
	ctx := context.Background()
	c := newTestContainer(t, testConfig(config.StorageMemory))

	key, err := c.Keys.GetOrCreateAPIKey(ctx, "1")
	require.NoError(t, err)

	cfg := c.WidgetConfig()
	cfg.APIKey = key
	w, err := c.OpenWidget(ctx, cfg)
	require.NoError(t, err)

	admin := c.Boards.Get(ctx, domain.ForAPIKey(key))
	_, err = admin.Create(ctx, domain.Draft{Title: "Visible", Summary: "From the admin"})
	require.NoError(t, err)

	assert.Len(t, w.List(""), 1, "widget session picks up the admin change")
}

func TestContainer_WidgetConfig(t *testing.T) {
	cfg := testConfig(config.StorageMemory)
	cfg.WidgetTheme = "dark"
	cfg.WidgetTitle = "Ideas"
	c := newTestContainer(t, cfg)

	wc := c.WidgetConfig()
	assert.Equal(t, widget.ThemeDark, wc.Theme)
	assert.Equal(t, "Ideas", wc.Title)
	assert.Equal(t, widget.PositionBottomRight, wc.Position)
}

func TestNewContainer_Errors(t *testing.T) {
	_, err := NewContainer(context.Background(), testConfig("cassandra"), observability.Discard())
	assert.Error(t, err)

	cfg := testConfig(config.StorageMemory)
	cfg.SignalTransport = "carrier-pigeon"
	_, err = NewContainer(context.Background(), cfg, observability.Discard())
	assert.Error(t, err)

	cfg = testConfig(config.StoragePostgres)
	_, err = NewContainer(context.Background(), cfg, observability.Discard())
	assert.Error(t, err)
}

func TestContainer_SharedSQLiteReloadsOtherProcess(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := filepath.Join(t.TempDir(), "featureboard.db")
	cfgA := testConfig(config.StorageSQLite)
	cfgA.SQLitePath = path
	cfgA.SlotPollInterval = 20 * time.Millisecond
	cfgB := *cfgA

	reader := newTestContainer(t, cfgA)
	writer := newTestContainer(t, &cfgB)
	require.NotNil(t, reader.Watcher)
	assert.Nil(t, reader.Relay)

	board := reader.Boards.Get(ctx, domain.Global)
	require.Len(t, board.Items(), 1)
	require.NoError(t, reader.Watcher.Poll(ctx))
	reader.StartRelay(ctx)

	_, err := writer.Boards.Get(ctx, domain.Global).Create(ctx, domain.Draft{Title: "Export", Summary: "CSV export please"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return len(board.Items()) == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNewContainer_NoWatcherForMemoryOrZeroInterval(t *testing.T) {
	cfg := testConfig(config.StorageMemory)
	cfg.SlotPollInterval = time.Second
	assert.Nil(t, newTestContainer(t, cfg).Watcher)

	cfg = testConfig(config.StorageSQLite)
	cfg.SQLitePath = filepath.Join(t.TempDir(), "featureboard.db")
	assert.Nil(t, newTestContainer(t, cfg).Watcher)
}

type originRecorder struct {
	mu    sync.Mutex
	count int
}

func (r *originRecorder) EventTypes() []string { return []string{application.SignalChanged} }

func (r *originRecorder) Handle(ctx context.Context, event *eventbus.ConsumedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
	return nil
}

func (r *originRecorder) seen() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

func TestContainer_RedisRelayReloadsOtherProcess(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testConfig(config.StorageRedis)
	cfg.SignalTransport = config.TransportRedis
	cfg.RedisURL = "redis://" + mr.Addr() + "/0"
	cfgB := *cfg

	reader := newTestContainer(t, cfg)
	writer := newTestContainer(t, &cfgB)
	require.NotEqual(t, reader.Origin, writer.Origin)
	require.Nil(t, reader.Watcher)

	board := reader.Boards.Get(ctx, domain.Global)
	require.Len(t, board.Items(), 1)

	echoes := &originRecorder{}
	writer.Bus.RegisterConsumer(echoes)

	reader.StartRelay(ctx)
	writer.StartRelay(ctx)
	require.Eventually(t, func() bool { return mr.PubSubNumPat() == 2 }, 2*time.Second, 10*time.Millisecond)

	_, err := writer.Boards.Get(ctx, domain.Global).Create(ctx, domain.Draft{Title: "Export", Summary: "CSV export please"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return len(board.Items()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	// the writer sees its own signal once, locally; the relayed copy is dropped
	assert.Never(t, func() bool { return echoes.seen() > 1 }, 100*time.Millisecond, 10*time.Millisecond)
	assert.Equal(t, 1, echoes.seen())
}
