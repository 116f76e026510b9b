package persistence

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/featureboard/internal/feedback/domain"
	"github.com/felixgeelhaar/featureboard/internal/shared/infrastructure/database"
	_ "github.com/felixgeelhaar/featureboard/internal/shared/infrastructure/database/sqlite"
	"github.com/felixgeelhaar/featureboard/internal/shared/infrastructure/migrations"
	"github.com/felixgeelhaar/featureboard/internal/shared/infrastructure/slots"
	"github.com/felixgeelhaar/featureboard/pkg/observability"
)

var fixedNow = time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

func newStore(t *testing.T) (*Store, *slots.MemoryStore, *observability.InMemoryMetrics) {
	t.Helper()
	mem := slots.NewMemoryStore()
	metrics := observability.NewInMemoryMetrics()
	store := NewStore(mem, observability.Discard(),
		WithMetrics(metrics),
		WithClock(func() time.Time { return fixedNow }),
	)
	return store, mem, metrics
}

func sampleItem() domain.Item {
	created := time.Date(2025, 5, 1, 8, 0, 0, 123000000, time.UTC)
	return domain.Item{
		ID:        "1748764800000",
		Title:     "Dark mode",
		Summary:   "Please add it",
		Status:    domain.StatusPublic,
		Labels:    domain.LabelsByID([]string{"4"}),
		CreatedAt: created,
		UpdatedAt: created.Add(time.Hour),
		Author:    "Admin",
		Upvotes:   []domain.Upvote{{ID: "u1", UserID: "2", UserName: "Jane", CreatedAt: created.Add(time.Minute)}},
		Comments:  []domain.Comment{{ID: "c1", Content: "yes", Author: "Admin", IsPublic: true, CreatedAt: created.Add(2 * time.Minute)}},
	}
}

func TestStore_GlobalFallsBackToSeed(t *testing.T) {
	ctx := context.Background()

	t.Run("missing slot", func(t *testing.T) {
		store, _, _ := newStore(t)
		items, err := store.Load(ctx, domain.Global)
		require.NoError(t, err)
		assert.Equal(t, domain.SeedItems(fixedNow), items)
	})

	t.Run("malformed slot", func(t *testing.T) {
		store, mem, metrics := newStore(t)
		require.NoError(t, mem.Set(ctx, SlotRequests, []byte(`{not json`)))

		items, err := store.Load(ctx, domain.Global)
		require.NoError(t, err)
		assert.Equal(t, domain.SeedItems(fixedNow), items)
		assert.Equal(t, int64(1), metrics.GetCounter(observability.MetricMalformedSlots, observability.T("slot", SlotRequests)))
	})
}

func TestStore_GlobalRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, mem, _ := newStore(t)
	item := sampleItem()

	require.NoError(t, store.Save(ctx, []domain.Item{item}, domain.Global))

	raw, err := mem.Get(ctx, SlotRequests)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"createdAt":"2025-05-01T08:00:00.123Z"`)
	assert.Contains(t, string(raw), `"isPublic":true`)

	items, err := store.Load(ctx, domain.Global)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, item.CreatedAt.Equal(items[0].CreatedAt))
	assert.True(t, item.Upvotes[0].CreatedAt.Equal(items[0].Upvotes[0].CreatedAt))
	assert.True(t, item.Comments[0].CreatedAt.Equal(items[0].Comments[0].CreatedAt))
	assert.Equal(t, item.Labels, items[0].Labels)
}

func TestStore_EmptyGlobalListIsKept(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newStore(t)

	require.NoError(t, store.Save(ctx, nil, domain.Global))
	items, err := store.Load(ctx, domain.Global)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestStore_LoadsISOStringsWrittenByOtherClients(t *testing.T) {
	ctx := context.Background()
	store, mem, _ := newStore(t)
	require.NoError(t, mem.Set(ctx, SlotRequests, []byte(`[{"id":"9","title":"t","summary":"s","status":"public",
		"labels":[],"createdAt":"2024-01-02T03:04:05.000Z","updatedAt":"2024-01-02T03:04:05.000Z","author":"x",
		"upvotes":[{"id":"1","userId":"1","userName":"a","createdAt":"2024-01-03T00:00:00.000Z"}],"comments":[]}]`)))

	items, err := store.Load(ctx, domain.Global)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), items[0].CreatedAt.UTC())
	assert.Equal(t, 3, items[0].Upvotes[0].CreatedAt.Day())
}

func TestStore_APIKeyNamespaces(t *testing.T) {
	ctx := context.Background()
	store, mem, _ := newStore(t)
	a := domain.ForAPIKey("fdk_a")
	b := domain.ForAPIKey("fdk_b")

	items, err := store.Load(ctx, a)
	require.NoError(t, err)
	assert.Empty(t, items)

	require.NoError(t, store.InitNamespace(ctx, b))
	require.NoError(t, store.Save(ctx, []domain.Item{sampleItem()}, a))

	got, err := store.Load(ctx, a)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = store.Load(ctx, b)
	require.NoError(t, err)
	assert.Empty(t, got)

	// InitNamespace never clobbers existing data.
	require.NoError(t, store.InitNamespace(ctx, a))
	got, err = store.Load(ctx, a)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	// Per-key data never touches the global slot.
	_, err = mem.Get(ctx, SlotRequests)
	assert.ErrorIs(t, err, slots.ErrNotFound)
}

func TestStore_MalformedAPIDataYieldsEmpty(t *testing.T) {
	ctx := context.Background()
	store, mem, metrics := newStore(t)
	require.NoError(t, mem.Set(ctx, SlotAPIData, []byte(`{"fdk_a":"oops"}`)))

	items, err := store.Load(ctx, domain.ForAPIKey("fdk_a"))
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, int64(1), metrics.GetCounter(observability.MetricMalformedSlots, observability.T("slot", SlotAPIData)))

	require.NoError(t, mem.Set(ctx, SlotAPIData, []byte(`[]`)))
	items, err = store.Load(ctx, domain.ForAPIKey("fdk_a"))
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestStore_SQLiteWithUnitOfWork(t *testing.T) {
	ctx := context.Background()
	conn, err := database.NewConnection(ctx, database.Config{
		Driver:     database.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "board.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, migrations.Run(ctx, conn, migrations.DefaultTable))

	store := NewStore(slots.NewSQLStore(conn, migrations.DefaultTable), observability.Discard(),
		WithUnitOfWork(database.NewUnitOfWork(conn)))
	ns := domain.ForAPIKey("fdk_sql")

	require.NoError(t, store.InitNamespace(ctx, ns))
	require.NoError(t, store.Save(ctx, []domain.Item{sampleItem()}, ns))

	items, err := store.Load(ctx, ns)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Dark mode", items[0].Title)
}
