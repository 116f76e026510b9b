package queries

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/featureboard/internal/feedback/application"
	"github.com/felixgeelhaar/featureboard/internal/feedback/domain"
	"github.com/felixgeelhaar/featureboard/internal/feedback/infrastructure/persistence"
	"github.com/felixgeelhaar/featureboard/internal/shared/infrastructure/slots"
	"github.com/felixgeelhaar/featureboard/pkg/observability"
)

func setup(t *testing.T) (*ListItemsHandler, *application.Board) {
	t.Helper()
	ctx := context.Background()
	store := persistence.NewStore(slots.NewMemoryStore(), observability.Discard())
	boards := application.NewBoards(store, nil, nil, observability.Discard(), nil)
	board := boards.Get(ctx, domain.Global)

	// Start from an empty board rather than the seed list.
	for _, it := range board.Items() {
		board.Delete(ctx, it.ID)
	}

	a, err := board.Create(ctx, domain.Draft{Title: "Dark mode", Summary: "Theme", Labels: domain.LabelsByID([]string{"4"})})
	require.NoError(t, err)
	b, err := board.Create(ctx, domain.Draft{Title: "Crash", Summary: "On login", Status: domain.StatusInternal, Labels: domain.LabelsByID([]string{"5"})})
	require.NoError(t, err)
	for n := 0; n < 3; n++ {
		board.AddUpvote(ctx, b.ID, domain.UpvoteInput{UserID: "u"})
	}
	_, err = board.AddComment(ctx, a.ID, domain.CommentInput{Content: "hidden", IsPublic: false})
	require.NoError(t, err)

	return NewListItemsHandler(boards), board
}

func titles(items []domain.Item) []string {
	out := make([]string, len(items))
	for n, it := range items {
		out[n] = it.Title
	}
	return out
}

func TestListItems(t *testing.T) {
	h, _ := setup(t)
	ctx := context.Background()

	t.Run("criteria", func(t *testing.T) {
		got, err := h.Handle(ctx, ListItemsQuery{Criteria: domain.Criteria{Sort: domain.SortMostUpvotes}})
		require.NoError(t, err)
		assert.Equal(t, []string{"Crash", "Dark mode"}, titles(got))
	})

	t.Run("where predicate", func(t *testing.T) {
		got, err := h.Handle(ctx, ListItemsQuery{Where: `upvotes >= 3 and "BUG" in labels`})
		require.NoError(t, err)
		assert.Equal(t, []string{"Crash"}, titles(got))

		got, err = h.Handle(ctx, ListItemsQuery{Where: `status == "public" and comments == 1`})
		require.NoError(t, err)
		assert.Equal(t, []string{"Dark mode"}, titles(got))
	})

	t.Run("invalid predicate", func(t *testing.T) {
		_, err := h.Handle(ctx, ListItemsQuery{Where: `upvotes +`})
		assert.ErrorIs(t, err, domain.ErrValidation)

		_, err = h.Handle(ctx, ListItemsQuery{Where: `title`})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("invalid sort", func(t *testing.T) {
		_, err := h.Handle(ctx, ListItemsQuery{Criteria: domain.Criteria{Sort: "hot"}})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("public projection", func(t *testing.T) {
		got, err := h.Handle(ctx, ListItemsQuery{PublicOnly: true})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Empty(t, got[0].Comments)
	})
}

func TestListItems_CachesPrograms(t *testing.T) {
	h, _ := setup(t)
	_, err := h.Handle(context.Background(), ListItemsQuery{Where: `upvotes > 0`})
	require.NoError(t, err)
	assert.Equal(t, 1, h.programs.ItemCount())
	_, err = h.Handle(context.Background(), ListItemsQuery{Where: `upvotes > 0`})
	require.NoError(t, err)
	assert.Equal(t, 1, h.programs.ItemCount())
}
