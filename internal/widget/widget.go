package widget

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/felixgeelhaar/featureboard/internal/feedback/application"
	"github.com/felixgeelhaar/featureboard/internal/feedback/domain"
	"github.com/felixgeelhaar/featureboard/internal/feedback/infrastructure/persistence"
	"github.com/felixgeelhaar/featureboard/pkg/observability"
)

// AnonymousUser is the author of everything submitted through the widget.
const AnonymousUser = "Anonymous User"

// Widget is the public face of one board.
type Widget struct {
	cfg   Config
	board *application.Board
	seq   *domain.Sequence
}

// New wraps board. The config must already be valid.
func New(cfg Config, board *application.Board) *Widget {
	return &Widget{cfg: cfg, board: board, seq: domain.ProcessSequence()}
}

// Open validates cfg and opens a board for it: a session over local when the
// data source is local, or a board over the remote endpoint.
func Open(ctx context.Context, cfg Config, local *application.Boards, client *http.Client, logger *slog.Logger, metrics observability.Metrics) (*Widget, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.DataSource == DataSourceLocal {
		return New(cfg, local.Open(ctx, cfg.Namespace())), nil
	}

	rcfg := persistence.DefaultRemoteConfig(cfg.Endpoint)
	rcfg.APIKey = cfg.APIKey
	remote := persistence.NewRemoteSource(rcfg, client, logger, metrics)
	board := application.NewBoard(ctx, cfg.Namespace(), remote,
		application.WithBoardLogger(logger),
		application.WithBoardMetrics(metrics),
	)
	return New(cfg, board), nil
}

// Config returns the widget configuration.
func (w *Widget) Config() Config { return w.cfg }

// Board returns the underlying board.
func (w *Widget) Board() *application.Board { return w.board }

// List returns public items matching search, most upvoted first.
func (w *Widget) List(search string) []domain.Item {
	items := domain.PublicItems(w.board.Items(), domain.BuiltinLabels())
	return domain.Filter(items, domain.Criteria{Search: search, Sort: domain.SortMostUpvotes})
}

// Submit files a public idea. labelID may be empty.
func (w *Widget) Submit(ctx context.Context, title, description, labelID string) (domain.Item, error) {
	var labels []domain.Label
	if labelID != "" {
		l, ok := domain.LabelByID(labelID)
		if !ok {
			return domain.Item{}, fmt.Errorf("%w: unknown label %q", domain.ErrValidation, labelID)
		}
		labels = []domain.Label{l}
	}
	return w.board.Create(ctx, domain.Draft{
		Title:   title,
		Summary: description,
		Status:  domain.StatusPublic,
		Author:  AnonymousUser,
		Labels:  labels,
	})
}

// Upvote adds an anonymous vote under a fresh visitor id.
func (w *Widget) Upvote(ctx context.Context, itemID string) domain.Upvote {
	_, id := w.seq.Next()
	return w.board.AddUpvote(ctx, itemID, domain.UpvoteInput{UserID: "user-" + id, UserName: AnonymousUser})
}

// Comment adds a public anonymous comment.
func (w *Widget) Comment(ctx context.Context, itemID, content string) (domain.Comment, error) {
	return w.board.AddComment(ctx, itemID, domain.CommentInput{Content: content, Author: AnonymousUser, IsPublic: true})
}

// OnChange calls fn with the public list after every change.
func (w *Widget) OnChange(fn func(items []domain.Item)) func() {
	return w.board.OnChange(func(items []domain.Item) {
		fn(domain.PublicItems(items, domain.BuiltinLabels()))
	})
}
