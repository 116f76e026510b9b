// Package application implements the feedback board: the per-namespace
// working copy that applies mutations, persists them and keeps every live
// board in sync through change signals.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/felixgeelhaar/featureboard/internal/feedback/domain"
	"github.com/felixgeelhaar/featureboard/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/featureboard/pkg/observability"
	"github.com/google/uuid"
)

// Operation names used in signals, logs and metrics.
const (
	OpCreate       = "create"
	OpUpdate       = "update"
	OpDelete       = "delete"
	OpComment      = "comment"
	OpUpvote       = "upvote"
	OpRemoveUpvote = "remove_upvote"
	OpExternal     = "external"
)

// ChangeFunc receives the full list after every change.
type ChangeFunc func(items []domain.Item)

// Board holds the item list of one namespace. Methods are safe for
// concurrent use and are applied one at a time.
type Board struct {
	mu    sync.Mutex
	items []domain.Item

	id        string
	ns        domain.Namespace
	source    domain.Source
	submitter domain.Submitter
	signaler  *Signaler
	seq       *domain.Sequence
	logger    *slog.Logger
	metrics   observability.Metrics

	listenersMu sync.Mutex
	listeners   map[int]ChangeFunc
	nextID      int

	lastEvent uuid.UUID
}

// BoardOption configures a Board.
type BoardOption func(*Board)

// WithSignaler announces changes to other boards.
func WithSignaler(s *Signaler) BoardOption {
	return func(b *Board) { b.signaler = s }
}

// WithSequence overrides the id/timestamp source.
func WithSequence(seq *domain.Sequence) BoardOption {
	return func(b *Board) {
		if seq != nil {
			b.seq = seq
		}
	}
}

// WithBoardLogger sets the logger.
func WithBoardLogger(l *slog.Logger) BoardOption {
	return func(b *Board) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithBoardMetrics sets the metrics sink.
func WithBoardMetrics(m observability.Metrics) BoardOption {
	return func(b *Board) {
		if m != nil {
			b.metrics = m
		}
	}
}

// NewBoard creates a board for ns and loads its list. A load failure is
// logged and leaves the board empty.
func NewBoard(ctx context.Context, ns domain.Namespace, source domain.Source, opts ...BoardOption) *Board {
	b := &Board{
		id:        uuid.NewString(),
		ns:        ns,
		source:    source,
		seq:       domain.ProcessSequence(),
		logger:    slog.Default(),
		metrics:   observability.NoopMetrics{},
		listeners: make(map[int]ChangeFunc),
		items:     []domain.Item{},
	}
	for _, opt := range opts {
		opt(b)
	}
	if sub, ok := source.(domain.Submitter); ok {
		b.submitter = sub
	}
	b.logger = b.logger.With("board", b.id, "namespace", ns.String())

	items, err := source.Load(ctx, ns)
	if err != nil {
		b.logger.ErrorContext(ctx, "failed to load board", "error", err)
	} else {
		b.items = items
	}
	return b
}

// ID identifies the board in signals it emits.
func (b *Board) ID() string { return b.id }

// Namespace returns the namespace the board is bound to.
func (b *Board) Namespace() domain.Namespace { return b.ns }

// Items returns a copy of the current list.
func (b *Board) Items() []domain.Item {
	b.mu.Lock()
	defer b.mu.Unlock()
	return domain.CloneItems(b.items)
}

// Get returns a copy of one item.
func (b *Board) Get(id string) (domain.Item, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n := indexOf(b.items, id); n >= 0 {
		return b.items[n].Clone(), true
	}
	return domain.Item{}, false
}

// OnChange registers fn and returns a function that removes it.
func (b *Board) OnChange(fn ChangeFunc) func() {
	b.listenersMu.Lock()
	defer b.listenersMu.Unlock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = fn
	return func() {
		b.listenersMu.Lock()
		defer b.listenersMu.Unlock()
		delete(b.listeners, id)
	}
}

// Create validates draft and prepends a new item.
func (b *Board) Create(ctx context.Context, draft domain.Draft) (domain.Item, error) {
	if err := draft.Validate(); err != nil {
		return domain.Item{}, err
	}

	var created domain.Item
	b.mutate(ctx, OpCreate, func(items []domain.Item) ([]domain.Item, bool) {
		now, id := b.seq.Next()
		created = domain.Item{
			ID:        id,
			Title:     draft.Title,
			Summary:   draft.Summary,
			Status:    draft.Status,
			Labels:    append([]domain.Label{}, draft.Labels...),
			CreatedAt: now,
			UpdatedAt: now,
			Author:    draft.Author,
			Upvotes:   []domain.Upvote{},
			Comments:  []domain.Comment{},
		}
		return append([]domain.Item{created}, items...), true
	})

	if b.submitter != nil {
		if err := b.submitter.SubmitItem(ctx, b.ns, created); err != nil {
			b.logger.WarnContext(ctx, "failed to submit item", "item_id", created.ID, "error", err)
		}
	}
	return created.Clone(), nil
}

// Update merges patch into the item with id. Unknown ids are ignored.
func (b *Board) Update(ctx context.Context, id string, patch domain.Patch) error {
	if err := patch.Validate(); err != nil {
		return err
	}
	b.mutate(ctx, OpUpdate, func(items []domain.Item) ([]domain.Item, bool) {
		n := indexOf(items, id)
		if n < 0 {
			return items, false
		}
		patch.Apply(&items[n])
		items[n].UpdatedAt, _ = b.seq.Next()
		return items, true
	})
	return nil
}

// Delete removes the item with id if present.
func (b *Board) Delete(ctx context.Context, id string) {
	b.mutate(ctx, OpDelete, func(items []domain.Item) ([]domain.Item, bool) {
		n := indexOf(items, id)
		if n < 0 {
			return items, false
		}
		return append(items[:n], items[n+1:]...), true
	})
}

// AddComment appends a comment to the item with id. The zero Comment is
// returned for unknown ids.
func (b *Board) AddComment(ctx context.Context, id string, in domain.CommentInput) (domain.Comment, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return domain.Comment{}, fmt.Errorf("%w: comment content is required", domain.ErrValidation)
	}

	var added domain.Comment
	b.mutate(ctx, OpComment, func(items []domain.Item) ([]domain.Item, bool) {
		n := indexOf(items, id)
		if n < 0 {
			return items, false
		}
		now, cid := b.seq.Next()
		added = domain.Comment{ID: cid, Content: content, Author: in.Author, IsPublic: in.IsPublic, CreatedAt: now}
		items[n].Comments = append(items[n].Comments, added)
		items[n].UpdatedAt = now
		return items, true
	})
	return added, nil
}

// AddUpvote appends an upvote. Repeated votes by one user are kept.
func (b *Board) AddUpvote(ctx context.Context, id string, in domain.UpvoteInput) domain.Upvote {
	var added domain.Upvote
	b.mutate(ctx, OpUpvote, func(items []domain.Item) ([]domain.Item, bool) {
		n := indexOf(items, id)
		if n < 0 {
			return items, false
		}
		now, uid := b.seq.Next()
		added = domain.Upvote{ID: uid, UserID: in.UserID, UserName: in.UserName, CreatedAt: now}
		items[n].Upvotes = append(items[n].Upvotes, added)
		items[n].UpdatedAt = now
		return items, true
	})

	if b.submitter != nil && added.ID != "" {
		if err := b.submitter.SubmitUpvote(ctx, b.ns, id, added); err != nil {
			b.logger.WarnContext(ctx, "failed to submit upvote", "item_id", id, "error", err)
		}
	}
	return added
}

// RemoveUpvote drops every upvote userID cast on the item.
func (b *Board) RemoveUpvote(ctx context.Context, id, userID string) {
	b.mutate(ctx, OpRemoveUpvote, func(items []domain.Item) ([]domain.Item, bool) {
		n := indexOf(items, id)
		if n < 0 || !items[n].HasUpvoteFrom(userID) {
			return items, false
		}
		kept := make([]domain.Upvote, 0, len(items[n].Upvotes))
		for _, u := range items[n].Upvotes {
			if u.UserID != userID {
				kept = append(kept, u)
			}
		}
		items[n].Upvotes = kept
		return items, true
	})
}

// Reload replaces the list with the stored one and notifies listeners.
func (b *Board) Reload(ctx context.Context) error {
	items, err := b.source.Load(ctx, b.ns)
	if err != nil {
		return fmt.Errorf("failed to reload board: %w", err)
	}

	b.mu.Lock()
	b.items = items
	snapshot := domain.CloneItems(items)
	b.mu.Unlock()

	b.metrics.Counter(observability.MetricBoardReloads, 1, observability.T("namespace", b.ns.String()))
	b.notify(snapshot)
	return nil
}

// EventTypes subscribes the board to its scoped signal and the unscoped one.
func (b *Board) EventTypes() []string {
	return []string{ScopedSignal(b.ns), SignalChanged}
}

// Handle reloads the board when another board changed its namespace.
func (b *Board) Handle(ctx context.Context, event *eventbus.ConsumedEvent) error {
	if event.Metadata.Source == b.id {
		return nil
	}
	if event.AggregateID != "" && domain.ParseNamespace(event.AggregateID) != b.ns {
		return nil
	}

	b.mu.Lock()
	if event.EventID != uuid.Nil && event.EventID == b.lastEvent {
		b.mu.Unlock()
		return nil
	}
	b.lastEvent = event.EventID
	b.mu.Unlock()

	b.logger.DebugContext(ctx, "reloading after change signal", "routing_key", event.RoutingKey, "origin", event.Metadata.Origin)
	return b.Reload(ctx)
}

// mutate applies fn to a private copy of the list. When fn reports a change
// the copy becomes the current list and is persisted; signals and
// listeners run after the lock is released.
func (b *Board) mutate(ctx context.Context, op string, fn func(items []domain.Item) ([]domain.Item, bool)) {
	b.mu.Lock()
	next, changed := fn(domain.CloneItems(b.items))
	if !changed {
		b.mu.Unlock()
		return
	}
	b.items = next
	b.persist(ctx, op)
	snapshot := domain.CloneItems(next)
	b.mu.Unlock()

	b.metrics.Counter(observability.MetricBoardMutations, 1,
		observability.T("op", op), observability.T("namespace", b.ns.String()))

	if b.signaler != nil {
		payload := ChangePayload{Namespace: b.ns.String(), Operation: op, Items: len(snapshot)}
		if err := b.signaler.Broadcast(ctx, b.id, b.ns, payload); err != nil {
			b.logger.WarnContext(ctx, "change signal not delivered", "op", op, "error", err)
		}
	}
	b.notify(snapshot)
}

func (b *Board) persist(ctx context.Context, op string) {
	err := b.source.Save(ctx, b.items, b.ns)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrReadOnlySource):
		b.logger.DebugContext(ctx, "source is read-only, change kept in memory", "op", op)
	default:
		b.metrics.Counter(observability.MetricPersistFailures, 1, observability.T("namespace", b.ns.String()))
		b.logger.ErrorContext(ctx, "failed to persist board", "op", op, "error", err)
	}
}

func (b *Board) notify(items []domain.Item) {
	b.listenersMu.Lock()
	fns := make([]ChangeFunc, 0, len(b.listeners))
	for _, fn := range b.listeners {
		fns = append(fns, fn)
	}
	b.listenersMu.Unlock()

	for _, fn := range fns {
		fn(domain.CloneItems(items))
	}
}

func indexOf(items []domain.Item, id string) int {
	for n := range items {
		if items[n].ID == id {
			return n
		}
	}
	return -1
}
