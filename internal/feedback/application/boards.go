package application

import (
	"context"
	"log/slog"
	"sync"

	"github.com/felixgeelhaar/featureboard/internal/feedback/domain"
	"github.com/felixgeelhaar/featureboard/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/featureboard/pkg/observability"
)

// Boards opens boards over one source and subscribes them to the process
// event bus. Shared boards are cached per namespace; Open hands out
// additional independent sessions.
type Boards struct {
	source   domain.Source
	bus      *eventbus.InProcessEventBus
	signaler *Signaler
	logger   *slog.Logger
	metrics  observability.Metrics

	mu     sync.Mutex
	shared map[domain.Namespace]*Board
	open   map[*Board]struct{}
}

// NewBoards creates a registry. bus and signaler may be nil, in which case
// boards neither receive nor send change signals.
func NewBoards(source domain.Source, bus *eventbus.InProcessEventBus, signaler *Signaler, logger *slog.Logger, metrics observability.Metrics) *Boards {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	return &Boards{
		source:   source,
		bus:      bus,
		signaler: signaler,
		logger:   logger,
		metrics:  metrics,
		shared:   make(map[domain.Namespace]*Board),
		open:     make(map[*Board]struct{}),
	}
}

// Get returns the shared board of ns, opening it on first use.
func (r *Boards) Get(ctx context.Context, ns domain.Namespace) *Board {
	r.mu.Lock()
	if b, ok := r.shared[ns]; ok {
		r.mu.Unlock()
		return b
	}
	r.mu.Unlock()

	b := r.Open(ctx, ns)

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.shared[ns]; ok {
		r.closeLocked(b)
		return existing
	}
	r.shared[ns] = b
	return b
}

// Open creates a new board session for ns.
func (r *Boards) Open(ctx context.Context, ns domain.Namespace) *Board {
	b := NewBoard(ctx, ns, r.source,
		WithSignaler(r.signaler),
		WithBoardLogger(r.logger),
		WithBoardMetrics(r.metrics),
	)

	r.mu.Lock()
	r.open[b] = struct{}{}
	r.mu.Unlock()

	if r.bus != nil {
		r.bus.RegisterConsumer(b)
	}
	return b
}

// Close unsubscribes b. Closing a shared board evicts it.
func (r *Boards) Close(b *Board) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.shared[b.ns] == b {
		delete(r.shared, b.ns)
	}
	r.closeLocked(b)
}

func (r *Boards) closeLocked(b *Board) {
	if _, ok := r.open[b]; !ok {
		return
	}
	delete(r.open, b)
	if r.bus != nil {
		r.bus.UnregisterConsumer(b)
	}
}

// Count returns the number of open boards.
func (r *Boards) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.open)
}

// CloseAll unsubscribes every board.
func (r *Boards) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for b := range r.open {
		r.closeLocked(b)
	}
	r.shared = make(map[domain.Namespace]*Board)
}
