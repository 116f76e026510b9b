package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/felixgeelhaar/featureboard/internal/feedback/domain"
	"github.com/felixgeelhaar/featureboard/internal/shared/infrastructure/slots"
)

// SlotChangeFunc is called for each namespace whose stored list changed.
type SlotChangeFunc func(ctx context.Context, ns domain.Namespace)

// ChangeWatcher polls the feedback slots and reports namespaces whose stored
// list was rewritten by someone other than the local Store. It stands in for
// a storage change notification when several processes share one database
// and signals are not relayed between them.
type ChangeWatcher struct {
	slots    slots.Store
	interval time.Duration
	onChange SlotChangeFunc
	logger   *slog.Logger

	mu     sync.Mutex
	known  map[domain.Namespace]string
	primed bool
}

// NewChangeWatcher creates a watcher polling st every interval.
func NewChangeWatcher(st slots.Store, interval time.Duration, onChange SlotChangeFunc, logger *slog.Logger) *ChangeWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChangeWatcher{
		slots:    st,
		interval: interval,
		onChange: onChange,
		logger:   logger,
		known:    make(map[domain.Namespace]string),
	}
}

// Start polls until ctx is done.
func (w *ChangeWatcher) Start(ctx context.Context) error {
	if w.interval <= 0 {
		return fmt.Errorf("invalid poll interval: %s", w.interval)
	}
	if err := w.Poll(ctx); err != nil {
		w.logger.WarnContext(ctx, "slot poll failed", "error", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Poll(ctx); err != nil {
				w.logger.WarnContext(ctx, "slot poll failed", "error", err)
			}
		}
	}
}

// Poll reads the slots once and reports every namespace whose content
// differs from the last observed state. The first poll only records state.
func (w *ChangeWatcher) Poll(ctx context.Context) error {
	snapshot := make(map[domain.Namespace]string)

	raw, err := w.slots.Get(ctx, SlotRequests)
	switch {
	case errors.Is(err, slots.ErrNotFound):
	case err != nil:
		return fmt.Errorf("failed to poll feedback: %w", err)
	default:
		snapshot[domain.Global] = string(raw)
	}

	raw, err = w.slots.Get(ctx, SlotAPIData)
	switch {
	case errors.Is(err, slots.ErrNotFound):
	case err != nil:
		return fmt.Errorf("failed to poll api data: %w", err)
	default:
		w.collectAPIData(raw, snapshot)
	}

	w.mu.Lock()
	var changed []domain.Namespace
	if w.primed {
		for ns, v := range snapshot {
			if w.known[ns] != v {
				changed = append(changed, ns)
			}
		}
		for ns := range w.known {
			if _, ok := snapshot[ns]; !ok {
				changed = append(changed, ns)
			}
		}
	}
	w.known = snapshot
	w.primed = true
	w.mu.Unlock()

	for _, ns := range changed {
		w.logger.DebugContext(ctx, "stored list changed", "namespace", ns.String())
		if w.onChange != nil {
			w.onChange(ctx, ns)
		}
	}
	return nil
}

// Remember records a slot value written by the local Store so the next poll
// does not report it.
func (w *ChangeWatcher) Remember(slot string, value []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.primed {
		return
	}

	switch slot {
	case SlotRequests:
		w.known[domain.Global] = string(value)
	case SlotAPIData:
		for ns := range w.known {
			if !ns.IsGlobal() {
				delete(w.known, ns)
			}
		}
		w.collectAPIData(value, w.known)
	}
}

func (w *ChangeWatcher) collectAPIData(raw []byte, into map[domain.Namespace]string) {
	var data map[string]json.RawMessage
	if err := json.Unmarshal(raw, &data); err != nil {
		return
	}
	for key, list := range data {
		if ns := domain.ForAPIKey(key); !ns.IsGlobal() {
			into[ns] = string(list)
		}
	}
}
