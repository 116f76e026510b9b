// Package persistence adapts slot storage and the remote feedback endpoint
// to the board's data source interface.
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/featureboard/internal/feedback/domain"
	sharedApplication "github.com/felixgeelhaar/featureboard/internal/shared/application"
	"github.com/felixgeelhaar/featureboard/internal/shared/infrastructure/slots"
	"github.com/felixgeelhaar/featureboard/pkg/observability"
)

// Slot names.
const (
	SlotRequests = "feedback-requests"
	SlotAPIData  = "feedback-api-data"
)

// Store persists namespaces into slots. The global list lives in its own
// slot; per-key lists share one slot holding a map keyed by API key.
type Store struct {
	slots   slots.Store
	uow     sharedApplication.UnitOfWork
	logger  *slog.Logger
	metrics observability.Metrics
	clock   domain.Clock
	onSave  func(slot string, value []byte)
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithUnitOfWork runs read-modify-write cycles on the shared per-key slot
// inside a transaction.
func WithUnitOfWork(uow sharedApplication.UnitOfWork) StoreOption {
	return func(s *Store) { s.uow = uow }
}

// WithMetrics records malformed slots.
func WithMetrics(m observability.Metrics) StoreOption {
	return func(s *Store) { s.metrics = m }
}

// WithClock sets the clock used to date the seed list.
func WithClock(c domain.Clock) StoreOption {
	return func(s *Store) { s.clock = c }
}

// WithSaveHook is called with every slot value the store writes.
func WithSaveHook(fn func(slot string, value []byte)) StoreOption {
	return func(s *Store) { s.onSave = fn }
}

// NewStore creates a store over the given slots.
func NewStore(st slots.Store, logger *slog.Logger, opts ...StoreOption) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		slots:   st,
		logger:  logger,
		metrics: observability.NoopMetrics{},
		clock:   domain.SystemClock,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the list of ns. Missing or malformed data falls back to the
// seed list for the global namespace and to an empty list otherwise.
func (s *Store) Load(ctx context.Context, ns domain.Namespace) ([]domain.Item, error) {
	if ns.IsGlobal() {
		return s.loadGlobal(ctx)
	}

	data, err := s.readAPIData(ctx)
	if err != nil {
		return nil, err
	}
	raw, ok := data[ns.APIKey()]
	if !ok {
		return []domain.Item{}, nil
	}
	var items []domain.Item
	if err := json.Unmarshal(raw, &items); err != nil {
		s.malformed(ctx, SlotAPIData, err, "namespace", ns.String())
		return []domain.Item{}, nil
	}
	return domain.Normalize(items), nil
}

func (s *Store) loadGlobal(ctx context.Context) ([]domain.Item, error) {
	raw, err := s.slots.Get(ctx, SlotRequests)
	if errors.Is(err, slots.ErrNotFound) {
		return domain.SeedItems(s.clock()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load feedback: %w", err)
	}

	var items []domain.Item
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		s.malformed(ctx, SlotRequests, err)
		return domain.SeedItems(s.clock()), nil
	}
	return domain.Normalize(items), nil
}

// Save overwrites the list of ns.
func (s *Store) Save(ctx context.Context, items []domain.Item, ns domain.Namespace) error {
	payload, err := json.Marshal(domain.Normalize(domain.CloneItems(items)))
	if err != nil {
		return fmt.Errorf("failed to encode feedback: %w", err)
	}

	if ns.IsGlobal() {
		if err := s.slots.Set(ctx, SlotRequests, payload); err != nil {
			return fmt.Errorf("failed to save feedback: %w", err)
		}
		s.saved(SlotRequests, payload)
		return nil
	}

	return s.updateAPIData(ctx, func(data map[string]json.RawMessage) bool {
		data[ns.APIKey()] = payload
		return true
	})
}

// InitNamespace creates an empty list for ns unless one exists.
func (s *Store) InitNamespace(ctx context.Context, ns domain.Namespace) error {
	if ns.IsGlobal() {
		return nil
	}
	return s.updateAPIData(ctx, func(data map[string]json.RawMessage) bool {
		if _, ok := data[ns.APIKey()]; ok {
			return false
		}
		data[ns.APIKey()] = json.RawMessage("[]")
		return true
	})
}

func (s *Store) updateAPIData(ctx context.Context, mutate func(map[string]json.RawMessage) bool) error {
	update := func(ctx context.Context) error {
		data, err := s.readAPIData(ctx)
		if err != nil {
			return err
		}
		if !mutate(data) {
			return nil
		}
		payload, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to encode api data: %w", err)
		}
		if err := s.slots.Set(ctx, SlotAPIData, payload); err != nil {
			return fmt.Errorf("failed to save api data: %w", err)
		}
		s.saved(SlotAPIData, payload)
		return nil
	}

	return sharedApplication.WithUnitOfWork(ctx, s.uow, update)
}

func (s *Store) readAPIData(ctx context.Context) (map[string]json.RawMessage, error) {
	raw, err := s.slots.Get(ctx, SlotAPIData)
	if errors.Is(err, slots.ErrNotFound) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load api data: %w", err)
	}

	var data map[string]json.RawMessage
	if err := json.Unmarshal(raw, &data); err != nil || data == nil {
		s.malformed(ctx, SlotAPIData, err)
		return map[string]json.RawMessage{}, nil
	}
	return data, nil
}

func (s *Store) saved(slot string, value []byte) {
	if s.onSave != nil {
		s.onSave(slot, value)
	}
}

func (s *Store) malformed(ctx context.Context, slot string, err error, attrs ...any) {
	s.metrics.Counter(observability.MetricMalformedSlots, 1, observability.T("slot", slot))
	args := append([]any{"slot", slot, "error", err}, attrs...)
	s.logger.WarnContext(ctx, "ignoring malformed slot data", args...)
}
