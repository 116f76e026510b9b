package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/featureboard/internal/feedback/domain"
	"github.com/felixgeelhaar/featureboard/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/featureboard/pkg/observability"
	"github.com/google/uuid"
)

// Routing keys. Every change is announced under both the unscoped key and
// the key scoped to the changed namespace.
const (
	SignalChanged        = "feedback.data.changed"
	SignalChangedPattern = SignalChanged + ".#"
	SignalAggregateType  = "feedback.board"
)

// ScopedSignal returns the routing key for changes to ns.
func ScopedSignal(ns domain.Namespace) string {
	return SignalChanged + "." + ns.String()
}

// ChangePayload is the body of a change signal.
type ChangePayload struct {
	Namespace string `json:"namespace"`
	Operation string `json:"operation"`
	Items     int    `json:"items"`
}

// Signaler announces board changes. Origin identifies this process so that
// cross-process relays can drop their own messages.
type Signaler struct {
	publisher eventbus.Publisher
	origin    string
	logger    *slog.Logger
	metrics   observability.Metrics
}

// NewSignaler creates a signaler. An empty origin gets a random id.
func NewSignaler(publisher eventbus.Publisher, origin string, logger *slog.Logger, metrics observability.Metrics) *Signaler {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if origin == "" {
		origin = uuid.NewString()
	}
	return &Signaler{publisher: publisher, origin: origin, logger: logger, metrics: metrics}
}

// Origin returns the process id stamped on every signal.
func (s *Signaler) Origin() string { return s.origin }

// Broadcast publishes the scoped and unscoped signals for one change. Both
// share an event id so a consumer subscribed to both reacts once.
func (s *Signaler) Broadcast(ctx context.Context, source string, ns domain.Namespace, payload ChangePayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode change payload: %w", err)
	}
	event := eventbus.ConsumedEvent{
		EventID:       uuid.New(),
		AggregateID:   ns.String(),
		AggregateType: SignalAggregateType,
		OccurredAt:    time.Now().UTC(),
		Payload:       body,
		Metadata: eventbus.EventMetadata{
			Origin:        s.origin,
			Source:        source,
			CorrelationID: observability.CorrelationIDFromContext(ctx),
		},
	}

	var firstErr error
	for _, key := range []string{ScopedSignal(ns), SignalChanged} {
		event.RoutingKey = key
		msg, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to encode signal: %w", err)
		}
		if err := s.publisher.Publish(ctx, key, msg); err != nil {
			s.logger.WarnContext(ctx, "failed to publish change signal", "routing_key", key, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		s.metrics.Counter(observability.MetricSignalsPublished, 1, observability.T("scope", scopeTag(key)))
	}
	return firstErr
}

func scopeTag(key string) string {
	if key == SignalChanged {
		return "all"
	}
	return "namespace"
}
