package eventbus_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/featureboard/internal/shared/infrastructure/eventbus"
)

const changedKey = "feedback.data.changed"

type recordingConsumer struct {
	eventTypes []string
	events     []*eventbus.ConsumedEvent
	err        error
}

func (c *recordingConsumer) EventTypes() []string { return c.eventTypes }

func (c *recordingConsumer) Handle(ctx context.Context, event *eventbus.ConsumedEvent) error {
	c.events = append(c.events, event)
	return c.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newEvent(routingKey string) *eventbus.ConsumedEvent {
	return &eventbus.ConsumedEvent{
		EventID:       uuid.New(),
		AggregateID:   "global",
		AggregateType: "feedback.board",
		RoutingKey:    routingKey,
		OccurredAt:    time.Now().UTC(),
	}
}

func TestInProcessEventBus_Publish(t *testing.T) {
	bus := eventbus.NewInProcessEventBus(quietLogger())
	consumer := &recordingConsumer{eventTypes: []string{changedKey}}
	bus.RegisterConsumer(consumer)

	event := newEvent(changedKey)
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), changedKey, payload))

	require.Len(t, consumer.events, 1)
	assert.Equal(t, event.EventID, consumer.events[0].EventID)
	assert.Equal(t, "global", consumer.events[0].AggregateID)
}

func TestInProcessEventBus_RoutingKeyFromArgument(t *testing.T) {
	bus := eventbus.NewInProcessEventBus(quietLogger())
	consumer := &recordingConsumer{eventTypes: []string{changedKey + ".fdk_a"}}
	bus.RegisterConsumer(consumer)

	event := newEvent("")
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), changedKey+".fdk_a", payload))
	assert.Len(t, consumer.events, 1)
}

func TestInProcessEventBus_MalformedPayloadIsDropped(t *testing.T) {
	bus := eventbus.NewInProcessEventBus(quietLogger())
	consumer := &recordingConsumer{eventTypes: []string{changedKey}}
	bus.RegisterConsumer(consumer)

	require.NoError(t, bus.Publish(context.Background(), changedKey, []byte("{not json")))
	assert.Empty(t, consumer.events)
}

func TestInProcessEventBus_ConsumerErrorDoesNotFailPublish(t *testing.T) {
	bus := eventbus.NewInProcessEventBus(quietLogger())
	failing := &recordingConsumer{eventTypes: []string{changedKey}, err: errors.New("boom")}
	healthy := &recordingConsumer{eventTypes: []string{changedKey}}
	bus.RegisterConsumer(failing)
	bus.RegisterConsumer(healthy)

	require.NoError(t, bus.PublishConsumedEvent(context.Background(), newEvent(changedKey)))
	assert.Len(t, failing.events, 1)
	assert.Len(t, healthy.events, 1)
}

func TestInProcessEventBus_Unregister(t *testing.T) {
	bus := eventbus.NewInProcessEventBus(quietLogger())
	consumer := &recordingConsumer{eventTypes: []string{changedKey, changedKey + ".global"}}
	bus.RegisterConsumer(consumer)
	assert.Equal(t, 2, bus.Registry().ConsumerCount())

	bus.UnregisterConsumer(consumer)
	assert.Zero(t, bus.Registry().ConsumerCount())

	require.NoError(t, bus.PublishConsumedEvent(context.Background(), newEvent(changedKey)))
	assert.Empty(t, consumer.events)
}

func TestFanoutPublisher(t *testing.T) {
	first := eventbus.NewInProcessEventBus(quietLogger())
	second := eventbus.NewInProcessEventBus(quietLogger())
	a := &recordingConsumer{eventTypes: []string{changedKey}}
	b := &recordingConsumer{eventTypes: []string{changedKey}}
	first.RegisterConsumer(a)
	second.RegisterConsumer(b)

	payload, err := json.Marshal(newEvent(changedKey))
	require.NoError(t, err)

	fanout := eventbus.NewFanoutPublisher(first, nil, second)
	require.NoError(t, fanout.Publish(context.Background(), changedKey, payload))
	require.NoError(t, fanout.Close())

	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
}

func TestAcceptRemote(t *testing.T) {
	event := newEvent(changedKey)
	event.Metadata.Origin = "ctx-a"

	assert.False(t, eventbus.AcceptRemote("ctx-a", event))
	assert.True(t, eventbus.AcceptRemote("ctx-b", event))
	assert.True(t, eventbus.AcceptRemote("", event))
}
