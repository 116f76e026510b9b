package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisChannelPrefix prefixes the pub/sub channel of each routing key.
const DefaultRedisChannelPrefix = "featureboard:signals:"

// RedisPublisher relays events over Redis pub/sub, one channel per routing key.
type RedisPublisher struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// NewRedisPublisher creates a publisher over client.
func NewRedisPublisher(client *redis.Client, logger *slog.Logger) *RedisPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisPublisher{client: client, prefix: DefaultRedisChannelPrefix, logger: logger}
}

// Channel returns the pub/sub channel for routingKey.
func (p *RedisPublisher) Channel(routingKey string) string {
	return p.prefix + routingKey
}

func (p *RedisPublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	if err := p.client.Publish(ctx, p.Channel(routingKey), payload).Err(); err != nil {
		p.logger.Error("failed to publish message", "routing_key", routingKey, "error", err)
		return err
	}
	return nil
}

// Close leaves the shared client open; its owner closes it.
func (p *RedisPublisher) Close() error { return nil }

// RedisSubscriber receives relayed events by pattern subscription and
// dispatches them to a local registry.
type RedisSubscriber struct {
	client   *redis.Client
	prefix   string
	origin   string
	registry *ConsumerRegistry
	logger   *slog.Logger

	mu     sync.Mutex
	pubsub *redis.PubSub
}

// NewRedisSubscriber creates a subscriber for the process identified by origin.
func NewRedisSubscriber(client *redis.Client, origin string, registry *ConsumerRegistry, logger *slog.Logger) *RedisSubscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisSubscriber{
		client:   client,
		prefix:   DefaultRedisChannelPrefix,
		origin:   origin,
		registry: registry,
		logger:   logger,
	}
}

// RegisterConsumer registers consumer locally. The pattern subscription
// already covers every routing key.
func (s *RedisSubscriber) RegisterConsumer(consumer EventConsumer) {
	s.registry.Register(consumer)
}

// Start subscribes and dispatches until ctx is done or Close is called.
func (s *RedisSubscriber) Start(ctx context.Context) error {
	pubsub := s.client.PSubscribe(ctx, s.prefix+"*")
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	s.mu.Lock()
	s.pubsub = pubsub
	s.mu.Unlock()

	s.logger.Info("started consuming signals", "pattern", s.prefix+"*")
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			_ = s.Close()
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			s.handle(ctx, msg)
		}
	}
}

func (s *RedisSubscriber) handle(ctx context.Context, msg *redis.Message) {
	event := &ConsumedEvent{}
	if err := json.Unmarshal([]byte(msg.Payload), event); err != nil {
		s.logger.Error("failed to unmarshal event", "channel", msg.Channel, "error", err)
		return
	}
	if event.RoutingKey == "" {
		event.RoutingKey = strings.TrimPrefix(msg.Channel, s.prefix)
	}
	if !AcceptRemote(s.origin, event) {
		return
	}
	_ = s.registry.Dispatch(ctx, event)
}

// Close ends the subscription.
func (s *RedisSubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pubsub == nil {
		return nil
	}
	err := s.pubsub.Close()
	s.pubsub = nil
	return err
}
