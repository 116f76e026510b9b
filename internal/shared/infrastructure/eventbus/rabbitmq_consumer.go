package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQConsumerConfig configures a RabbitMQConsumer.
type RabbitMQConsumerConfig struct {
	URL      string
	Exchange string
	// Origin is this process's context id; events it published are dropped.
	Origin string
	// Bindings are routing key patterns bound at start, e.g. "feedback.data.changed.#".
	Bindings []string
	Logger   *slog.Logger
}

// RabbitMQConsumer receives relayed events on a private, auto-deleted queue
// and dispatches them to a local registry. Every process gets its own copy.
type RabbitMQConsumer struct {
	mu        sync.Mutex
	conn      *amqp.Connection
	channel   *amqp.Channel
	queue     string
	exchange  string
	origin    string
	registry  *ConsumerRegistry
	logger    *slog.Logger
	running   bool
	closeChan chan struct{}
	closeOnce sync.Once
}

// NewRabbitMQConsumer connects, declares the exchange and a private queue.
func NewRabbitMQConsumer(cfg RabbitMQConsumerConfig, registry *ConsumerRegistry) (*RabbitMQConsumer, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Exchange == "" {
		cfg.Exchange = ExchangeName
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := declareExchange(ch, cfg.Exchange); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	q, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // auto-delete
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	c := &RabbitMQConsumer{
		conn:      conn,
		channel:   ch,
		queue:     q.Name,
		exchange:  cfg.Exchange,
		origin:    cfg.Origin,
		registry:  registry,
		logger:    cfg.Logger,
		closeChan: make(chan struct{}),
	}
	for _, pattern := range cfg.Bindings {
		if err := c.Bind(pattern); err != nil {
			_ = c.Close()
			return nil, err
		}
	}

	cfg.Logger.Info("RabbitMQ consumer connected", "queue", q.Name, "exchange", cfg.Exchange)
	return c, nil
}

// RegisterConsumer registers consumer locally and binds its event types.
func (c *RabbitMQConsumer) RegisterConsumer(consumer EventConsumer) {
	c.registry.Register(consumer)
	for _, eventType := range consumer.EventTypes() {
		if err := c.Bind(eventType); err != nil {
			c.logger.Error("failed to bind queue for event type", "event_type", eventType, "error", err)
		}
	}
}

// Bind routes messages matching pattern to this consumer's queue.
func (c *RabbitMQConsumer) Bind(pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.channel.QueueBind(c.queue, pattern, c.exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}
	c.logger.Debug("bound queue to routing key", "queue", c.queue, "routing_key", pattern)
	return nil
}

// Start consumes until ctx is done or Close is called.
func (c *RabbitMQConsumer) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("consumer already running")
	}
	c.running = true
	c.mu.Unlock()

	msgs, err := c.channel.Consume(
		c.queue,
		"",    // consumer tag
		true,  // auto-ack: signals are not retried
		true,  // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info("started consuming signals", "queue", c.queue)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.closeChan:
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed unexpectedly")
			}
			c.processMessage(ctx, msg)
		}
	}
}

func (c *RabbitMQConsumer) processMessage(ctx context.Context, msg amqp.Delivery) {
	event := &ConsumedEvent{}
	if err := json.Unmarshal(msg.Body, event); err != nil {
		c.logger.Error("failed to unmarshal event", "routing_key", msg.RoutingKey, "error", err)
		return
	}
	if event.RoutingKey == "" {
		event.RoutingKey = msg.RoutingKey
	}
	if !AcceptRemote(c.origin, event) {
		return
	}
	_ = c.registry.Dispatch(ctx, event)
}

// Close stops Start and releases the connection.
func (c *RabbitMQConsumer) Close() error {
	c.closeOnce.Do(func() { close(c.closeChan) })

	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false

	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			c.logger.Warn("error closing channel", "error", err)
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			return err
		}
	}
	c.logger.Info("RabbitMQ consumer closed")
	return nil
}

// AcceptRemote reports whether a relayed event should be dispatched in the
// process identified by origin. A writer never hears its own broadcast.
func AcceptRemote(origin string, event *ConsumedEvent) bool {
	return origin == "" || event.Metadata.Origin != origin
}
