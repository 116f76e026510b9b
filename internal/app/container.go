// Package app wires featureboard's components from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/featureboard/internal/feedback/application"
	"github.com/felixgeelhaar/featureboard/internal/feedback/application/queries"
	"github.com/felixgeelhaar/featureboard/internal/feedback/domain"
	feedbackPersistence "github.com/felixgeelhaar/featureboard/internal/feedback/infrastructure/persistence"
	"github.com/felixgeelhaar/featureboard/internal/identity/application/accounts"
	"github.com/felixgeelhaar/featureboard/internal/identity/application/apikeys"
	identityPersistence "github.com/felixgeelhaar/featureboard/internal/identity/infrastructure/persistence"
	"github.com/felixgeelhaar/featureboard/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/featureboard/internal/widget"
	"github.com/felixgeelhaar/featureboard/pkg/config"
	"github.com/felixgeelhaar/featureboard/pkg/observability"
)

// Container holds all application dependencies.
type Container struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *observability.InMemoryMetrics
	Health  *observability.HealthRegistry

	Storage *Storage

	// Change signals
	Origin    string
	Bus       *eventbus.InProcessEventBus
	Publisher eventbus.Publisher
	Relay     eventbus.Consumer
	Watcher   *feedbackPersistence.ChangeWatcher

	// Feedback
	FeedbackStore *feedbackPersistence.Store
	Signaler      *application.Signaler
	Boards        *application.Boards
	ListItems     *queries.ListItemsHandler

	// Identity
	Keys     *apikeys.Registry
	Accounts *accounts.Service

	HTTPClient *http.Client
}

// NewContainer creates a new container with all dependencies wired.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Container{
		Config:     cfg,
		Logger:     logger,
		Metrics:    observability.NewInMemoryMetrics(),
		Health:     observability.NewHealthRegistry(),
		Origin:     uuid.NewString(),
		HTTPClient: &http.Client{Timeout: cfg.RemoteTimeout},
	}

	storage, err := OpenStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	c.Storage = storage
	if storage.DBConn != nil {
		c.Health.Register("database", observability.DatabaseHealthChecker(storage.DBConn.Ping))
	}
	if storage.Redis != nil {
		c.Health.Register("redis", observability.RedisHealthChecker(func(ctx context.Context) error {
			return storage.Redis.Ping(ctx).Err()
		}))
	}

	if err := c.setupSignals(ctx); err != nil {
		_ = storage.Close()
		return nil, err
	}

	storeOpts := []feedbackPersistence.StoreOption{
		feedbackPersistence.WithUnitOfWork(storage.UnitOfWork),
		feedbackPersistence.WithMetrics(c.Metrics),
	}
	if c.Relay == nil && storage.Backend != config.StorageMemory && cfg.SlotPollInterval > 0 {
		c.Watcher = feedbackPersistence.NewChangeWatcher(storage.Slots, cfg.SlotPollInterval, c.storageChanged, logger)
		storeOpts = append(storeOpts, feedbackPersistence.WithSaveHook(c.Watcher.Remember))
	}
	c.FeedbackStore = feedbackPersistence.NewStore(storage.Slots, logger, storeOpts...)
	c.Signaler = application.NewSignaler(c.Publisher, c.Origin, logger, c.Metrics)
	c.Boards = application.NewBoards(c.FeedbackStore, c.Bus, c.Signaler, logger, c.Metrics)
	c.ListItems = queries.NewListItemsHandler(c.Boards)

	c.Keys = apikeys.NewRegistry(
		identityPersistence.NewSlotKeyRepository(storage.Slots, logger),
		c.FeedbackStore,
		cfg.APIKeyCacheTTL,
		logger,
		apikeys.WithUnitOfWork(storage.UnitOfWork),
		apikeys.WithMetrics(c.Metrics),
	)
	c.Accounts = accounts.NewService(
		identityPersistence.NewSlotAccountRepository(storage.Slots, logger),
		cfg.AuthLatency,
		logger,
	)

	logger.Info("container ready",
		"storage", storage.Backend,
		"signals", cfg.SignalTransport,
		"origin", c.Origin,
	)
	return c, nil
}

// setupSignals builds the in-process bus and, for cross-process transports,
// the relay publisher and consumer. Remote signals are dispatched to the
// same registry as local ones.
func (c *Container) setupSignals(ctx context.Context) error {
	cfg := c.Config
	c.Bus = eventbus.NewInProcessEventBus(c.Logger)

	switch cfg.SignalTransport {
	case "", config.TransportInProcess:
		c.Publisher = c.Bus

	case config.TransportRedis:
		client := c.Storage.Redis
		if client == nil {
			var err error
			if client, err = connectRedis(ctx, cfg.RedisURL); err != nil {
				return err
			}
			c.Storage.Redis = client
			c.Health.Register("redis", observability.RedisHealthChecker(func(ctx context.Context) error {
				return client.Ping(ctx).Err()
			}))
		}
		c.Publisher = eventbus.NewFanoutPublisher(c.Bus, eventbus.NewRedisPublisher(client, c.Logger))
		c.Relay = eventbus.NewRedisSubscriber(client, c.Origin, c.Bus.Registry(), c.Logger)

	case config.TransportRabbitMQ:
		publisher, err := eventbus.NewRabbitMQPublisher(cfg.RabbitMQURL, c.Logger)
		if err != nil {
			return err
		}
		consumer, err := eventbus.NewRabbitMQConsumer(eventbus.RabbitMQConsumerConfig{
			URL:      cfg.RabbitMQURL,
			Origin:   c.Origin,
			Bindings: []string{application.SignalChangedPattern},
			Logger:   c.Logger,
		}, c.Bus.Registry())
		if err != nil {
			_ = publisher.Close()
			return err
		}
		c.Publisher = eventbus.NewFanoutPublisher(c.Bus, publisher)
		c.Relay = consumer
		c.Health.Register("rabbitmq", observability.RabbitMQHealthChecker(func(ctx context.Context) error {
			if publisher.IsClosed() {
				return errors.New("connection closed")
			}
			return nil
		}))

	default:
		return fmt.Errorf("unsupported signal transport: %q", cfg.SignalTransport)
	}
	return nil
}

// StartRelay consumes cross-process signals in the background until ctx is
// done. Without a relay it polls shared storage instead, if configured.
func (c *Container) StartRelay(ctx context.Context) {
	switch {
	case c.Relay != nil:
		go func() {
			if err := c.Relay.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				c.Logger.Error("signal relay stopped", "error", err)
			}
		}()
	case c.Watcher != nil:
		go func() {
			if err := c.Watcher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				c.Logger.Error("slot watcher stopped", "error", err)
			}
		}()
	}
}

// storageChanged signals a list rewritten by another process. The source
// matches no board, so every open board of ns reloads.
func (c *Container) storageChanged(ctx context.Context, ns domain.Namespace) {
	payload := application.ChangePayload{Namespace: ns.String(), Operation: application.OpExternal}
	if err := c.Signaler.Broadcast(ctx, "storage", ns, payload); err != nil {
		c.Logger.WarnContext(ctx, "failed to signal storage change", "namespace", ns.String(), "error", err)
	}
}

// WidgetConfig returns the widget configuration from the environment.
func (c *Container) WidgetConfig() widget.Config {
	cfg := c.Config
	return widget.DefaultConfig().Merge(widget.Config{
		Position:     widget.Position(cfg.WidgetPosition),
		Theme:        widget.Theme(cfg.WidgetTheme),
		PrimaryColor: cfg.WidgetPrimaryColor,
		Title:        cfg.WidgetTitle,
		Placeholder:  cfg.WidgetPlaceholder,
		APIKey:       cfg.WidgetAPIKey,
		DataSource:   widget.DataSource(cfg.WidgetDataSource),
		Endpoint:     cfg.RemoteEndpoint,
	})
}

// OpenWidget opens a widget session for cfg.
func (c *Container) OpenWidget(ctx context.Context, cfg widget.Config) (*widget.Widget, error) {
	return widget.Open(ctx, cfg, c.Boards, c.HTTPClient, c.Logger, c.Metrics)
}

// Close releases all resources.
func (c *Container) Close() error {
	var errs []error
	if c.Boards != nil {
		c.Boards.CloseAll()
	}
	if c.Relay != nil {
		errs = append(errs, c.Relay.Close())
	}
	if c.Publisher != nil {
		errs = append(errs, c.Publisher.Close())
	}
	if c.Storage != nil {
		errs = append(errs, c.Storage.Close())
	}
	return errors.Join(errs...)
}
