// Package apikeys issues the per-user keys that scope widget data.
package apikeys

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	feedbackDomain "github.com/felixgeelhaar/featureboard/internal/feedback/domain"
	"github.com/felixgeelhaar/featureboard/internal/identity/domain"
	sharedApplication "github.com/felixgeelhaar/featureboard/internal/shared/application"
	"github.com/felixgeelhaar/featureboard/pkg/observability"
)

// NamespaceInitializer creates the empty list backing a new key.
type NamespaceInitializer interface {
	InitNamespace(ctx context.Context, ns feedbackDomain.Namespace) error
}

// Generate mints a key: the fdk_ prefix and two random base-36 fragments.
// Keys are identifiers, not secrets.
func Generate() string {
	return feedbackDomain.APIKeyPrefix +
		strconv.FormatUint(rand.Uint64(), 36) +
		strconv.FormatUint(rand.Uint64(), 36)
}

// Registry maps users to API keys. Keys never expire and are never rotated.
type Registry struct {
	keys       domain.KeyRepository
	namespaces NamespaceInitializer
	uow        sharedApplication.UnitOfWork
	owners     *cache.Cache
	logger     *slog.Logger
	metrics    observability.Metrics
	generate   func() string

	mu sync.Mutex
}

// Option configures a Registry.
type Option func(*Registry)

// WithUnitOfWork issues keys inside a transaction.
func WithUnitOfWork(uow sharedApplication.UnitOfWork) Option {
	return func(r *Registry) { r.uow = uow }
}

// WithMetrics counts issued keys.
func WithMetrics(m observability.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// WithGenerator replaces Generate.
func WithGenerator(fn func() string) Option {
	return func(r *Registry) { r.generate = fn }
}

// NewRegistry creates a registry. Reverse lookups are cached for cacheTTL.
func NewRegistry(keys domain.KeyRepository, namespaces NamespaceInitializer, cacheTTL time.Duration, logger *slog.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	r := &Registry{
		keys:       keys,
		namespaces: namespaces,
		owners:     cache.New(cacheTTL, 2*cacheTTL),
		logger:     logger,
		metrics:    observability.NoopMetrics{},
		generate:   Generate,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetOrCreateAPIKey returns the key of userID, issuing one on first use.
// A new key gets an empty namespace.
func (r *Registry) GetOrCreateAPIKey(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("%w: user id is required", feedbackDomain.ErrValidation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var key string
	issued := false
	issue := func(ctx context.Context) error {
		keys, err := r.keys.Keys(ctx)
		if err != nil {
			return err
		}
		if existing, ok := keys[userID]; ok && existing != "" {
			key = existing
			return nil
		}

		key = r.generate()
		keys[userID] = key
		if err := r.keys.SaveKeys(ctx, keys); err != nil {
			return err
		}
		if r.namespaces != nil {
			if err := r.namespaces.InitNamespace(ctx, feedbackDomain.ForAPIKey(key)); err != nil {
				return err
			}
		}
		issued = true
		return nil
	}

	if err := sharedApplication.WithUnitOfWork(ctx, r.uow, issue); err != nil {
		return "", fmt.Errorf("failed to issue api key: %w", err)
	}

	r.owners.Set(key, userID, cache.DefaultExpiration)
	if issued {
		r.metrics.Counter(observability.MetricAPIKeysIssued, 1)
		r.logger.InfoContext(ctx, "issued api key", "user_id", userID)
	}
	return key, nil
}

// ResolveAPIKey returns the user owning token.
func (r *Registry) ResolveAPIKey(ctx context.Context, token string) (string, bool, error) {
	if !feedbackDomain.IsAPIKey(token) {
		return "", false, nil
	}
	if owner, ok := r.owners.Get(token); ok {
		return owner.(string), true, nil
	}

	keys, err := r.keys.Keys(ctx)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve api key: %w", err)
	}
	for userID, key := range keys {
		r.owners.Set(key, userID, cache.DefaultExpiration)
	}
	if owner, ok := r.owners.Get(token); ok {
		return owner.(string), true, nil
	}
	return "", false, nil
}
