package api

import (
	"log/slog"

	"github.com/felixgeelhaar/featureboard/internal/feedback/application"
	"github.com/felixgeelhaar/featureboard/internal/feedback/application/queries"
	"github.com/felixgeelhaar/featureboard/internal/identity/application/accounts"
	"github.com/felixgeelhaar/featureboard/internal/identity/application/apikeys"
	"github.com/felixgeelhaar/featureboard/pkg/observability"
)

// Services are the application services behind the HTTP API.
type Services struct {
	Boards    *application.Boards
	ListItems *queries.ListItemsHandler
	Keys      *apikeys.Registry
	Accounts  *accounts.Service
	Health    *observability.HealthRegistry
	Metrics   *observability.InMemoryMetrics
}

// NewHandlers builds every route handler over s.
func NewHandlers(s Services, logger *slog.Logger) Handlers {
	h := Handlers{
		Mock:    NewMockHandler(MockHandlerConfig{Logger: logger}),
		Health:  s.Health,
		Metrics: s.Metrics,
	}
	if s.Boards != nil {
		var keys KeyResolver
		if s.Keys != nil {
			keys = s.Keys
		}
		h.Feedback = NewFeedbackHandler(FeedbackHandlerConfig{
			Boards: s.Boards,
			List:   s.ListItems,
			Keys:   keys,
			Logger: logger,
		})
	}
	if s.Accounts != nil && s.Keys != nil {
		h.Auth = NewAuthHandler(AuthHandlerConfig{Accounts: s.Accounts, Keys: s.Keys, Logger: logger})
	}
	return h
}
