package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/featureboard/internal/feedback/application"
	"github.com/felixgeelhaar/featureboard/internal/feedback/application/queries"
	"github.com/felixgeelhaar/featureboard/internal/feedback/domain"
	"github.com/felixgeelhaar/featureboard/internal/identity/application/accounts"
	"github.com/felixgeelhaar/featureboard/internal/identity/application/apikeys"
	"github.com/felixgeelhaar/featureboard/internal/widget"
	"github.com/felixgeelhaar/featureboard/pkg/observability"
)

// ErrNotInitialized is returned by commands run without a wired App.
var ErrNotInitialized = errors.New("application not initialized - storage connection required")

// App holds the CLI application dependencies.
type App struct {
	// Feedback
	Boards    *application.Boards
	ListItems *queries.ListItemsHandler

	// Identity
	Keys     *apikeys.Registry
	Accounts *accounts.Service

	// Widget defaults and the session opener for widget commands.
	Widget     widget.Config
	OpenWidget func(ctx context.Context, cfg widget.Config) (*widget.Widget, error)

	// Serving
	Health     *observability.HealthRegistry
	Metrics    *observability.InMemoryMetrics
	StartRelay func(ctx context.Context)
	APIAddr    string
	MockAPI    bool

	// Current user (configured per environment)
	CurrentUserID string
}

// NewApp creates a new CLI application with the provided services.
func NewApp(
	boards *application.Boards,
	listItems *queries.ListItemsHandler,
	keys *apikeys.Registry,
	accountService *accounts.Service,
) *App {
	return &App{
		Boards:    boards,
		ListItems: listItems,
		Keys:      keys,
		Accounts:  accountService,
		Widget:    widget.DefaultConfig(),
	}
}

// SetCurrentUserID updates the current user ID.
func (a *App) SetCurrentUserID(id string) {
	a.CurrentUserID = id
}

// Namespace returns the namespace selected by apiKey: the global one when
// empty, otherwise the key's own namespace once the registry knows it.
func (a *App) Namespace(ctx context.Context, apiKey string) (domain.Namespace, error) {
	if apiKey == "" {
		return domain.Global, nil
	}
	if !domain.IsAPIKey(apiKey) {
		return domain.Namespace{}, fmt.Errorf("invalid API key %q: must start with %s", apiKey, domain.APIKeyPrefix)
	}
	if a.Keys == nil {
		return domain.Namespace{}, ErrNotInitialized
	}
	_, ok, err := a.Keys.ResolveAPIKey(ctx, apiKey)
	if err != nil {
		return domain.Namespace{}, err
	}
	if !ok {
		return domain.Namespace{}, fmt.Errorf("unknown API key %q", apiKey)
	}
	return domain.ForAPIKey(apiKey), nil
}

// Board returns the shared board for apiKey's namespace.
func (a *App) Board(ctx context.Context, apiKey string) (*application.Board, error) {
	if a.Boards == nil {
		return nil, ErrNotInitialized
	}
	ns, err := a.Namespace(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	return a.Boards.Get(ctx, ns), nil
}

var app *App

// SetApp sets the global CLI application instance.
func SetApp(a *App) {
	app = a
}

// GetApp returns the global CLI application instance.
func GetApp() *App {
	return app
}
