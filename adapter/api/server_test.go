package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/featureboard/internal/feedback/application"
	"github.com/felixgeelhaar/featureboard/internal/feedback/domain"
	feedbackPersistence "github.com/felixgeelhaar/featureboard/internal/feedback/infrastructure/persistence"
	"github.com/felixgeelhaar/featureboard/internal/identity/application/accounts"
	"github.com/felixgeelhaar/featureboard/internal/identity/application/apikeys"
	identityPersistence "github.com/felixgeelhaar/featureboard/internal/identity/infrastructure/persistence"
	"github.com/felixgeelhaar/featureboard/internal/shared/infrastructure/slots"
	"github.com/felixgeelhaar/featureboard/pkg/observability"
)

type testEnv struct {
	handler http.Handler
	store   *feedbackPersistence.Store
}

func newTestEnv(t *testing.T, health *observability.HealthRegistry) *testEnv {
	t.Helper()
	logger := observability.Discard()
	st := slots.NewMemoryStore()
	store := feedbackPersistence.NewStore(st, logger)
	registry := apikeys.NewRegistry(identityPersistence.NewSlotKeyRepository(st, logger), store, time.Minute, logger)
	boards := application.NewBoards(store, nil, nil, logger, nil)
	t.Cleanup(boards.CloseAll)

	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	srv := NewServer(DefaultServerConfig(), Handlers{
		Feedback: NewFeedbackHandler(FeedbackHandlerConfig{Boards: boards, Keys: registry, Logger: logger}),
		Auth: NewAuthHandler(AuthHandlerConfig{
			Accounts: accounts.NewService(identityPersistence.NewSlotAccountRepository(st, logger), -1, logger),
			Keys:     registry,
			Logger:   logger,
		}),
		Mock:   NewMockHandler(MockHandlerConfig{Logger: logger, Clock: func() time.Time { return fixed }}),
		Health: health,
	}, logger)
	return &testEnv{handler: srv.Handler(), store: store}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

type listResponse struct {
	Items []domain.Item `json:"items"`
	Total int           `json:"total"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	t.Run("no registry", func(t *testing.T) {
		env := newTestEnv(t, nil)
		rec := env.do(t, http.MethodGet, "/health", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	})

	t.Run("unhealthy component", func(t *testing.T) {
		reg := observability.NewHealthRegistry()
		reg.Register("database", func(ctx context.Context) observability.HealthCheckResult {
			return observability.HealthCheckResult{Status: observability.HealthStatusUnhealthy, Message: "down"}
		})
		env := newTestEnv(t, reg)
		rec := env.do(t, http.MethodGet, "/health", "", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestFeedbackLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/v1/feedback", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[listResponse](t, rec)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "1", list.Items[0].ID)

	rec = env.do(t, http.MethodPost, "/api/v1/feedback", "", map[string]any{
		"title":   "Dark mode",
		"summary": "Please add it",
		"labels":  []string{"4", "99"},
		"author":  "Admin",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[domain.Item](t, rec)
	assert.Equal(t, domain.StatusPublic, created.Status)
	require.Len(t, created.Labels, 1)
	assert.Equal(t, "FEATURE", created.Labels[0].Name)

	rec = env.do(t, http.MethodGet, "/api/v1/feedback?search=dark", "", nil)
	assert.Equal(t, 1, decode[listResponse](t, rec).Total)

	rec = env.do(t, http.MethodPatch, "/api/v1/feedback/"+created.ID, "", map[string]any{"status": "archived"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.StatusArchived, decode[domain.Item](t, rec).Status)

	rec = env.do(t, http.MethodGet, "/api/v1/feedback?status=archived", "", nil)
	assert.Equal(t, 1, decode[listResponse](t, rec).Total)

	rec = env.do(t, http.MethodPost, "/api/v1/feedback/"+created.ID+"/comments", "", map[string]any{
		"content": "Working on it", "author": "Admin", "isPublic": true,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/feedback/"+created.ID+"/upvotes", "", map[string]any{
		"userId": "u1", "userName": "Jane",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/feedback/"+created.ID, "", nil)
	item := decode[domain.Item](t, rec)
	assert.Len(t, item.Comments, 1)
	assert.Len(t, item.Upvotes, 1)

	rec = env.do(t, http.MethodDelete, "/api/v1/feedback/"+created.ID+"/upvotes/u1", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/v1/feedback/"+created.ID, "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/feedback/"+created.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	stored, err := env.store.Load(context.Background(), domain.Global)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestFeedbackErrors(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"missing title", http.MethodPost, "/api/v1/feedback", map[string]any{"summary": "x"}, http.StatusBadRequest},
		{"bad status filter", http.MethodGet, "/api/v1/feedback?status=nope", nil, http.StatusBadRequest},
		{"bad sort", http.MethodGet, "/api/v1/feedback?sort=random", nil, http.StatusBadRequest},
		{"bad date", http.MethodGet, "/api/v1/feedback?from=yesterday", nil, http.StatusBadRequest},
		{"bad where", http.MethodGet, "/api/v1/feedback?where=upvotes+%3E", nil, http.StatusBadRequest},
		{"unknown item patch", http.MethodPatch, "/api/v1/feedback/404", map[string]any{"title": "x"}, http.StatusNotFound},
		{"blank title patch", http.MethodPatch, "/api/v1/feedback/1", map[string]any{"title": " "}, http.StatusBadRequest},
		{"unknown item delete", http.MethodDelete, "/api/v1/feedback/404", nil, http.StatusNotFound},
		{"empty comment", http.MethodPost, "/api/v1/feedback/1/comments", map[string]any{"content": ""}, http.StatusBadRequest},
		{"upvote without user", http.MethodPost, "/api/v1/feedback/1/upvotes", map[string]any{}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, "", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestFeedbackNamespaceBinding(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/apikeys", "", map[string]any{"userId": "1"})
	require.Equal(t, http.StatusOK, rec.Code)
	key := decode[map[string]string](t, rec)["apiKey"]
	require.True(t, domain.IsAPIKey(key))

	rec = env.do(t, http.MethodGet, "/api/v1/feedback", key, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[listResponse](t, rec).Total)

	rec = env.do(t, http.MethodPost, "/api/v1/feedback", key, map[string]any{"title": "Scoped", "summary": "Only here"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/feedback", key, nil)
	assert.Equal(t, 1, decode[listResponse](t, rec).Total)

	rec = env.do(t, http.MethodGet, "/api/v1/feedback", "", nil)
	global := decode[listResponse](t, rec)
	require.Equal(t, 1, global.Total)
	assert.Equal(t, "1", global.Items[0].ID)

	rec = env.do(t, http.MethodGet, "/api/v1/feedback", "fdk_unknown", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/feedback", "not-a-key", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLabels(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/api/v1/labels", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Label](t, rec), 5)
}

func TestAuth(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]any{
		"email": "admin@example.com", "password": "admin123",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	user := decode[map[string]any](t, rec)
	assert.Equal(t, "admin", user["role"])
	assert.NotContains(t, user, "password")

	rec = env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]any{
		"email": "admin@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/auth/signup", "", map[string]any{
		"email": "new@example.com", "password": "pw", "name": "New",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "user", decode[map[string]any](t, rec)["role"])

	rec = env.do(t, http.MethodPost, "/api/v1/auth/signup", "", map[string]any{
		"email": "NEW@example.com", "password": "pw", "name": "Again",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/apikeys", "", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	metrics := observability.NewInMemoryMetrics()
	metrics.Counter(observability.MetricBoardReloads, 2)
	srv := NewServer(DefaultServerConfig(), Handlers{Metrics: metrics}, observability.Discard())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decode[map[string]float64](t, rec)[observability.MetricBoardReloads])

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/feedback", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
