package persistence

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/felixgeelhaar/featureboard/internal/feedback/domain"
	"github.com/felixgeelhaar/featureboard/pkg/observability"
	"github.com/sony/gobreaker/v2"
)

// ErrRemoteUnavailable is returned while the circuit breaker is open.
var ErrRemoteUnavailable = errors.New("remote feedback endpoint unavailable")

// RemoteConfig configures a RemoteSource.
type RemoteConfig struct {
	// Endpoint is the base URL, e.g. http://host/.netlify/functions/feedback-api
	Endpoint string

	// APIKey is sent as a bearer token. The namespace key wins when set.
	APIKey string

	Timeout time.Duration

	// MaxRequests is the number of probes allowed while half-open.
	MaxRequests uint32

	// Interval is the cyclic period of the closed state.
	Interval time.Duration

	// OpenTimeout is how long the breaker stays open.
	OpenTimeout time.Duration

	// FailureThreshold trips the breaker after that many consecutive failures.
	FailureThreshold uint32
}

// DefaultRemoteConfig returns breaker settings suitable for an interactive widget.
func DefaultRemoteConfig(endpoint string) RemoteConfig {
	return RemoteConfig{
		Endpoint:         endpoint,
		Timeout:          10 * time.Second,
		MaxRequests:      1,
		Interval:         30 * time.Second,
		OpenTimeout:      15 * time.Second,
		FailureThreshold: 3,
	}
}

// RemoteSource reads feedback from an HTTP endpoint. It cannot store whole
// lists but forwards new items and upvotes one at a time.
type RemoteSource struct {
	cfg     RemoteConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[any]
	logger  *slog.Logger
	metrics observability.Metrics
}

// NewRemoteSource creates a source. A nil client uses one with cfg.Timeout.
func NewRemoteSource(cfg RemoteConfig, client *http.Client, logger *slog.Logger, metrics observability.Metrics) *RemoteSource {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 3
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")

	r := &RemoteSource{cfg: cfg, client: client, logger: logger, metrics: metrics}
	r.breaker = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "feedback-remote",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	return r
}

// State returns the breaker state, for health reporting.
func (r *RemoteSource) State() gobreaker.State {
	return r.breaker.State()
}

// Load fetches the item list.
func (r *RemoteSource) Load(ctx context.Context, ns domain.Namespace) ([]domain.Item, error) {
	body, err := r.do(ctx, ns, http.MethodGet, "/feedback", nil, http.StatusOK)
	if err != nil {
		return nil, err
	}
	var items []domain.Item
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("failed to decode remote feedback: %w", err)
	}
	return domain.Normalize(items), nil
}

// Save always fails; the endpoint only accepts individual writes.
func (r *RemoteSource) Save(ctx context.Context, items []domain.Item, ns domain.Namespace) error {
	return domain.ErrReadOnlySource
}

type submitFeedbackRequest struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Labels      []domain.Label `json:"labels"`
}

// SubmitItem posts a new item.
func (r *RemoteSource) SubmitItem(ctx context.Context, ns domain.Namespace, item domain.Item) error {
	_, err := r.do(ctx, ns, http.MethodPost, "/feedback", submitFeedbackRequest{
		Title:       item.Title,
		Description: item.Summary,
		Labels:      item.Labels,
	}, http.StatusCreated)
	return err
}

type submitUpvoteRequest struct {
	FeedbackID string `json:"feedbackId"`
	UserID     string `json:"userId"`
	UserName   string `json:"userName"`
}

// SubmitUpvote posts an upvote for itemID.
func (r *RemoteSource) SubmitUpvote(ctx context.Context, ns domain.Namespace, itemID string, upvote domain.Upvote) error {
	_, err := r.do(ctx, ns, http.MethodPost, "/upvote", submitUpvoteRequest{
		FeedbackID: itemID,
		UserID:     upvote.UserID,
		UserName:   upvote.UserName,
	}, http.StatusOK)
	return err
}

func (r *RemoteSource) do(ctx context.Context, ns domain.Namespace, method, path string, payload any, want int) ([]byte, error) {
	start := time.Now()
	result, err := r.breaker.Execute(func() (any, error) {
		return r.roundTrip(ctx, ns, method, path, payload, want)
	})

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	tags := []observability.Tag{observability.T("method", method), observability.T("outcome", outcome)}
	r.metrics.Counter(observability.MetricRemoteCalls, 1, tags...)
	r.metrics.Timing(observability.MetricRemoteDuration, time.Since(start), tags...)

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

func (r *RemoteSource) roundTrip(ctx context.Context, ns domain.Namespace, method, path string, payload any, want int) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.cfg.Endpoint+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	key := r.cfg.APIKey
	if !ns.IsGlobal() {
		key = ns.APIKey()
	}
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read remote response: %w", err)
	}
	if resp.StatusCode != want {
		return nil, &RemoteError{Status: resp.StatusCode, Message: remoteMessage(body)}
	}
	return body, nil
}

// RemoteError is a non-success response from the endpoint.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote endpoint returned %d: %s", e.Status, e.Message)
}

func remoteMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return msg
	}
	return "unexpected response"
}
