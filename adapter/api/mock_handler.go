package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/felixgeelhaar/featureboard/internal/feedback/domain"
)

// MockPrefixes are the paths the mock feedback endpoint is mounted under.
var MockPrefixes = []string{
	"/.netlify/functions/feedback-api",
	"/api/mock",
}

// MockHandler answers the remote widget protocol with canned data. It never
// touches the store.
type MockHandler struct {
	logger *slog.Logger
	clock  domain.Clock
}

// MockHandlerConfig holds configuration for the mock handler.
type MockHandlerConfig struct {
	Logger *slog.Logger
	Clock  domain.Clock
}

// NewMockHandler creates a new mock handler.
func NewMockHandler(cfg MockHandlerConfig) *MockHandler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = domain.SystemClock
	}
	return &MockHandler{logger: cfg.Logger, clock: cfg.Clock}
}

// Mount returns the handler for requests under prefix. Routing looks at the
// path below the prefix only.
func (h *MockHandler) Mount(prefix string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.serve(w, r, strings.TrimPrefix(r.URL.Path, prefix))
	})
}

func (h *MockHandler) serve(w http.ResponseWriter, r *http.Request, rel string) {
	hdr := w.Header()
	hdr.Set("Access-Control-Allow-Origin", "*")
	hdr.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	hdr.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")

	if r.Method == http.MethodOptions {
		hdr.Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		return
	}

	key := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !strings.HasPrefix(key, domain.APIKeyPrefix) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid API key"})
		return
	}

	switch r.Method {
	case http.MethodGet:
		if strings.Contains(rel, "/feedback") {
			writeJSON(w, http.StatusOK, MockFeedback(h.clock()))
			return
		}
	case http.MethodPost:
		if strings.Contains(rel, "/feedback") {
			h.createFeedback(w, r)
			return
		}
		if strings.Contains(rel, "/upvote") {
			h.upvote(w, r)
			return
		}
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}

	writeJSON(w, http.StatusNotFound, map[string]string{"error": "Endpoint not found"})
}

type mockSubmission struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Labels      []domain.Label `json:"labels"`
}

func (h *MockHandler) createFeedback(w http.ResponseWriter, r *http.Request) {
	var in mockSubmission
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.logger.Error("mock endpoint: malformed feedback body", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}
	if in.Labels == nil {
		in.Labels = []domain.Label{}
	}

	now := h.clock().UTC()
	writeJSON(w, http.StatusCreated, domain.Item{
		ID:        strconv.FormatInt(now.UnixMilli(), 10),
		Title:     in.Title,
		Summary:   in.Description,
		Status:    domain.StatusPublic,
		Author:    "Anonymous User",
		Labels:    in.Labels,
		CreatedAt: now,
		UpdatedAt: now,
		Upvotes:   []domain.Upvote{},
		Comments:  []domain.Comment{},
	})
}

func (h *MockHandler) upvote(w http.ResponseWriter, r *http.Request) {
	var in map[string]any
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.logger.Error("mock endpoint: malformed upvote body", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"upvoteId": strconv.FormatInt(h.clock().UnixMilli(), 10),
	})
}

// MockFeedback returns the canned feedback list relative to now.
func MockFeedback(now time.Time) []domain.Item {
	now = now.UTC()
	feature, _ := domain.LabelByID("4")
	improvement, _ := domain.LabelByID("3")
	day := 24 * time.Hour

	upvotes := func(n int, idPrefix, userPrefix, namePrefix string, step time.Duration) []domain.Upvote {
		out := make([]domain.Upvote, n)
		for i := range out {
			out[i] = domain.Upvote{
				ID:        fmt.Sprintf("%s%d", idPrefix, i),
				UserID:    fmt.Sprintf("%s%d", userPrefix, i),
				UserName:  fmt.Sprintf("%s %d", namePrefix, i),
				CreatedAt: now.Add(-time.Duration(i) * step),
			}
		}
		return out
	}

	items := []domain.Item{
		{
			ID:        "1",
			Title:     "Add dark mode support",
			Summary:   "It would be great to have a dark mode option for better user experience during night time usage.",
			Status:    domain.StatusPublic,
			Author:    "Anonymous User",
			Labels:    []domain.Label{feature},
			CreatedAt: now.Add(-2 * day),
			Upvotes:   upvotes(15, "upvote-", "user-", "User", time.Hour),
			Comments: []domain.Comment{{
				ID:        "comment-1",
				Content:   "This would be really helpful!",
				Author:    "User123",
				IsPublic:  true,
				CreatedAt: now.Add(-day),
			}},
		},
		{
			ID:        "2",
			Title:     "Mobile app version",
			Summary:   "Please create a mobile app version for iOS and Android platforms.",
			Status:    domain.StatusPublic,
			Author:    "Mobile User",
			Labels:    []domain.Label{feature},
			CreatedAt: now.Add(-5 * day),
			Upvotes:   upvotes(8, "upvote-mobile-", "mobile-user-", "Mobile User", 2*time.Hour),
			Comments:  []domain.Comment{},
		},
		{
			ID:        "3",
			Title:     "Improve loading speed",
			Summary:   "The application takes too long to load. Please optimize the performance.",
			Status:    domain.StatusPublic,
			Author:    "Speed Enthusiast",
			Labels:    []domain.Label{improvement},
			CreatedAt: now.Add(-7 * day),
			Upvotes:   upvotes(12, "upvote-speed-", "speed-user-", "Speed User", 3*time.Hour),
			Comments: []domain.Comment{{
				ID:        "comment-speed-1",
				Content:   "Yes, this is a major issue!",
				Author:    "FastUser",
				IsPublic:  true,
				CreatedAt: now.Add(-2 * day),
			}},
		},
	}
	return domain.Normalize(items)
}
