package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/felixgeelhaar/featureboard/internal/feedback/application"
	"github.com/felixgeelhaar/featureboard/internal/feedback/application/queries"
	"github.com/felixgeelhaar/featureboard/internal/feedback/domain"
)

// KeyResolver maps an API key to its owner.
type KeyResolver interface {
	ResolveAPIKey(ctx context.Context, token string) (string, bool, error)
}

// FeedbackHandler handles the v1 feedback endpoints.
type FeedbackHandler struct {
	boards *application.Boards
	list   *queries.ListItemsHandler
	keys   KeyResolver
	logger *slog.Logger
}

// FeedbackHandlerConfig holds configuration for the feedback handler.
type FeedbackHandlerConfig struct {
	Boards *application.Boards
	List   *queries.ListItemsHandler
	Keys   KeyResolver
	Logger *slog.Logger
}

// NewFeedbackHandler creates a new feedback handler.
func NewFeedbackHandler(cfg FeedbackHandlerConfig) *FeedbackHandler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.List == nil {
		cfg.List = queries.NewListItemsHandler(cfg.Boards)
	}
	return &FeedbackHandler{
		boards: cfg.Boards,
		list:   cfg.List,
		keys:   cfg.Keys,
		logger: cfg.Logger,
	}
}

// namespace binds the request to the namespace of its bearer key. Requests
// without a key use the global namespace.
func (h *FeedbackHandler) namespace(r *http.Request) (domain.Namespace, *APIError) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return domain.Global, nil
	}
	token, ok := strings.CutPrefix(auth, "Bearer ")
	token = strings.TrimSpace(token)
	if !ok || !domain.IsAPIKey(token) || h.keys == nil {
		return domain.Namespace{}, ErrUnauthorized
	}
	if _, known, err := h.keys.ResolveAPIKey(r.Context(), token); err != nil {
		h.logger.Error("failed to resolve API key", "error", err)
		return domain.Namespace{}, ErrInternalServer
	} else if !known {
		return domain.Namespace{}, ErrUnauthorized
	}
	return domain.ForAPIKey(token), nil
}

func (h *FeedbackHandler) board(w http.ResponseWriter, r *http.Request) (*application.Board, bool) {
	ns, apiErr := h.namespace(r)
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return nil, false
	}
	return h.boards.Get(r.Context(), ns), true
}

// List handles GET /api/v1/feedback.
func (h *FeedbackHandler) List(w http.ResponseWriter, r *http.Request) {
	ns, apiErr := h.namespace(r)
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}

	q := r.URL.Query()
	criteria := domain.Criteria{
		Search:   q.Get("search"),
		LabelIDs: parseListParam(q.Get("labels")),
		Sort:     domain.SortKey(q.Get("sort")),
	}
	for _, s := range parseListParam(q.Get("status")) {
		st, err := domain.ParseStatus(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		criteria.Statuses = append(criteria.Statuses, st)
	}
	var err error
	if criteria.From, err = parseDateParam(q.Get("from"), false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid from date")
		return
	}
	if criteria.To, err = parseDateParam(q.Get("to"), true); err != nil {
		writeError(w, http.StatusBadRequest, "invalid to date")
		return
	}

	items, err := h.list.Handle(r.Context(), queries.ListItemsQuery{
		Namespace:  ns,
		Criteria:   criteria,
		Where:      q.Get("where"),
		PublicOnly: parseBoolParam(q.Get("public"), false),
	})
	if err != nil {
		h.writeFailure(w, "failed to list feedback", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"total": len(items),
	})
}

// Get handles GET /api/v1/feedback/{id}.
func (h *FeedbackHandler) Get(w http.ResponseWriter, r *http.Request) {
	b, ok := h.board(w, r)
	if !ok {
		return
	}
	item, found := b.Get(r.PathValue("id"))
	if !found {
		writeAPIError(w, ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

type createItemRequest struct {
	Title    string   `json:"title"`
	Summary  string   `json:"summary"`
	Status   string   `json:"status"`
	LabelIDs []string `json:"labels"`
	Author   string   `json:"author"`
}

// Create handles POST /api/v1/feedback.
func (h *FeedbackHandler) Create(w http.ResponseWriter, r *http.Request) {
	b, ok := h.board(w, r)
	if !ok {
		return
	}
	var req createItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAPIError(w, toAPIError(err))
		return
	}

	item, err := b.Create(r.Context(), domain.Draft{
		Title:   req.Title,
		Summary: req.Summary,
		Status:  domain.Status(req.Status),
		Labels:  domain.LabelsByID(req.LabelIDs),
		Author:  req.Author,
	})
	if err != nil {
		h.writeFailure(w, "failed to create feedback", err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

type updateItemRequest struct {
	Title    *string   `json:"title"`
	Summary  *string   `json:"summary"`
	Status   *string   `json:"status"`
	LabelIDs *[]string `json:"labels"`
	Author   *string   `json:"author"`
}

func (req updateItemRequest) patch() domain.Patch {
	p := domain.Patch{Title: req.Title, Summary: req.Summary, Author: req.Author}
	if req.Status != nil {
		st := domain.Status(*req.Status)
		p.Status = &st
	}
	if req.LabelIDs != nil {
		labels := domain.LabelsByID(*req.LabelIDs)
		p.Labels = &labels
	}
	return p
}

// Update handles PATCH /api/v1/feedback/{id}.
func (h *FeedbackHandler) Update(w http.ResponseWriter, r *http.Request) {
	b, ok := h.board(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	if _, found := b.Get(id); !found {
		writeAPIError(w, ErrNotFound)
		return
	}
	var req updateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAPIError(w, toAPIError(err))
		return
	}
	if err := b.Update(r.Context(), id, req.patch()); err != nil {
		h.writeFailure(w, "failed to update feedback", err)
		return
	}
	item, _ := b.Get(id)
	writeJSON(w, http.StatusOK, item)
}

// Delete handles DELETE /api/v1/feedback/{id}.
func (h *FeedbackHandler) Delete(w http.ResponseWriter, r *http.Request) {
	b, ok := h.board(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	if _, found := b.Get(id); !found {
		writeAPIError(w, ErrNotFound)
		return
	}
	b.Delete(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

type commentRequest struct {
	Content  string `json:"content"`
	Author   string `json:"author"`
	IsPublic bool   `json:"isPublic"`
}

// AddComment handles POST /api/v1/feedback/{id}/comments.
func (h *FeedbackHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	b, ok := h.board(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	if _, found := b.Get(id); !found {
		writeAPIError(w, ErrNotFound)
		return
	}
	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAPIError(w, toAPIError(err))
		return
	}
	c, err := b.AddComment(r.Context(), id, domain.CommentInput{
		Content:  req.Content,
		Author:   req.Author,
		IsPublic: req.IsPublic,
	})
	if err != nil {
		h.writeFailure(w, "failed to add comment", err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

type upvoteRequest struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

// AddUpvote handles POST /api/v1/feedback/{id}/upvotes.
func (h *FeedbackHandler) AddUpvote(w http.ResponseWriter, r *http.Request) {
	b, ok := h.board(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	if _, found := b.Get(id); !found {
		writeAPIError(w, ErrNotFound)
		return
	}
	var req upvoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAPIError(w, toAPIError(err))
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}
	u := b.AddUpvote(r.Context(), id, domain.UpvoteInput{UserID: req.UserID, UserName: req.UserName})
	writeJSON(w, http.StatusCreated, u)
}

// RemoveUpvote handles DELETE /api/v1/feedback/{id}/upvotes/{userID}.
func (h *FeedbackHandler) RemoveUpvote(w http.ResponseWriter, r *http.Request) {
	b, ok := h.board(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	if _, found := b.Get(id); !found {
		writeAPIError(w, ErrNotFound)
		return
	}
	b.RemoveUpvote(r.Context(), id, r.PathValue("userID"))
	w.WriteHeader(http.StatusNoContent)
}

// Labels handles GET /api/v1/labels.
func (h *FeedbackHandler) Labels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, domain.BuiltinLabels())
}

func (h *FeedbackHandler) writeFailure(w http.ResponseWriter, msg string, err error) {
	apiErr := toAPIError(err)
	if apiErr.Status >= http.StatusInternalServerError {
		h.logger.Error(msg, "error", err)
	}
	writeAPIError(w, apiErr)
}

// parseListParam splits a comma separated query value.
func parseListParam(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseBoolParam parses a boolean query parameter.
func parseBoolParam(s string, defaultVal bool) bool {
	if s == "" {
		return defaultVal
	}
	val, err := strconv.ParseBool(s)
	if err != nil {
		return defaultVal
	}
	return val
}

// parseDateParam accepts RFC 3339 or a plain date. A plain upper bound
// covers the whole day.
func parseDateParam(s string, endOfDay bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, fmt.Errorf("parse date %q: %w", s, err)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
