// Package queries holds read-side handlers over feedback boards.
package queries

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/patrickmn/go-cache"

	"github.com/felixgeelhaar/featureboard/internal/feedback/application"
	"github.com/felixgeelhaar/featureboard/internal/feedback/domain"
)

// ListItemsQuery selects items of one namespace.
type ListItemsQuery struct {
	Namespace domain.Namespace
	Criteria  domain.Criteria

	// Where is an optional expr predicate evaluated per item, e.g.
	// `upvotes >= 10 and "BUG" in labels`.
	Where string

	// PublicOnly applies the widget projection before filtering.
	PublicOnly bool
}

// ItemEnv is the variable set visible to Where expressions.
type ItemEnv struct {
	ID        string    `expr:"id"`
	Title     string    `expr:"title"`
	Summary   string    `expr:"summary"`
	Status    string    `expr:"status"`
	Author    string    `expr:"author"`
	Labels    []string  `expr:"labels"`
	Upvotes   int       `expr:"upvotes"`
	Comments  int       `expr:"comments"`
	CreatedAt time.Time `expr:"createdAt"`
	UpdatedAt time.Time `expr:"updatedAt"`
	Now       time.Time `expr:"now"`
}

func newItemEnv(it domain.Item, now time.Time) ItemEnv {
	labels := make([]string, len(it.Labels))
	for n, l := range it.Labels {
		labels[n] = l.Name
	}
	return ItemEnv{
		ID:        it.ID,
		Title:     it.Title,
		Summary:   it.Summary,
		Status:    string(it.Status),
		Author:    it.Author,
		Labels:    labels,
		Upvotes:   len(it.Upvotes),
		Comments:  len(it.Comments),
		CreatedAt: it.CreatedAt,
		UpdatedAt: it.UpdatedAt,
		Now:       now,
	}
}

// ListItemsHandler answers ListItemsQuery.
type ListItemsHandler struct {
	boards   *application.Boards
	programs *cache.Cache
}

// NewListItemsHandler creates a handler. Compiled predicates are cached.
func NewListItemsHandler(boards *application.Boards) *ListItemsHandler {
	return &ListItemsHandler{
		boards:   boards,
		programs: cache.New(30*time.Minute, time.Hour),
	}
}

// Handle returns the filtered list.
func (h *ListItemsHandler) Handle(ctx context.Context, q ListItemsQuery) ([]domain.Item, error) {
	if !q.Criteria.Sort.IsValid() {
		return nil, fmt.Errorf("%w: unknown sort %q", domain.ErrValidation, q.Criteria.Sort)
	}

	var program *vm.Program
	if where := strings.TrimSpace(q.Where); where != "" {
		p, err := h.compile(where)
		if err != nil {
			return nil, err
		}
		program = p
	}

	items := h.boards.Get(ctx, q.Namespace).Items()
	if q.PublicOnly {
		items = domain.PublicItems(items, domain.BuiltinLabels())
	}
	items = domain.Filter(items, q.Criteria)
	if program == nil {
		return items, nil
	}

	now := time.Now().UTC()
	out := make([]domain.Item, 0, len(items))
	for _, it := range items {
		ok, err := expr.Run(program, newItemEnv(it, now))
		if err != nil {
			return nil, fmt.Errorf("%w: where: %v", domain.ErrValidation, err)
		}
		if ok.(bool) {
			out = append(out, it)
		}
	}
	return out, nil
}

func (h *ListItemsHandler) compile(where string) (*vm.Program, error) {
	if cached, ok := h.programs.Get(where); ok {
		return cached.(*vm.Program), nil
	}
	program, err := expr.Compile(where, expr.Env(ItemEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("%w: where: %v", domain.ErrValidation, err)
	}
	h.programs.Set(where, program, cache.DefaultExpiration)
	return program, nil
}
