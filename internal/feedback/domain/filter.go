package domain

import (
	"sort"
	"strings"
	"time"
)

// SortKey orders filter results.
type SortKey string

const (
	SortNone         SortKey = ""
	SortNewest       SortKey = "newest"
	SortOldest       SortKey = "oldest"
	SortMostUpvotes  SortKey = "most-upvotes"
	SortLeastUpvotes SortKey = "least-upvotes"
)

// IsValid reports whether k is a known key. SortNone is valid.
func (k SortKey) IsValid() bool {
	switch k {
	case SortNone, SortNewest, SortOldest, SortMostUpvotes, SortLeastUpvotes:
		return true
	}
	return false
}

// Criteria narrows and orders a list. Zero fields do not filter.
type Criteria struct {
	Search   string
	Statuses []Status
	LabelIDs []string
	Sort     SortKey
	// From and To bound createdAt, both inclusive.
	From *time.Time
	To   *time.Time
}

// IsEmpty reports whether c neither filters nor sorts.
func (c Criteria) IsEmpty() bool {
	return strings.TrimSpace(c.Search) == "" && len(c.Statuses) == 0 && len(c.LabelIDs) == 0 &&
		c.Sort == SortNone && c.From == nil && c.To == nil
}

// Filter returns the items matching c, ordered by c.Sort. The input slice
// is not modified. Sorting is stable; without a sort key the input order
// is kept.
func Filter(items []Item, c Criteria) []Item {
	search := strings.ToLower(strings.TrimSpace(c.Search))

	out := make([]Item, 0, len(items))
	for _, it := range items {
		if search != "" &&
			!strings.Contains(strings.ToLower(it.Title), search) &&
			!strings.Contains(strings.ToLower(it.Summary), search) {
			continue
		}
		if len(c.Statuses) > 0 && !containsStatus(c.Statuses, it.Status) {
			continue
		}
		if len(c.LabelIDs) > 0 && !it.HasAnyLabel(c.LabelIDs) {
			continue
		}
		if c.From != nil && it.CreatedAt.Before(*c.From) {
			continue
		}
		if c.To != nil && it.CreatedAt.After(*c.To) {
			continue
		}
		out = append(out, it)
	}

	if less := lessFor(c.Sort); less != nil {
		sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	}
	return out
}

func lessFor(k SortKey) func(a, b Item) bool {
	switch k {
	case SortNewest:
		return func(a, b Item) bool { return a.CreatedAt.After(b.CreatedAt) }
	case SortOldest:
		return func(a, b Item) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case SortMostUpvotes:
		return func(a, b Item) bool { return len(a.Upvotes) > len(b.Upvotes) }
	case SortLeastUpvotes:
		return func(a, b Item) bool { return len(a.Upvotes) < len(b.Upvotes) }
	}
	return nil
}

func containsStatus(list []Status, s Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
