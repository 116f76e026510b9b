// Package domain holds the feedback board model: items, labels, namespaces,
// the pure filter engine and the public projection used by the widget.
package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrValidation is returned when an item draft or patch is incomplete.
var ErrValidation = errors.New("validation failed")

// Status is the visibility state of a feedback item.
type Status string

const (
	StatusPublic   Status = "public"
	StatusInternal Status = "internal"
	StatusArchived Status = "archived"
	StatusPending  Status = "pending"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusPublic, StatusInternal, StatusArchived, StatusPending}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPublic, StatusInternal, StatusArchived, StatusPending:
		return true
	}
	return false
}

// ParseStatus converts a string to a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: unknown status %q", ErrValidation, s)
	}
	return st, nil
}

// Item is a feature request together with its upvotes and comments.
type Item struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Status    Status    `json:"status"`
	Labels    []Label   `json:"labels"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Author    string    `json:"author"`
	Upvotes   []Upvote  `json:"upvotes"`
	Comments  []Comment `json:"comments"`
}

// Upvote records one vote. The same user may vote more than once.
type Upvote struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	CreatedAt time.Time `json:"createdAt"`
}

// Comment is a note on an item; only public comments reach the widget.
type Comment struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	IsPublic  bool      `json:"isPublic"`
	CreatedAt time.Time `json:"createdAt"`
}

// UpvoteCount returns the number of upvotes.
func (i Item) UpvoteCount() int { return len(i.Upvotes) }

// HasUpvoteFrom reports whether userID has voted on the item.
func (i Item) HasUpvoteFrom(userID string) bool {
	for _, u := range i.Upvotes {
		if u.UserID == userID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers cannot alias board state.
func (i Item) Clone() Item {
	c := i
	c.Labels = append([]Label(nil), i.Labels...)
	c.Upvotes = append([]Upvote(nil), i.Upvotes...)
	c.Comments = append([]Comment(nil), i.Comments...)
	if c.Labels == nil {
		c.Labels = []Label{}
	}
	if c.Upvotes == nil {
		c.Upvotes = []Upvote{}
	}
	if c.Comments == nil {
		c.Comments = []Comment{}
	}
	return c
}

// CloneItems deep copies a list.
func CloneItems(items []Item) []Item {
	out := make([]Item, len(items))
	for n, it := range items {
		out[n] = it.Clone()
	}
	return out
}

// Draft is the caller-supplied part of a new item.
type Draft struct {
	Title   string
	Summary string
	Status  Status
	Labels  []Label
	Author  string
}

// Validate checks required fields. An empty status defaults to public.
func (d *Draft) Validate() error {
	d.Title = strings.TrimSpace(d.Title)
	d.Summary = strings.TrimSpace(d.Summary)
	if d.Title == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if d.Summary == "" {
		return fmt.Errorf("%w: summary is required", ErrValidation)
	}
	if d.Status == "" {
		d.Status = StatusPublic
	}
	if !d.Status.IsValid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, d.Status)
	}
	return nil
}

// Patch lists the fields of an update. Nil fields are left untouched.
type Patch struct {
	Title   *string
	Summary *string
	Status  *Status
	Labels  *[]Label
	Author  *string
}

// Validate rejects patches that would blank a required field.
func (p Patch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return fmt.Errorf("%w: title cannot be empty", ErrValidation)
	}
	if p.Summary != nil && strings.TrimSpace(*p.Summary) == "" {
		return fmt.Errorf("%w: summary cannot be empty", ErrValidation)
	}
	if p.Status != nil && !p.Status.IsValid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, *p.Status)
	}
	return nil
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Summary == nil && p.Status == nil && p.Labels == nil && p.Author == nil
}

// Apply merges the patch into item.
func (p Patch) Apply(item *Item) {
	if p.Title != nil {
		item.Title = strings.TrimSpace(*p.Title)
	}
	if p.Summary != nil {
		item.Summary = strings.TrimSpace(*p.Summary)
	}
	if p.Status != nil {
		item.Status = *p.Status
	}
	if p.Labels != nil {
		item.Labels = append([]Label{}, (*p.Labels)...)
	}
	if p.Author != nil {
		item.Author = *p.Author
	}
}

// CommentInput is the caller-supplied part of a comment.
type CommentInput struct {
	Content  string
	Author   string
	IsPublic bool
}

// UpvoteInput is the caller-supplied part of an upvote.
type UpvoteInput struct {
	UserID   string
	UserName string
}

// Normalize fills defaults on loaded items: empty collections instead of
// nil and an updatedAt no earlier than createdAt.
func Normalize(items []Item) []Item {
	if items == nil {
		return []Item{}
	}
	for n := range items {
		it := &items[n]
		if it.Labels == nil {
			it.Labels = []Label{}
		}
		if it.Upvotes == nil {
			it.Upvotes = []Upvote{}
		}
		if it.Comments == nil {
			it.Comments = []Comment{}
		}
		if it.UpdatedAt.Before(it.CreatedAt) {
			it.UpdatedAt = it.CreatedAt
		}
	}
	return items
}
