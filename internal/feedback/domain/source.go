package domain

import (
	"context"
	"errors"
)

// ErrReadOnlySource is returned by sources that cannot persist a list.
var ErrReadOnlySource = errors.New("data source is read-only")

// Source loads and stores the full item list of a namespace. Save replaces
// the whole list; concurrent writers race and the last one wins.
type Source interface {
	Load(ctx context.Context, ns Namespace) ([]Item, error)
	Save(ctx context.Context, items []Item, ns Namespace) error
}

// Submitter is implemented by sources that accept individual writes, such
// as a remote feedback endpoint.
type Submitter interface {
	SubmitItem(ctx context.Context, ns Namespace, item Item) error
	SubmitUpvote(ctx context.Context, ns Namespace, itemID string, upvote Upvote) error
}
