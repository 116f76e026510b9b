// Package slots provides named key/value storage slots. Every slot holds one
// opaque document that is read and replaced as a whole, which is the storage
// model the feedback store and the identity registry are built on.
package slots

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get for a slot that was never written.
var ErrNotFound = errors.New("slot not found")

// Store reads and overwrites whole slots.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}
