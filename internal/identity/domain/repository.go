package domain

import "context"

// AccountRepository stores the full account list.
type AccountRepository interface {
	List(ctx context.Context) ([]Account, error)
	SaveAll(ctx context.Context, accounts []Account) error
}

// KeyRepository stores the user id to API key map.
type KeyRepository interface {
	Keys(ctx context.Context) (map[string]string, error)
	SaveKeys(ctx context.Context, keys map[string]string) error
}
