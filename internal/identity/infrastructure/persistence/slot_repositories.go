// Package persistence stores accounts and API keys in storage slots.
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/featureboard/internal/identity/domain"
	"github.com/felixgeelhaar/featureboard/internal/shared/infrastructure/slots"
)

// Slot names.
const (
	SlotUsers   = "feedback-users"
	SlotAPIKeys = "feedback-api-keys"
)

// SlotAccountRepository keeps accounts in one slot. An unreadable slot
// yields the default accounts.
type SlotAccountRepository struct {
	slots  slots.Store
	logger *slog.Logger
}

// NewSlotAccountRepository creates a repository.
func NewSlotAccountRepository(st slots.Store, logger *slog.Logger) *SlotAccountRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlotAccountRepository{slots: st, logger: logger}
}

func (r *SlotAccountRepository) List(ctx context.Context) ([]domain.Account, error) {
	raw, err := r.slots.Get(ctx, SlotUsers)
	if errors.Is(err, slots.ErrNotFound) {
		return domain.DefaultAccounts(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	var accounts []domain.Account
	if err := json.Unmarshal(raw, &accounts); err != nil || accounts == nil {
		r.logger.WarnContext(ctx, "ignoring malformed slot data", "slot", SlotUsers, "error", err)
		return domain.DefaultAccounts(), nil
	}
	return accounts, nil
}

func (r *SlotAccountRepository) SaveAll(ctx context.Context, accounts []domain.Account) error {
	raw, err := json.Marshal(accounts)
	if err != nil {
		return fmt.Errorf("failed to encode accounts: %w", err)
	}
	if err := r.slots.Set(ctx, SlotUsers, raw); err != nil {
		return fmt.Errorf("failed to save accounts: %w", err)
	}
	return nil
}

// SlotKeyRepository keeps the user id to API key map in one slot.
type SlotKeyRepository struct {
	slots  slots.Store
	logger *slog.Logger
}

// NewSlotKeyRepository creates a repository.
func NewSlotKeyRepository(st slots.Store, logger *slog.Logger) *SlotKeyRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlotKeyRepository{slots: st, logger: logger}
}

func (r *SlotKeyRepository) Keys(ctx context.Context) (map[string]string, error) {
	raw, err := r.slots.Get(ctx, SlotAPIKeys)
	if errors.Is(err, slots.ErrNotFound) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load api keys: %w", err)
	}
	var keys map[string]string
	if err := json.Unmarshal(raw, &keys); err != nil || keys == nil {
		r.logger.WarnContext(ctx, "ignoring malformed slot data", "slot", SlotAPIKeys, "error", err)
		return map[string]string{}, nil
	}
	return keys, nil
}

func (r *SlotKeyRepository) SaveKeys(ctx context.Context, keys map[string]string) error {
	raw, err := json.Marshal(keys)
	if err != nil {
		return fmt.Errorf("failed to encode api keys: %w", err)
	}
	if err := r.slots.Set(ctx, SlotAPIKeys, raw); err != nil {
		return fmt.Errorf("failed to save api keys: %w", err)
	}
	return nil
}
