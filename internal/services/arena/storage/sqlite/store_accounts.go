package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/louisbranch/arena/internal/services/arena/domain/account"
	"github.com/louisbranch/arena/internal/services/arena/domain/identity"
	"github.com/louisbranch/arena/internal/services/arena/domain/money"
	"github.com/louisbranch/arena/internal/services/arena/storage"
)

// GetAccount returns an account or storage.ErrNotFound.
func (s *Store) GetAccount(ctx context.Context, id account.ID) (account.State, error) {
	var (
		owner, currency, kind string
		balance               int64
		createdAt, updatedAt  int64
	)
	err := s.q.QueryRowContext(ctx,
		"SELECT owner, currency, kind, balance, created_at, updated_at FROM accounts WHERE id = ?",
		string(id),
	).Scan(&owner, &currency, &kind, &balance, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return account.State{}, storage.ErrNotFound
	}
	if err != nil {
		return account.State{}, fmt.Errorf("get account %s: %w", id, err)
	}
	return account.State{
		ID:        id,
		Owner:     identity.ID(owner),
		Currency:  currency,
		Kind:      account.Kind(kind),
		Balance:   uint64(balance),
		CreatedAt: fromMillis(createdAt),
		UpdatedAt: fromMillis(updatedAt),
	}, nil
}

// PutAccount upserts an account projection.
func (s *Store) PutAccount(ctx context.Context, state account.State) error {
	if state.ID == "" {
		return fmt.Errorf("put account: id is required")
	}
	if state.Balance > money.MaxBalance {
		return fmt.Errorf("put account %s: balance exceeds storage range", state.ID)
	}
	updatedAt := state.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = state.CreatedAt
	}
	if _, err := s.q.ExecContext(ctx, `
INSERT INTO accounts (id, owner, currency, kind, balance, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    balance = excluded.balance,
    updated_at = excluded.updated_at`,
		string(state.ID), string(state.Owner), state.Currency, string(state.Kind),
		int64(state.Balance), toMillis(state.CreatedAt), toMillis(updatedAt),
	); err != nil {
		return fmt.Errorf("put account %s: %w", state.ID, err)
	}
	return nil
}
