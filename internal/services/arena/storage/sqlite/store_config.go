package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/louisbranch/arena/internal/services/arena/domain/config"
	"github.com/louisbranch/arena/internal/services/arena/domain/identity"
)

// GetConfig returns the singleton configuration, or the zero State before
// initialization.
func (s *Store) GetConfig(ctx context.Context) (config.State, error) {
	var (
		authority, currency, feeRecipient string
		feeRate                           int64
		initializedAt                     int64
	)
	err := s.q.QueryRowContext(ctx,
		"SELECT authority, currency, fee_recipient, fee_rate_bps, initialized_at FROM arena_config WHERE id = 1",
	).Scan(&authority, &currency, &feeRecipient, &feeRate, &initializedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return config.State{}, nil
	}
	if err != nil {
		return config.State{}, fmt.Errorf("get config: %w", err)
	}
	return config.State{
		Authority:     identity.ID(authority),
		Currency:      currency,
		FeeRecipient:  identity.ID(feeRecipient),
		FeeRateBps:    uint16(feeRate),
		Initialized:   true,
		InitializedAt: fromMillis(initializedAt),
	}, nil
}

// PutConfig stores the configuration singleton.
func (s *Store) PutConfig(ctx context.Context, state config.State) error {
	if !state.Initialized {
		return fmt.Errorf("put config: state is not initialized")
	}
	if _, err := s.q.ExecContext(ctx, `
INSERT INTO arena_config (id, authority, currency, fee_recipient, fee_rate_bps, initialized_at)
VALUES (1, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    authority = excluded.authority,
    currency = excluded.currency,
    fee_recipient = excluded.fee_recipient,
    fee_rate_bps = excluded.fee_rate_bps,
    initialized_at = excluded.initialized_at`,
		string(state.Authority), state.Currency, string(state.FeeRecipient), int64(state.FeeRateBps), toMillis(state.InitializedAt),
	); err != nil {
		return fmt.Errorf("put config: %w", err)
	}
	return nil
}
