package engine

import (
	"context"
	"errors"
	"time"

	"github.com/louisbranch/arena/internal/services/arena/domain/account"
	"github.com/louisbranch/arena/internal/services/arena/domain/config"
	"github.com/louisbranch/arena/internal/services/arena/domain/session"
	"github.com/louisbranch/arena/internal/services/arena/domain/vault"
	"github.com/louisbranch/arena/internal/services/arena/storage"
)

// SessionView is a session with its derived status and escrow.
type SessionView struct {
	session.State
	Status       session.Status
	Vault        account.ID
	VaultBalance uint64
	Deadline     time.Time
}

func viewSession(ctx context.Context, accounts storage.AccountStore, state session.State) (SessionView, error) {
	view := SessionView{
		State:    state,
		Status:   state.Status(),
		Vault:    vault.Derive(state.ID),
		Deadline: state.Deadline(),
	}
	escrow, err := accounts.GetAccount(ctx, view.Vault)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return SessionView{}, err
	default:
		view.VaultBalance = escrow.Balance
	}
	return view, nil
}

// GetConfig returns the configuration, NOT_INITIALIZED before Initialize.
func (e *Engine) GetConfig(ctx context.Context) (config.State, error) {
	cfg, err := e.store.GetConfig(ctx)
	if err != nil {
		return config.State{}, err
	}
	if err := cfg.Require(); err != nil {
		return config.State{}, err
	}
	return cfg, nil
}

// GetSession returns a session with its vault balance.
func (e *Engine) GetSession(ctx context.Context, sessionID string) (SessionView, error) {
	state, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return SessionView{}, err
	}
	return viewSession(ctx, e.store, state)
}

// GetAccount returns an account by id.
func (e *Engine) GetAccount(ctx context.Context, id account.ID) (account.State, error) {
	return e.store.GetAccount(ctx, id)
}

// ListSessions returns a page of sessions, newest first.
func (e *Engine) ListSessions(ctx context.Context, filter storage.SessionFilter) (storage.SessionPage, error) {
	return e.store.ListSessions(ctx, filter)
}

// ListStalledSessions returns sessions whose round timed out by now.
func (e *Engine) ListStalledSessions(ctx context.Context, limit int) ([]session.State, error) {
	return e.store.ListStalledSessions(ctx, e.clock(), limit)
}

// ListEvents returns a page of journal events.
func (e *Engine) ListEvents(ctx context.Context, filter storage.EventFilter) (storage.EventPage, error) {
	return e.store.ListEvents(ctx, filter)
}

// VerifyStream checks the hash chain and signatures of one journal stream.
func (e *Engine) VerifyStream(ctx context.Context, streamID string) (int, error) {
	return e.store.VerifyStream(ctx, streamID)
}
