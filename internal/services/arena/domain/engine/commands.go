package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/louisbranch/arena/internal/platform/errors"
	"github.com/louisbranch/arena/internal/services/arena/domain/account"
	"github.com/louisbranch/arena/internal/services/arena/domain/command"
	"github.com/louisbranch/arena/internal/services/arena/domain/config"
	"github.com/louisbranch/arena/internal/services/arena/domain/event"
	"github.com/louisbranch/arena/internal/services/arena/domain/identity"
	"github.com/louisbranch/arena/internal/services/arena/domain/ledger"
	"github.com/louisbranch/arena/internal/services/arena/domain/move"
	"github.com/louisbranch/arena/internal/services/arena/domain/session"
	"github.com/louisbranch/arena/internal/services/arena/storage"
)

// Initialize creates the configuration singleton with the caller as authority.
func (e *Engine) Initialize(ctx context.Context, in config.InitializePayload) (config.State, error) {
	cmd, err := newCommand(ctx, config.CommandTypeInitialize, event.ConfigStreamID, in)
	if err != nil {
		return config.State{}, err
	}
	var result config.State
	err = e.store.Atomic(ctx, func(tx storage.Tx) error {
		cfg, err := tx.GetConfig(ctx)
		if err != nil {
			return err
		}
		decision := config.Decide(cfg, cmd, e.clock())
		if err := decision.Err(); err != nil {
			return err
		}
		for _, evt := range decision.Events {
			if cfg, err = config.Fold(cfg, evt); err != nil {
				return err
			}
		}
		if err := tx.PutConfig(ctx, cfg); err != nil {
			return err
		}
		if _, err := tx.AppendEvents(ctx, decision.Events); err != nil {
			return err
		}
		result = cfg
		return nil
	})
	return result, err
}

// OpenAccount opens the caller's wallet in the arena currency. Opening an
// existing wallet returns it unchanged.
func (e *Engine) OpenAccount(ctx context.Context) (account.State, error) {
	return e.runAccount(ctx, ledger.CommandTypeOpen, func(cfg config.State, actor identity.ID) (account.ID, any) {
		return account.Derive(actor, cfg.Currency), struct{}{}
	})
}

// Deposit credits amount to the wallet of owner. Only the authority may deposit.
func (e *Engine) Deposit(ctx context.Context, owner identity.ID, amount uint64) (account.State, error) {
	if owner == "" {
		return account.State{}, apperrors.New(apperrors.CodeInvalidIdentity, "deposit owner is required")
	}
	return e.runAccount(ctx, ledger.CommandTypeDeposit, func(cfg config.State, _ identity.ID) (account.ID, any) {
		return account.Derive(owner, cfg.Currency), ledger.DepositPayload{Owner: owner, Amount: amount}
	})
}

func (e *Engine) runAccount(ctx context.Context, cmdType command.Type, target func(cfg config.State, actor identity.ID) (account.ID, any)) (account.State, error) {
	var result account.State
	err := e.store.Atomic(ctx, func(tx storage.Tx) error {
		cfg, err := tx.GetConfig(ctx)
		if err != nil {
			return err
		}
		if err := cfg.Require(); err != nil {
			return err
		}
		id, payload := target(cfg, actorOf(ctx))
		cmd, err := newCommand(ctx, cmdType, string(id), payload)
		if err != nil {
			return err
		}

		state, err := loadAccount(ctx, tx, id)
		if err != nil {
			return err
		}
		decision := ledger.Decide(cfg, state, cmd, e.clock())
		if err := decision.Err(); err != nil {
			return err
		}
		for _, evt := range decision.Events {
			if state, err = ledger.Fold(state, evt); err != nil {
				return err
			}
		}
		if len(decision.Events) > 0 {
			if err := tx.PutAccount(ctx, state); err != nil {
				return err
			}
			if _, err := tx.AppendEvents(ctx, decision.Events); err != nil {
				return err
			}
		}
		result = state
		return nil
	})
	return result, err
}

// CreateInput holds the caller-chosen parameters of a new session.
type CreateInput struct {
	TotalHealth uint32
	PoolAmount  uint64
	// Funding is the account debited for the stake; empty means the
	// caller's wallet.
	Funding account.ID
}

// CreateSession opens a session and escrows the creator's stake. A creator
// may hold one unfinished session at a time and must claim a won reward
// before creating again.
func (e *Engine) CreateSession(ctx context.Context, in CreateInput) (SessionView, error) {
	sessionID, err := e.newID()
	if err != nil {
		return SessionView{}, fmt.Errorf("generate session id: %w", err)
	}
	result, err := e.runSession(ctx, session.CommandTypeCreate, sessionID, session.CreatePayload{
		TotalHealth:   in.TotalHealth,
		PoolAmount:    in.PoolAmount,
		RoundDamage:   e.rules.RoundDamage,
		TurnTimeoutMs: e.rules.TurnTimeout.Milliseconds(),
		Funding:       in.Funding,
	}, checkCreatorFree)
	return result.View, err
}

// checkCreatorFree rejects a creator that still has a blocking session.
func checkCreatorFree(ctx context.Context, tx storage.Tx, cmd command.Command) error {
	if cmd.ActorID == "" {
		return nil
	}
	blocking, found, err := tx.BlockingSession(ctx, cmd.ActorID)
	if err != nil || !found {
		return err
	}
	if blocking.Terminal() {
		return apperrors.WithMetadata(apperrors.CodeRewardNotClaimed, "claim the reward of your last session first",
			map[string]string{"session_id": blocking.ID})
	}
	return apperrors.WithMetadata(apperrors.CodeActiveSessionExists, "creator already has an unfinished session",
		map[string]string{"session_id": blocking.ID})
}

// JoinSession seats the caller as player and escrows the matching stake.
func (e *Engine) JoinSession(ctx context.Context, sessionID string, funding account.ID) (SessionView, error) {
	result, err := e.runSession(ctx, session.CommandTypeJoin, sessionID, session.JoinPayload{Funding: funding}, nil)
	return result.View, err
}

// SubmitMove records the caller's move for round, which must be the
// session's current round.
func (e *Engine) SubmitMove(ctx context.Context, sessionID string, round uint32, m move.Move) (SessionView, error) {
	result, err := e.runSession(ctx, session.CommandTypeSubmitMove, sessionID, session.SubmitMovePayload{Move: m, Round: round}, nil)
	return result.View, err
}

// RoundResult is a session after a resolved round.
type RoundResult struct {
	View  SessionView
	Round session.RoundResolvedPayload
}

// ResolveRound resolves a round in which both sides moved. Anyone may call it.
func (e *Engine) ResolveRound(ctx context.Context, sessionID string) (RoundResult, error) {
	return e.resolve(ctx, session.CommandTypeResolveRound, sessionID)
}

// ForceResolve resolves a timed-out round, the silent sides playing None.
// Anyone may call it.
func (e *Engine) ForceResolve(ctx context.Context, sessionID string) (RoundResult, error) {
	return e.resolve(ctx, session.CommandTypeForceResolve, sessionID)
}

func (e *Engine) resolve(ctx context.Context, cmdType command.Type, sessionID string) (RoundResult, error) {
	result, err := e.runSession(ctx, cmdType, sessionID, struct{}{}, nil)
	if err != nil {
		return RoundResult{}, err
	}
	var round session.RoundResolvedPayload
	if err := decodeLast(result.Events, session.EventTypeRoundResolved, &round); err != nil {
		return RoundResult{}, err
	}
	return RoundResult{View: result.View, Round: round}, nil
}

// ClaimResult is a session after its reward was paid.
type ClaimResult struct {
	View  SessionView
	Claim session.RewardClaimedPayload
}

// ClaimReward pays the vault out to the winner minus the protocol fee.
// receiving defaults to the winner's wallet.
func (e *Engine) ClaimReward(ctx context.Context, sessionID string, receiving account.ID) (ClaimResult, error) {
	result, err := e.runSession(ctx, session.CommandTypeClaimReward, sessionID, session.ClaimPayload{Receiving: receiving}, nil)
	if err != nil {
		return ClaimResult{}, err
	}
	var claim session.RewardClaimedPayload
	if err := decodeLast(result.Events, session.EventTypeRewardClaimed, &claim); err != nil {
		return ClaimResult{}, err
	}
	return ClaimResult{View: result.View, Claim: claim}, nil
}

type sessionResult struct {
	View   SessionView
	Events []event.Event
}

type precheck func(ctx context.Context, tx storage.Tx, cmd command.Command) error

// runSession executes one session command inside a transaction.
func (e *Engine) runSession(ctx context.Context, cmdType command.Type, sessionID string, payload any, check precheck) (sessionResult, error) {
	cmd, err := newCommand(ctx, cmdType, sessionID, payload)
	if err != nil {
		return sessionResult{}, err
	}
	now := e.clock()

	var result sessionResult
	err = e.store.Atomic(ctx, func(tx storage.Tx) error {
		cfg, err := tx.GetConfig(ctx)
		if err != nil {
			return err
		}
		if err := cfg.Require(); err != nil {
			return err
		}
		state, err := tx.GetSession(ctx, sessionID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		if check != nil {
			if err := check(ctx, tx, cmd); err != nil {
				return err
			}
		}

		decision := session.Decide(cfg, state, cmd, now)
		if err := decision.Err(); err != nil {
			return err
		}
		for _, evt := range decision.Events {
			if state, err = session.Fold(state, evt); err != nil {
				return err
			}
		}
		transferEvents, err := applyTransfers(ctx, tx, cfg, cmd, decision.Transfers, now)
		if err != nil {
			return err
		}
		state.UpdatedAt = now
		if err := tx.PutSession(ctx, state); err != nil {
			return err
		}
		stored, err := tx.AppendEvents(ctx, append(decision.Events, transferEvents...))
		if err != nil {
			return err
		}
		view, err := viewSession(ctx, tx, state)
		if err != nil {
			return err
		}
		result = sessionResult{View: view, Events: stored}
		return nil
	})
	return result, err
}

// applyTransfers validates and books each transfer against live balances.
// Balances written by earlier transfers are visible to later ones.
func applyTransfers(ctx context.Context, tx storage.Tx, cfg config.State, cmd command.Command, transfers []account.Transfer, now time.Time) ([]event.Event, error) {
	var events []event.Event
	for _, t := range transfers {
		from, err := loadAccount(ctx, tx, t.From)
		if err != nil {
			return nil, err
		}
		to, err := loadAccount(ctx, tx, t.To)
		if err != nil {
			return nil, err
		}
		booked, err := ledger.Transfer(cfg, from, to, t, cmd, now)
		if err != nil {
			return nil, err
		}
		if err := tx.PutAccount(ctx, booked.From); err != nil {
			return nil, err
		}
		if err := tx.PutAccount(ctx, booked.To); err != nil {
			return nil, err
		}
		events = append(events, booked.Events...)
	}
	return events, nil
}

// loadAccount returns the zero State for a missing account.
func loadAccount(ctx context.Context, reader storage.AccountStore, id account.ID) (account.State, error) {
	state, err := reader.GetAccount(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return account.State{}, nil
	}
	return state, err
}

func decodeLast(events []event.Event, eventType event.Type, target any) error {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Type == eventType {
			if err := json.Unmarshal(events[i].PayloadJSON, target); err != nil {
				return fmt.Errorf("decode %s: %w", eventType, err)
			}
			return nil
		}
	}
	return fmt.Errorf("decision has no %s event", eventType)
}
