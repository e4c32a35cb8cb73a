// Package ledger decides account commands and validates the balance
// transfers that session decisions request.
package ledger

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	apperrors "github.com/louisbranch/arena/internal/platform/errors"
	"github.com/louisbranch/arena/internal/services/arena/domain/account"
	"github.com/louisbranch/arena/internal/services/arena/domain/command"
	"github.com/louisbranch/arena/internal/services/arena/domain/config"
	"github.com/louisbranch/arena/internal/services/arena/domain/event"
	"github.com/louisbranch/arena/internal/services/arena/domain/identity"
	"github.com/louisbranch/arena/internal/services/arena/domain/money"
)

const (
	CommandTypeOpen    command.Type = "account.open"
	CommandTypeDeposit command.Type = "account.deposit"

	EventTypeOpened      event.Type = "account.opened"
	EventTypeDeposited   event.Type = "account.deposited"
	EventTypeTransferred event.Type = "account.transferred"
)

// OpenedPayload records a new account.
type OpenedPayload struct {
	AccountID account.ID   `json:"account_id"`
	Owner     identity.ID  `json:"owner,omitempty"`
	Currency  string       `json:"currency"`
	Kind      account.Kind `json:"kind"`
}

// DepositPayload is the input of account.deposit.
type DepositPayload struct {
	Owner  identity.ID `json:"owner"`
	Amount uint64      `json:"amount"`
}

// DepositedPayload records funds minted into an account by the authority.
type DepositedPayload struct {
	AccountID account.ID `json:"account_id"`
	Amount    uint64     `json:"amount"`
}

// TransferredPayload records a balance move between two accounts.
type TransferredPayload struct {
	From   account.ID `json:"from"`
	To     account.ID `json:"to"`
	Amount uint64     `json:"amount"`
}

// Decide returns the decision for an account command. state is the target
// account, zero when it does not exist yet.
func Decide(cfg config.State, state account.State, cmd command.Command, now time.Time) command.Decision {
	if err := cfg.Require(); err != nil {
		return command.Reject(apperrors.CodeNotInitialized, err.Error())
	}
	if cmd.ActorID == "" {
		return command.Reject(apperrors.CodeUnauthorized, "account commands require a signed caller")
	}

	switch cmd.Type {
	case CommandTypeOpen:
		if state.ID != "" {
			return command.Accept()
		}
		opened, err := openedEvent(cmd, account.ID(cmd.StreamID), cmd.ActorID, cfg.Currency, account.KindWallet, now)
		if err != nil {
			return command.Failed(err)
		}
		return command.Accept(opened)
	case CommandTypeDeposit:
		if cmd.ActorID != cfg.Authority {
			return command.Reject(apperrors.CodeUnauthorized, "only the authority can deposit")
		}
		var payload DepositPayload
		if err := json.Unmarshal(cmd.PayloadJSON, &payload); err != nil {
			return command.Reject(apperrors.CodeUnknown, "decode deposit payload")
		}
		if payload.Amount == 0 {
			return command.Reject(apperrors.CodeInvalidAmount, "deposit amount must be greater than zero")
		}
		if _, ok := money.Add(state.Balance, payload.Amount); !ok {
			return command.Reject(apperrors.CodeAmountOverflow, "deposit overflows the balance")
		}
		id := account.ID(cmd.StreamID)
		var events []event.Event
		if state.ID == "" {
			opened, err := openedEvent(cmd, id, payload.Owner, cfg.Currency, account.KindWallet, now)
			if err != nil {
				return command.Failed(err)
			}
			events = append(events, opened)
		}
		deposited, err := command.NewEvent(cmd, EventTypeDeposited, event.EntityAccount, string(id), DepositedPayload{
			AccountID: id,
			Amount:    payload.Amount,
		}, now)
		if err != nil {
			return command.Failed(err)
		}
		return command.Accept(append(events, deposited)...)
	default:
		return command.Reject(apperrors.CodeUnknown, fmt.Sprintf("unsupported account command %s", cmd.Type))
	}
}

func openedEvent(cmd command.Command, id account.ID, owner identity.ID, currency string, kind account.Kind, now time.Time) (event.Event, error) {
	cmd.StreamID = string(id)
	return command.NewEvent(cmd, EventTypeOpened, event.EntityAccount, string(id), OpenedPayload{
		AccountID: id,
		Owner:     owner,
		Currency:  currency,
		Kind:      kind,
	}, now)
}

// Fold applies an account event. Transfers are applied through Transfer.
func Fold(state account.State, evt event.Event) (account.State, error) {
	switch evt.Type {
	case EventTypeOpened:
		var payload OpenedPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return state, fmt.Errorf("account fold %s: %w", evt.Type, err)
		}
		state = account.State{
			ID:        payload.AccountID,
			Owner:     payload.Owner,
			Currency:  payload.Currency,
			Kind:      payload.Kind,
			CreatedAt: evt.Timestamp,
		}
	case EventTypeDeposited:
		var payload DepositedPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return state, fmt.Errorf("account fold %s: %w", evt.Type, err)
		}
		balance, ok := money.Add(state.Balance, payload.Amount)
		if !ok {
			return state, fmt.Errorf("account fold %s: balance overflow", evt.Type)
		}
		state.Balance = balance
	default:
		return state, nil
	}
	state.UpdatedAt = evt.Timestamp
	return state, nil
}

// TransferResult is the outcome of a validated transfer.
type TransferResult struct {
	From   account.State
	To     account.State
	Events []event.Event
}

// Transfer validates t against the current accounts and returns their new
// state. from and to are zero when the account does not exist. The journal
// events are appended to the stream of cmd.
func Transfer(cfg config.State, from, to account.State, t account.Transfer, cmd command.Command, now time.Time) (TransferResult, error) {
	if t.Amount == 0 {
		return TransferResult{}, apperrors.New(apperrors.CodeInvalidAmount, "transfer amount must be greater than zero")
	}
	if t.From == t.To {
		return TransferResult{}, apperrors.New(apperrors.CodeInvalidAmount, "transfer source and destination are the same account")
	}
	if from.ID == "" {
		return TransferResult{}, notFound(t.From)
	}
	if t.Debitor != "" && from.Owner != t.Debitor {
		return TransferResult{}, accountError(apperrors.CodeAccountNotOwned, "source account is not owned by the caller", t.From)
	}
	if from.Currency != cfg.Currency {
		return TransferResult{}, accountError(apperrors.CodeCurrencyMismatch, "source account holds a different currency", t.From)
	}
	if from.Balance < t.Amount {
		err := accountError(apperrors.CodeInsufficientFunds, "insufficient funds", t.From)
		err.Metadata["balance"] = strconv.FormatUint(from.Balance, 10)
		err.Metadata["amount"] = strconv.FormatUint(t.Amount, 10)
		return TransferResult{}, err
	}

	var events []event.Event
	if to.ID == "" {
		if !t.OpenIfMissing {
			return TransferResult{}, notFound(t.To)
		}
		kind := t.ToKind
		if kind == "" {
			kind = account.KindWallet
		}
		opened, err := openedEvent(cmd, t.To, t.Beneficiary, cfg.Currency, kind, now)
		if err != nil {
			return TransferResult{}, err
		}
		folded, err := Fold(account.State{}, opened)
		if err != nil {
			return TransferResult{}, err
		}
		to = folded
		events = append(events, opened)
	}
	if t.Beneficiary != "" && to.Owner != t.Beneficiary {
		return TransferResult{}, accountError(apperrors.CodeAccountNotOwned, "destination account is not owned by the beneficiary", t.To)
	}
	if to.Currency != cfg.Currency {
		return TransferResult{}, accountError(apperrors.CodeCurrencyMismatch, "destination account holds a different currency", t.To)
	}
	credited, ok := money.Add(to.Balance, t.Amount)
	if !ok {
		return TransferResult{}, accountError(apperrors.CodeAmountOverflow, "destination balance overflows", t.To)
	}

	from.Balance -= t.Amount
	from.UpdatedAt = now.UTC()
	to.Balance = credited
	to.UpdatedAt = now.UTC()
	transferred, err := command.NewEvent(cmd, EventTypeTransferred, event.EntityAccount, string(t.From), TransferredPayload{
		From:   t.From,
		To:     t.To,
		Amount: t.Amount,
	}, now)
	if err != nil {
		return TransferResult{}, err
	}
	return TransferResult{From: from, To: to, Events: append(events, transferred)}, nil
}

func notFound(id account.ID) *apperrors.Error {
	return apperrors.WithMetadata(apperrors.CodeNotFound, "account not found", map[string]string{"resource": "account " + string(id), "account_id": string(id)})
}

func accountError(code apperrors.Code, message string, id account.ID) *apperrors.Error {
	return apperrors.WithMetadata(code, message, map[string]string{"account_id": string(id)})
}
