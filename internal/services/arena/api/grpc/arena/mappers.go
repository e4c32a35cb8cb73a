package arena

import (
	"github.com/louisbranch/arena/internal/services/arena/domain/account"
	"github.com/louisbranch/arena/internal/services/arena/domain/config"
	"github.com/louisbranch/arena/internal/services/arena/domain/engine"
	"github.com/louisbranch/arena/internal/services/arena/domain/event"
	"github.com/louisbranch/arena/internal/services/arena/domain/session"
	"github.com/louisbranch/arena/internal/services/arena/domain/vault"
)

func configToMessage(cfg config.State) Config {
	return Config{
		Authority:     cfg.Authority,
		Currency:      cfg.Currency,
		FeeRecipient:  cfg.FeeRecipient,
		FeeRateBps:    uint32(cfg.FeeRateBps),
		InitializedAt: cfg.InitializedAt,
	}
}

func accountToMessage(state account.State) Account {
	return Account{
		ID:        string(state.ID),
		Owner:     state.Owner,
		Currency:  state.Currency,
		Kind:      string(state.Kind),
		Balance:   state.Balance,
		CreatedAt: state.CreatedAt,
		UpdatedAt: state.UpdatedAt,
	}
}

func viewToMessage(view engine.SessionView) Session {
	msg := stateToMessage(view.State)
	msg.Vault = string(view.Vault)
	msg.VaultBalance = view.VaultBalance
	return msg
}

// stateToMessage maps a bare session record; the vault balance is left zero.
func stateToMessage(state session.State) Session {
	return Session{
		ID:             state.ID,
		Creator:        state.Creator,
		Player:         state.Player,
		Winner:         state.Winner,
		Status:         string(state.Status()),
		TotalHealth:    state.TotalHealth,
		CreatorHealth:  state.CreatorHealth,
		PlayerHealth:   state.PlayerHealth,
		CreatorAction:  state.CreatorAction,
		PlayerAction:   state.PlayerAction,
		CreatorCanPlay: state.CreatorCanPlay,
		PlayerCanPlay:  state.PlayerCanPlay,
		PoolAmount:     state.PoolAmount,
		Round:          state.Round,
		RoundDamage:    state.RoundDamage,
		TurnTimeoutMs:  state.TurnTimeout.Milliseconds(),
		LastTurnAt:     state.LastTurnAt,
		Deadline:       state.Deadline(),
		Claimed:        state.Claimed,
		Vault:          string(vault.Derive(state.ID)),
		CreatedAt:      state.CreatedAt,
		UpdatedAt:      state.UpdatedAt,
	}
}

func roundToMessage(round session.RoundResolvedPayload) Round {
	return Round{
		Number:        round.Round,
		CreatorMove:   round.CreatorMove,
		PlayerMove:    round.PlayerMove,
		Outcome:       round.Outcome,
		CreatorHealth: round.CreatorHealth,
		PlayerHealth:  round.PlayerHealth,
		Forced:        round.Forced,
	}
}

func eventToMessage(evt event.Event) Event {
	payload := evt.PayloadJSON
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	return Event{
		Position:       evt.Position,
		StreamID:       evt.StreamID,
		Seq:            evt.Seq,
		Type:           string(evt.Type),
		Timestamp:      evt.Timestamp,
		ActorID:        evt.ActorID,
		RequestID:      evt.RequestID,
		EntityType:     evt.EntityType,
		EntityID:       evt.EntityID,
		Payload:        payload,
		Hash:           evt.Hash,
		PrevHash:       evt.PrevHash,
		ChainHash:      evt.ChainHash,
		Signature:      evt.Signature,
		SignatureKeyID: evt.SignatureKeyID,
	}
}
