package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/louisbranch/arena/internal/services/arena/domain/event"
	"github.com/louisbranch/arena/internal/services/arena/domain/identity"
	"github.com/louisbranch/arena/internal/services/arena/domain/move"
)

// FoldHandledTypes returns the event types handled by Fold.
func FoldHandledTypes() []event.Type {
	return []event.Type{
		EventTypeCreated,
		EventTypeJoined,
		EventTypeMoveSubmitted,
		EventTypeRoundResolved,
		EventTypeRewardClaimed,
	}
}

// Fold applies an event to session state. Events of other types are ignored.
func Fold(state State, evt event.Event) (State, error) {
	switch evt.Type {
	case EventTypeCreated:
		var payload CreatedPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return state, fmt.Errorf("session fold %s: %w", evt.Type, err)
		}
		state = State{
			ID:             payload.SessionID,
			Creator:        payload.Creator,
			Player:         identity.None(),
			TotalHealth:    payload.TotalHealth,
			CreatorHealth:  payload.TotalHealth,
			PlayerHealth:   payload.TotalHealth,
			CreatorAction:  move.None,
			PlayerAction:   move.None,
			CreatorCanPlay: true,
			PlayerCanPlay:  true,
			PoolAmount:     payload.PoolAmount,
			Winner:         identity.None(),
			LastTurnAt:     evt.Timestamp,
			RoundDamage:    payload.RoundDamage,
			TurnTimeout:    time.Duration(payload.TurnTimeoutMs) * time.Millisecond,
			CreatedAt:      evt.Timestamp,
		}
	case EventTypeJoined:
		var payload JoinedPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return state, fmt.Errorf("session fold %s: %w", evt.Type, err)
		}
		state.Player = identity.Some(payload.Player)
		state.PlayerHealth = state.TotalHealth
		state.LastTurnAt = evt.Timestamp
	case EventTypeMoveSubmitted:
		var payload MoveSubmittedPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return state, fmt.Errorf("session fold %s: %w", evt.Type, err)
		}
		switch payload.Side {
		case SideCreator:
			state.CreatorAction = payload.Move
			state.CreatorCanPlay = false
		case SidePlayer:
			state.PlayerAction = payload.Move
			state.PlayerCanPlay = false
		default:
			return state, fmt.Errorf("session fold %s: unknown side %q", evt.Type, payload.Side)
		}
	case EventTypeRoundResolved:
		var payload RoundResolvedPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return state, fmt.Errorf("session fold %s: %w", evt.Type, err)
		}
		state.Round = payload.Round
		state.CreatorHealth = payload.CreatorHealth
		state.PlayerHealth = payload.PlayerHealth
		state.CreatorAction = move.None
		state.PlayerAction = move.None
		state.LastTurnAt = evt.Timestamp
		state.Winner = payload.Winner
		open := !payload.Winner.IsSet()
		state.CreatorCanPlay = open
		state.PlayerCanPlay = open
	case EventTypeRewardClaimed:
		state.Claimed = true
		state.ClaimedAt = evt.Timestamp
	default:
		return state, nil
	}
	state.UpdatedAt = evt.Timestamp
	return state, nil
}

// Replay folds events in order starting from the zero state.
func Replay(events []event.Event) (State, error) {
	var state State
	for _, evt := range events {
		next, err := Fold(state, evt)
		if err != nil {
			return State{}, err
		}
		state = next
	}
	return state, nil
}
