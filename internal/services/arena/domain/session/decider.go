package session

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
	"github.com/louisbranch/arena/internal/services/arena/domain/move"
	"github.com/louisbranch/arena/internal/services/arena/domain/vault"
)

const (
	CommandTypeCreate       command.Type = "session.create"
	CommandTypeJoin         command.Type = "session.join"
	CommandTypeSubmitMove   command.Type = "session.submit_move"
	CommandTypeResolveRound command.Type = "session.resolve_round"
	CommandTypeForceResolve command.Type = "session.force_resolve"
	CommandTypeClaimReward  command.Type = "session.claim_reward"

	EventTypeCreated       event.Type = "session.created"
	EventTypeJoined        event.Type = "session.joined"
	EventTypeMoveSubmitted event.Type = "session.move_submitted"
	EventTypeRoundResolved event.Type = "session.round_resolved"
	EventTypeRewardClaimed event.Type = "session.reward_claimed"
)

// Decide returns the decision for a session command against current state.
// cfg is the global configuration; it is only consulted, never changed.
func Decide(cfg config.State, state State, cmd command.Command, now time.Time) command.Decision {
	switch cmd.Type {
	case CommandTypeCreate:
		return decideCreate(cfg, state, cmd, now)
	case CommandTypeJoin:
		return decideJoin(cfg, state, cmd, now)
	case CommandTypeSubmitMove:
		return decideSubmitMove(state, cmd, now)
	case CommandTypeResolveRound:
		return decideResolveRound(state, cmd, now)
	case CommandTypeForceResolve:
		return decideForceResolve(state, cmd, now)
	case CommandTypeClaimReward:
		return decideClaimReward(cfg, state, cmd, now)
	default:
		return command.Reject(apperrors.CodeUnknown, fmt.Sprintf("unsupported session command %s", cmd.Type))
	}
}

func decideCreate(cfg config.State, state State, cmd command.Command, now time.Time) command.Decision {
	if err := cfg.Require(); err != nil {
		return command.Reject(apperrors.CodeNotInitialized, err.Error())
	}
	if cmd.ActorID == "" {
		return command.Reject(apperrors.CodeUnauthorized, "create requires a signed caller")
	}
	if state.Exists() {
		return command.Reject(apperrors.CodeUnknown, "session id already in use")
	}
	var payload CreatePayload
	if err := json.Unmarshal(cmd.PayloadJSON, &payload); err != nil {
		return command.Reject(apperrors.CodeUnknown, "decode create payload")
	}
	if payload.TotalHealth == 0 {
		return command.Reject(apperrors.CodeInvalidTotalHealth, "total health must be greater than zero")
	}
	if payload.PoolAmount == 0 {
		return command.Reject(apperrors.CodeInvalidPoolAmount, "pool amount must be greater than zero")
	}
	if _, ok := money.Escrow(payload.PoolAmount); !ok {
		return command.Reject(apperrors.CodeAmountOverflow, "escrow of twice the pool overflows")
	}
	damage := payload.RoundDamage
	if damage == 0 {
		damage = DefaultRoundDamage
	}
	timeoutMs := payload.TurnTimeoutMs
	if timeoutMs <= 0 {
		timeoutMs = DefaultTurnTimeout.Milliseconds()
	}

	funding, _ := fundingAccount(payload.Funding, cmd.ActorID, cfg.Currency)
	vaultID := vault.Derive(cmd.StreamID)
	decision := command.AcceptEvent(command.NewEvent(cmd, EventTypeCreated, event.EntitySession, cmd.StreamID, CreatedPayload{
		SessionID:     cmd.StreamID,
		Creator:       cmd.ActorID,
		TotalHealth:   payload.TotalHealth,
		PoolAmount:    payload.PoolAmount,
		RoundDamage:   damage,
		TurnTimeoutMs: timeoutMs,
		Vault:         vaultID,
	}, now))
	return decision.WithTransfers(account.Transfer{
		From:          funding,
		To:            vaultID,
		Amount:        payload.PoolAmount,
		Debitor:       cmd.ActorID,
		OpenIfMissing: true,
		ToKind:        account.KindVault,
	})
}

func decideJoin(cfg config.State, state State, cmd command.Command, now time.Time) command.Decision {
	if err := cfg.Require(); err != nil {
		return command.Reject(apperrors.CodeNotInitialized, err.Error())
	}
	if rejection, ok := requireSession(state); !ok {
		return rejection
	}
	if cmd.ActorID == "" {
		return command.Reject(apperrors.CodeUnauthorized, "join requires a signed caller")
	}
	if state.Player.IsSet() {
		return command.Reject(apperrors.CodeAlreadyJoined, "session already has a player")
	}
	if cmd.ActorID == state.Creator {
		return command.Reject(apperrors.CodeCreatorCannotJoin, "creator cannot join their own session")
	}
	var payload JoinPayload
	if err := json.Unmarshal(cmd.PayloadJSON, &payload); err != nil {
		return command.Reject(apperrors.CodeUnknown, "decode join payload")
	}

	funding, _ := fundingAccount(payload.Funding, cmd.ActorID, cfg.Currency)
	decision := command.AcceptEvent(command.NewEvent(cmd, EventTypeJoined, event.EntitySession, state.ID, JoinedPayload{Player: cmd.ActorID}, now))
	return decision.WithTransfers(account.Transfer{
		From:    funding,
		To:      vault.Derive(state.ID),
		Amount:  state.PoolAmount,
		Debitor: cmd.ActorID,
	})
}

func decideSubmitMove(state State, cmd command.Command, now time.Time) command.Decision {
	if rejection, ok := requireSession(state); !ok {
		return rejection
	}
	if cmd.ActorID == "" {
		return command.Reject(apperrors.CodeUnauthorized, "submit move requires a signed caller")
	}
	if !state.IsParticipant(cmd.ActorID) {
		return command.Reject(apperrors.CodeNotAParticipant, "caller is not a participant")
	}
	if state.Terminal() {
		return command.Reject(apperrors.CodeSessionTerminal, "session is over")
	}
	if !state.Player.IsSet() {
		return command.Reject(apperrors.CodeAwaitingOpponent, "session is waiting for an opponent")
	}
	var payload SubmitMovePayload
	if err := json.Unmarshal(cmd.PayloadJSON, &payload); err != nil {
		return command.Reject(apperrors.CodeInvalidMove, "decode move")
	}
	if !payload.Move.Valid() {
		return command.Decision{Rejections: []command.Rejection{{
			Code:     apperrors.CodeInvalidMove,
			Message:  "unknown move",
			Metadata: map[string]string{"move": strconv.Itoa(int(payload.Move))},
		}}}
	}
	if current := state.CurrentRound(); payload.Round != current {
		return command.Decision{Rejections: []command.Rejection{{
			Code:    apperrors.CodeRoundMismatch,
			Message: "move is not for the current round",
			Metadata: map[string]string{
				"round":         strconv.FormatUint(uint64(payload.Round), 10),
				"current_round": strconv.FormatUint(uint64(current), 10),
			},
		}}}
	}

	side := SidePlayer
	canPlay := state.PlayerCanPlay
	if cmd.ActorID == state.Creator {
		side = SideCreator
		canPlay = state.CreatorCanPlay
	}
	if !canPlay {
		if !state.CreatorCanPlay && !state.PlayerCanPlay {
			return command.Reject(apperrors.CodeTaskNotCompleted, "round is waiting to be resolved")
		}
		return command.Reject(apperrors.CodeNotTurn, "move already submitted this round")
	}

	return command.AcceptEvent(command.NewEvent(cmd, EventTypeMoveSubmitted, event.EntitySession, state.ID, MoveSubmittedPayload{
		Side:  side,
		Move:  payload.Move,
		Round: state.CurrentRound(),
	}, now))
}

func decideResolveRound(state State, cmd command.Command, now time.Time) command.Decision {
	if rejection, ok := requireSession(state); !ok {
		return rejection
	}
	if state.Terminal() {
		return command.Reject(apperrors.CodeSessionTerminal, "session is over")
	}
	if state.CreatorCanPlay || state.PlayerCanPlay {
		return command.Reject(apperrors.CodeIncompleteTurn, "both sides must move before the round resolves")
	}
	return command.AcceptEvent(resolve(state, cmd, state.CreatorAction, state.PlayerAction, false, now))
}

func decideForceResolve(state State, cmd command.Command, now time.Time) command.Decision {
	if rejection, ok := requireSession(state); !ok {
		return rejection
	}
	if state.Terminal() {
		return command.Reject(apperrors.CodeInvalidForceResolve, "session is over")
	}
	if !state.Player.IsSet() {
		return command.Reject(apperrors.CodeInvalidForceResolve, "session has no opponent yet")
	}
	if !state.CreatorCanPlay && !state.PlayerCanPlay {
		return command.Reject(apperrors.CodeInvalidForceResolve, "both sides moved; resolve the round instead")
	}
	if elapsed := now.Sub(state.LastTurnAt); elapsed <= state.TurnTimeout {
		return command.Decision{Rejections: []command.Rejection{{
			Code:    apperrors.CodeNotTimedOut,
			Message: "turn has not timed out",
			Metadata: map[string]string{
				"elapsed_ms": strconv.FormatInt(elapsed.Milliseconds(), 10),
				"timeout_ms": strconv.FormatInt(state.TurnTimeout.Milliseconds(), 10),
			},
		}}}
	}

	creatorMove := state.CreatorAction
	if state.CreatorCanPlay {
		creatorMove = move.None
	}
	playerMove := state.PlayerAction
	if state.PlayerCanPlay {
		playerMove = move.None
	}
	return command.AcceptEvent(resolve(state, cmd, creatorMove, playerMove, true, now))
}

// resolve runs the move resolver and produces the round event shared by
// normal and forced resolution.
func resolve(state State, cmd command.Command, creatorMove, playerMove move.Move, forced bool, now time.Time) (event.Event, error) {
	result := move.Resolve(creatorMove, playerMove, state.RoundDamage)
	creatorHealth := move.ApplyDamage(state.CreatorHealth, result.CreatorDamage)
	playerHealth := move.ApplyDamage(state.PlayerHealth, result.PlayerDamage)

	winner := identity.None()
	player, _ := state.Player.Get()
	switch {
	case playerHealth == 0:
		winner = identity.Some(state.Creator)
	case creatorHealth == 0:
		winner = identity.Some(player)
	}

	return command.NewEvent(cmd, EventTypeRoundResolved, event.EntitySession, state.ID, RoundResolvedPayload{
		Round:         state.Round + 1,
		CreatorMove:   creatorMove,
		PlayerMove:    playerMove,
		Outcome:       result.Outcome,
		CreatorHealth: creatorHealth,
		PlayerHealth:  playerHealth,
		Winner:        winner,
		Forced:        forced,
	}, now)
}

func decideClaimReward(cfg config.State, state State, cmd command.Command, now time.Time) command.Decision {
	if err := cfg.Require(); err != nil {
		return command.Reject(apperrors.CodeNotInitialized, err.Error())
	}
	if rejection, ok := requireSession(state); !ok {
		return rejection
	}
	winner, over := state.Winner.Get()
	if !over {
		return command.Reject(apperrors.CodeGameNotOver, "game is not over")
	}
	if cmd.ActorID == "" || cmd.ActorID != winner {
		return command.Reject(apperrors.CodeNotWinner, "only the winner can claim the reward")
	}
	if state.Claimed {
		return command.Reject(apperrors.CodeAlreadyClaimed, "reward already claimed")
	}
	var payload ClaimPayload
	if err := json.Unmarshal(cmd.PayloadJSON, &payload); err != nil {
		return command.Reject(apperrors.CodeUnknown, "decode claim payload")
	}

	total, ok := money.Escrow(state.PoolAmount)
	if !ok {
		return command.Reject(apperrors.CodeAmountOverflow, "escrow overflows")
	}
	payout, fee := money.Split(total, cfg.FeeRateBps)
	receiving, openReceiving := fundingAccount(payload.Receiving, winner, cfg.Currency)
	feeAccount := account.Derive(cfg.FeeRecipient, cfg.Currency)
	vaultID := vault.Derive(state.ID)

	decision := command.AcceptEvent(command.NewEvent(cmd, EventTypeRewardClaimed, event.EntitySession, state.ID, RewardClaimedPayload{
		Winner:     winner,
		Total:      total,
		Payout:     payout,
		Fee:        fee,
		Receiving:  receiving,
		FeeAccount: feeAccount,
	}, now))
	return decision.WithTransfers(
		account.Transfer{
			From:          vaultID,
			To:            receiving,
			Amount:        payout,
			Beneficiary:   winner,
			OpenIfMissing: openReceiving,
			ToKind:        account.KindWallet,
		},
		account.Transfer{
			From:          vaultID,
			To:            feeAccount,
			Amount:        fee,
			Beneficiary:   cfg.FeeRecipient,
			OpenIfMissing: true,
			ToKind:        account.KindWallet,
		},
	)
}

// fundingAccount resolves an explicit account or the caller's derived wallet.
// Only the derived wallet may be opened implicitly.
func fundingAccount(explicit account.ID, owner identity.ID, currency string) (account.ID, bool) {
	if explicit != "" {
		return explicit, false
	}
	return account.Derive(owner, currency), true
}

func requireSession(state State) (command.Decision, bool) {
	if !state.Exists() {
		return command.Decision{Rejections: []command.Rejection{{
			Code:     apperrors.CodeNotFound,
			Message:  "session not found",
			Metadata: map[string]string{"resource": "session"},
		}}}, false
	}
	return command.Decision{}, true
}
