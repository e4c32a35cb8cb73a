package session

import (
	"github.com/louisbranch/arena/internal/services/arena/domain/account"
	"github.com/louisbranch/arena/internal/services/arena/domain/identity"
	"github.com/louisbranch/arena/internal/services/arena/domain/move"
)

// CreatePayload is the input of session.create.
type CreatePayload struct {
	TotalHealth   uint32     `json:"total_health"`
	PoolAmount    uint64     `json:"pool_amount"`
	RoundDamage   uint32     `json:"round_damage"`
	TurnTimeoutMs int64      `json:"turn_timeout_ms"`
	Funding       account.ID `json:"funding_account,omitempty"`
}

// CreatedPayload records a new session.
type CreatedPayload struct {
	SessionID     string      `json:"session_id"`
	Creator       identity.ID `json:"creator"`
	TotalHealth   uint32      `json:"total_health"`
	PoolAmount    uint64      `json:"pool_amount"`
	RoundDamage   uint32      `json:"round_damage"`
	TurnTimeoutMs int64       `json:"turn_timeout_ms"`
	Vault         account.ID  `json:"vault"`
}

// JoinPayload is the input of session.join.
type JoinPayload struct {
	Funding account.ID `json:"funding_account,omitempty"`
}

// JoinedPayload records the second participant.
type JoinedPayload struct {
	Player identity.ID `json:"player"`
}

// SubmitMovePayload is the input of session.submit_move. Round names the
// round the move is for and must be the session's current round.
type SubmitMovePayload struct {
	Move  move.Move `json:"move"`
	Round uint32    `json:"round"`
}

// MoveSubmittedPayload records one side's move for the current round.
type MoveSubmittedPayload struct {
	Side  Side      `json:"side"`
	Move  move.Move `json:"move"`
	Round uint32    `json:"round"`
}

// RoundResolvedPayload records the full outcome of a round.
type RoundResolvedPayload struct {
	Round         uint32            `json:"round"`
	CreatorMove   move.Move         `json:"creator_move"`
	PlayerMove    move.Move         `json:"player_move"`
	Outcome       move.Outcome      `json:"outcome"`
	CreatorHealth uint32            `json:"creator_health"`
	PlayerHealth  uint32            `json:"player_health"`
	Winner        identity.Optional `json:"winner"`
	Forced        bool              `json:"forced,omitempty"`
}

// ClaimPayload is the input of session.claim_reward.
type ClaimPayload struct {
	Receiving account.ID `json:"receiving_account,omitempty"`
}

// RewardClaimedPayload records the payout split.
type RewardClaimedPayload struct {
	Winner     identity.ID `json:"winner"`
	Total      uint64      `json:"total"`
	Payout     uint64      `json:"payout"`
	Fee        uint64      `json:"fee"`
	Receiving  account.ID  `json:"receiving_account"`
	FeeAccount account.ID  `json:"fee_account"`
}

// Side names a participant seat.
type Side string

const (
	SideCreator Side = "creator"
	SidePlayer  Side = "player"
)
