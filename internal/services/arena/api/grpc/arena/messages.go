package arena

import (
	"encoding/json"
	"time"

	"github.com/louisbranch/arena/internal/services/arena/domain/identity"
	"github.com/louisbranch/arena/internal/services/arena/domain/move"
)

// Config is the arena configuration.
type Config struct {
	Authority     identity.ID `json:"authority"`
	Currency      string      `json:"currency"`
	FeeRecipient  identity.ID `json:"fee_recipient"`
	FeeRateBps    uint32      `json:"fee_rate_bps"`
	InitializedAt time.Time   `json:"initialized_at"`
}

type InitializeRequest struct {
	Currency     string `json:"currency"`
	FeeRecipient string `json:"fee_recipient"`
	FeeRateBps   uint32 `json:"fee_rate_bps"`
}

type GetConfigRequest struct{}

type ConfigResponse struct {
	Config Config `json:"config"`
}

// Account is a ledger account balance.
type Account struct {
	ID        string      `json:"id"`
	Owner     identity.ID `json:"owner,omitempty"`
	Currency  string      `json:"currency"`
	Kind      string      `json:"kind"`
	Balance   uint64      `json:"balance"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type OpenAccountRequest struct{}

type DepositRequest struct {
	Owner  string `json:"owner"`
	Amount uint64 `json:"amount"`
}

type GetAccountRequest struct {
	AccountID string `json:"account_id"`
}

type AccountResponse struct {
	Account Account `json:"account"`
}

// Session is a game session with its escrow.
type Session struct {
	ID             string            `json:"id"`
	Creator        identity.ID       `json:"creator"`
	Player         identity.Optional `json:"player"`
	Winner         identity.Optional `json:"winner"`
	Status         string            `json:"status"`
	TotalHealth    uint32            `json:"total_health"`
	CreatorHealth  uint32            `json:"creator_health"`
	PlayerHealth   uint32            `json:"player_health"`
	CreatorAction  move.Move         `json:"creator_action"`
	PlayerAction   move.Move         `json:"player_action"`
	CreatorCanPlay bool              `json:"creator_can_play"`
	PlayerCanPlay  bool              `json:"player_can_play"`
	PoolAmount     uint64            `json:"pool_amount"`
	Round          uint32            `json:"round"`
	RoundDamage    uint32            `json:"round_damage"`
	TurnTimeoutMs  int64             `json:"turn_timeout_ms"`
	LastTurnAt     time.Time         `json:"last_turn_at"`
	Deadline       time.Time         `json:"deadline"`
	Claimed        bool              `json:"claimed"`
	Vault          string            `json:"vault"`
	VaultBalance   uint64            `json:"vault_balance"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

type CreateSessionRequest struct {
	TotalHealth    uint32 `json:"total_health"`
	PoolAmount     uint64 `json:"pool_amount"`
	FundingAccount string `json:"funding_account,omitempty"`
}

type JoinSessionRequest struct {
	SessionID      string `json:"session_id"`
	FundingAccount string `json:"funding_account,omitempty"`
}

type SubmitMoveRequest struct {
	SessionID string `json:"session_id"`
	// Move is "rock", "paper", "scissors" or "none".
	Move string `json:"move"`
	// Round is the round the move is for, Session.Round+1. A signed move is
	// only valid for that round.
	Round uint32 `json:"round"`
}

type GetSessionRequest struct {
	SessionID string `json:"session_id"`
}

type SessionResponse struct {
	Session Session `json:"session"`
}

type ResolveRoundRequest struct {
	SessionID string `json:"session_id"`
}

type ForceResolveRequest struct {
	SessionID string `json:"session_id"`
}

// Round is the outcome of one resolved round.
type Round struct {
	Number        uint32       `json:"number"`
	CreatorMove   move.Move    `json:"creator_move"`
	PlayerMove    move.Move    `json:"player_move"`
	Outcome       move.Outcome `json:"outcome"`
	CreatorHealth uint32       `json:"creator_health"`
	PlayerHealth  uint32       `json:"player_health"`
	Forced        bool         `json:"forced"`
}

type RoundResponse struct {
	Session Session `json:"session"`
	Round   Round   `json:"round"`
}

type ClaimRewardRequest struct {
	SessionID        string `json:"session_id"`
	ReceivingAccount string `json:"receiving_account,omitempty"`
}

type ClaimRewardResponse struct {
	Session          Session `json:"session"`
	Total            uint64  `json:"total"`
	Payout           uint64  `json:"payout"`
	Fee              uint64  `json:"fee"`
	ReceivingAccount string  `json:"receiving_account"`
	FeeAccount       string  `json:"fee_account"`
}

type ListSessionsRequest struct {
	// Status is open, active, over, claimed, or empty/"all" for every session.
	Status    string `json:"status,omitempty"`
	Creator   string `json:"creator,omitempty"`
	PageSize  int32  `json:"page_size,omitempty"`
	PageToken string `json:"page_token,omitempty"`
}

type ListSessionsResponse struct {
	Sessions      []Session `json:"sessions"`
	NextPageToken string    `json:"next_page_token,omitempty"`
}

type ListStalledSessionsRequest struct {
	Limit int32 `json:"limit,omitempty"`
}

// Event is one signed journal entry.
type Event struct {
	Position       int64           `json:"position"`
	StreamID       string          `json:"stream_id"`
	Seq            uint64          `json:"seq"`
	Type           string          `json:"type"`
	Timestamp      time.Time       `json:"ts"`
	ActorID        string          `json:"actor_id,omitempty"`
	RequestID      string          `json:"request_id,omitempty"`
	EntityType     string          `json:"entity_type"`
	EntityID       string          `json:"entity_id"`
	Payload        json.RawMessage `json:"payload"`
	Hash           string          `json:"hash"`
	PrevHash       string          `json:"prev_hash"`
	ChainHash      string          `json:"chain_hash"`
	Signature      string          `json:"signature"`
	SignatureKeyID string          `json:"signature_key_id"`
}

type ListEventsRequest struct {
	StreamID string `json:"stream_id,omitempty"`
	// Filter is an AIP-160 expression over stream_id, type, actor_id,
	// request_id, entity_type, entity_id, seq and ts.
	Filter    string `json:"filter,omitempty"`
	PageSize  int32  `json:"page_size,omitempty"`
	PageToken string `json:"page_token,omitempty"`
}

type ListEventsResponse struct {
	Events        []Event `json:"events"`
	NextPageToken string  `json:"next_page_token,omitempty"`
}

type VerifyStreamRequest struct {
	StreamID string `json:"stream_id"`
}

type VerifyStreamResponse struct {
	StreamID string `json:"stream_id"`
	Verified int64  `json:"verified"`
	Valid    bool   `json:"valid"`
	Problem  string `json:"problem,omitempty"`
}
