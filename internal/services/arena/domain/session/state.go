// Package session is the per-match state machine: create, join, simultaneous
// moves, round resolution, the timeout guard and the reward claim.
package session

import (
	"time"

	"github.com/louisbranch/arena/internal/services/arena/domain/identity"
	"github.com/louisbranch/arena/internal/services/arena/domain/move"
)

const (
	// DefaultRoundDamage is the health a side loses per lost round.
	DefaultRoundDamage uint32 = 1
	// DefaultTurnTimeout is how long a round may stall before it can be forced.
	DefaultTurnTimeout = 60 * time.Second
)

// Status summarizes where a session is in its lifecycle.
type Status string

const (
	StatusOpen    Status = "open"
	StatusActive  Status = "active"
	StatusOver    Status = "over"
	StatusClaimed Status = "claimed"
)

// State is the game session record.
type State struct {
	ID             string
	Creator        identity.ID
	Player         identity.Optional
	TotalHealth    uint32
	CreatorHealth  uint32
	PlayerHealth   uint32
	CreatorAction  move.Move
	PlayerAction   move.Move
	CreatorCanPlay bool
	PlayerCanPlay  bool
	PoolAmount     uint64
	Winner         identity.Optional
	LastTurnAt     time.Time
	Round          uint32
	RoundDamage    uint32
	TurnTimeout    time.Duration
	Claimed        bool
	ClaimedAt      time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Exists reports whether the session has been created.
func (s State) Exists() bool {
	return s.ID != ""
}

// Terminal reports whether a winner has been declared.
func (s State) Terminal() bool {
	return s.Winner.IsSet()
}

// Status derives the lifecycle status.
func (s State) Status() Status {
	switch {
	case s.Claimed:
		return StatusClaimed
	case s.Terminal():
		return StatusOver
	case s.Player.IsSet():
		return StatusActive
	default:
		return StatusOpen
	}
}

// CurrentRound is the number of the round being played. Round counts
// resolved rounds, so a fresh session plays round 1.
func (s State) CurrentRound() uint32 {
	return s.Round + 1
}

// IsParticipant reports whether id plays in this session.
func (s State) IsParticipant(id identity.ID) bool {
	return s.Creator == id || s.Player.Is(id)
}

// Stalled reports whether the round can be forced at now.
func (s State) Stalled(now time.Time) bool {
	if s.Terminal() || !s.Player.IsSet() {
		return false
	}
	if !s.CreatorCanPlay && !s.PlayerCanPlay {
		return false
	}
	return now.Sub(s.LastTurnAt) > s.TurnTimeout
}

// Deadline returns when the current round becomes forceable.
func (s State) Deadline() time.Time {
	return s.LastTurnAt.Add(s.TurnTimeout)
}
