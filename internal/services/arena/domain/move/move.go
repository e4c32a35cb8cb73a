// Package move resolves a pair of simultaneous moves into a round outcome.
package move

import (
	"errors"
	"fmt"
	"strings"
)

// Move is a submitted action. None means no move or a forfeit.
type Move uint8

const (
	None Move = iota
	A
	B
	C
)

// Rock, paper and scissors name the concrete moves.
const (
	Rock     = A
	Paper    = B
	Scissors = C
)

// Parse accepts the move letter, its rock/paper/scissors name or "none".
// Blank input is an error; a forfeit must be spelled out.
func Parse(raw string) (Move, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return None, errors.New("move is required")
	case "none":
		return None, nil
	case "a", "rock":
		return A, nil
	case "b", "paper":
		return B, nil
	case "c", "scissors":
		return C, nil
	default:
		return None, fmt.Errorf("unknown move %q", raw)
	}
}

// Valid reports whether m is a known move.
func (m Move) Valid() bool {
	return m <= C
}

// String returns the rock/paper/scissors name.
func (m Move) String() string {
	switch m {
	case None:
		return "none"
	case A:
		return "rock"
	case B:
		return "paper"
	case C:
		return "scissors"
	default:
		return fmt.Sprintf("move(%d)", uint8(m))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Move) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid move %d", uint8(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Move) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Beats reports whether m wins against other. None loses to every concrete move.
func (m Move) Beats(other Move) bool {
	switch m {
	case A:
		return other == C || other == None
	case B:
		return other == A || other == None
	case C:
		return other == B || other == None
	default:
		return false
	}
}

// Outcome is the winner of a single round.
type Outcome uint8

const (
	Draw Outcome = iota
	CreatorWins
	PlayerWins
)

// String returns the outcome label.
func (o Outcome) String() string {
	switch o {
	case CreatorWins:
		return "creator"
	case PlayerWins:
		return "player"
	default:
		return "draw"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Outcome) UnmarshalText(text []byte) error {
	switch string(text) {
	case "creator":
		*o = CreatorWins
	case "player":
		*o = PlayerWins
	case "draw":
		*o = Draw
	default:
		return fmt.Errorf("unknown outcome %q", text)
	}
	return nil
}

// Result holds the health lost by each side in one round.
type Result struct {
	Outcome       Outcome
	CreatorDamage uint32
	PlayerDamage  uint32
}

// Resolve maps the creator's and player's moves to per-side damage.
func Resolve(creator, player Move, damage uint32) Result {
	switch {
	case creator.Beats(player):
		return Result{Outcome: CreatorWins, PlayerDamage: damage}
	case player.Beats(creator):
		return Result{Outcome: PlayerWins, CreatorDamage: damage}
	default:
		return Result{Outcome: Draw}
	}
}

// ApplyDamage subtracts damage from health, floored at zero.
func ApplyDamage(health, damage uint32) uint32 {
	if damage >= health {
		return 0
	}
	return health - damage
}
