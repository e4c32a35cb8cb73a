package session

import (
	"testing"
	"time"

	"github.com/louisbranch/arena/internal/services/arena/domain/identity"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name  string
		state State
		want  Status
	}{
		{name: "open", state: State{ID: "s"}, want: StatusOpen},
		{name: "active", state: State{ID: "s", Player: identity.Some("p")}, want: StatusActive},
		{name: "over", state: State{ID: "s", Player: identity.Some("p"), Winner: identity.Some("p")}, want: StatusOver},
		{name: "claimed", state: State{ID: "s", Player: identity.Some("p"), Winner: identity.Some("p"), Claimed: true}, want: StatusClaimed},
	}
	for _, tt := range tests {
		if got := tt.state.Status(); got != tt.want {
			t.Fatalf("%s: Status() = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestStalled(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	state := State{
		ID:             "s",
		Player:         identity.Some("p"),
		CreatorCanPlay: false,
		PlayerCanPlay:  true,
		LastTurnAt:     base,
		TurnTimeout:    time.Minute,
	}
	if state.Stalled(base.Add(time.Minute)) {
		t.Fatal("exactly at the deadline is not stalled")
	}
	if !state.Stalled(base.Add(time.Minute + time.Millisecond)) {
		t.Fatal("expected stalled after the deadline")
	}
	if got := state.Deadline(); !got.Equal(base.Add(time.Minute)) {
		t.Fatalf("Deadline() = %v", got)
	}

	state.PlayerCanPlay = false
	if state.Stalled(base.Add(time.Hour)) {
		t.Fatal("both moves submitted is not stalled")
	}
}
