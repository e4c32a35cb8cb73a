package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/louisbranch/arena/internal/services/arena/domain/identity"
	"github.com/louisbranch/arena/internal/services/arena/domain/move"
	"github.com/louisbranch/arena/internal/services/arena/domain/session"
	"github.com/louisbranch/arena/internal/services/arena/storage/integrity"
)

func testKeyring(t *testing.T) *integrity.Keyring {
	t.Helper()
	keyring, err := integrity.NewKeyring(
		map[string][]byte{"test-key-1": []byte("0123456789abcdef0123456789abcdef")},
		"test-key-1",
	)
	if err != nil {
		t.Fatalf("create test keyring: %v", err)
	}
	return keyring
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "arena.sqlite")
	store, err := Open(path, testKeyring(t))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

func testSession(id string, creator identity.ID, createdAt time.Time) session.State {
	return session.State{
		ID:             id,
		Creator:        creator,
		Player:         identity.None(),
		TotalHealth:    3,
		CreatorHealth:  3,
		PlayerHealth:   3,
		CreatorAction:  move.None,
		PlayerAction:   move.None,
		CreatorCanPlay: true,
		PlayerCanPlay:  true,
		PoolAmount:     100,
		Winner:         identity.None(),
		LastTurnAt:     createdAt,
		RoundDamage:    1,
		TurnTimeout:    time.Minute,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}
}
