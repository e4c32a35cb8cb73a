package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/arena/internal/platform/grpc/pagination"
	"github.com/louisbranch/arena/internal/services/arena/domain/identity"
	"github.com/louisbranch/arena/internal/services/arena/domain/money"
	"github.com/louisbranch/arena/internal/services/arena/domain/move"
	"github.com/louisbranch/arena/internal/services/arena/domain/session"
	"github.com/louisbranch/arena/internal/services/arena/storage"
)

var sessionPageSize = pagination.PageSizeConfig{Default: 20, Max: 100}

const sessionColumns = `id, creator, player, total_health, creator_health, player_health,
    creator_action, player_action, creator_can_play, player_can_play, pool_amount,
    winner, last_turn_at, round, round_damage, turn_timeout_ms, claimed, claimed_at,
    created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (session.State, error) {
	var (
		id, creator, player, winner        string
		totalHealth, creatorHP, playerHP   int64
		creatorAction, playerAction        int64
		creatorCanPlay, playerCanPlay      int64
		poolAmount                         int64
		lastTurnAt, round, damage, timeout int64
		claimed                            int64
		claimedAt                          sql.NullInt64
		createdAt, updatedAt               int64
	)
	if err := row.Scan(
		&id, &creator, &player, &totalHealth, &creatorHP, &playerHP,
		&creatorAction, &playerAction, &creatorCanPlay, &playerCanPlay, &poolAmount,
		&winner, &lastTurnAt, &round, &damage, &timeout, &claimed, &claimedAt,
		&createdAt, &updatedAt,
	); err != nil {
		return session.State{}, err
	}
	return session.State{
		ID:             id,
		Creator:        identity.ID(creator),
		Player:         optionalID(player),
		TotalHealth:    uint32(totalHealth),
		CreatorHealth:  uint32(creatorHP),
		PlayerHealth:   uint32(playerHP),
		CreatorAction:  move.Move(creatorAction),
		PlayerAction:   move.Move(playerAction),
		CreatorCanPlay: creatorCanPlay != 0,
		PlayerCanPlay:  playerCanPlay != 0,
		PoolAmount:     uint64(poolAmount),
		Winner:         optionalID(winner),
		LastTurnAt:     fromMillis(lastTurnAt),
		Round:          uint32(round),
		RoundDamage:    uint32(damage),
		TurnTimeout:    time.Duration(timeout) * time.Millisecond,
		Claimed:        claimed != 0,
		ClaimedAt:      fromNullMillis(claimedAt),
		CreatedAt:      fromMillis(createdAt),
		UpdatedAt:      fromMillis(updatedAt),
	}, nil
}

func optionalID(raw string) identity.Optional {
	if raw == "" {
		return identity.None()
	}
	return identity.Some(identity.ID(raw))
}

func optionalColumn(value identity.Optional) string {
	id, _ := value.Get()
	return string(id)
}

// GetSession returns a session or storage.ErrNotFound.
func (s *Store) GetSession(ctx context.Context, id string) (session.State, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+sessionColumns+" FROM sessions WHERE id = ?", id)
	state, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return session.State{}, storage.ErrNotFound
	}
	if err != nil {
		return session.State{}, fmt.Errorf("get session %s: %w", id, err)
	}
	return state, nil
}

// PutSession upserts a session projection along with its derived status
// and deadline columns.
func (s *Store) PutSession(ctx context.Context, state session.State) error {
	if !state.Exists() {
		return fmt.Errorf("put session: id is required")
	}
	if state.PoolAmount > money.MaxBalance {
		return fmt.Errorf("put session %s: pool exceeds storage range", state.ID)
	}
	updatedAt := state.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = state.CreatedAt
	}
	if _, err := s.q.ExecContext(ctx, `
INSERT INTO sessions (`+sessionColumns+`, status, deadline_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    player = excluded.player,
    creator_health = excluded.creator_health,
    player_health = excluded.player_health,
    creator_action = excluded.creator_action,
    player_action = excluded.player_action,
    creator_can_play = excluded.creator_can_play,
    player_can_play = excluded.player_can_play,
    winner = excluded.winner,
    last_turn_at = excluded.last_turn_at,
    round = excluded.round,
    claimed = excluded.claimed,
    claimed_at = excluded.claimed_at,
    updated_at = excluded.updated_at,
    status = excluded.status,
    deadline_at = excluded.deadline_at`,
		state.ID, string(state.Creator), optionalColumn(state.Player),
		int64(state.TotalHealth), int64(state.CreatorHealth), int64(state.PlayerHealth),
		int64(state.CreatorAction), int64(state.PlayerAction),
		boolToInt(state.CreatorCanPlay), boolToInt(state.PlayerCanPlay), int64(state.PoolAmount),
		optionalColumn(state.Winner), toMillis(state.LastTurnAt), int64(state.Round),
		int64(state.RoundDamage), state.TurnTimeout.Milliseconds(),
		boolToInt(state.Claimed), toNullMillis(state.ClaimedAt),
		toMillis(state.CreatedAt), toMillis(updatedAt),
		string(state.Status()), toMillis(state.Deadline()),
	); err != nil {
		return fmt.Errorf("put session %s: %w", state.ID, err)
	}
	return nil
}

// BlockingSession finds a session of creator that is unfinished, or won by
// creator and not yet claimed.
func (s *Store) BlockingSession(ctx context.Context, creator identity.ID) (session.State, bool, error) {
	row := s.q.QueryRowContext(ctx, `
SELECT `+sessionColumns+` FROM sessions
WHERE creator = ?
  AND (status IN (?, ?) OR (status = ? AND winner = creator))
ORDER BY created_at DESC, id DESC
LIMIT 1`,
		string(creator), string(session.StatusOpen), string(session.StatusActive), string(session.StatusOver),
	)
	state, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return session.State{}, false, nil
	}
	if err != nil {
		return session.State{}, false, fmt.Errorf("blocking session for %s: %w", creator, err)
	}
	return state, true, nil
}

// ListSessions returns sessions newest first.
func (s *Store) ListSessions(ctx context.Context, filter storage.SessionFilter) (storage.SessionPage, error) {
	cursor, err := pagination.DecodeToken(filter.PageToken)
	if err != nil {
		return storage.SessionPage{}, fmt.Errorf("%w: %v", storage.ErrInvalidQuery, err)
	}
	pageSize := pagination.ClampPageSize(int32(filter.PageSize), sessionPageSize)

	var (
		clauses []string
		params  []any
	)
	if len(filter.Statuses) > 0 {
		marks := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			marks[i] = "?"
			params = append(params, string(status))
		}
		clauses = append(clauses, "status IN ("+strings.Join(marks, ", ")+")")
	}
	if filter.Creator != "" {
		clauses = append(clauses, "creator = ?")
		params = append(params, string(filter.Creator))
	}
	if cursor != nil {
		clauses = append(clauses, "(created_at < ? OR (created_at = ? AND id < ?))")
		params = append(params, cursor.Key, cursor.Key, cursor.ID)
	}
	query := "SELECT " + sessionColumns + " FROM sessions"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	params = append(params, pageSize+1)

	sessions, err := s.querySessions(ctx, query, params...)
	if err != nil {
		return storage.SessionPage{}, fmt.Errorf("list sessions: %w", err)
	}
	page := storage.SessionPage{Sessions: sessions}
	if len(sessions) > pageSize {
		page.Sessions = sessions[:pageSize]
		last := page.Sessions[pageSize-1]
		page.NextPageToken = pagination.EncodeToken(pagination.Cursor{Key: toMillis(last.CreatedAt), ID: last.ID})
	}
	return page, nil
}

// ListStalledSessions returns active sessions whose deadline passed before
// now and where exactly one side has moved, oldest deadline first. Rounds
// where neither side moved stay forceable by callers but are not listed.
func (s *Store) ListStalledSessions(ctx context.Context, now time.Time, limit int) ([]session.State, error) {
	if limit <= 0 {
		limit = sessionPageSize.Max
	}
	sessions, err := s.querySessions(ctx, `
SELECT `+sessionColumns+` FROM sessions
WHERE status = ?
  AND creator_can_play <> player_can_play
  AND deadline_at < ?
ORDER BY deadline_at ASC, id ASC
LIMIT ?`,
		string(session.StatusActive), toMillis(now), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list stalled sessions: %w", err)
	}
	return sessions, nil
}

func (s *Store) querySessions(ctx context.Context, query string, args ...any) ([]session.State, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []session.State
	for rows.Next() {
		state, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, state)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}
