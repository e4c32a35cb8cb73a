package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/arena/internal/platform/grpc/pagination"
	"github.com/louisbranch/arena/internal/services/arena/domain/event"
	"github.com/louisbranch/arena/internal/services/arena/storage"
	"github.com/louisbranch/arena/internal/services/arena/storage/filter"
	"github.com/louisbranch/arena/internal/services/arena/storage/integrity"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var eventPageSize = pagination.PageSizeConfig{Default: 50, Max: 200}

const eventColumns = `position, stream_id, seq, event_hash, prev_hash, chain_hash, signature_key_id,
    signature, ts, event_type, actor_id, request_id, entity_type, entity_id, payload_json`

// streamHead is the last stored link of a stream.
type streamHead struct {
	seq       uint64
	chainHash string
}

// AppendEvents appends events in order, extending the chain of each stream
// they belong to. Call it inside Atomic so the events commit together with
// the projections they produced.
func (s *Store) AppendEvents(ctx context.Context, events []event.Event) ([]event.Event, error) {
	if len(events) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.q == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if s.keyring == nil {
		return nil, fmt.Errorf("event integrity keyring is required")
	}

	heads := make(map[string]streamHead)
	stored := make([]event.Event, len(events))
	for i, evt := range events {
		if strings.TrimSpace(evt.StreamID) == "" {
			return nil, fmt.Errorf("event %d: stream id is required", i)
		}
		if strings.TrimSpace(string(evt.Type)) == "" {
			return nil, fmt.Errorf("event %d: type is required", i)
		}
		if evt.Timestamp.IsZero() {
			evt.Timestamp = time.Now().UTC()
		}
		evt.Timestamp = evt.Timestamp.UTC().Truncate(time.Millisecond)
		if len(evt.PayloadJSON) == 0 {
			evt.PayloadJSON = []byte("{}")
		}

		head, ok := heads[evt.StreamID]
		if !ok {
			loaded, err := s.loadStreamHead(ctx, evt.StreamID)
			if err != nil {
				return nil, err
			}
			head = loaded
		}
		evt.Seq = head.seq + 1

		hash, err := integrity.EventHash(evt)
		if err != nil {
			return nil, fmt.Errorf("event %d hash: %w", i, err)
		}
		evt.Hash = hash

		chainHash, err := integrity.ChainHash(evt, head.chainHash)
		if err != nil {
			return nil, fmt.Errorf("event %d chain hash: %w", i, err)
		}
		signature, keyID, err := s.keyring.SealChainHash(evt.StreamID, chainHash)
		if err != nil {
			return nil, fmt.Errorf("event %d sign: %w", i, err)
		}
		evt.PrevHash = head.chainHash
		evt.ChainHash = chainHash
		evt.Signature = signature
		evt.SignatureKeyID = keyID

		result, err := s.q.ExecContext(ctx, `
INSERT INTO events (stream_id, seq, event_hash, prev_hash, chain_hash, signature_key_id,
    signature, ts, event_type, actor_id, request_id, entity_type, entity_id, payload_json)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			evt.StreamID, int64(evt.Seq), evt.Hash, evt.PrevHash, evt.ChainHash, evt.SignatureKeyID,
			evt.Signature, toMillis(evt.Timestamp), string(evt.Type), evt.ActorID, evt.RequestID,
			evt.EntityType, evt.EntityID, evt.PayloadJSON,
		)
		if err != nil {
			if isConstraintError(err) {
				return nil, fmt.Errorf("append event %d: stream %s seq %d already exists: %w", i, evt.StreamID, evt.Seq, err)
			}
			return nil, fmt.Errorf("append event %d: %w", i, err)
		}
		position, err := result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("append event %d position: %w", i, err)
		}
		evt.Position = position

		heads[evt.StreamID] = streamHead{seq: evt.Seq, chainHash: evt.ChainHash}
		stored[i] = evt
	}
	return stored, nil
}

func (s *Store) loadStreamHead(ctx context.Context, streamID string) (streamHead, error) {
	var (
		seq       int64
		chainHash string
	)
	err := s.q.QueryRowContext(ctx,
		"SELECT seq, chain_hash FROM events WHERE stream_id = ? ORDER BY seq DESC LIMIT 1",
		streamID,
	).Scan(&seq, &chainHash)
	if errors.Is(err, sql.ErrNoRows) {
		return streamHead{}, nil
	}
	if err != nil {
		return streamHead{}, fmt.Errorf("load stream head %s: %w", streamID, err)
	}
	return streamHead{seq: uint64(seq), chainHash: chainHash}, nil
}

func scanEvent(row rowScanner) (event.Event, error) {
	var (
		evt       event.Event
		seq, ts   int64
		eventType string
	)
	if err := row.Scan(
		&evt.Position, &evt.StreamID, &seq, &evt.Hash, &evt.PrevHash, &evt.ChainHash, &evt.SignatureKeyID,
		&evt.Signature, &ts, &eventType, &evt.ActorID, &evt.RequestID, &evt.EntityType, &evt.EntityID, &evt.PayloadJSON,
	); err != nil {
		return event.Event{}, err
	}
	evt.Seq = uint64(seq)
	evt.Timestamp = fromMillis(ts)
	evt.Type = event.Type(eventType)
	return evt, nil
}

// ListEvents returns journal events in append order.
func (s *Store) ListEvents(ctx context.Context, f storage.EventFilter) (storage.EventPage, error) {
	cursor, err := pagination.DecodeToken(f.PageToken)
	if err != nil {
		return storage.EventPage{}, fmt.Errorf("%w: %v", storage.ErrInvalidQuery, err)
	}
	cond, err := filter.ParseEventFilter(f.Expression)
	if err != nil {
		return storage.EventPage{}, fmt.Errorf("%w: %v", storage.ErrInvalidQuery, err)
	}
	pageSize := pagination.ClampPageSize(int32(f.PageSize), eventPageSize)

	var (
		clauses []string
		params  []any
	)
	if f.StreamID != "" {
		clauses = append(clauses, "stream_id = ?")
		params = append(params, f.StreamID)
	}
	if !cond.Empty() {
		clauses = append(clauses, cond.Clause)
		params = append(params, cond.Params...)
	}
	if cursor != nil {
		clauses = append(clauses, "position > ?")
		params = append(params, cursor.Key)
	}
	query := "SELECT " + eventColumns + " FROM events"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY position ASC LIMIT ?"
	params = append(params, pageSize+1)

	events, err := s.queryEvents(ctx, query, params...)
	if err != nil {
		return storage.EventPage{}, fmt.Errorf("list events: %w", err)
	}
	page := storage.EventPage{Events: events}
	if len(events) > pageSize {
		page.Events = events[:pageSize]
		page.NextPageToken = pagination.EncodeToken(pagination.Cursor{Key: page.Events[pageSize-1].Position})
	}
	return page, nil
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]event.Event, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		evt, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// VerifyStream walks a stream from its first event and checks sequence
// continuity, content hashes, chain links and signatures.
func (s *Store) VerifyStream(ctx context.Context, streamID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s.keyring == nil {
		return 0, fmt.Errorf("event integrity keyring is required")
	}

	var (
		lastSeq       uint64
		prevChainHash string
		verified      int
	)
	for {
		events, err := s.queryEvents(ctx,
			"SELECT "+eventColumns+" FROM events WHERE stream_id = ? AND seq > ? ORDER BY seq ASC LIMIT ?",
			streamID, int64(lastSeq), eventPageSize.Max,
		)
		if err != nil {
			return verified, fmt.Errorf("list events stream_id=%s: %w", streamID, err)
		}
		if len(events) == 0 {
			return verified, nil
		}
		for _, evt := range events {
			if evt.Seq != lastSeq+1 {
				return verified, fmt.Errorf("%w: event sequence gap stream_id=%s expected=%d got=%d", storage.ErrIntegrity, streamID, lastSeq+1, evt.Seq)
			}
			if evt.PrevHash != prevChainHash {
				return verified, fmt.Errorf("%w: prev hash mismatch stream_id=%s seq=%d", storage.ErrIntegrity, streamID, evt.Seq)
			}

			hash, err := integrity.EventHash(evt)
			if err != nil {
				return verified, fmt.Errorf("compute event hash stream_id=%s seq=%d: %w", streamID, evt.Seq, err)
			}
			if hash != evt.Hash {
				return verified, fmt.Errorf("%w: event hash mismatch stream_id=%s seq=%d", storage.ErrIntegrity, streamID, evt.Seq)
			}

			chainHash, err := integrity.ChainHash(evt, prevChainHash)
			if err != nil {
				return verified, fmt.Errorf("compute chain hash stream_id=%s seq=%d: %w", streamID, evt.Seq, err)
			}
			if chainHash != evt.ChainHash {
				return verified, fmt.Errorf("%w: chain hash mismatch stream_id=%s seq=%d", storage.ErrIntegrity, streamID, evt.Seq)
			}
			if err := s.keyring.CheckSeal(streamID, chainHash, evt.Signature, evt.SignatureKeyID); err != nil {
				return verified, fmt.Errorf("%w: seal check failed stream_id=%s seq=%d: %v", storage.ErrIntegrity, streamID, evt.Seq, err)
			}

			prevChainHash = evt.ChainHash
			lastSeq = evt.Seq
			verified++
		}
	}
}

func isConstraintError(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
