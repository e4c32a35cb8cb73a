// Package storage defines the persistence contracts of the arena service.
package storage

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/louisbranch/arena/internal/platform/errors"
	"github.com/louisbranch/arena/internal/services/arena/domain/account"
	"github.com/louisbranch/arena/internal/services/arena/domain/config"
	"github.com/louisbranch/arena/internal/services/arena/domain/event"
	"github.com/louisbranch/arena/internal/services/arena/domain/identity"
	"github.com/louisbranch/arena/internal/services/arena/domain/session"
)

// ErrNotFound indicates a requested persistence record is missing.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")

// ErrReplayedRequest indicates a signed request nonce was already used.
var ErrReplayedRequest = apperrors.New(apperrors.CodeReplayedRequest, "request nonce already used")

// ErrIntegrity wraps journal verification failures: sequence gaps, hash
// mismatches and bad signatures.
var ErrIntegrity = errors.New("journal integrity violation")

// ErrInvalidQuery wraps malformed page tokens and filter expressions.
var ErrInvalidQuery = errors.New("invalid query")

// ConfigStore persists the configuration singleton.
type ConfigStore interface {
	// GetConfig returns the zero State when the arena is not initialized.
	GetConfig(ctx context.Context) (config.State, error)
	PutConfig(ctx context.Context, state config.State) error
}

// SessionStore persists session projections.
type SessionStore interface {
	GetSession(ctx context.Context, id string) (session.State, error)
	PutSession(ctx context.Context, state session.State) error
	// BlockingSession returns a session that prevents creator from creating
	// another one: an unfinished session, or a won and unclaimed one.
	BlockingSession(ctx context.Context, creator identity.ID) (session.State, bool, error)
}

// AccountStore persists account balances.
type AccountStore interface {
	GetAccount(ctx context.Context, id account.ID) (account.State, error)
	PutAccount(ctx context.Context, state account.State) error
}

// EventAppender appends to the hash-chained journal.
type EventAppender interface {
	// AppendEvents assigns sequence, hashes and signatures and returns the stored events.
	AppendEvents(ctx context.Context, events []event.Event) ([]event.Event, error)
}

// Tx is the unit of work one command executes in.
type Tx interface {
	ConfigStore
	SessionStore
	AccountStore
	EventAppender
}

// SessionFilter selects sessions for the lobby.
type SessionFilter struct {
	// Statuses restricts the result; empty means all.
	Statuses  []session.Status
	Creator   identity.ID
	PageSize  int
	PageToken string
}

// SessionPage is one page of sessions, newest first.
type SessionPage struct {
	Sessions      []session.State
	NextPageToken string
}

// EventFilter selects journal events.
type EventFilter struct {
	StreamID string
	// Expression is an AIP-160 filter over the event fields.
	Expression string
	PageSize   int
	PageToken  string
}

// EventPage is one page of events in append order.
type EventPage struct {
	Events        []event.Event
	NextPageToken string
}

// Reader serves queries outside of a command.
type Reader interface {
	ConfigStore
	SessionStore
	AccountStore
	ListSessions(ctx context.Context, filter SessionFilter) (SessionPage, error)
	// ListStalledSessions returns joined, unfinished sessions whose round
	// deadline passed before now and where exactly one side has moved.
	ListStalledSessions(ctx context.Context, now time.Time, limit int) ([]session.State, error)
	ListEvents(ctx context.Context, filter EventFilter) (EventPage, error)
	// VerifyStream recomputes the hash chain and signatures of a stream and
	// returns the number of verified events.
	VerifyStream(ctx context.Context, streamID string) (int, error)
}

// NonceStore remembers signed request nonces so each is accepted once.
type NonceStore interface {
	// ClaimNonce fails with ErrReplayedRequest for a pair already claimed.
	// Claims issued before forgetBefore may be discarded.
	ClaimNonce(ctx context.Context, actor, nonce string, issuedAt, forgetBefore time.Time) error
}

// Store is the full persistence surface of the service.
type Store interface {
	Reader
	NonceStore
	// Atomic runs fn in a serialized transaction; any error rolls back
	// everything fn wrote.
	Atomic(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}
