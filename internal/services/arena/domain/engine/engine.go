package engine

import (
	"context"
	"errors"
	"time"

	"github.com/louisbranch/arena/internal/platform/id"
	"github.com/louisbranch/arena/internal/platform/requestctx"
	"github.com/louisbranch/arena/internal/services/arena/domain/command"
	"github.com/louisbranch/arena/internal/services/arena/domain/identity"
	"github.com/louisbranch/arena/internal/services/arena/domain/session"
	"github.com/louisbranch/arena/internal/services/arena/storage"
)

// ErrStoreRequired indicates a missing store.
var ErrStoreRequired = errors.New("store is required")

// Rules are the per-session game parameters fixed at creation.
type Rules struct {
	RoundDamage uint32
	TurnTimeout time.Duration
}

// DefaultRules returns one damage per lost round and a 60 second turn timeout.
func DefaultRules() Rules {
	return Rules{RoundDamage: session.DefaultRoundDamage, TurnTimeout: session.DefaultTurnTimeout}
}

// Engine runs commands and queries over a Store.
type Engine struct {
	store storage.Store
	rules Rules
	now   func() time.Time
	newID func() (string, error)
}

// Option configures an Engine.
type Option func(*Engine)

// WithRules overrides the session rules. Zero fields keep their defaults.
func WithRules(rules Rules) Option {
	return func(e *Engine) {
		if rules.RoundDamage > 0 {
			e.rules.RoundDamage = rules.RoundDamage
		}
		if rules.TurnTimeout > 0 {
			e.rules.TurnTimeout = rules.TurnTimeout
		}
	}
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithIDGenerator replaces the session id generator.
func WithIDGenerator(newID func() (string, error)) Option {
	return func(e *Engine) {
		if newID != nil {
			e.newID = newID
		}
	}
}

// New builds an Engine over store.
func New(store storage.Store, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	e := &Engine{
		store: store,
		rules: DefaultRules(),
		now:   time.Now,
		newID: id.NewID,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e, nil
}

// Rules returns the rules applied to new sessions.
func (e *Engine) Rules() Rules {
	return e.rules
}

func (e *Engine) clock() time.Time {
	return e.now().UTC().Truncate(time.Millisecond)
}

// actorOf returns the authenticated caller, empty for unsigned requests.
func actorOf(ctx context.Context) identity.ID {
	return identity.ID(requestctx.ActorFromContext(ctx))
}

// newCommand builds a command for the caller carried by ctx.
func newCommand(ctx context.Context, cmdType command.Type, streamID string, payload any) (command.Command, error) {
	return command.New(cmdType, streamID, actorOf(ctx), requestctx.RequestIDFromContext(ctx), payload)
}
