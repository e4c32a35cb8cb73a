// Package command holds the decider contract: commands in, decisions out.
package command

import (
	"encoding/json"
	"fmt"
	"time"

	apperrors "github.com/louisbranch/arena/internal/platform/errors"
	"github.com/louisbranch/arena/internal/services/arena/domain/account"
	"github.com/louisbranch/arena/internal/services/arena/domain/event"
	"github.com/louisbranch/arena/internal/services/arena/domain/identity"
)

// Type names a command, e.g. "session.submit_move".
type Type string

// Command is a request to change one stream.
type Command struct {
	Type      Type
	StreamID  string
	ActorID   identity.ID
	RequestID string
	// PayloadJSON carries the command-specific payload.
	PayloadJSON []byte
}

// New builds a command with a JSON-encoded payload.
func New(cmdType Type, streamID string, actor identity.ID, requestID string, payload any) (Command, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Command{}, err
	}
	return Command{Type: cmdType, StreamID: streamID, ActorID: actor, RequestID: requestID, PayloadJSON: data}, nil
}

// Decision represents the pure outcome of handling a command.
type Decision struct {
	Events     []event.Event
	Transfers  []account.Transfer
	Rejections []Rejection
}

// Rejection captures a domain-level reason a command was declined.
type Rejection struct {
	Code     apperrors.Code
	Message  string
	Metadata map[string]string
}

// Err converts the rejection into a domain error.
func (r Rejection) Err() *apperrors.Error {
	return apperrors.WithMetadata(r.Code, r.Message, r.Metadata)
}

// Accept returns a decision that emits the provided events.
func Accept(events ...event.Event) Decision {
	return Decision{Events: append([]event.Event(nil), events...)}
}

// AcceptEvent accepts evt, or fails the decision when err is set. It takes
// the results of NewEvent directly.
func AcceptEvent(evt event.Event, err error) Decision {
	if err != nil {
		return Failed(err)
	}
	return Accept(evt)
}

// Reject returns a decision carrying a single rejection.
func Reject(code apperrors.Code, message string) Decision {
	return Decision{Rejections: []Rejection{{Code: code, Message: message}}}
}

// WithTransfers attaches ledger transfers to an accepted decision. A
// rejected decision is returned unchanged.
func (d Decision) WithTransfers(transfers ...account.Transfer) Decision {
	if len(d.Rejections) > 0 {
		return d
	}
	for _, t := range transfers {
		if t.Amount > 0 {
			d.Transfers = append(d.Transfers, t)
		}
	}
	return d
}

// Err returns the first rejection as an error, or nil when accepted.
func (d Decision) Err() error {
	if len(d.Rejections) == 0 {
		return nil
	}
	return d.Rejections[0].Err()
}

// NewEvent builds an event by copying the envelope fields from a command.
func NewEvent(cmd Command, eventType event.Type, entityType, entityID string, payload any, now time.Time) (event.Event, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return event.Event{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return event.Event{
		StreamID:    cmd.StreamID,
		Type:        eventType,
		Timestamp:   now.UTC(),
		ActorID:     string(cmd.ActorID),
		RequestID:   cmd.RequestID,
		EntityType:  entityType,
		EntityID:    entityID,
		PayloadJSON: payloadJSON,
	}, nil
}

// Failed rejects a command that could not be turned into events.
func Failed(err error) Decision {
	return Reject(apperrors.CodeUnknown, err.Error())
}
