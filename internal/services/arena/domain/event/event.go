// Package event defines the journal envelope shared by every arena stream.
package event

import "time"

// Type names an event kind, e.g. "session.round_resolved".
type Type string

// Event is one journal entry. Seq, hashes and signature are assigned by
// storage on append.
type Event struct {
	// StreamID is the session id, account id or ConfigStreamID.
	StreamID string
	// Seq is the position within the stream, starting at 1.
	Seq uint64
	// Position is the global append order across all streams.
	Position       int64
	Hash           string
	PrevHash       string
	ChainHash      string
	Signature      string
	SignatureKeyID string
	Timestamp      time.Time
	Type           Type
	ActorID        string
	RequestID      string
	EntityType     string
	EntityID       string
	PayloadJSON    []byte
}

// ConfigStreamID is the stream holding the global configuration events.
const ConfigStreamID = "config"

const (
	EntityConfig  = "config"
	EntitySession = "session"
	EntityAccount = "account"
)
