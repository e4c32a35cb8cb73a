package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/louisbranch/arena/internal/services/arena/domain/event"
)

// envelope fixes the field order of the hashed content.
type envelope struct {
	StreamID   string          `json:"stream_id"`
	Type       string          `json:"type"`
	Timestamp  int64           `json:"ts"`
	ActorID    string          `json:"actor_id"`
	RequestID  string          `json:"request_id"`
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Payload    json.RawMessage `json:"payload"`
}

// EventHash computes the content hash of an event, independent of its position.
func EventHash(evt event.Event) (string, error) {
	payload := json.RawMessage(evt.PayloadJSON)
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	data, err := json.Marshal(envelope{
		StreamID:   evt.StreamID,
		Type:       string(evt.Type),
		Timestamp:  evt.Timestamp.UTC().UnixMilli(),
		ActorID:    evt.ActorID,
		RequestID:  evt.RequestID,
		EntityType: evt.EntityType,
		EntityID:   evt.EntityID,
		Payload:    payload,
	})
	if err != nil {
		return "", fmt.Errorf("encode event envelope: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// ChainHash links an event at its sequence to the previous chain hash.
func ChainHash(evt event.Event, prevHash string) (string, error) {
	if evt.Hash == "" {
		return "", fmt.Errorf("event hash is required")
	}
	h := sha256.New()
	h.Write([]byte(prevHash))
	h.Write([]byte{'\n'})
	h.Write([]byte(strconv.FormatUint(evt.Seq, 10)))
	h.Write([]byte{'\n'})
	h.Write([]byte(evt.Hash))
	return hex.EncodeToString(h.Sum(nil)), nil
}
