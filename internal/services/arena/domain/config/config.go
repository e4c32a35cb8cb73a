// Package config is the one-time global configuration of the arena: stake
// currency, fee recipient and fee rate. Operations that need these values
// receive a State explicitly.
package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/louisbranch/arena/internal/platform/errors"
	"github.com/louisbranch/arena/internal/services/arena/domain/command"
	"github.com/louisbranch/arena/internal/services/arena/domain/event"
	"github.com/louisbranch/arena/internal/services/arena/domain/identity"
	"github.com/louisbranch/arena/internal/services/arena/domain/money"
)

const (
	CommandTypeInitialize command.Type = "config.initialize"
	EventTypeInitialized  event.Type   = "config.initialized"
)

// State is the global configuration singleton.
type State struct {
	Authority     identity.ID
	Currency      string
	FeeRecipient  identity.ID
	FeeRateBps    uint16
	Initialized   bool
	InitializedAt time.Time
}

// Require rejects with NOT_INITIALIZED before the singleton exists.
func (s State) Require() error {
	if !s.Initialized {
		return apperrors.New(apperrors.CodeNotInitialized, "arena is not initialized")
	}
	return nil
}

// InitializePayload is the input of config.initialize. The caller becomes
// the authority.
type InitializePayload struct {
	Currency     string      `json:"currency"`
	FeeRecipient identity.ID `json:"fee_recipient"`
	FeeRateBps   uint32      `json:"fee_rate_bps"`
}

// InitializedPayload records the configured values.
type InitializedPayload struct {
	Authority    identity.ID `json:"authority"`
	Currency     string      `json:"currency"`
	FeeRecipient identity.ID `json:"fee_recipient"`
	FeeRateBps   uint16      `json:"fee_rate_bps"`
}

// Decide returns the decision for a configuration command.
func Decide(state State, cmd command.Command, now time.Time) command.Decision {
	if cmd.Type != CommandTypeInitialize {
		return command.Reject(apperrors.CodeUnknown, fmt.Sprintf("unsupported config command %s", cmd.Type))
	}
	if state.Initialized {
		return command.Reject(apperrors.CodeAlreadyInitialized, "arena is already initialized")
	}
	if cmd.ActorID == "" {
		return command.Reject(apperrors.CodeUnauthorized, "initialize requires a signed caller")
	}

	var payload InitializePayload
	if err := json.Unmarshal(cmd.PayloadJSON, &payload); err != nil {
		return command.Reject(apperrors.CodeUnknown, "decode initialize payload")
	}
	if payload.FeeRateBps > money.MaxBps {
		return command.Decision{Rejections: []command.Rejection{{
			Code:     apperrors.CodeInvalidFeeRate,
			Message:  "fee rate exceeds 10000 bps",
			Metadata: map[string]string{"fee_rate_bps": strconv.FormatUint(uint64(payload.FeeRateBps), 10)},
		}}}
	}
	currency := strings.TrimSpace(payload.Currency)
	if currency == "" {
		return command.Reject(apperrors.CodeInvalidCurrency, "currency is required")
	}
	if payload.FeeRecipient == "" {
		return command.Reject(apperrors.CodeInvalidIdentity, "fee recipient is required")
	}

	return command.AcceptEvent(command.NewEvent(cmd, EventTypeInitialized, event.EntityConfig, event.ConfigStreamID, InitializedPayload{
		Authority:    cmd.ActorID,
		Currency:     currency,
		FeeRecipient: payload.FeeRecipient,
		FeeRateBps:   uint16(payload.FeeRateBps),
	}, now))
}

// Fold applies a configuration event.
func Fold(state State, evt event.Event) (State, error) {
	switch evt.Type {
	case EventTypeInitialized:
		var payload InitializedPayload
		if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
			return state, fmt.Errorf("config fold %s: %w", evt.Type, err)
		}
		state.Authority = payload.Authority
		state.Currency = payload.Currency
		state.FeeRecipient = payload.FeeRecipient
		state.FeeRateBps = payload.FeeRateBps
		state.Initialized = true
		state.InitializedAt = evt.Timestamp
	}
	return state, nil
}
