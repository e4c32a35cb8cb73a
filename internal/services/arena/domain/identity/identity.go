// Package identity defines participant identities and the explicit
// present/absent variant used for optional participants.
package identity

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"go.dedis.ch/kyber/v4"
	"go.dedis.ch/kyber/v4/suites"

	apperrors "github.com/louisbranch/arena/internal/platform/errors"
)

// Size is the encoded length in bytes of an identity public key.
const Size = 32

// Suite is the group every identity key belongs to.
var Suite suites.Suite = suites.MustFind("Ed25519")

// ID is a participant public key, hex encoded in lowercase.
type ID string

// Parse validates raw as an encoded Ed25519 point and returns its canonical form.
func Parse(raw string) (ID, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	data, err := hex.DecodeString(value)
	if err != nil || len(data) != Size {
		return "", apperrors.WithMetadata(apperrors.CodeInvalidIdentity, "identity must be 32 hex-encoded bytes", map[string]string{"identity": raw})
	}
	if _, err := PointOf(ID(value)); err != nil {
		return "", err
	}
	return ID(value), nil
}

// FromPoint encodes a public key point as an identity.
func FromPoint(point kyber.Point) (ID, error) {
	data, err := point.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("marshal point: %w", err)
	}
	return ID(hex.EncodeToString(data)), nil
}

// PointOf decodes the identity back into a public key point.
func PointOf(id ID) (kyber.Point, error) {
	data, err := hex.DecodeString(string(id))
	if err != nil {
		return nil, apperrors.WithMetadata(apperrors.CodeInvalidIdentity, "identity is not hex", map[string]string{"identity": string(id)})
	}
	point := Suite.Point()
	if err := point.UnmarshalBinary(data); err != nil {
		return nil, apperrors.WithMetadata(apperrors.CodeInvalidIdentity, "identity is not a curve point", map[string]string{"identity": string(id)})
	}
	return point, nil
}

// String returns the hex form.
func (id ID) String() string { return string(id) }

// Short returns an abbreviated form for logs and tables.
func (id ID) Short() string {
	if len(id) <= 12 {
		return string(id)
	}
	return string(id[:6]) + "…" + string(id[len(id)-4:])
}

// Optional is an identity that may be absent. The zero value is absent.
type Optional struct {
	id  ID
	set bool
}

// Some returns a present identity.
func Some(id ID) Optional {
	return Optional{id: id, set: true}
}

// None returns an absent identity.
func None() Optional {
	return Optional{}
}

// Get returns the identity and whether it is present.
func (o Optional) Get() (ID, bool) {
	return o.id, o.set
}

// IsSet reports whether the identity is present.
func (o Optional) IsSet() bool {
	return o.set
}

// Is reports whether the identity is present and equal to id.
func (o Optional) Is(id ID) bool {
	return o.set && o.id == id
}

// String returns the identity or "<unset>".
func (o Optional) String() string {
	if !o.set {
		return "<unset>"
	}
	return string(o.id)
}

// MarshalJSON encodes an absent identity as null.
func (o Optional) MarshalJSON() ([]byte, error) {
	if !o.set {
		return []byte("null"), nil
	}
	return json.Marshal(string(o.id))
}

// UnmarshalJSON decodes null as absent.
func (o *Optional) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = None()
		return nil
	}
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	*o = Some(ID(value))
	return nil
}
