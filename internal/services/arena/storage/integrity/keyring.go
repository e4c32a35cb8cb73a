package integrity

import (
	"crypto/hkdf"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoKeyring is returned when a journal is sealed or checked without keys.
	ErrNoKeyring = errors.New("journal keyring is not configured")
	// ErrUnknownSealKey marks a seal made with a root secret this keyring lacks.
	ErrUnknownSealKey = errors.New("seal key id is not in the keyring")
	// ErrSealMismatch marks a seal that does not match the chain hash.
	ErrSealMismatch = errors.New("seal does not match chain hash")
)

// Keyring seals the chain hash of each journal event. Root secrets are
// addressed by id; new seals use the active id and old seals verify under
// any id still present, which is how ARENA_EVENT_HMAC_KEYS rotates.
//
// The HMAC key for a seal is derived per journal stream (a session, an
// account or the config singleton), so a seal lifted from one stream does
// not verify on another.
type Keyring struct {
	roots  map[string][]byte
	active string
}

// NewKeyring builds a keyring from id => root secret and the id new seals use.
func NewKeyring(roots map[string][]byte, activeKeyID string) (*Keyring, error) {
	if len(roots) == 0 {
		return nil, errors.New("journal keyring needs at least one root secret")
	}
	activeKeyID = strings.TrimSpace(activeKeyID)
	if activeKeyID == "" {
		return nil, errors.New("journal keyring needs an active key id")
	}
	if _, ok := roots[activeKeyID]; !ok {
		return nil, fmt.Errorf("active key id %q has no root secret", activeKeyID)
	}
	return &Keyring{roots: roots, active: activeKeyID}, nil
}

// ActiveKeyID is the id stamped on new seals.
func (k *Keyring) ActiveKeyID() string {
	if k == nil {
		return ""
	}
	return k.active
}

// SealChainHash seals chainHash for streamID with the active root secret.
// It returns the hex seal and the key id to store beside it.
func (k *Keyring) SealChainHash(streamID, chainHash string) (seal, keyID string, err error) {
	if k == nil {
		return "", "", ErrNoKeyring
	}
	key, err := streamSealKey(k.roots[k.active], streamID)
	if err != nil {
		return "", "", err
	}
	return sealHex(key, chainHash), k.active, nil
}

// CheckSeal verifies a stored seal against a recomputed chain hash.
func (k *Keyring) CheckSeal(streamID, chainHash, seal, keyID string) error {
	if k == nil {
		return ErrNoKeyring
	}
	keyID = strings.TrimSpace(keyID)
	root, ok := k.roots[keyID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSealKey, keyID)
	}
	key, err := streamSealKey(root, streamID)
	if err != nil {
		return err
	}
	if !hmac.Equal([]byte(sealHex(key, chainHash)), []byte(seal)) {
		return ErrSealMismatch
	}
	return nil
}

func streamSealKey(root []byte, streamID string) ([]byte, error) {
	streamID = strings.TrimSpace(streamID)
	if streamID == "" {
		return nil, errors.New("journal stream id is required to seal")
	}
	key, err := hkdf.Key(sha256.New, root, nil, "arena-stream:"+streamID, 32)
	if err != nil {
		return nil, fmt.Errorf("derive seal key for stream %s: %w", streamID, err)
	}
	return key, nil
}

func sealHex(key []byte, chainHash string) string {
	mac := hmac.New(sha256.New, key)
	_, _ = mac.Write([]byte(chainHash))
	return hex.EncodeToString(mac.Sum(nil))
}
