package integrity

import (
	"fmt"
	"strings"

	"github.com/louisbranch/arena/internal/platform/config"
)

const defaultKeyID = "v1"

// KeyringEnv holds the journal signing key configuration.
type KeyringEnv struct {
	// Keys is a comma separated list of id=secret pairs, used for rotation.
	Keys map[string]string `env:"ARENA_EVENT_HMAC_KEYS" envKeyValSeparator:"="`
	// Key is a single secret used when Keys is empty.
	Key   string `env:"ARENA_EVENT_HMAC_KEY"`
	KeyID string `env:"ARENA_EVENT_HMAC_KEY_ID" envDefault:"v1"`
}

// KeyringFromEnv loads the HMAC keyring from environment variables.
func KeyringFromEnv(opts ...config.Option) (*Keyring, error) {
	var cfg KeyringEnv
	if err := config.ParseEnv(&cfg, opts...); err != nil {
		return nil, err
	}
	return cfg.Keyring()
}

// Keyring builds the keyring described by the configuration.
func (c KeyringEnv) Keyring() (*Keyring, error) {
	keyID := strings.TrimSpace(c.KeyID)
	if keyID == "" {
		keyID = defaultKeyID
	}
	if len(c.Keys) == 0 {
		raw := strings.TrimSpace(c.Key)
		if raw == "" {
			return nil, fmt.Errorf("ARENA_EVENT_HMAC_KEY is required")
		}
		return NewKeyring(map[string][]byte{keyID: []byte(raw)}, keyID)
	}

	keys := make(map[string][]byte, len(c.Keys))
	for id, value := range c.Keys {
		id, value = strings.TrimSpace(id), strings.TrimSpace(value)
		if id == "" || value == "" {
			return nil, fmt.Errorf("invalid ARENA_EVENT_HMAC_KEYS entry")
		}
		keys[id] = []byte(value)
	}
	return NewKeyring(keys, keyID)
}
