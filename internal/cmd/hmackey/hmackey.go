// Package hmackey prints a fresh journal signing secret in the environment
// form the arena server reads at startup.
package hmackey

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

const (
	envKey  = "ARENA_EVENT_HMAC_KEY"
	envKeys = "ARENA_EVENT_HMAC_KEYS"
	envID   = "ARENA_EVENT_HMAC_KEY_ID"
)

// Config holds configuration for key generation.
type Config struct {
	Bytes int
	// KeyID, when set, emits a rotation entry instead of a single key.
	KeyID string
}

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{Bytes: 32}
	fs.IntVar(&cfg.Bytes, "bytes", cfg.Bytes, "number of random bytes")
	fs.StringVar(&cfg.KeyID, "key-id", "", "key id for a rotation entry (emits "+envKeys+")")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run generates the secret and writes the environment lines to out.
func Run(cfg Config, out io.Writer, reader io.Reader) error {
	if cfg.Bytes < 16 {
		return errors.New("bytes must be at least 16")
	}
	if out == nil {
		return errors.New("output is required")
	}
	keyID := strings.TrimSpace(cfg.KeyID)
	if strings.ContainsAny(keyID, "=, ") {
		return fmt.Errorf("key id %q must not contain '=', ',' or spaces", keyID)
	}
	if reader == nil {
		reader = rand.Reader
	}

	buf := make([]byte, cfg.Bytes)
	if _, err := io.ReadFull(reader, buf); err != nil {
		return fmt.Errorf("generate random bytes: %w", err)
	}
	secret := hex.EncodeToString(buf)
	if keyID == "" {
		_, err := fmt.Fprintf(out, "%s=%s\n", envKey, secret)
		return err
	}
	// Rotation: append the entry to the existing list and point the id at it.
	_, err := fmt.Fprintf(out, "%s=%s=%s\n%s=%s\n", envKeys, keyID, secret, envID, keyID)
	return err
}
