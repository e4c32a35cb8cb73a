package hmackey

import (
	"bytes"
	"errors"
	"flag"
	"strings"
	"testing"

	"github.com/louisbranch/arena/internal/platform/config"
	"github.com/louisbranch/arena/internal/services/arena/storage/integrity"
)

func sixteen() []byte {
	return bytes.Repeat([]byte{0xab}, 16)
}

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("hmackey", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Bytes != 32 || cfg.KeyID != "" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestParseConfigOverride(t *testing.T) {
	fs := flag.NewFlagSet("hmackey", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-bytes", "16", "-key-id", "v2"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Bytes != 16 || cfg.KeyID != "v2" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestParseConfigBadArgs(t *testing.T) {
	fs := flag.NewFlagSet("hmackey", flag.ContinueOnError)
	fs.SetOutput(&bytes.Buffer{})
	if _, err := ParseConfig(fs, []string{"-invalid"}); err == nil {
		t.Fatal("expected error for unknown flag")
	}
}

func TestRunRejectsShortKeys(t *testing.T) {
	if err := Run(Config{Bytes: 8}, &bytes.Buffer{}, bytes.NewReader(nil)); err == nil {
		t.Fatal("expected error for short key")
	}
}

func TestRunRejectsBadKeyID(t *testing.T) {
	if err := Run(Config{Bytes: 16, KeyID: "a=b"}, &bytes.Buffer{}, bytes.NewReader(sixteen())); err == nil {
		t.Fatal("expected error for key id with separator")
	}
}

func TestRunNilOutput(t *testing.T) {
	if err := Run(Config{Bytes: 16}, nil, nil); err == nil {
		t.Fatal("expected error for nil output")
	}
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("read error") }

func TestRunReaderError(t *testing.T) {
	if err := Run(Config{Bytes: 16}, &bytes.Buffer{}, errReader{}); err == nil {
		t.Fatal("expected error from failing reader")
	}
}

func TestRunSingleKeyLoadsAsKeyring(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := Run(Config{Bytes: 16}, buf, bytes.NewReader(sixteen())); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := envKey + "=" + strings.Repeat("ab", 16)
	if got := strings.TrimSpace(buf.String()); got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
	env := parseLines(t, buf.String())
	if _, err := integrity.KeyringFromEnv(config.WithEnvironment(env)); err != nil {
		t.Fatalf("keyring from generated env: %v", err)
	}
}

func TestRunRotationEntryLoadsAsKeyring(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := Run(Config{Bytes: 16, KeyID: "v2"}, buf, bytes.NewReader(sixteen())); err != nil {
		t.Fatalf("run: %v", err)
	}
	env := parseLines(t, buf.String())
	if env[envID] != "v2" {
		t.Fatalf("key id = %q, want v2", env[envID])
	}
	if !strings.HasPrefix(env[envKeys], "v2=") {
		t.Fatalf("keys entry = %q", env[envKeys])
	}
	if _, err := integrity.KeyringFromEnv(config.WithEnvironment(env)); err != nil {
		t.Fatalf("keyring from generated env: %v", err)
	}
}

func parseLines(t *testing.T, out string) map[string]string {
	t.Helper()
	env := make(map[string]string)
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		name, value, ok := strings.Cut(line, "=")
		if !ok {
			t.Fatalf("malformed line %q", line)
		}
		env[name] = value
	}
	return env
}
