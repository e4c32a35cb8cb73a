package arenactl

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pterm/pterm"
	"golang.org/x/text/message"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	apperrors "github.com/louisbranch/arena/internal/platform/errors"
	arenaservice "github.com/louisbranch/arena/internal/services/arena/api/grpc/arena"
	"github.com/louisbranch/arena/internal/services/arena/api/grpc/auth"
	server "github.com/louisbranch/arena/internal/services/arena/app"
	"github.com/louisbranch/arena/internal/services/arena/storage/integrity"
)

func TestMain(m *testing.M) {
	pterm.DisableStyling()
	os.Exit(m.Run())
}

func TestParseConfigSplitsCommand(t *testing.T) {
	fs := flag.NewFlagSet("arenactl", flag.ContinueOnError)
	cfg, args, err := ParseConfig(fs, []string{"-addr", "arena:9000", "lobby", "-status", "all"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Addr != "arena:9000" {
		t.Fatalf("addr = %q", cfg.Addr)
	}
	if len(args) != 3 || args[0] != "lobby" {
		t.Fatalf("args = %v", args)
	}
}

func TestRunRejectsMissingAndUnknownCommands(t *testing.T) {
	var out bytes.Buffer
	if err := Run(context.Background(), Config{}, nil, &out); !errors.Is(err, ErrUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
	if err := Run(context.Background(), Config{}, []string{"dance"}, &out); !errors.Is(err, ErrUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestKeygenPrintsUsableKey(t *testing.T) {
	var out bytes.Buffer
	if err := Run(context.Background(), Config{}, []string{"keygen"}, &out); err != nil {
		t.Fatalf("keygen: %v", err)
	}
	if !strings.Contains(out.String(), "identity") || !strings.Contains(out.String(), "private key") {
		t.Fatalf("unexpected keygen output:\n%s", out.String())
	}
}

func TestRunRejectsBadKey(t *testing.T) {
	var out bytes.Buffer
	if err := Run(context.Background(), Config{Key: "zz"}, []string{"keygen"}, &out); err == nil {
		t.Fatal("expected error for malformed key")
	}
}

func TestUsageListsCommands(t *testing.T) {
	var out bytes.Buffer
	Usage(&out)
	for _, name := range []string{"keygen", "create", "claim", "verify"} {
		if !strings.Contains(out.String(), name) {
			t.Fatalf("usage missing %s:\n%s", name, out.String())
		}
	}
}

func TestFormatError(t *testing.T) {
	err := apperrors.WithMetadata(apperrors.CodeNotTimedOut, "turn has not timed out", map[string]string{"timeout_ms": "60000", "elapsed_ms": "10"}).ToGRPCStatus(apperrors.BaseLocale)
	got := FormatError(err)
	if !strings.Contains(got, "NOT_TIMED_OUT") || !strings.Contains(got, "elapsed_ms=10, timeout_ms=60000") {
		t.Fatalf("formatted error = %q", got)
	}
	if FormatError(nil) != "" {
		t.Fatal("expected empty output for nil error")
	}
}

func TestAmountUsesLocaleGrouping(t *testing.T) {
	c := &cli{printer: message.NewPrinter(localeTag("en-US"))}
	if got := c.amount(1234567); got != "1,234,567" {
		t.Fatalf("amount = %q, want 1,234,567", got)
	}
}

func TestCommandsAgainstServer(t *testing.T) {
	keyring, err := integrity.NewKeyring(map[string][]byte{"k1": []byte("0123456789abcdef0123456789abcdef")}, "k1")
	if err != nil {
		t.Fatalf("keyring: %v", err)
	}
	srv, err := server.New(server.Options{
		Addr:    "127.0.0.1:0",
		DBPath:  filepath.Join(t.TempDir(), "arena.db"),
		Keyring: keyring,
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	keyOf := func(signer *auth.Signer) string {
		key, err := signer.PrivateKeyHex()
		if err != nil {
			t.Fatalf("private key: %v", err)
		}
		return key
	}
	authority, alice, bob := mustSigner(t), mustSigner(t), mustSigner(t)
	run := func(signer *auth.Signer, args ...string) string {
		t.Helper()
		cfg := Config{Addr: srv.Addr(), Locale: "en-US"}
		if signer != nil {
			cfg.Key = keyOf(signer)
		}
		var out bytes.Buffer
		callCtx, callCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer callCancel()
		if err := Run(callCtx, cfg, args, &out); err != nil {
			t.Fatalf("%v: %v\n%s", args, err, FormatError(err))
		}
		return out.String()
	}

	out := run(authority, "init", "-currency", "SOL", "-fee-bps", "250")
	if !strings.Contains(out, "250 bps") {
		t.Fatalf("init output:\n%s", out)
	}
	run(authority, "deposit", "-owner", string(alice.Identity()), "-amount", "1000000")
	run(authority, "deposit", "-owner", string(bob.Identity()), "-amount", "1000000")
	if out := run(alice, "account"); !strings.Contains(out, "1,000,000 SOL") {
		t.Fatalf("account output:\n%s", out)
	}

	run(alice, "create", "-health", "1", "-pool", "400000")
	sessionID := firstSessionID(t, srv.Addr())
	run(bob, "join", "-session", sessionID)
	if out := run(alice, "move", "-session", sessionID, "-move", "paper"); !strings.Contains(out, "round 1") {
		t.Fatalf("move output:\n%s", out)
	}
	run(bob, "move", "-session", sessionID, "-move", "rock", "-round", "1")
	if out := run(nil, "resolve", "-session", sessionID); !strings.Contains(out, "creator") {
		t.Fatalf("resolve output:\n%s", out)
	}
	if out := run(alice, "claim", "-session", sessionID); !strings.Contains(out, "780,000") || !strings.Contains(out, "20,000") {
		t.Fatalf("claim output:\n%s", out)
	}
	if out := run(nil, "lobby", "-status", "claimed"); !strings.Contains(out, sessionID) {
		t.Fatalf("lobby output:\n%s", out)
	}
	if out := run(nil, "events", "-stream", sessionID, "-filter", `type = "session.joined"`); !strings.Contains(out, "session.joined") {
		t.Fatalf("events output:\n%s", out)
	}
	if out := run(nil, "verify", "-stream", sessionID); !strings.Contains(out, "verified") {
		t.Fatalf("verify output:\n%s", out)
	}

	var out2 bytes.Buffer
	err = Run(context.Background(), Config{Addr: srv.Addr(), Key: keyOf(bob)}, []string{"claim", "-session", sessionID}, &out2)
	if appErr := apperrors.FromGRPCStatus(err); appErr == nil || appErr.Code != apperrors.CodeNotWinner {
		t.Fatalf("expected NOT_WINNER, got %v", err)
	}
}

func mustSigner(t *testing.T) *auth.Signer {
	t.Helper()
	signer, err := auth.GenerateSigner()
	if err != nil {
		t.Fatalf("generate signer: %v", err)
	}
	return signer
}

func firstSessionID(t *testing.T, addr string) string {
	t.Helper()
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	resp, err := arenaservice.NewClient(conn).ListSessions(context.Background(), &arenaservice.ListSessionsRequest{Status: "all"})
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(resp.Sessions) == 0 {
		t.Fatal("expected a session")
	}
	return resp.Sessions[0].ID
}
