// Package arenactl is the operator and player command line for the arena:
// key generation, configuration, wallets, matches and journal inspection.
package arenactl

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/pterm/pterm"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"google.golang.org/grpc"

	entrypoint "github.com/louisbranch/arena/internal/platform/cmd"
	platformgrpc "github.com/louisbranch/arena/internal/platform/grpc"
	"github.com/louisbranch/arena/internal/platform/timeouts"
	arenaservice "github.com/louisbranch/arena/internal/services/arena/api/grpc/arena"
	"github.com/louisbranch/arena/internal/services/arena/api/grpc/auth"
	grpcmeta "github.com/louisbranch/arena/internal/services/arena/api/grpc/metadata"
)

// ErrUsage marks invalid invocations; main prints usage for it.
var ErrUsage = errors.New("usage")

// Config holds the global arenactl options.
type Config struct {
	Addr string `env:"ARENACTL_ADDR" envDefault:"localhost:8090"`
	// Key is the hex private key calls are signed with.
	Key    string `env:"ARENACTL_KEY"`
	Locale string `env:"ARENACTL_LOCALE" envDefault:"en-US"`
}

// ParseConfig parses environment and global flags. The remaining arguments
// are the subcommand and its flags.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, []string, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, nil, err
	}
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The arena server address")
	fs.StringVar(&cfg.Key, "key", cfg.Key, "Hex private key used to sign calls")
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "Locale used to format amounts")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, nil, err
	}
	return cfg, fs.Args(), nil
}

type command struct {
	summary string
	// offline commands run without dialing the arena.
	offline bool
	run     func(ctx context.Context, cli *cli, args []string) error
}

var commands = map[string]command{
	"keygen":       {summary: "generate a new identity key", offline: true, run: runKeygen},
	"whoami":       {summary: "show the identity of -key and its wallet", run: runWhoami},
	"init":         {summary: "initialize the arena as its authority", run: runInit},
	"config":       {summary: "show the arena configuration", run: runConfig},
	"open-account": {summary: "open your wallet", run: runOpenAccount},
	"deposit":      {summary: "credit a wallet (authority only)", run: runDeposit},
	"account":      {summary: "show an account balance", run: runAccount},
	"create":       {summary: "create a session and stake the pool", run: runCreate},
	"join":         {summary: "join an open session", run: runJoin},
	"move":         {summary: "submit your move for the current round", run: runMove},
	"resolve":      {summary: "resolve a round in which both sides moved", run: runResolve},
	"force":        {summary: "force-resolve a timed-out round", run: runForce},
	"claim":        {summary: "claim the reward of a won session", run: runClaim},
	"session":      {summary: "show one session", run: runSession},
	"lobby":        {summary: "list sessions, newest first", run: runLobby},
	"stalled":      {summary: "list sessions whose round can be forced", run: runStalled},
	"events":       {summary: "list journal events", run: runEvents},
	"verify":       {summary: "verify the hash chain of a journal stream", run: runVerify},
}

// Usage writes the command summary to w.
func Usage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(w, "usage: arenactl [-addr host:port] [-key hex] <command> [flags]")
	fmt.Fprintln(w)
	for _, name := range names {
		fmt.Fprintf(w, "  %-13s %s\n", name, commands[name].summary)
	}
}

// cli carries what every subcommand needs.
type cli struct {
	client  *arenaservice.Client
	signer  *auth.Signer
	out     io.Writer
	printer *message.Printer
	logger  *slog.Logger
}

// Run executes one subcommand, writing its output to out.
func Run(ctx context.Context, cfg Config, args []string, out io.Writer) error {
	if len(args) == 0 {
		return ErrUsage
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}
	c := &cli{
		out:     out,
		printer: message.NewPrinter(localeTag(cfg.Locale)),
		logger:  slog.New(pterm.NewSlogHandler(&pterm.DefaultLogger)).With("service", entrypoint.ServiceCLI),
	}
	if key := strings.TrimSpace(cfg.Key); key != "" {
		signer, err := auth.ParsePrivateKey(key)
		if err != nil {
			return fmt.Errorf("parse key: %w", err)
		}
		c.signer = signer
	}
	if cmd.offline {
		return cmd.run(ctx, c, args[1:])
	}

	opts := append(platformgrpc.DefaultClientDialOptions(),
		grpc.WithChainUnaryInterceptor(
			grpcmeta.UnaryClientInterceptor(),
			auth.UnaryClientInterceptor(c.signer, nil),
		),
	)
	conn, err := platformgrpc.DialWithHealth(ctx, nil, cfg.Addr, arenaservice.ServiceName, timeouts.GRPCDial, c.logger.Debug, opts...)
	if err != nil {
		return fmt.Errorf("dial arena: %w", err)
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			c.logger.Warn("close arena connection", "error", closeErr)
		}
	}()
	c.client = arenaservice.NewClient(conn)
	return cmd.run(ctx, c, args[1:])
}

func localeTag(raw string) language.Tag {
	tag, err := language.Parse(strings.TrimSpace(raw))
	if err != nil {
		return language.AmericanEnglish
	}
	return tag
}

// requireSigner rejects commands that must be signed.
func (c *cli) requireSigner() error {
	if c.signer == nil {
		return fmt.Errorf("%w: this command needs -key or ARENACTL_KEY", ErrUsage)
	}
	return nil
}

func (c *cli) amount(value uint64) string {
	return c.printer.Sprintf("%d", value)
}

func (c *cli) print(s string) {
	fmt.Fprint(c.out, s)
}
