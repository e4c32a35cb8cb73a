package arenactl

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/pterm/pterm"

	arenaservice "github.com/louisbranch/arena/internal/services/arena/api/grpc/arena"
	"github.com/louisbranch/arena/internal/services/arena/api/grpc/auth"
	"github.com/louisbranch/arena/internal/services/arena/domain/account"
	"github.com/louisbranch/arena/internal/services/arena/domain/identity"
)

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUsage, fs.Name(), err)
	}
	return nil
}

func requireFlag(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: -%s is required", ErrUsage, name)
	}
	return nil
}

func runKeygen(_ context.Context, c *cli, args []string) error {
	if err := parseFlags(newFlags("keygen"), args); err != nil {
		return err
	}
	signer, err := auth.GenerateSigner()
	if err != nil {
		return err
	}
	private, err := signer.PrivateKeyHex()
	if err != nil {
		return err
	}
	c.print(renderKeyValues([][2]string{
		{"identity", string(signer.Identity())},
		{"private key", private},
	}))
	c.print(pterm.Warning.Sprintln("keep the private key secret; export it as ARENACTL_KEY"))
	return nil
}

func runWhoami(ctx context.Context, c *cli, args []string) error {
	if err := parseFlags(newFlags("whoami"), args); err != nil {
		return err
	}
	if err := c.requireSigner(); err != nil {
		return err
	}
	rows := [][2]string{{"identity", string(c.signer.Identity())}}
	if cfg, err := c.client.GetConfig(ctx, &arenaservice.GetConfigRequest{}); err == nil {
		rows = append(rows, [2]string{"wallet", string(account.Derive(c.signer.Identity(), cfg.Config.Currency))})
		if c.signer.Identity() == cfg.Config.Authority {
			rows = append(rows, [2]string{"role", "authority"})
		}
	}
	c.print(renderKeyValues(rows))
	return nil
}

func runInit(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("init")
	currency := fs.String("currency", "", "stake currency code")
	recipient := fs.String("fee-recipient", "", "identity receiving protocol fees (default: you)")
	feeBps := fs.Uint("fee-bps", 0, "protocol fee in basis points")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := c.requireSigner(); err != nil {
		return err
	}
	if err := requireFlag("currency", *currency); err != nil {
		return err
	}
	if *recipient == "" {
		*recipient = string(c.signer.Identity())
	}
	resp, err := c.client.Initialize(ctx, &arenaservice.InitializeRequest{
		Currency:     *currency,
		FeeRecipient: *recipient,
		FeeRateBps:   uint32(*feeBps),
	})
	if err != nil {
		return err
	}
	c.print(pterm.Success.Sprintln("arena initialized"))
	c.print(c.renderConfig(resp.Config))
	return nil
}

func runConfig(ctx context.Context, c *cli, args []string) error {
	if err := parseFlags(newFlags("config"), args); err != nil {
		return err
	}
	resp, err := c.client.GetConfig(ctx, &arenaservice.GetConfigRequest{})
	if err != nil {
		return err
	}
	c.print(c.renderConfig(resp.Config))
	return nil
}

func runOpenAccount(ctx context.Context, c *cli, args []string) error {
	if err := parseFlags(newFlags("open-account"), args); err != nil {
		return err
	}
	if err := c.requireSigner(); err != nil {
		return err
	}
	resp, err := c.client.OpenAccount(ctx, &arenaservice.OpenAccountRequest{})
	if err != nil {
		return err
	}
	c.print(c.renderAccount(resp.Account))
	return nil
}

func runDeposit(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("deposit")
	owner := fs.String("owner", "", "identity whose wallet is credited (default: you)")
	amount := fs.Uint64("amount", 0, "amount in base units")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := c.requireSigner(); err != nil {
		return err
	}
	if *owner == "" {
		*owner = string(c.signer.Identity())
	}
	resp, err := c.client.Deposit(ctx, &arenaservice.DepositRequest{Owner: *owner, Amount: *amount})
	if err != nil {
		return err
	}
	c.print(pterm.Success.Sprintfln("deposited %s", c.amount(*amount)))
	c.print(c.renderAccount(resp.Account))
	return nil
}

func runAccount(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("account")
	id := fs.String("id", "", "account id (default: your wallet)")
	owner := fs.String("owner", "", "show the wallet of this identity")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	accountID := *id
	if accountID == "" {
		ownerID := identity.ID(*owner)
		if ownerID == "" {
			if err := c.requireSigner(); err != nil {
				return err
			}
			ownerID = c.signer.Identity()
		}
		cfg, err := c.client.GetConfig(ctx, &arenaservice.GetConfigRequest{})
		if err != nil {
			return err
		}
		accountID = string(account.Derive(ownerID, cfg.Config.Currency))
	}
	resp, err := c.client.GetAccount(ctx, &arenaservice.GetAccountRequest{AccountID: accountID})
	if err != nil {
		return err
	}
	c.print(c.renderAccount(resp.Account))
	return nil
}

func runCreate(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("create")
	health := fs.Uint("health", 3, "starting health of each side")
	pool := fs.Uint64("pool", 0, "stake each side escrows, in base units")
	funding := fs.String("funding", "", "account debited for the stake (default: your wallet)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := c.requireSigner(); err != nil {
		return err
	}
	resp, err := c.client.CreateSession(ctx, &arenaservice.CreateSessionRequest{
		TotalHealth:    uint32(*health),
		PoolAmount:     *pool,
		FundingAccount: *funding,
	})
	if err != nil {
		return err
	}
	c.print(pterm.Success.Sprintfln("session %s created", resp.Session.ID))
	c.print(c.renderSession(resp.Session))
	return nil
}

func runJoin(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("join")
	sessionID := fs.String("session", "", "session id")
	funding := fs.String("funding", "", "account debited for the stake (default: your wallet)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := c.requireSigner(); err != nil {
		return err
	}
	if err := requireFlag("session", *sessionID); err != nil {
		return err
	}
	resp, err := c.client.JoinSession(ctx, &arenaservice.JoinSessionRequest{SessionID: *sessionID, FundingAccount: *funding})
	if err != nil {
		return err
	}
	c.print(pterm.Success.Sprintfln("joined session %s", resp.Session.ID))
	c.print(c.renderSession(resp.Session))
	return nil
}

func runMove(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("move")
	sessionID := fs.String("session", "", "session id")
	m := fs.String("move", "", "rock, paper or scissors")
	round := fs.Uint("round", 0, "round the move is for; defaults to the session's current round")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := c.requireSigner(); err != nil {
		return err
	}
	if err := requireFlag("session", *sessionID); err != nil {
		return err
	}
	if err := requireFlag("move", *m); err != nil {
		return err
	}
	if *round > math.MaxUint32 {
		return fmt.Errorf("round %d is out of range", *round)
	}
	target := uint32(*round)
	if target == 0 {
		current, err := c.client.GetSession(ctx, &arenaservice.GetSessionRequest{SessionID: *sessionID})
		if err != nil {
			return err
		}
		target = current.Session.Round + 1
	}
	if _, err := c.client.SubmitMove(ctx, &arenaservice.SubmitMoveRequest{SessionID: *sessionID, Move: *m, Round: target}); err != nil {
		return err
	}
	c.print(pterm.Success.Sprintfln("move submitted for round %d", target))
	return nil
}

func runResolve(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("resolve")
	sessionID := fs.String("session", "", "session id")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := requireFlag("session", *sessionID); err != nil {
		return err
	}
	resp, err := c.client.ResolveRound(ctx, &arenaservice.ResolveRoundRequest{SessionID: *sessionID})
	if err != nil {
		return err
	}
	c.print(c.renderRound(resp))
	return nil
}

func runForce(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("force")
	sessionID := fs.String("session", "", "session id")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := requireFlag("session", *sessionID); err != nil {
		return err
	}
	resp, err := c.client.ForceResolve(ctx, &arenaservice.ForceResolveRequest{SessionID: *sessionID})
	if err != nil {
		return err
	}
	c.print(c.renderRound(resp))
	return nil
}

func runClaim(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("claim")
	sessionID := fs.String("session", "", "session id")
	to := fs.String("to", "", "receiving account (default: your wallet)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := c.requireSigner(); err != nil {
		return err
	}
	if err := requireFlag("session", *sessionID); err != nil {
		return err
	}
	resp, err := c.client.ClaimReward(ctx, &arenaservice.ClaimRewardRequest{SessionID: *sessionID, ReceivingAccount: *to})
	if err != nil {
		return err
	}
	c.print(pterm.Success.Sprintfln("claimed %s (fee %s)", c.amount(resp.Payout), c.amount(resp.Fee)))
	c.print(renderKeyValues([][2]string{
		{"total", c.amount(resp.Total)},
		{"payout", c.amount(resp.Payout)},
		{"fee", c.amount(resp.Fee)},
		{"receiving account", resp.ReceivingAccount},
		{"fee account", resp.FeeAccount},
	}))
	return nil
}

func runSession(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("session")
	sessionID := fs.String("session", "", "session id")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := requireFlag("session", *sessionID); err != nil {
		return err
	}
	resp, err := c.client.GetSession(ctx, &arenaservice.GetSessionRequest{SessionID: *sessionID})
	if err != nil {
		return err
	}
	c.print(c.renderSession(resp.Session))
	return nil
}

func runLobby(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("lobby")
	status := fs.String("status", "open", "comma separated statuses, or all")
	creator := fs.String("creator", "", "creator identity, or me")
	pageSize := fs.Int("page-size", 20, "sessions per page")
	pageToken := fs.String("page-token", "", "token of the page to fetch")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *creator == "me" {
		if err := c.requireSigner(); err != nil {
			return err
		}
		*creator = string(c.signer.Identity())
	}
	resp, err := c.client.ListSessions(ctx, &arenaservice.ListSessionsRequest{
		Status:    *status,
		Creator:   *creator,
		PageSize:  int32(*pageSize),
		PageToken: *pageToken,
	})
	if err != nil {
		return err
	}
	c.print(c.renderSessions(resp.Sessions))
	if resp.NextPageToken != "" {
		c.print(pterm.Info.Sprintfln("next page: -page-token %s", resp.NextPageToken))
	}
	return nil
}

func runStalled(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("stalled")
	limit := fs.Int("limit", 50, "maximum sessions returned")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	resp, err := c.client.ListStalledSessions(ctx, &arenaservice.ListStalledSessionsRequest{Limit: int32(*limit)})
	if err != nil {
		return err
	}
	c.print(c.renderSessions(resp.Sessions))
	return nil
}

func runEvents(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("events")
	stream := fs.String("stream", "", "stream id: a session, an account or config")
	filter := fs.String("filter", "", `filter expression, e.g. type = "session.round_resolved"`)
	pageSize := fs.Int("page-size", 50, "events per page")
	pageToken := fs.String("page-token", "", "token of the page to fetch")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	resp, err := c.client.ListEvents(ctx, &arenaservice.ListEventsRequest{
		StreamID:  *stream,
		Filter:    *filter,
		PageSize:  int32(*pageSize),
		PageToken: *pageToken,
	})
	if err != nil {
		return err
	}
	c.print(renderEvents(resp.Events))
	if resp.NextPageToken != "" {
		c.print(pterm.Info.Sprintfln("next page: -page-token %s", resp.NextPageToken))
	}
	return nil
}

func runVerify(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("verify")
	stream := fs.String("stream", "", "stream id")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := requireFlag("stream", *stream); err != nil {
		return err
	}
	resp, err := c.client.VerifyStream(ctx, &arenaservice.VerifyStreamRequest{StreamID: *stream})
	if err != nil {
		return err
	}
	if resp.Valid {
		c.print(pterm.Success.Sprintfln("stream %s verified: %d events", resp.StreamID, resp.Verified))
		return nil
	}
	c.print(pterm.Error.Sprintfln("stream %s broken after %d events: %s", resp.StreamID, resp.Verified, resp.Problem))
	return fmt.Errorf("stream %s failed verification", resp.StreamID)
}
