package server

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	apperrors "github.com/louisbranch/arena/internal/platform/errors"
	arenaservice "github.com/louisbranch/arena/internal/services/arena/api/grpc/arena"
	"github.com/louisbranch/arena/internal/services/arena/api/grpc/auth"
	grpcmeta "github.com/louisbranch/arena/internal/services/arena/api/grpc/metadata"
	"github.com/louisbranch/arena/internal/services/arena/domain/engine"
	"github.com/louisbranch/arena/internal/services/arena/storage/integrity"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testServer struct {
	t     *testing.T
	addr  string
	clock *testClock
}

func startServer(t *testing.T) *testServer {
	t.Helper()
	keyring, err := integrity.NewKeyring(map[string][]byte{"k1": []byte("0123456789abcdef0123456789abcdef")}, "k1")
	if err != nil {
		t.Fatalf("keyring: %v", err)
	}
	clock := &testClock{now: time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)}
	srv, err := New(Options{
		Addr:    "127.0.0.1:0",
		DBPath:  filepath.Join(t.TempDir(), "arena.db"),
		Keyring: keyring,
		Rules:   engine.Rules{TurnTimeout: 30 * time.Second},
		Clock:   clock.Now,
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-serveErr:
			if err != nil {
				t.Errorf("serve: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Errorf("server did not stop")
		}
	})
	return &testServer{t: t, addr: srv.Addr(), clock: clock}
}

// client dials the server signing as signer; a nil signer calls anonymously.
func (s *testServer) client(signer *auth.Signer) *arenaservice.Client {
	return s.dial(grpcmeta.UnaryClientInterceptor(), auth.UnaryClientInterceptor(signer, s.clock.Now))
}

func (s *testServer) dial(interceptors ...grpc.UnaryClientInterceptor) *arenaservice.Client {
	s.t.Helper()
	conn, err := grpc.NewClient(s.addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.WaitForReady(true)),
		grpc.WithChainUnaryInterceptor(interceptors...),
	)
	if err != nil {
		s.t.Fatalf("dial: %v", err)
	}
	s.t.Cleanup(func() { _ = conn.Close() })
	return arenaservice.NewClient(conn)
}

func newSigner(t *testing.T) *auth.Signer {
	t.Helper()
	signer, err := auth.GenerateSigner()
	if err != nil {
		t.Fatalf("generate signer: %v", err)
	}
	return signer
}

func callCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func expectCode(t *testing.T, err error, want apperrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil", want)
	}
	appErr := apperrors.FromGRPCStatus(err)
	if appErr == nil {
		t.Fatalf("expected %s, got %v", want, err)
	}
	if appErr.Code != want {
		t.Fatalf("expected %s, got %s (%v)", want, appErr.Code, err)
	}
}

func TestServerReportsHealth(t *testing.T) {
	srv := startServer(t)
	conn, err := grpc.NewClient(srv.addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	resp, err := grpc_health_v1.NewHealthClient(conn).Check(callCtx(t), &grpc_health_v1.HealthCheckRequest{Service: arenaservice.ServiceName}, grpc.WaitForReady(true))
	if err != nil {
		t.Fatalf("health check: %v", err)
	}
	if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
		t.Fatalf("health status = %v, want SERVING", resp.GetStatus())
	}
}

func TestNewRequiresKeyring(t *testing.T) {
	if _, err := New(Options{Addr: "127.0.0.1:0"}); err == nil {
		t.Fatal("expected error without keyring")
	}
}

func TestMatchOverGRPC(t *testing.T) {
	srv := startServer(t)
	authoritySigner, treasurySigner, aliceSigner, bobSigner := newSigner(t), newSigner(t), newSigner(t), newSigner(t)
	authority := srv.client(authoritySigner)
	alice := srv.client(aliceSigner)
	bob := srv.client(bobSigner)
	anonymous := srv.client(nil)

	_, err := anonymous.GetConfig(callCtx(t), &arenaservice.GetConfigRequest{})
	expectCode(t, err, apperrors.CodeNotInitialized)

	cfg, err := authority.Initialize(callCtx(t), &arenaservice.InitializeRequest{
		Currency:     "SOL",
		FeeRecipient: string(treasurySigner.Identity()),
		FeeRateBps:   500,
	})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if cfg.Config.Authority != authoritySigner.Identity() {
		t.Fatalf("authority = %s, want %s", cfg.Config.Authority, authoritySigner.Identity())
	}

	_, err = alice.Deposit(callCtx(t), &arenaservice.DepositRequest{Owner: string(aliceSigner.Identity()), Amount: 5000})
	expectCode(t, err, apperrors.CodeUnauthorized)
	for _, signer := range []*auth.Signer{aliceSigner, bobSigner} {
		if _, err := authority.Deposit(callCtx(t), &arenaservice.DepositRequest{Owner: string(signer.Identity()), Amount: 5000}); err != nil {
			t.Fatalf("deposit: %v", err)
		}
	}

	_, err = anonymous.CreateSession(callCtx(t), &arenaservice.CreateSessionRequest{TotalHealth: 1, PoolAmount: 1000})
	expectCode(t, err, apperrors.CodeUnauthorized)

	created, err := alice.CreateSession(callCtx(t), &arenaservice.CreateSessionRequest{TotalHealth: 1, PoolAmount: 1000})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	sessionID := created.Session.ID
	if created.Session.Status != "open" || created.Session.VaultBalance != 1000 {
		t.Fatalf("created session = %+v", created.Session)
	}
	if created.Session.TurnTimeoutMs != 30_000 {
		t.Fatalf("turn timeout = %d, want 30000", created.Session.TurnTimeoutMs)
	}

	_, err = alice.JoinSession(callCtx(t), &arenaservice.JoinSessionRequest{SessionID: sessionID})
	expectCode(t, err, apperrors.CodeCreatorCannotJoin)
	joined, err := bob.JoinSession(callCtx(t), &arenaservice.JoinSessionRequest{SessionID: sessionID})
	if err != nil {
		t.Fatalf("join session: %v", err)
	}
	if joined.Session.Status != "active" || joined.Session.VaultBalance != 2000 {
		t.Fatalf("joined session = %+v", joined.Session)
	}

	_, err = alice.SubmitMove(callCtx(t), &arenaservice.SubmitMoveRequest{SessionID: sessionID, Move: "lizard", Round: 1})
	expectCode(t, err, apperrors.CodeInvalidMove)
	_, err = alice.SubmitMove(callCtx(t), &arenaservice.SubmitMoveRequest{SessionID: sessionID, Move: "", Round: 1})
	expectCode(t, err, apperrors.CodeInvalidMove)
	if _, err := alice.SubmitMove(callCtx(t), &arenaservice.SubmitMoveRequest{SessionID: sessionID, Move: "rock", Round: 1}); err != nil {
		t.Fatalf("alice move: %v", err)
	}
	_, err = anonymous.ResolveRound(callCtx(t), &arenaservice.ResolveRoundRequest{SessionID: sessionID})
	expectCode(t, err, apperrors.CodeIncompleteTurn)
	if _, err := bob.SubmitMove(callCtx(t), &arenaservice.SubmitMoveRequest{SessionID: sessionID, Move: "scissors", Round: 1}); err != nil {
		t.Fatalf("bob move: %v", err)
	}

	round, err := anonymous.ResolveRound(callCtx(t), &arenaservice.ResolveRoundRequest{SessionID: sessionID})
	if err != nil {
		t.Fatalf("resolve round: %v", err)
	}
	if round.Round.Outcome.String() != "creator" || round.Round.PlayerHealth != 0 {
		t.Fatalf("round = %+v", round.Round)
	}
	if !round.Session.Winner.Is(aliceSigner.Identity()) || round.Session.Status != "over" {
		t.Fatalf("session after round = %+v", round.Session)
	}

	_, err = bob.ClaimReward(callCtx(t), &arenaservice.ClaimRewardRequest{SessionID: sessionID})
	expectCode(t, err, apperrors.CodeNotWinner)
	claim, err := alice.ClaimReward(callCtx(t), &arenaservice.ClaimRewardRequest{SessionID: sessionID})
	if err != nil {
		t.Fatalf("claim reward: %v", err)
	}
	if claim.Total != 2000 || claim.Payout != 1900 || claim.Fee != 100 {
		t.Fatalf("claim = total %d payout %d fee %d", claim.Total, claim.Payout, claim.Fee)
	}
	if claim.Session.VaultBalance != 0 || claim.Session.Status != "claimed" {
		t.Fatalf("claimed session = %+v", claim.Session)
	}

	aliceWallet, err := anonymous.GetAccount(callCtx(t), &arenaservice.GetAccountRequest{AccountID: claim.ReceivingAccount})
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if aliceWallet.Account.Balance != 5900 {
		t.Fatalf("alice balance = %d, want 5900", aliceWallet.Account.Balance)
	}
	feeWallet, err := anonymous.GetAccount(callCtx(t), &arenaservice.GetAccountRequest{AccountID: claim.FeeAccount})
	if err != nil {
		t.Fatalf("get fee account: %v", err)
	}
	if feeWallet.Account.Owner != treasurySigner.Identity() || feeWallet.Account.Balance != 100 {
		t.Fatalf("fee account = %+v", feeWallet.Account)
	}

	lobby, err := anonymous.ListSessions(callCtx(t), &arenaservice.ListSessionsRequest{Status: "claimed", Creator: string(aliceSigner.Identity())})
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(lobby.Sessions) != 1 || lobby.Sessions[0].ID != sessionID {
		t.Fatalf("lobby = %+v", lobby.Sessions)
	}

	events, err := anonymous.ListEvents(callCtx(t), &arenaservice.ListEventsRequest{StreamID: sessionID, Filter: `type = "session.reward_claimed"`})
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events.Events) != 1 || events.Events[0].ActorID != string(aliceSigner.Identity()) {
		t.Fatalf("claim events = %+v", events.Events)
	}
	if events.Events[0].RequestID == "" {
		t.Fatal("expected request id on journal event")
	}

	verified, err := anonymous.VerifyStream(callCtx(t), &arenaservice.VerifyStreamRequest{StreamID: sessionID})
	if err != nil {
		t.Fatalf("verify stream: %v", err)
	}
	if !verified.Valid || verified.Verified == 0 {
		t.Fatalf("verify = %+v", verified)
	}
}

func TestForceResolveOverGRPC(t *testing.T) {
	srv := startServer(t)
	authoritySigner, aliceSigner, bobSigner := newSigner(t), newSigner(t), newSigner(t)
	authority := srv.client(authoritySigner)
	alice := srv.client(aliceSigner)
	bob := srv.client(bobSigner)
	sweeper := srv.client(nil)

	if _, err := authority.Initialize(callCtx(t), &arenaservice.InitializeRequest{Currency: "SOL", FeeRecipient: string(authoritySigner.Identity())}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	for _, signer := range []*auth.Signer{aliceSigner, bobSigner} {
		if _, err := authority.Deposit(callCtx(t), &arenaservice.DepositRequest{Owner: string(signer.Identity()), Amount: 100}); err != nil {
			t.Fatalf("deposit: %v", err)
		}
	}
	created, err := alice.CreateSession(callCtx(t), &arenaservice.CreateSessionRequest{TotalHealth: 1, PoolAmount: 10})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := bob.JoinSession(callCtx(t), &arenaservice.JoinSessionRequest{SessionID: created.Session.ID}); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := alice.SubmitMove(callCtx(t), &arenaservice.SubmitMoveRequest{SessionID: created.Session.ID, Move: "paper", Round: 1}); err != nil {
		t.Fatalf("move: %v", err)
	}

	_, err = sweeper.ForceResolve(callCtx(t), &arenaservice.ForceResolveRequest{SessionID: created.Session.ID})
	expectCode(t, err, apperrors.CodeNotTimedOut)
	stalled, err := sweeper.ListStalledSessions(callCtx(t), &arenaservice.ListStalledSessionsRequest{})
	if err != nil {
		t.Fatalf("list stalled: %v", err)
	}
	if len(stalled.Sessions) != 0 {
		t.Fatalf("expected no stalled sessions, got %d", len(stalled.Sessions))
	}

	srv.clock.Advance(31 * time.Second)
	stalled, err = sweeper.ListStalledSessions(callCtx(t), &arenaservice.ListStalledSessionsRequest{})
	if err != nil {
		t.Fatalf("list stalled: %v", err)
	}
	if len(stalled.Sessions) != 1 {
		t.Fatalf("expected one stalled session, got %d", len(stalled.Sessions))
	}
	forced, err := sweeper.ForceResolve(callCtx(t), &arenaservice.ForceResolveRequest{SessionID: created.Session.ID})
	if err != nil {
		t.Fatalf("force resolve: %v", err)
	}
	if !forced.Round.Forced || !forced.Session.Winner.Is(aliceSigner.Identity()) {
		t.Fatalf("forced round = %+v session = %+v", forced.Round, forced.Session)
	}
}

func TestInvalidRequestsOverGRPC(t *testing.T) {
	srv := startServer(t)
	anonymous := srv.client(nil)

	_, err := anonymous.GetSession(callCtx(t), &arenaservice.GetSessionRequest{})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("empty session id code = %v, want InvalidArgument", status.Code(err))
	}
	_, err = anonymous.GetSession(callCtx(t), &arenaservice.GetSessionRequest{SessionID: "missing"})
	expectCode(t, err, apperrors.CodeNotFound)
	_, err = anonymous.ListEvents(callCtx(t), &arenaservice.ListEventsRequest{Filter: "nope ="})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("bad filter code = %v, want InvalidArgument", status.Code(err))
	}
	_, err = anonymous.ListSessions(callCtx(t), &arenaservice.ListSessionsRequest{Status: "pending"})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("bad status code = %v, want InvalidArgument", status.Code(err))
	}
	_, err = anonymous.ListSessions(callCtx(t), &arenaservice.ListSessionsRequest{PageToken: "garbage"})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("bad token code = %v, want InvalidArgument", status.Code(err))
	}
}

// wireRecorder keeps the metadata of the last call it saw on the wire.
type wireRecorder struct {
	mu   sync.Mutex
	last metadata.MD
}

func (r *wireRecorder) intercept(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
	md, _ := metadata.FromOutgoingContext(ctx)
	r.mu.Lock()
	r.last = md.Copy()
	r.mu.Unlock()
	return invoker(ctx, method, req, reply, cc, opts...)
}

func (r *wireRecorder) lastMD() metadata.MD {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last.Copy()
}

func TestSignedMoveCannotBeReplayed(t *testing.T) {
	srv := startServer(t)
	authoritySigner, aliceSigner, bobSigner := newSigner(t), newSigner(t), newSigner(t)
	authority := srv.client(authoritySigner)
	recorder := &wireRecorder{}
	alice := srv.dial(
		grpcmeta.UnaryClientInterceptor(),
		auth.UnaryClientInterceptor(aliceSigner, srv.clock.Now),
		recorder.intercept,
	)
	bob := srv.client(bobSigner)
	anonymous := srv.client(nil)

	if _, err := authority.Initialize(callCtx(t), &arenaservice.InitializeRequest{Currency: "SOL", FeeRecipient: string(authoritySigner.Identity())}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	for _, signer := range []*auth.Signer{aliceSigner, bobSigner} {
		if _, err := authority.Deposit(callCtx(t), &arenaservice.DepositRequest{Owner: string(signer.Identity()), Amount: 100}); err != nil {
			t.Fatalf("deposit: %v", err)
		}
	}
	created, err := alice.CreateSession(callCtx(t), &arenaservice.CreateSessionRequest{TotalHealth: 3, PoolAmount: 10})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	sessionID := created.Session.ID
	if _, err := bob.JoinSession(callCtx(t), &arenaservice.JoinSessionRequest{SessionID: sessionID}); err != nil {
		t.Fatalf("join: %v", err)
	}

	move := &arenaservice.SubmitMoveRequest{SessionID: sessionID, Move: "rock", Round: 1}
	if _, err := alice.SubmitMove(callCtx(t), move); err != nil {
		t.Fatalf("alice move: %v", err)
	}
	captured := recorder.lastMD()
	if len(captured.Get(auth.SignatureHeader)) == 0 {
		t.Fatalf("no signature recorded in %v", captured)
	}
	if _, err := bob.SubmitMove(callCtx(t), &arenaservice.SubmitMoveRequest{SessionID: sessionID, Move: "rock", Round: 1}); err != nil {
		t.Fatalf("bob move: %v", err)
	}
	resolved, err := anonymous.ResolveRound(callCtx(t), &arenaservice.ResolveRoundRequest{SessionID: sessionID})
	if err != nil {
		t.Fatalf("resolve round: %v", err)
	}
	if resolved.Session.Status != "active" || resolved.Session.Round != 1 {
		t.Fatalf("session after draw = %+v", resolved.Session)
	}

	// Send alice's captured headers and body again from a connection that
	// holds no key.
	replayer := srv.dial()
	replayCtx := metadata.NewOutgoingContext(callCtx(t), captured)
	_, err = replayer.SubmitMove(replayCtx, move)
	expectCode(t, err, apperrors.CodeReplayedRequest)

	// A freshly signed move still names round 1 and cannot land in round 2.
	_, err = alice.SubmitMove(callCtx(t), move)
	expectCode(t, err, apperrors.CodeRoundMismatch)

	view, err := anonymous.GetSession(callCtx(t), &arenaservice.GetSessionRequest{SessionID: sessionID})
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if !view.Session.CreatorCanPlay {
		t.Fatalf("alice already holds a round 2 move: %+v", view.Session)
	}
	if _, err := alice.SubmitMove(callCtx(t), &arenaservice.SubmitMoveRequest{SessionID: sessionID, Move: "paper", Round: 2}); err != nil {
		t.Fatalf("round 2 move: %v", err)
	}
}
