package auth

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	apperrors "github.com/louisbranch/arena/internal/platform/errors"
	"github.com/louisbranch/arena/internal/platform/requestctx"
	grpcmeta "github.com/louisbranch/arena/internal/services/arena/api/grpc/metadata"
	"github.com/louisbranch/arena/internal/services/arena/storage"
)

type testRequest struct {
	SessionID string `json:"session_id"`
	Move      string `json:"move"`
}

const testMethod = "/arena.v1.ArenaService/SubmitMove"

func mustSigner(t *testing.T) *Signer {
	t.Helper()
	signer, err := GenerateSigner()
	if err != nil {
		t.Fatalf("generate signer: %v", err)
	}
	return signer
}

func TestPrivateKeyRoundTrip(t *testing.T) {
	signer := mustSigner(t)
	raw, err := signer.PrivateKeyHex()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	parsed, err := ParsePrivateKey(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Identity() != signer.Identity() {
		t.Fatalf("identity = %s, want %s", parsed.Identity(), signer.Identity())
	}
	if _, err := ParsePrivateKey("zz"); err == nil {
		t.Fatal("expected error for non-hex key")
	}
}

func TestSignAndVerify(t *testing.T) {
	signer := mustSigner(t)
	env := Envelope{
		Method:     testMethod,
		IssuedAtMs: 1_700_000_000_000,
		Nonce:      "n1",
		RequestID:  "req-1",
		Body:       []byte(`{"move":"rock"}`),
	}

	sig, err := signer.Sign(env)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if err := Verify(signer.Identity(), env, sig); err != nil {
		t.Fatalf("verify: %v", err)
	}

	tampered := []struct {
		name   string
		mutate func(*Envelope)
	}{
		{"body", func(e *Envelope) { e.Body = []byte(`{"move":"paper"}`) }},
		{"method", func(e *Envelope) { e.Method = "/other" }},
		{"issued at", func(e *Envelope) { e.IssuedAtMs++ }},
		{"nonce", func(e *Envelope) { e.Nonce = "n2" }},
		{"request id", func(e *Envelope) { e.RequestID = "" }},
	}
	for _, tc := range tampered {
		changed := env
		tc.mutate(&changed)
		if err := Verify(signer.Identity(), changed, sig); !apperrors.HasCode(err, apperrors.CodeUnauthorized) {
			t.Fatalf("tampered %s err = %v", tc.name, err)
		}
	}
	other := mustSigner(t)
	if err := Verify(other.Identity(), env, sig); err == nil {
		t.Fatal("signature must not verify under another key")
	}
}

type memoryNonces struct {
	seen map[string]bool
}

func (m *memoryNonces) ClaimNonce(_ context.Context, actor, nonce string, _, _ time.Time) error {
	if m.seen == nil {
		m.seen = make(map[string]bool)
	}
	key := actor + "/" + nonce
	if m.seen[key] {
		return storage.ErrReplayedRequest
	}
	m.seen[key] = true
	return nil
}

// signOutgoing runs the client interceptor and returns the metadata it
// would send.
func signOutgoing(t *testing.T, ctx context.Context, signer *Signer, clientNow time.Time, sent any) metadata.MD {
	t.Helper()
	var outgoing metadata.MD
	client := UnaryClientInterceptor(signer, func() time.Time { return clientNow })
	err := client(ctx, testMethod, sent, nil, nil,
		func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
			outgoing, _ = metadata.FromOutgoingContext(ctx)
			return nil
		})
	if err != nil {
		t.Fatalf("client interceptor: %v", err)
	}
	return outgoing
}

// serve runs the server interceptor over incoming metadata and returns the
// authenticated actor.
func serve(incoming metadata.MD, received any, opts ...ServerOption) (string, error) {
	var actor string
	server := UnaryServerInterceptor(opts...)
	ctx := metadata.NewIncomingContext(context.Background(), incoming)
	_, err := server(ctx, received, &grpc.UnaryServerInfo{FullMethod: testMethod},
		func(ctx context.Context, req any) (any, error) {
			actor = requestctx.ActorFromContext(ctx)
			return nil, nil
		})
	return actor, err
}

// roundTrip signs req on the client side and runs the server interceptor
// on the resulting metadata.
func roundTrip(t *testing.T, signer *Signer, clientNow, serverNow time.Time, sent, received any) (string, error) {
	t.Helper()
	outgoing := signOutgoing(t, context.Background(), signer, clientNow, sent)
	return serve(outgoing, received, WithClock(func() time.Time { return serverNow }))
}

func TestInterceptorsAuthenticateCaller(t *testing.T) {
	signer := mustSigner(t)
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	req := &testRequest{SessionID: "s1", Move: "rock"}

	actor, err := roundTrip(t, signer, now, now.Add(time.Minute), req, &testRequest{SessionID: "s1", Move: "rock"})
	if err != nil {
		t.Fatalf("server interceptor: %v", err)
	}
	if actor != string(signer.Identity()) {
		t.Fatalf("actor = %q, want %q", actor, signer.Identity())
	}
}

func TestServerRejectsTamperedBody(t *testing.T) {
	signer := mustSigner(t)
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	_, err := roundTrip(t, signer, now, now, &testRequest{SessionID: "s1", Move: "rock"}, &testRequest{SessionID: "s1", Move: "paper"})
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("code = %v, want Unauthenticated", status.Code(err))
	}
}

func TestServerRejectsSkew(t *testing.T) {
	signer := mustSigner(t)
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	req := &testRequest{SessionID: "s1"}

	_, err := roundTrip(t, signer, now, now.Add(6*time.Minute), req, req)
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("code = %v, want Unauthenticated", status.Code(err))
	}
	_, err = roundTrip(t, signer, now.Add(6*time.Minute), now, req, req)
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("future stamp code = %v, want Unauthenticated", status.Code(err))
	}
}

func TestServerAllowsUnsignedCalls(t *testing.T) {
	actor, err := roundTrip(t, nil, time.Now(), time.Now(), &testRequest{}, &testRequest{})
	if err != nil {
		t.Fatalf("unsigned call: %v", err)
	}
	if actor != "" {
		t.Fatalf("actor = %q, want anonymous", actor)
	}
}

func TestServerRejectsPartialSignature(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(ActorHeader, "ab"))
	_, err := UnaryServerInterceptor()(ctx, &testRequest{}, &grpc.UnaryServerInfo{FullMethod: testMethod},
		func(ctx context.Context, req any) (any, error) { return nil, nil })
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("code = %v, want Unauthenticated", status.Code(err))
	}
}

func TestServerRejectsMissingNonce(t *testing.T) {
	signer := mustSigner(t)
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	req := &testRequest{SessionID: "s1"}

	outgoing := signOutgoing(t, context.Background(), signer, now, req)
	outgoing.Delete(NonceHeader)
	_, err := serve(outgoing, req, WithClock(func() time.Time { return now }))
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("code = %v, want Unauthenticated", status.Code(err))
	}
}

func TestServerRejectsReusedNonce(t *testing.T) {
	signer := mustSigner(t)
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	req := &testRequest{SessionID: "s1", Move: "rock"}
	nonces := &memoryNonces{}
	clock := WithClock(func() time.Time { return now })

	outgoing := signOutgoing(t, context.Background(), signer, now, req)
	if _, err := serve(outgoing, req, clock, WithNonceStore(nonces)); err != nil {
		t.Fatalf("first call: %v", err)
	}
	_, err := serve(outgoing, req, clock, WithNonceStore(nonces))
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("replayed code = %v, want Unauthenticated", status.Code(err))
	}

	fresh := signOutgoing(t, context.Background(), signer, now, req)
	if _, err := serve(fresh, req, clock, WithNonceStore(nonces)); err != nil {
		t.Fatalf("freshly signed call: %v", err)
	}
}

func TestSignatureCoversRequestID(t *testing.T) {
	signer := mustSigner(t)
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	req := &testRequest{SessionID: "s1"}
	clock := WithClock(func() time.Time { return now })

	ctx := requestctx.WithRequestID(context.Background(), "req-1")
	outgoing := signOutgoing(t, ctx, signer, now, req)
	outgoing.Set(grpcmeta.RequestIDHeader, "req-1")
	if _, err := serve(outgoing, req, clock); err != nil {
		t.Fatalf("matching request id: %v", err)
	}

	outgoing.Set(grpcmeta.RequestIDHeader, "req-2")
	if _, err := serve(outgoing, req, clock); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("swapped request id code = %v, want Unauthenticated", status.Code(err))
	}
}
