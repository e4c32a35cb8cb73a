package auth

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	apperrors "github.com/louisbranch/arena/internal/platform/errors"
	"github.com/louisbranch/arena/internal/platform/id"
	"github.com/louisbranch/arena/internal/platform/requestctx"
	"github.com/louisbranch/arena/internal/platform/timeouts"
	grpcmeta "github.com/louisbranch/arena/internal/services/arena/api/grpc/metadata"
	"github.com/louisbranch/arena/internal/services/arena/domain/identity"
)

// Request signature headers.
const (
	ActorHeader     = "x-arena-actor"
	IssuedAtHeader  = "x-arena-issued-at"
	NonceHeader     = "x-arena-nonce"
	SignatureHeader = "x-arena-signature"
)

// NonceStore remembers which signed requests were already accepted.
// ClaimNonce fails with storage.ErrReplayedRequest when actor used nonce
// before, and may drop claims issued before forgetBefore.
type NonceStore interface {
	ClaimNonce(ctx context.Context, actor, nonce string, issuedAt, forgetBefore time.Time) error
}

// encodeBody renders a request the way both ends hash it.
func encodeBody(req any) ([]byte, error) {
	return json.Marshal(req)
}

// UnaryClientInterceptor signs every outgoing call with signer. The signed
// request id is the one the metadata client interceptor forwards.
func UnaryClientInterceptor(signer *Signer, now func() time.Time) grpc.UnaryClientInterceptor {
	if now == nil {
		now = time.Now
	}
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		if signer == nil {
			return invoker(ctx, method, req, reply, cc, opts...)
		}
		body, err := encodeBody(req)
		if err != nil {
			return err
		}
		nonce, err := id.NewID()
		if err != nil {
			return err
		}
		env := Envelope{
			Method:     method,
			IssuedAtMs: now().UnixMilli(),
			Nonce:      nonce,
			RequestID:  requestctx.RequestIDFromContext(ctx),
			Body:       body,
		}
		signature, err := signer.Sign(env)
		if err != nil {
			return err
		}
		ctx = metadata.AppendToOutgoingContext(ctx,
			ActorHeader, string(signer.Identity()),
			IssuedAtHeader, strconv.FormatInt(env.IssuedAtMs, 10),
			NonceHeader, nonce,
			SignatureHeader, signature,
		)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// ServerOption configures the verifying interceptor.
type ServerOption func(*verifier)

type verifier struct {
	now     func() time.Time
	maxSkew time.Duration
	nonces  NonceStore
}

// WithClock replaces the clock used for skew checks.
func WithClock(now func() time.Time) ServerOption {
	return func(v *verifier) {
		if now != nil {
			v.now = now
		}
	}
}

// WithMaxSkew bounds how far issued-at may drift from the server clock.
func WithMaxSkew(skew time.Duration) ServerOption {
	return func(v *verifier) {
		if skew > 0 {
			v.maxSkew = skew
		}
	}
}

// WithNonceStore rejects signed requests whose nonce was already accepted.
func WithNonceStore(store NonceStore) ServerOption {
	return func(v *verifier) {
		v.nonces = store
	}
}

// UnaryServerInterceptor verifies signed calls and puts the caller identity
// on the context. Unsigned calls proceed anonymously; operations that need
// a caller reject them downstream.
func UnaryServerInterceptor(opts ...ServerOption) grpc.UnaryServerInterceptor {
	v := verifier{now: time.Now, maxSkew: timeouts.RequestSkew}
	for _, opt := range opts {
		if opt != nil {
			opt(&v)
		}
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		actor, err := v.authenticate(ctx, info.FullMethod, req)
		if err != nil {
			return nil, apperrors.HandleError(err, "")
		}
		if actor != "" {
			ctx = requestctx.WithActor(ctx, string(actor))
		}
		return handler(ctx, req)
	}
}

func (v verifier) authenticate(ctx context.Context, method string, req any) (identity.ID, error) {
	rawActor := grpcmeta.IncomingValue(ctx, ActorHeader)
	rawIssued := grpcmeta.IncomingValue(ctx, IssuedAtHeader)
	nonce := grpcmeta.IncomingValue(ctx, NonceHeader)
	signature := grpcmeta.IncomingValue(ctx, SignatureHeader)
	if rawActor == "" && rawIssued == "" && nonce == "" && signature == "" {
		return "", nil
	}
	if rawActor == "" || rawIssued == "" || nonce == "" || signature == "" {
		return "", apperrors.New(apperrors.CodeUnauthorized, "incomplete request signature")
	}

	actor, err := identity.Parse(rawActor)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeUnauthorized, "invalid actor identity", err)
	}
	issuedAtMs, err := strconv.ParseInt(rawIssued, 10, 64)
	if err != nil {
		return "", apperrors.New(apperrors.CodeUnauthorized, "invalid issued-at")
	}
	skew := v.now().Sub(time.UnixMilli(issuedAtMs))
	if skew < 0 {
		skew = -skew
	}
	if skew > v.maxSkew {
		return "", apperrors.WithMetadata(apperrors.CodeUnauthorized, "request signature expired",
			map[string]string{"skew_ms": strconv.FormatInt(skew.Milliseconds(), 10)})
	}
	body, err := encodeBody(req)
	if err != nil {
		return "", err
	}
	env := Envelope{
		Method:     method,
		IssuedAtMs: issuedAtMs,
		Nonce:      nonce,
		RequestID:  grpcmeta.IncomingValue(ctx, grpcmeta.RequestIDHeader),
		Body:       body,
	}
	if err := Verify(actor, env, signature); err != nil {
		return "", err
	}
	if v.nonces != nil {
		// A claim outlives the window in which its issued-at passes the skew check.
		forgetBefore := v.now().Add(-2 * v.maxSkew)
		if err := v.nonces.ClaimNonce(ctx, string(actor), nonce, time.UnixMilli(issuedAtMs), forgetBefore); err != nil {
			return "", err
		}
	}
	return actor, nil
}
