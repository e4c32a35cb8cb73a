// Package interceptors holds the cross-cutting unary interceptors of the
// arena gRPC server.
package interceptors

import (
	"context"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apperrors "github.com/louisbranch/arena/internal/platform/errors"
	"github.com/louisbranch/arena/internal/platform/requestctx"
	"github.com/louisbranch/arena/internal/services/arena/api/grpc/arena"
)

// Logf is the printf-style sink audit lines are written to.
type Logf func(format string, args ...any)

// AuditInterceptor writes one line per unary call with the method kind,
// status code, domain reason, caller, request id and trace id.
func AuditInterceptor(logf Logf) grpc.UnaryServerInterceptor {
	if logf == nil {
		logf = log.Printf
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		started := time.Now()
		resp, err := handler(ctx, req)

		code := codes.OK
		reason := ""
		if err != nil {
			code = status.Code(err)
			if appErr := apperrors.FromGRPCStatus(err); appErr != nil {
				reason = string(appErr.Code)
			}
		}
		actor := requestctx.ActorFromContext(ctx)
		if actor == "" {
			actor = "anonymous"
		}
		traceID := ""
		if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
			traceID = sc.TraceID().String()
		}

		line := "grpc %s kind=%s code=%s actor=%s request_id=%s elapsed=%s"
		args := []any{info.FullMethod, classifyMethodKind(info.FullMethod), code, actor, requestctx.RequestIDFromContext(ctx), time.Since(started).Round(time.Millisecond)}
		if sessionID := sessionIDFromRequest(req); sessionID != "" {
			line += " session_id=%s"
			args = append(args, sessionID)
		}
		if reason != "" {
			line += " reason=%s"
			args = append(args, reason)
		}
		if traceID != "" {
			line += " trace_id=%s"
			args = append(args, traceID)
		}
		logf(line, args...)
		return resp, err
	}
}

type sessionIDGetter interface {
	GetSessionID() string
}

func sessionIDFromRequest(req any) string {
	getter, ok := req.(sessionIDGetter)
	if !ok {
		return ""
	}
	return strings.TrimSpace(getter.GetSessionID())
}

func classifyMethodKind(fullMethod string) string {
	switch fullMethod {
	case arena.GetConfigFullMethod,
		arena.GetAccountFullMethod,
		arena.GetSessionFullMethod,
		arena.ListSessionsFullMethod,
		arena.ListStalledSessionsFullMethod,
		arena.ListEventsFullMethod,
		arena.VerifyStreamFullMethod:
		return "read"
	default:
		return "write"
	}
}
