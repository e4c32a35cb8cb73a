package errors

import (
	"context"
	"fmt"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestHandleError(t *testing.T) {
	if HandleError(nil, "") != nil {
		t.Fatal("nil error should stay nil")
	}

	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{name: "domain", err: New(CodeNotTurn, "wait"), want: codes.FailedPrecondition},
		{name: "wrapped domain", err: fmt.Errorf("ctx: %w", New(CodeNotFound, "gone")), want: codes.NotFound},
		{name: "status", err: status.Error(codes.Unauthenticated, "no"), want: codes.Unauthenticated},
		{name: "deadline", err: fmt.Errorf("query: %w", context.DeadlineExceeded), want: codes.DeadlineExceeded},
		{name: "plain", err: fmt.Errorf("disk full"), want: codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := status.Code(HandleError(tt.err, ""))
			if got != tt.want {
				t.Fatalf("code = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHandleErrorRoundTripsDomainCode(t *testing.T) {
	err := HandleError(WithMetadata(CodeInsufficientFunds, "short", map[string]string{"account_id": "a"}), "en-US")
	back := FromGRPCStatus(err)
	if back == nil {
		t.Fatal("expected domain error details")
	}
	if back.Code != CodeInsufficientFunds || back.Metadata["account_id"] != "a" {
		t.Fatalf("recovered %+v", back)
	}
}
