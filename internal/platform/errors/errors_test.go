package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestGRPCCodeMapping(t *testing.T) {
	tests := []struct {
		code Code
		want codes.Code
	}{
		{CodeInvalidFeeRate, codes.InvalidArgument},
		{CodeNotTurn, codes.FailedPrecondition},
		{CodeNotTimedOut, codes.FailedPrecondition},
		{CodeNotWinner, codes.PermissionDenied},
		{CodeUnauthorized, codes.Unauthenticated},
		{CodeReplayedRequest, codes.Unauthenticated},
		{CodeRoundMismatch, codes.FailedPrecondition},
		{CodeAlreadyInitialized, codes.AlreadyExists},
		{CodeAlreadyClaimed, codes.AlreadyExists},
		{CodeNotFound, codes.NotFound},
		{CodeUnknown, codes.Internal},
	}
	for _, tt := range tests {
		if got := tt.code.GRPCCode(); got != tt.want {
			t.Fatalf("%s.GRPCCode() = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestErrorIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("resolve: %w", New(CodeIncompleteTurn, "creator has not moved"))
	if !stderrors.Is(err, New(CodeIncompleteTurn, "")) {
		t.Fatal("expected wrapped error to match by code")
	}
	if stderrors.Is(err, New(CodeNotTurn, "")) {
		t.Fatal("expected different code not to match")
	}
	if CodeOf(err) != CodeIncompleteTurn {
		t.Fatalf("CodeOf = %s, want %s", CodeOf(err), CodeIncompleteTurn)
	}
	if CodeOf(fmt.Errorf("plain")) != CodeUnknown {
		t.Fatal("expected unknown code for plain error")
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := Wrap(CodeUnknown, "append event", cause)
	if !stderrors.Is(err, cause) {
		t.Fatal("expected cause in chain")
	}
}

func TestToGRPCStatusRoundTrip(t *testing.T) {
	src := WithMetadata(CodeInsufficientFunds, "debit failed", map[string]string{"account_id": "acct-1"})
	grpcErr := src.ToGRPCStatus("en-US")

	st := status.Convert(grpcErr)
	if st.Code() != codes.FailedPrecondition {
		t.Fatalf("status code = %v, want %v", st.Code(), codes.FailedPrecondition)
	}

	var info *errdetails.ErrorInfo
	var localized *errdetails.LocalizedMessage
	for _, detail := range st.Details() {
		switch d := detail.(type) {
		case *errdetails.ErrorInfo:
			info = d
		case *errdetails.LocalizedMessage:
			localized = d
		}
	}
	if info == nil || info.GetReason() != string(CodeInsufficientFunds) {
		t.Fatalf("error info = %v, want reason %s", info, CodeInsufficientFunds)
	}
	if localized == nil || localized.GetMessage() != "Account acct-1 has insufficient funds." {
		t.Fatalf("localized = %v", localized)
	}

	back := FromGRPCStatus(grpcErr)
	if back == nil || back.Code != CodeInsufficientFunds {
		t.Fatalf("FromGRPCStatus = %v, want code %s", back, CodeInsufficientFunds)
	}
	if back.Metadata["account_id"] != "acct-1" {
		t.Fatalf("metadata = %v", back.Metadata)
	}
}

func TestFromGRPCStatusWithoutDetails(t *testing.T) {
	if got := FromGRPCStatus(status.Error(codes.Internal, "boom")); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestCatalogFallback(t *testing.T) {
	base := GetCatalog("en-US")
	if GetCatalog("xx-unknown") != base {
		t.Fatal("expected fallback to base catalog")
	}

	pt := NewCatalog("pt-BR", map[Code]string{CodeNotTurn: "Você já jogou nesta rodada."})
	RegisterCatalog(pt)
	if got := GetCatalog("pt"); got.Locale() != "pt-BR" {
		t.Fatalf("GetCatalog(pt) locale = %s, want pt-BR", got.Locale())
	}
	if pt.Format("MISSING", nil) != "MISSING" {
		t.Fatal("expected code fallback for missing template")
	}
}
