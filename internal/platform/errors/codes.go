// Package errors provides structured domain errors that map onto gRPC statuses.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Configuration errors
	CodeAlreadyInitialized Code = "ALREADY_INITIALIZED"
	CodeNotInitialized     Code = "NOT_INITIALIZED"
	CodeInvalidFeeRate     Code = "INVALID_FEE_RATE"
	CodeInvalidCurrency    Code = "INVALID_CURRENCY"

	// Session errors
	CodeNotTurn             Code = "NOT_TURN"
	CodeTaskNotCompleted    Code = "TASK_NOT_COMPLETED"
	CodeNotAParticipant     Code = "NOT_A_PARTICIPANT"
	CodeAlreadyJoined       Code = "ALREADY_JOINED"
	CodeCreatorCannotJoin   Code = "CREATOR_CANNOT_JOIN"
	CodeAwaitingOpponent    Code = "AWAITING_OPPONENT"
	CodeSessionTerminal     Code = "SESSION_TERMINAL"
	CodeIncompleteTurn      Code = "INCOMPLETE_TURN"
	CodeInvalidTotalHealth  Code = "INVALID_TOTAL_HEALTH"
	CodeInvalidPoolAmount   Code = "INVALID_POOL_AMOUNT"
	CodeInvalidMove         Code = "INVALID_MOVE"
	CodeActiveSessionExists Code = "ACTIVE_SESSION_EXISTS"
	CodeRoundMismatch       Code = "ROUND_MISMATCH"

	// Timeout guard errors
	CodeNotTimedOut         Code = "NOT_TIMED_OUT"
	CodeInvalidForceResolve Code = "INVALID_FORCE_RESOLVE"

	// Reward errors
	CodeGameNotOver      Code = "GAME_NOT_OVER"
	CodeNotWinner        Code = "NOT_WINNER"
	CodeRewardNotClaimed Code = "REWARD_NOT_CLAIMED"
	CodeAlreadyClaimed   Code = "ALREADY_CLAIMED"

	// Ledger errors
	CodeInsufficientFunds Code = "INSUFFICIENT_FUNDS"
	CodeCurrencyMismatch  Code = "CURRENCY_MISMATCH"
	CodeAccountNotOwned   Code = "ACCOUNT_NOT_OWNED"
	CodeInvalidAmount     Code = "INVALID_AMOUNT"
	CodeAmountOverflow    Code = "AMOUNT_OVERFLOW"

	// Identity errors
	CodeUnauthorized    Code = "UNAUTHORIZED"
	CodeInvalidIdentity Code = "INVALID_IDENTITY"
	CodeReplayedRequest Code = "REPLAYED_REQUEST"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeInvalidFeeRate,
		CodeInvalidCurrency,
		CodeInvalidTotalHealth,
		CodeInvalidPoolAmount,
		CodeInvalidMove,
		CodeInvalidAmount,
		CodeInvalidIdentity:
		return codes.InvalidArgument

	// FailedPrecondition - state doesn't allow operation
	case CodeNotInitialized,
		CodeNotTurn,
		CodeTaskNotCompleted,
		CodeAwaitingOpponent,
		CodeSessionTerminal,
		CodeIncompleteTurn,
		CodeActiveSessionExists,
		CodeRoundMismatch,
		CodeNotTimedOut,
		CodeInvalidForceResolve,
		CodeGameNotOver,
		CodeRewardNotClaimed,
		CodeInsufficientFunds,
		CodeCurrencyMismatch,
		CodeAmountOverflow:
		return codes.FailedPrecondition

	// PermissionDenied - caller is not allowed
	case CodeNotAParticipant,
		CodeCreatorCannotJoin,
		CodeNotWinner,
		CodeAccountNotOwned:
		return codes.PermissionDenied

	case CodeUnauthorized,
		CodeReplayedRequest:
		return codes.Unauthenticated

	// AlreadyExists - one-shot transitions
	case CodeAlreadyInitialized,
		CodeAlreadyJoined,
		CodeAlreadyClaimed:
		return codes.AlreadyExists

	case CodeNotFound:
		return codes.NotFound

	default:
		return codes.Internal
	}
}
