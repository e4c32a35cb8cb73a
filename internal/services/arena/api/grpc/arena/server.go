package arena

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apperrors "github.com/louisbranch/arena/internal/platform/errors"
	"github.com/louisbranch/arena/internal/services/arena/domain/account"
	"github.com/louisbranch/arena/internal/services/arena/domain/config"
	"github.com/louisbranch/arena/internal/services/arena/domain/engine"
	"github.com/louisbranch/arena/internal/services/arena/domain/identity"
	"github.com/louisbranch/arena/internal/services/arena/domain/move"
	"github.com/louisbranch/arena/internal/services/arena/domain/session"
	"github.com/louisbranch/arena/internal/services/arena/storage"
)

const (
	defaultStalledLimit = 50
	maxStalledLimit     = 500
)

// Service implements ArenaServiceServer over the arena engine.
type Service struct {
	engine *engine.Engine
}

var _ ArenaServiceServer = (*Service)(nil)

// NewService creates a Service backed by eng.
func NewService(eng *engine.Engine) *Service {
	return &Service{engine: eng}
}

// Initialize creates the arena configuration with the caller as authority.
func (s *Service) Initialize(ctx context.Context, in *InitializeRequest) (*ConfigResponse, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "initialize request is required")
	}
	var recipient identity.ID
	if strings.TrimSpace(in.FeeRecipient) != "" {
		parsed, err := identity.Parse(in.FeeRecipient)
		if err != nil {
			return nil, handleError(err)
		}
		recipient = parsed
	}
	cfg, err := s.engine.Initialize(ctx, config.InitializePayload{
		Currency:     in.Currency,
		FeeRecipient: recipient,
		FeeRateBps:   in.FeeRateBps,
	})
	if err != nil {
		return nil, handleError(err)
	}
	return &ConfigResponse{Config: configToMessage(cfg)}, nil
}

func (s *Service) GetConfig(ctx context.Context, _ *GetConfigRequest) (*ConfigResponse, error) {
	cfg, err := s.engine.GetConfig(ctx)
	if err != nil {
		return nil, handleError(err)
	}
	return &ConfigResponse{Config: configToMessage(cfg)}, nil
}

// OpenAccount opens the caller's wallet.
func (s *Service) OpenAccount(ctx context.Context, _ *OpenAccountRequest) (*AccountResponse, error) {
	state, err := s.engine.OpenAccount(ctx)
	if err != nil {
		return nil, handleError(err)
	}
	return &AccountResponse{Account: accountToMessage(state)}, nil
}

// Deposit credits a wallet. Authority only.
func (s *Service) Deposit(ctx context.Context, in *DepositRequest) (*AccountResponse, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "deposit request is required")
	}
	owner, err := identity.Parse(in.Owner)
	if err != nil {
		return nil, handleError(err)
	}
	state, err := s.engine.Deposit(ctx, owner, in.Amount)
	if err != nil {
		return nil, handleError(err)
	}
	return &AccountResponse{Account: accountToMessage(state)}, nil
}

func (s *Service) GetAccount(ctx context.Context, in *GetAccountRequest) (*AccountResponse, error) {
	if in == nil || strings.TrimSpace(in.AccountID) == "" {
		return nil, status.Error(codes.InvalidArgument, "account id is required")
	}
	state, err := s.engine.GetAccount(ctx, account.ID(strings.TrimSpace(in.AccountID)))
	if err != nil {
		return nil, handleError(err)
	}
	return &AccountResponse{Account: accountToMessage(state)}, nil
}

// CreateSession opens a session staked by the caller.
func (s *Service) CreateSession(ctx context.Context, in *CreateSessionRequest) (*SessionResponse, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "create session request is required")
	}
	view, err := s.engine.CreateSession(ctx, engine.CreateInput{
		TotalHealth: in.TotalHealth,
		PoolAmount:  in.PoolAmount,
		Funding:     account.ID(strings.TrimSpace(in.FundingAccount)),
	})
	if err != nil {
		return nil, handleError(err)
	}
	return &SessionResponse{Session: viewToMessage(view)}, nil
}

// JoinSession seats the caller as the second participant.
func (s *Service) JoinSession(ctx context.Context, in *JoinSessionRequest) (*SessionResponse, error) {
	sessionID, err := requireSessionID(in.GetSessionID())
	if err != nil {
		return nil, err
	}
	view, err := s.engine.JoinSession(ctx, sessionID, account.ID(strings.TrimSpace(in.FundingAccount)))
	if err != nil {
		return nil, handleError(err)
	}
	return &SessionResponse{Session: viewToMessage(view)}, nil
}

// SubmitMove records the caller's move for the current round.
func (s *Service) SubmitMove(ctx context.Context, in *SubmitMoveRequest) (*SessionResponse, error) {
	sessionID, err := requireSessionID(in.GetSessionID())
	if err != nil {
		return nil, err
	}
	m, err := move.Parse(in.Move)
	if err != nil {
		return nil, handleError(apperrors.WithMetadata(apperrors.CodeInvalidMove, err.Error(), map[string]string{"move": in.Move}))
	}
	view, err := s.engine.SubmitMove(ctx, sessionID, in.Round, m)
	if err != nil {
		return nil, handleError(err)
	}
	return &SessionResponse{Session: viewToMessage(view)}, nil
}

func (s *Service) ResolveRound(ctx context.Context, in *ResolveRoundRequest) (*RoundResponse, error) {
	sessionID, err := requireSessionID(in.GetSessionID())
	if err != nil {
		return nil, err
	}
	result, err := s.engine.ResolveRound(ctx, sessionID)
	if err != nil {
		return nil, handleError(err)
	}
	return &RoundResponse{Session: viewToMessage(result.View), Round: roundToMessage(result.Round)}, nil
}

func (s *Service) ForceResolve(ctx context.Context, in *ForceResolveRequest) (*RoundResponse, error) {
	sessionID, err := requireSessionID(in.GetSessionID())
	if err != nil {
		return nil, err
	}
	result, err := s.engine.ForceResolve(ctx, sessionID)
	if err != nil {
		return nil, handleError(err)
	}
	return &RoundResponse{Session: viewToMessage(result.View), Round: roundToMessage(result.Round)}, nil
}

// ClaimReward pays the winner and the fee recipient.
func (s *Service) ClaimReward(ctx context.Context, in *ClaimRewardRequest) (*ClaimRewardResponse, error) {
	sessionID, err := requireSessionID(in.GetSessionID())
	if err != nil {
		return nil, err
	}
	result, err := s.engine.ClaimReward(ctx, sessionID, account.ID(strings.TrimSpace(in.ReceivingAccount)))
	if err != nil {
		return nil, handleError(err)
	}
	return &ClaimRewardResponse{
		Session:          viewToMessage(result.View),
		Total:            result.Claim.Total,
		Payout:           result.Claim.Payout,
		Fee:              result.Claim.Fee,
		ReceivingAccount: string(result.Claim.Receiving),
		FeeAccount:       string(result.Claim.FeeAccount),
	}, nil
}

func (s *Service) GetSession(ctx context.Context, in *GetSessionRequest) (*SessionResponse, error) {
	sessionID, err := requireSessionID(in.GetSessionID())
	if err != nil {
		return nil, err
	}
	view, err := s.engine.GetSession(ctx, sessionID)
	if err != nil {
		return nil, handleError(err)
	}
	return &SessionResponse{Session: viewToMessage(view)}, nil
}

// ListSessions pages through the lobby, newest first.
func (s *Service) ListSessions(ctx context.Context, in *ListSessionsRequest) (*ListSessionsResponse, error) {
	if in == nil {
		in = &ListSessionsRequest{}
	}
	statuses, err := parseStatuses(in.Status)
	if err != nil {
		return nil, err
	}
	filter := storage.SessionFilter{
		Statuses:  statuses,
		PageSize:  int(in.PageSize),
		PageToken: in.PageToken,
	}
	if strings.TrimSpace(in.Creator) != "" {
		creator, err := identity.Parse(in.Creator)
		if err != nil {
			return nil, handleError(err)
		}
		filter.Creator = creator
	}
	page, err := s.engine.ListSessions(ctx, filter)
	if err != nil {
		return nil, handleError(err)
	}
	response := &ListSessionsResponse{
		Sessions:      make([]Session, 0, len(page.Sessions)),
		NextPageToken: page.NextPageToken,
	}
	for _, state := range page.Sessions {
		response.Sessions = append(response.Sessions, stateToMessage(state))
	}
	return response, nil
}

// ListStalledSessions returns sessions whose current round can be forced.
func (s *Service) ListStalledSessions(ctx context.Context, in *ListStalledSessionsRequest) (*ListSessionsResponse, error) {
	limit := defaultStalledLimit
	if in != nil && in.Limit > 0 {
		limit = min(int(in.Limit), maxStalledLimit)
	}
	stalled, err := s.engine.ListStalledSessions(ctx, limit)
	if err != nil {
		return nil, handleError(err)
	}
	response := &ListSessionsResponse{Sessions: make([]Session, 0, len(stalled))}
	for _, state := range stalled {
		response.Sessions = append(response.Sessions, stateToMessage(state))
	}
	return response, nil
}

// ListEvents pages through the journal in append order.
func (s *Service) ListEvents(ctx context.Context, in *ListEventsRequest) (*ListEventsResponse, error) {
	if in == nil {
		in = &ListEventsRequest{}
	}
	page, err := s.engine.ListEvents(ctx, storage.EventFilter{
		StreamID:   strings.TrimSpace(in.StreamID),
		Expression: in.Filter,
		PageSize:   int(in.PageSize),
		PageToken:  in.PageToken,
	})
	if err != nil {
		return nil, handleError(err)
	}
	response := &ListEventsResponse{
		Events:        make([]Event, 0, len(page.Events)),
		NextPageToken: page.NextPageToken,
	}
	for _, evt := range page.Events {
		response.Events = append(response.Events, eventToMessage(evt))
	}
	return response, nil
}

// VerifyStream re-derives the hash chain of a stream and checks every
// signature. A broken chain is reported in the response, not as an error.
func (s *Service) VerifyStream(ctx context.Context, in *VerifyStreamRequest) (*VerifyStreamResponse, error) {
	if in == nil || strings.TrimSpace(in.StreamID) == "" {
		return nil, status.Error(codes.InvalidArgument, "stream id is required")
	}
	streamID := strings.TrimSpace(in.StreamID)
	verified, err := s.engine.VerifyStream(ctx, streamID)
	response := &VerifyStreamResponse{StreamID: streamID, Verified: int64(verified), Valid: err == nil}
	if err != nil {
		if !errors.Is(err, storage.ErrIntegrity) {
			return nil, handleError(err)
		}
		response.Problem = err.Error()
	}
	return response, nil
}

func (r *JoinSessionRequest) GetSessionID() string {
	if r == nil {
		return ""
	}
	return r.SessionID
}

func (r *SubmitMoveRequest) GetSessionID() string {
	if r == nil {
		return ""
	}
	return r.SessionID
}

func (r *ResolveRoundRequest) GetSessionID() string {
	if r == nil {
		return ""
	}
	return r.SessionID
}

func (r *ForceResolveRequest) GetSessionID() string {
	if r == nil {
		return ""
	}
	return r.SessionID
}

func (r *ClaimRewardRequest) GetSessionID() string {
	if r == nil {
		return ""
	}
	return r.SessionID
}

func (r *GetSessionRequest) GetSessionID() string {
	if r == nil {
		return ""
	}
	return r.SessionID
}

func requireSessionID(raw string) (string, error) {
	sessionID := strings.TrimSpace(raw)
	if sessionID == "" {
		return "", status.Error(codes.InvalidArgument, "session id is required")
	}
	return sessionID, nil
}

// parseStatuses accepts a comma separated status list; "" and "all" match
// every session.
func parseStatuses(raw string) ([]session.Status, error) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" || raw == "all" {
		return nil, nil
	}
	var statuses []session.Status
	for _, part := range strings.Split(raw, ",") {
		switch value := session.Status(strings.TrimSpace(part)); value {
		case session.StatusOpen, session.StatusActive, session.StatusOver, session.StatusClaimed:
			statuses = append(statuses, value)
		default:
			return nil, status.Errorf(codes.InvalidArgument, "unknown session status %q", part)
		}
	}
	return statuses, nil
}

func handleError(err error) error {
	if errors.Is(err, storage.ErrInvalidQuery) {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return apperrors.HandleError(err, apperrors.BaseLocale)
}
