package arena

import (
	"context"

	"google.golang.org/grpc"
)

// Client calls arena.v1.ArenaService over a gRPC connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// invoke sends in, replacing a nil request with an empty one so the signed
// body matches what the server decodes.
func invoke[Resp, Req any](ctx context.Context, c *Client, method string, in *Req, opts []grpc.CallOption) (*Resp, error) {
	if in == nil {
		in = new(Req)
	}
	out := new(Resp)
	opts = append([]grpc.CallOption{CallOption()}, opts...)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Initialize(ctx context.Context, in *InitializeRequest, opts ...grpc.CallOption) (*ConfigResponse, error) {
	return invoke[ConfigResponse](ctx, c, InitializeFullMethod, in, opts)
}

func (c *Client) GetConfig(ctx context.Context, in *GetConfigRequest, opts ...grpc.CallOption) (*ConfigResponse, error) {
	return invoke[ConfigResponse](ctx, c, GetConfigFullMethod, in, opts)
}

func (c *Client) OpenAccount(ctx context.Context, in *OpenAccountRequest, opts ...grpc.CallOption) (*AccountResponse, error) {
	return invoke[AccountResponse](ctx, c, OpenAccountFullMethod, in, opts)
}

func (c *Client) Deposit(ctx context.Context, in *DepositRequest, opts ...grpc.CallOption) (*AccountResponse, error) {
	return invoke[AccountResponse](ctx, c, DepositFullMethod, in, opts)
}

func (c *Client) GetAccount(ctx context.Context, in *GetAccountRequest, opts ...grpc.CallOption) (*AccountResponse, error) {
	return invoke[AccountResponse](ctx, c, GetAccountFullMethod, in, opts)
}

func (c *Client) CreateSession(ctx context.Context, in *CreateSessionRequest, opts ...grpc.CallOption) (*SessionResponse, error) {
	return invoke[SessionResponse](ctx, c, CreateSessionFullMethod, in, opts)
}

func (c *Client) JoinSession(ctx context.Context, in *JoinSessionRequest, opts ...grpc.CallOption) (*SessionResponse, error) {
	return invoke[SessionResponse](ctx, c, JoinSessionFullMethod, in, opts)
}

func (c *Client) SubmitMove(ctx context.Context, in *SubmitMoveRequest, opts ...grpc.CallOption) (*SessionResponse, error) {
	return invoke[SessionResponse](ctx, c, SubmitMoveFullMethod, in, opts)
}

func (c *Client) ResolveRound(ctx context.Context, in *ResolveRoundRequest, opts ...grpc.CallOption) (*RoundResponse, error) {
	return invoke[RoundResponse](ctx, c, ResolveRoundFullMethod, in, opts)
}

func (c *Client) ForceResolve(ctx context.Context, in *ForceResolveRequest, opts ...grpc.CallOption) (*RoundResponse, error) {
	return invoke[RoundResponse](ctx, c, ForceResolveFullMethod, in, opts)
}

func (c *Client) ClaimReward(ctx context.Context, in *ClaimRewardRequest, opts ...grpc.CallOption) (*ClaimRewardResponse, error) {
	return invoke[ClaimRewardResponse](ctx, c, ClaimRewardFullMethod, in, opts)
}

func (c *Client) GetSession(ctx context.Context, in *GetSessionRequest, opts ...grpc.CallOption) (*SessionResponse, error) {
	return invoke[SessionResponse](ctx, c, GetSessionFullMethod, in, opts)
}

func (c *Client) ListSessions(ctx context.Context, in *ListSessionsRequest, opts ...grpc.CallOption) (*ListSessionsResponse, error) {
	return invoke[ListSessionsResponse](ctx, c, ListSessionsFullMethod, in, opts)
}

func (c *Client) ListStalledSessions(ctx context.Context, in *ListStalledSessionsRequest, opts ...grpc.CallOption) (*ListSessionsResponse, error) {
	return invoke[ListSessionsResponse](ctx, c, ListStalledSessionsFullMethod, in, opts)
}

func (c *Client) ListEvents(ctx context.Context, in *ListEventsRequest, opts ...grpc.CallOption) (*ListEventsResponse, error) {
	return invoke[ListEventsResponse](ctx, c, ListEventsFullMethod, in, opts)
}

func (c *Client) VerifyStream(ctx context.Context, in *VerifyStreamRequest, opts ...grpc.CallOption) (*VerifyStreamResponse, error) {
	return invoke[VerifyStreamResponse](ctx, c, VerifyStreamFullMethod, in, opts)
}
