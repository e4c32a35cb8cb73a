package arena

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "arena.v1.ArenaService"

// Full method names, as seen by interceptors.
const (
	InitializeFullMethod          = "/" + ServiceName + "/Initialize"
	GetConfigFullMethod           = "/" + ServiceName + "/GetConfig"
	OpenAccountFullMethod         = "/" + ServiceName + "/OpenAccount"
	DepositFullMethod             = "/" + ServiceName + "/Deposit"
	GetAccountFullMethod          = "/" + ServiceName + "/GetAccount"
	CreateSessionFullMethod       = "/" + ServiceName + "/CreateSession"
	JoinSessionFullMethod         = "/" + ServiceName + "/JoinSession"
	SubmitMoveFullMethod          = "/" + ServiceName + "/SubmitMove"
	ResolveRoundFullMethod        = "/" + ServiceName + "/ResolveRound"
	ForceResolveFullMethod        = "/" + ServiceName + "/ForceResolve"
	ClaimRewardFullMethod         = "/" + ServiceName + "/ClaimReward"
	GetSessionFullMethod          = "/" + ServiceName + "/GetSession"
	ListSessionsFullMethod        = "/" + ServiceName + "/ListSessions"
	ListStalledSessionsFullMethod = "/" + ServiceName + "/ListStalledSessions"
	ListEventsFullMethod          = "/" + ServiceName + "/ListEvents"
	VerifyStreamFullMethod        = "/" + ServiceName + "/VerifyStream"
)

// ArenaServiceServer is the server API of the arena service.
type ArenaServiceServer interface {
	Initialize(context.Context, *InitializeRequest) (*ConfigResponse, error)
	GetConfig(context.Context, *GetConfigRequest) (*ConfigResponse, error)
	OpenAccount(context.Context, *OpenAccountRequest) (*AccountResponse, error)
	Deposit(context.Context, *DepositRequest) (*AccountResponse, error)
	GetAccount(context.Context, *GetAccountRequest) (*AccountResponse, error)
	CreateSession(context.Context, *CreateSessionRequest) (*SessionResponse, error)
	JoinSession(context.Context, *JoinSessionRequest) (*SessionResponse, error)
	SubmitMove(context.Context, *SubmitMoveRequest) (*SessionResponse, error)
	ResolveRound(context.Context, *ResolveRoundRequest) (*RoundResponse, error)
	ForceResolve(context.Context, *ForceResolveRequest) (*RoundResponse, error)
	ClaimReward(context.Context, *ClaimRewardRequest) (*ClaimRewardResponse, error)
	GetSession(context.Context, *GetSessionRequest) (*SessionResponse, error)
	ListSessions(context.Context, *ListSessionsRequest) (*ListSessionsResponse, error)
	ListStalledSessions(context.Context, *ListStalledSessionsRequest) (*ListSessionsResponse, error)
	ListEvents(context.Context, *ListEventsRequest) (*ListEventsResponse, error)
	VerifyStream(context.Context, *VerifyStreamRequest) (*VerifyStreamResponse, error)
}

// ServiceDesc describes arena.v1.ArenaService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ArenaServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("Initialize", ArenaServiceServer.Initialize),
		unaryMethod("GetConfig", ArenaServiceServer.GetConfig),
		unaryMethod("OpenAccount", ArenaServiceServer.OpenAccount),
		unaryMethod("Deposit", ArenaServiceServer.Deposit),
		unaryMethod("GetAccount", ArenaServiceServer.GetAccount),
		unaryMethod("CreateSession", ArenaServiceServer.CreateSession),
		unaryMethod("JoinSession", ArenaServiceServer.JoinSession),
		unaryMethod("SubmitMove", ArenaServiceServer.SubmitMove),
		unaryMethod("ResolveRound", ArenaServiceServer.ResolveRound),
		unaryMethod("ForceResolve", ArenaServiceServer.ForceResolve),
		unaryMethod("ClaimReward", ArenaServiceServer.ClaimReward),
		unaryMethod("GetSession", ArenaServiceServer.GetSession),
		unaryMethod("ListSessions", ArenaServiceServer.ListSessions),
		unaryMethod("ListStalledSessions", ArenaServiceServer.ListStalledSessions),
		unaryMethod("ListEvents", ArenaServiceServer.ListEvents),
		unaryMethod("VerifyStream", ArenaServiceServer.VerifyStream),
	},
	Metadata: "arena/v1/arena.proto",
}

// RegisterArenaServiceServer registers srv on registrar.
func RegisterArenaServiceServer(registrar grpc.ServiceRegistrar, srv ArenaServiceServer) {
	registrar.RegisterService(&ServiceDesc, srv)
}

func unaryMethod[Req, Resp any](name string, call func(ArenaServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			server := srv.(ArenaServiceServer)
			if interceptor == nil {
				return call(server, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(server, ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
