package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	arenaservice "github.com/louisbranch/arena/internal/services/arena/api/grpc/arena"
	"github.com/louisbranch/arena/internal/services/arena/api/grpc/auth"
	"github.com/louisbranch/arena/internal/services/arena/api/grpc/interceptors"
	grpcmeta "github.com/louisbranch/arena/internal/services/arena/api/grpc/metadata"
	"github.com/louisbranch/arena/internal/services/arena/domain/engine"
	"github.com/louisbranch/arena/internal/services/arena/storage/integrity"
	storagesqlite "github.com/louisbranch/arena/internal/services/arena/storage/sqlite"
)

// Options configures the arena server.
type Options struct {
	// Addr is the listen address, e.g. ":8090".
	Addr string
	// DBPath is the sqlite database file.
	DBPath string
	// Keyring signs journal events.
	Keyring *integrity.Keyring
	// Rules overrides the round damage and turn timeout of new sessions.
	Rules engine.Rules
	// Clock replaces the wall clock; tests only.
	Clock func() time.Time
}

// Server hosts the arena gRPC service.
type Server struct {
	listener   net.Listener
	grpcServer *grpc.Server
	health     *health.Server
	store      *storagesqlite.Store
}

// New creates a configured arena server listening on opts.Addr.
func New(opts Options) (*Server, error) {
	if opts.Keyring == nil {
		return nil, errors.New("event keyring is required")
	}
	listener, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", opts.Addr, err)
	}
	store, err := openStore(opts.DBPath, opts.Keyring)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}
	engineOpts := []engine.Option{engine.WithRules(opts.Rules)}
	if opts.Clock != nil {
		engineOpts = append(engineOpts, engine.WithClock(opts.Clock))
	}
	eng, err := engine.New(store, engineOpts...)
	if err != nil {
		_ = listener.Close()
		_ = store.Close()
		return nil, err
	}

	authOpts := []auth.ServerOption{auth.WithNonceStore(store)}
	if opts.Clock != nil {
		authOpts = append(authOpts, auth.WithClock(opts.Clock))
	}
	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			grpcmeta.UnaryServerInterceptor(nil),
			auth.UnaryServerInterceptor(authOpts...),
			interceptors.AuditInterceptor(log.Printf),
		),
	)
	healthServer := health.NewServer()
	arenaservice.RegisterArenaServiceServer(grpcServer, arenaservice.NewService(eng))
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(arenaservice.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	rules := eng.Rules()
	log.Printf("session rules: round damage %d, turn timeout %s", rules.RoundDamage, rules.TurnTimeout)
	return &Server{
		listener:   listener,
		grpcServer: grpcServer,
		health:     healthServer,
		store:      store,
	}, nil
}

// Addr returns the listener address.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves an arena server until the context ends.
func Run(ctx context.Context, opts Options) error {
	srv, err := New(opts)
	if err != nil {
		return err
	}
	return srv.Serve(ctx)
}

// Serve starts the server and blocks until it stops or the context ends.
func (s *Server) Serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.closeStore()

	log.Printf("arena server listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(s.listener)
	}()

	handleErr := func(err error) error {
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	}

	select {
	case <-ctx.Done():
		s.health.Shutdown()
		s.grpcServer.GracefulStop()
		return handleErr(<-serveErr)
	case err := <-serveErr:
		return handleErr(err)
	}
}

func openStore(path string, keyring *integrity.Keyring) (*storagesqlite.Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = filepath.Join("data", "arena.db")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := storagesqlite.Open(path, keyring)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	return store, nil
}

func (s *Server) closeStore() {
	if s == nil || s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		log.Printf("close arena store: %v", err)
	}
}
