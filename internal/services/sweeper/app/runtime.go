package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	platformgrpc "github.com/louisbranch/arena/internal/platform/grpc"
	"github.com/louisbranch/arena/internal/platform/timeouts"
	arenaservice "github.com/louisbranch/arena/internal/services/arena/api/grpc/arena"
	"github.com/louisbranch/arena/internal/services/arena/api/grpc/auth"
	grpcmeta "github.com/louisbranch/arena/internal/services/arena/api/grpc/metadata"
)

// HealthService is the health service name the sweeper reports.
const HealthService = "sweeper.runtime"

// RuntimeConfig controls sweeper startup and loop behavior.
type RuntimeConfig struct {
	// Port serves gRPC health; zero picks a free port.
	Port      int
	ArenaAddr string
	// SignerKey is an optional hex private key; sweeps run anonymously
	// without one.
	SignerKey       string
	Interval        time.Duration
	BatchSize       int
	GRPCDialTimeout time.Duration
}

// Run dials the arena and sweeps until ctx ends.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(cfg.ArenaAddr) == "" {
		return errors.New("arena address is required")
	}
	if cfg.GRPCDialTimeout <= 0 {
		cfg.GRPCDialTimeout = timeouts.GRPCDial
	}
	var signer *auth.Signer
	if key := strings.TrimSpace(cfg.SignerKey); key != "" {
		parsed, err := auth.ParsePrivateKey(key)
		if err != nil {
			return fmt.Errorf("parse sweeper key: %w", err)
		}
		signer = parsed
		log.Printf("sweeping as %s", signer.Identity().Short())
	}

	opts := append(platformgrpc.DefaultClientDialOptions(),
		grpc.WithChainUnaryInterceptor(
			grpcmeta.UnaryClientInterceptor(),
			auth.UnaryClientInterceptor(signer, nil),
		),
	)
	conn, err := platformgrpc.DialWithHealth(ctx, nil, cfg.ArenaAddr, arenaservice.ServiceName, cfg.GRPCDialTimeout, log.Printf, opts...)
	if err != nil {
		return fmt.Errorf("dial arena service: %w", err)
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			log.Printf("close arena connection: %v", closeErr)
		}
	}()

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return fmt.Errorf("listen on sweeper port %d: %w", cfg.Port, err)
	}
	defer listener.Close()

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(HealthService, grpc_health_v1.HealthCheckResponse_SERVING)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- grpcServer.Serve(listener)
	}()
	defer func() {
		healthServer.Shutdown()
		grpcServer.GracefulStop()
		<-serveErr
	}()

	sweeper := New(arenaservice.NewClient(conn), Config{Interval: cfg.Interval, BatchSize: cfg.BatchSize}, log.Printf)
	log.Printf("sweeper health listening at %v", listener.Addr())
	log.Printf("sweeping %s every %s", cfg.ArenaAddr, sweeper.cfg.Interval)
	return sweeper.Run(ctx)
}
