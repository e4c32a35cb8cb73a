package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

const namedService = "arena.v1.ArenaService"

func TestWaitForHealth(t *testing.T) {
	tests := []struct {
		name    string
		initial grpc_health_v1.HealthCheckResponse_ServingStatus
		flipTo  grpc_health_v1.HealthCheckResponse_ServingStatus
		timeout time.Duration
		wantErr bool
	}{
		{name: "serving", initial: grpc_health_v1.HealthCheckResponse_SERVING, timeout: 2 * time.Second},
		{name: "transitions", initial: grpc_health_v1.HealthCheckResponse_NOT_SERVING, flipTo: grpc_health_v1.HealthCheckResponse_SERVING, timeout: 2 * time.Second},
		{name: "context bound", initial: grpc_health_v1.HealthCheckResponse_NOT_SERVING, timeout: 300 * time.Millisecond, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, setStatus, stop := startHealthServer(t, tt.initial)
			defer stop()

			conn := dialHealthServer(t, addr)
			defer conn.Close()

			if tt.flipTo != grpc_health_v1.HealthCheckResponse_UNKNOWN {
				go func() {
					time.Sleep(200 * time.Millisecond)
					setStatus(tt.flipTo)
				}()
			}

			ctx, cancel := context.WithTimeout(context.Background(), tt.timeout)
			defer cancel()

			err := WaitForHealth(ctx, conn, namedService, nil)
			if tt.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("wait for health: %v", err)
			}
		})
	}
}

func TestWaitForHealthRequiresConnection(t *testing.T) {
	if err := WaitForHealth(context.Background(), nil, "", nil); err == nil {
		t.Fatal("expected error for nil connection")
	}
}

func TestWaitForHealthLogsProgress(t *testing.T) {
	addr, _, stop := startHealthServer(t, grpc_health_v1.HealthCheckResponse_SERVING)
	defer stop()

	conn := dialHealthServer(t, addr)
	defer conn.Close()

	var lines int
	logf := func(string, ...any) { lines++ }
	if err := WaitForHealth(context.Background(), conn, "", logf); err != nil {
		t.Fatalf("wait for health: %v", err)
	}
	if lines == 0 {
		t.Fatal("expected health progress to be logged")
	}
}

func startHealthServer(t *testing.T, status grpc_health_v1.HealthCheckResponse_ServingStatus) (string, func(grpc_health_v1.HealthCheckResponse_ServingStatus), func()) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	grpcServer := gogrpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", status)
	healthServer.SetServingStatus(namedService, status)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- grpcServer.Serve(listener)
	}()

	setStatus := func(next grpc_health_v1.HealthCheckResponse_ServingStatus) {
		healthServer.SetServingStatus("", next)
		healthServer.SetServingStatus(namedService, next)
	}

	stop := func() {
		grpcServer.Stop()
		_ = listener.Close()
		select {
		case <-serveErr:
		case <-time.After(2 * time.Second):
		}
	}

	return listener.Addr().String(), setStatus, stop
}

func dialHealthServer(t *testing.T, addr string) *gogrpc.ClientConn {
	t.Helper()

	conn, err := gogrpc.NewClient(addr, gogrpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial health server: %v", err)
	}
	return conn
}
