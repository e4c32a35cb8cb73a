// Package timeouts defines shared timeout constants used across binaries.
package timeouts

import "time"

// GRPCDial caps the wait time when dialing a gRPC peer.
const GRPCDial = 2 * time.Second

// GRPCRequest caps the time allowed for a single outbound gRPC request from
// the sweeper or the CLI.
const GRPCRequest = 5 * time.Second

// Shutdown limits how long a server waits for in-flight requests during
// graceful shutdown.
const Shutdown = 5 * time.Second

// RequestSkew bounds how far a signed request's issued-at stamp may drift
// from the server clock.
const RequestSkew = 5 * time.Minute
