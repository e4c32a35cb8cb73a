// Package server wires the arena gRPC server: storage, engine, interceptors
// and health reporting.
package server
