// Package grpc groups the gRPC transport of the arena service.
package grpc
