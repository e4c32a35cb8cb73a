// Package arena exposes the arena engine as the arena.v1.ArenaService gRPC
// service. Messages are plain Go structs carried by a JSON codec.
package arena
