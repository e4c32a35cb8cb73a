// Package migrations contains embedded SQL migrations for the arena SQLite store.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
