// Package sqlite implements the arena storage contracts on SQLite.
//
// Projections (config, sessions, accounts) and the hash-chained journal live
// in one database so a command commits its events and state changes in a
// single transaction.
package sqlite
