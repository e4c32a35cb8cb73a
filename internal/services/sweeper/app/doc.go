// Package app runs the timeout sweeper: it polls the arena for sessions whose
// round stalled past the turn timeout and force-resolves them.
package app
