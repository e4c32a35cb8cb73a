// Package vault derives the escrow account of a game session.
package vault

import "github.com/louisbranch/arena/internal/services/arena/domain/account"

// Derive returns the vault account id for sessionID. The id is computed on
// demand and never stored on the session.
func Derive(sessionID string) account.ID {
	return account.DerivedID("vault", sessionID)
}
