package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/arena/internal/services/arena/storage"
)

// ClaimNonce records nonce for actor. It fails with storage.ErrReplayedRequest
// when the pair was already claimed. Rows issued before forgetBefore are
// dropped first; signatures that old no longer pass the skew check.
func (s *Store) ClaimNonce(ctx context.Context, actor, nonce string, issuedAt, forgetBefore time.Time) error {
	actor, nonce = strings.TrimSpace(actor), strings.TrimSpace(nonce)
	if actor == "" || nonce == "" {
		return fmt.Errorf("claim nonce: actor and nonce are required")
	}
	if _, err := s.q.ExecContext(ctx, "DELETE FROM request_nonces WHERE issued_at < ?", toMillis(forgetBefore)); err != nil {
		return fmt.Errorf("prune nonces: %w", err)
	}
	_, err := s.q.ExecContext(ctx,
		"INSERT INTO request_nonces (actor, nonce, issued_at) VALUES (?, ?, ?)",
		actor, nonce, toMillis(issuedAt),
	)
	if isConstraintError(err) {
		return storage.ErrReplayedRequest
	}
	if err != nil {
		return fmt.Errorf("claim nonce: %w", err)
	}
	return nil
}
