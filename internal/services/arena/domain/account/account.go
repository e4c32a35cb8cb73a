// Package account models stake-currency balances: participant wallets and
// session vaults.
package account

import (
	"crypto/sha256"
	"encoding/base32"
	"strings"
	"time"

	"github.com/louisbranch/arena/internal/services/arena/domain/identity"
)

// ID identifies a ledger account.
type ID string

// Kind distinguishes participant wallets from session vaults.
type Kind string

const (
	KindWallet Kind = "wallet"
	KindVault  Kind = "vault"
)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Derive returns the deterministic wallet id for owner in currency.
func Derive(owner identity.ID, currency string) ID {
	return ID("acct_" + digest("arena/account", string(owner), strings.TrimSpace(currency)))
}

// DerivedID hashes the parts under a domain separator into a short base32 id.
// Shared with vault derivation so both families are collision-free by prefix.
func DerivedID(prefix string, parts ...string) ID {
	return ID(prefix + "_" + digest("arena/"+prefix, parts...))
}

func digest(domain string, parts ...string) string {
	h := sha256.New()
	h.Write([]byte(domain))
	for _, part := range parts {
		h.Write([]byte{0})
		h.Write([]byte(part))
	}
	return strings.ToLower(encoding.EncodeToString(h.Sum(nil)[:20]))
}

// State is a ledger account balance.
type State struct {
	ID        ID
	Owner     identity.ID
	Currency  string
	Kind      Kind
	Balance   uint64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Transfer moves Amount from one account to another inside the same
// atomic step as the command that produced it.
type Transfer struct {
	From   ID
	To     ID
	Amount uint64
	// Debitor must own From when set. Vault debits leave it empty.
	Debitor identity.ID
	// Beneficiary must own To when set, and owns it if it gets opened.
	Beneficiary identity.ID
	// OpenIfMissing opens To with kind ToKind when it does not exist yet.
	OpenIfMissing bool
	ToKind        Kind
}
