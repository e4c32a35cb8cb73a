package integrity

import (
	"errors"
	"testing"
)

func TestNewKeyringValidation(t *testing.T) {
	if _, err := NewKeyring(nil, "v1"); err == nil {
		t.Fatal("expected error for missing root secrets")
	}
	if _, err := NewKeyring(map[string][]byte{"v1": []byte("secret")}, ""); err == nil {
		t.Fatal("expected error for missing active key id")
	}
	if _, err := NewKeyring(map[string][]byte{"v1": []byte("secret")}, "v2"); err == nil {
		t.Fatal("expected error for active key id without a secret")
	}
}

func TestSealBindsStreamAndChainHash(t *testing.T) {
	ring, err := NewKeyring(map[string][]byte{"v1": []byte("secret")}, "v1")
	if err != nil {
		t.Fatalf("new keyring: %v", err)
	}

	seal, keyID, err := ring.SealChainHash("session-1", "chainhash")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if keyID != "v1" {
		t.Fatalf("key id = %s, want v1", keyID)
	}
	if err := ring.CheckSeal("session-1", "chainhash", seal, keyID); err != nil {
		t.Fatalf("check seal: %v", err)
	}
	if err := ring.CheckSeal("acct-1", "chainhash", seal, keyID); !errors.Is(err, ErrSealMismatch) {
		t.Fatalf("seal moved to another stream err = %v, want ErrSealMismatch", err)
	}
	if err := ring.CheckSeal("session-1", "other", seal, keyID); !errors.Is(err, ErrSealMismatch) {
		t.Fatalf("altered chain hash err = %v, want ErrSealMismatch", err)
	}
	if err := ring.CheckSeal("session-1", "chainhash", seal, "unknown"); !errors.Is(err, ErrUnknownSealKey) {
		t.Fatalf("unknown key id err = %v, want ErrUnknownSealKey", err)
	}
	if _, _, err := ring.SealChainHash(" ", "chainhash"); err == nil {
		t.Fatal("expected error for empty stream id")
	}
}

func TestRotatedKeyringChecksOldSeals(t *testing.T) {
	old, err := NewKeyring(map[string][]byte{"v1": []byte("one")}, "v1")
	if err != nil {
		t.Fatalf("old keyring: %v", err)
	}
	seal, keyID, err := old.SealChainHash("session-1", "h")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	rotated, err := NewKeyring(map[string][]byte{"v1": []byte("one"), "v2": []byte("two")}, "v2")
	if err != nil {
		t.Fatalf("rotated keyring: %v", err)
	}
	if err := rotated.CheckSeal("session-1", "h", seal, keyID); err != nil {
		t.Fatalf("check with rotated ring: %v", err)
	}
	fresh, freshKeyID, err := rotated.SealChainHash("session-1", "h")
	if err != nil {
		t.Fatalf("seal with rotated ring: %v", err)
	}
	if freshKeyID != "v2" || fresh == seal {
		t.Fatalf("rotated seal key id = %s, same seal = %v", freshKeyID, fresh == seal)
	}

	retired, err := NewKeyring(map[string][]byte{"v2": []byte("two")}, "v2")
	if err != nil {
		t.Fatalf("retired keyring: %v", err)
	}
	if err := retired.CheckSeal("session-1", "h", seal, keyID); !errors.Is(err, ErrUnknownSealKey) {
		t.Fatalf("retired key err = %v, want ErrUnknownSealKey", err)
	}
}

func TestNilKeyring(t *testing.T) {
	var ring *Keyring
	if ring.ActiveKeyID() != "" {
		t.Fatal("expected empty key id")
	}
	if _, _, err := ring.SealChainHash("s", "h"); !errors.Is(err, ErrNoKeyring) {
		t.Fatalf("seal err = %v, want ErrNoKeyring", err)
	}
	if err := ring.CheckSeal("s", "h", "x", "v1"); !errors.Is(err, ErrNoKeyring) {
		t.Fatalf("check err = %v, want ErrNoKeyring", err)
	}
}
