// Package auth signs and verifies arena requests with Schnorr signatures
// over the identity key of the caller.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"go.dedis.ch/kyber/v4"
	"go.dedis.ch/kyber/v4/sign/schnorr"

	apperrors "github.com/louisbranch/arena/internal/platform/errors"
	"github.com/louisbranch/arena/internal/services/arena/domain/identity"
)

// Signer holds a private identity key.
type Signer struct {
	private kyber.Scalar
	id      identity.ID
}

// GenerateSigner returns a fresh random key pair.
func GenerateSigner() (*Signer, error) {
	private := identity.Suite.Scalar().Pick(identity.Suite.RandomStream())
	return newSigner(private)
}

// ParsePrivateKey decodes a hex private key produced by PrivateKeyHex.
func ParsePrivateKey(raw string) (*Signer, error) {
	data, err := hex.DecodeString(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	private := identity.Suite.Scalar()
	if err := private.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	return newSigner(private)
}

func newSigner(private kyber.Scalar) (*Signer, error) {
	public := identity.Suite.Point().Mul(private, nil)
	id, err := identity.FromPoint(public)
	if err != nil {
		return nil, err
	}
	return &Signer{private: private, id: id}, nil
}

// Identity returns the public identity of the signer.
func (s *Signer) Identity() identity.ID {
	return s.id
}

// PrivateKeyHex encodes the private key for storage.
func (s *Signer) PrivateKeyHex() (string, error) {
	data, err := s.private.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("encode private key: %w", err)
	}
	return hex.EncodeToString(data), nil
}

// Envelope is the part of a request a signature covers. Nonce is unique per
// signed call so a captured request cannot be accepted twice.
type Envelope struct {
	Method     string
	IssuedAtMs int64
	Nonce      string
	RequestID  string
	Body       []byte
}

// Sign signs env with the signer's key.
func (s *Signer) Sign(env Envelope) (string, error) {
	sig, err := schnorr.Sign(identity.Suite, s.private, SigningMessage(env))
	if err != nil {
		return "", fmt.Errorf("sign request: %w", err)
	}
	return hex.EncodeToString(sig), nil
}

// SigningMessage is the byte string a request signature covers.
func SigningMessage(env Envelope) []byte {
	digest := sha256.Sum256(env.Body)
	return []byte(strings.Join([]string{
		env.Method,
		strconv.FormatInt(env.IssuedAtMs, 10),
		env.Nonce,
		env.RequestID,
		hex.EncodeToString(digest[:]),
	}, "\n"))
}

// Verify checks a hex signature of actor over env.
func Verify(actor identity.ID, env Envelope, signature string) error {
	point, err := identity.PointOf(actor)
	if err != nil {
		return err
	}
	sig, err := hex.DecodeString(signature)
	if err != nil {
		return apperrors.New(apperrors.CodeUnauthorized, "signature is not hex")
	}
	if err := schnorr.Verify(identity.Suite, point, SigningMessage(env), sig); err != nil {
		return apperrors.Wrap(apperrors.CodeUnauthorized, "signature does not verify", err)
	}
	return nil
}
