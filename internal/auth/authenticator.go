package auth

import (
	"context"
	"crypto/ed25519"
	"crypto/x509"
	"errors"

	"github.com/mmynk/profilekeeper/internal/models"
)

var (
	ErrInvalidChallenge = errors.New("unknown, expired or reused challenge")
	ErrInvalidKey       = errors.New("public key must be a DER encoded ed25519 key")
	ErrInvalidSignature = errors.New("signature does not match challenge")
)

// KeyCredential proves control of a key pair by signing an issued nonce.
type KeyCredential struct {
	PublicKey []byte // DER SubjectPublicKeyInfo
	Nonce     string
	Signature []byte
}

// Authenticator resolves a credential to the principal it speaks for.
// Implementations can be swapped without touching the service layer.
type Authenticator interface {
	Authenticate(ctx context.Context, cred KeyCredential) (models.Principal, error)
}

// KeyAuthenticator verifies ed25519 signatures over challenges from a
// ChallengeStore and derives self-authenticating principals from the key.
type KeyAuthenticator struct {
	challenges *ChallengeStore
}

// NewKeyAuthenticator returns an authenticator that consumes nonces from
// challenges.
func NewKeyAuthenticator(challenges *ChallengeStore) *KeyAuthenticator {
	return &KeyAuthenticator{challenges: challenges}
}

// Authenticate verifies the signature over the nonce before consuming it, so a
// bad signature leaves the challenge usable. The principal is derived from the
// public key.
func (a *KeyAuthenticator) Authenticate(ctx context.Context, cred KeyCredential) (models.Principal, error) {
	pub, err := x509.ParsePKIXPublicKey(cred.PublicKey)
	if err != nil {
		return models.Principal{}, ErrInvalidKey
	}
	key, ok := pub.(ed25519.PublicKey)
	if !ok {
		return models.Principal{}, ErrInvalidKey
	}

	if !ed25519.Verify(key, []byte(cred.Nonce), cred.Signature) {
		return models.Principal{}, ErrInvalidSignature
	}
	if !a.challenges.Consume(cred.Nonce) {
		return models.Principal{}, ErrInvalidChallenge
	}

	return models.PrincipalFromPublicKey(cred.PublicKey), nil
}
