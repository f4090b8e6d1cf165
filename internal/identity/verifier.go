package identity

//go:generate mockgen -source=verifier.go -destination=mocks/mocks.go -package=mocks SignatureVerifier

import (
	"crypto/ed25519"

	dErrors "scholar/pkg/domain-errors"
)

// SignatureVerifier checks a signature over a challenge nonce. The port keeps
// the signature scheme out of the service so tests can force outcomes.
type SignatureVerifier interface {
	Verify(publicKey, message, signature []byte) error
}

// Ed25519Verifier verifies raw Ed25519 signatures.
type Ed25519Verifier struct{}

func NewEd25519Verifier() Ed25519Verifier { return Ed25519Verifier{} }

func (Ed25519Verifier) Verify(publicKey, message, signature []byte) error {
	if len(publicKey) != ed25519.PublicKeySize {
		return dErrors.New(dErrors.CodeUnauthorized, "malformed public key")
	}
	if !ed25519.Verify(ed25519.PublicKey(publicKey), message, signature) {
		return dErrors.New(dErrors.CodeUnauthorized, "signature verification failed")
	}
	return nil
}
