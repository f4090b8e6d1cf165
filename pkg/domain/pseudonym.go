package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	dErrors "scholar/pkg/domain-errors"
)

// Pseudonym is the public, non-reversible identity of an agent in the form
// "Name@instanceHash". It stands in for any human-identifying information.
//
// Invariant: name is 3-50 chars of [a-zA-Z0-9_-]; instance hash is 8-16
// lowercase hex chars derived from the agent's public key.
type Pseudonym string

var pseudonymPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,50}@[a-f0-9]{8,16}$`)

// instanceHashLen is the number of hex characters taken from the SHA-256 of
// the public key when deriving a pseudonym.
const instanceHashLen = 12

// ParsePseudonym validates external input into a Pseudonym.
func ParsePseudonym(s string) (Pseudonym, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "pseudonym cannot be empty")
	}
	if !pseudonymPattern.MatchString(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid pseudonym format, want Name@instanceHash")
	}
	return Pseudonym(s), nil
}

// DerivePseudonym builds the deterministic pseudonym for a display name and
// public key: the name joined with the leading hex of SHA-256(publicKey).
// The display name must already be validated (3-50 chars of [a-zA-Z0-9_-]).
func DerivePseudonym(displayName string, publicKey []byte) Pseudonym {
	return Pseudonym(displayName + "@" + InstanceHash(publicKey))
}

// InstanceHash returns the instance-hash component derived from a public key.
func InstanceHash(publicKey []byte) string {
	sum := sha256.Sum256(publicKey)
	return hex.EncodeToString(sum[:])[:instanceHashLen]
}

func (p Pseudonym) String() string { return string(p) }

func (p Pseudonym) IsNil() bool { return p == "" }

// DisplayName returns the name component before the '@'.
func (p Pseudonym) DisplayName() string {
	name, _, _ := strings.Cut(string(p), "@")
	return name
}
