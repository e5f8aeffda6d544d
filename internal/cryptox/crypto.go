// Package cryptox computes the optional password signature stored next to
// the bcrypt digest of every new account.
//
// The signature is a deterministic, keyed derivation of the plaintext: the
// same password under the same key always yields the same value. Nothing in
// the service reads it back; it is kept pluggable so a deployment can decide
// what it is for, or turn it off.
package cryptox

import (
	"encoding/hex"

	"golang.org/x/crypto/argon2"
)

// PasswordSigner derives the secondary password artifact. An empty result
// means "store nothing".
type PasswordSigner interface {
	Sign(password string) string
}

// argon2id parameters: two passes over 19 MiB in one lane, 32-byte output.
// Memory is in KiB and is allocated on every Sign call.
const (
	argonTime    = 2
	argonMemory  = 19 * 1024
	argonThreads = 1
	argonKeyLen  = 32
)

// Argon2Signer keys argon2id with a server-side secret used as the salt.
type Argon2Signer struct {
	key []byte
}

func NewArgon2Signer(key string) *Argon2Signer {
	return &Argon2Signer{key: []byte(key)}
}

// Sign returns the hex-encoded argon2id derivation of password.
func (s *Argon2Signer) Sign(password string) string {
	return hex.EncodeToString(DeriveKey([]byte(password), s.key))
}

// DeriveKey runs argon2id over password with the given salt.
func DeriveKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

// NopSigner disables the signature.
type NopSigner struct{}

func (NopSigner) Sign(string) string { return "" }

// NewSigner picks Argon2Signer when a key is configured and NopSigner
// otherwise.
func NewSigner(key string) PasswordSigner {
	if key == "" {
		return NopSigner{}
	}
	return NewArgon2Signer(key)
}
