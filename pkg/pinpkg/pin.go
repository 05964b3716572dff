// Package pinpkg provides hashing and verification of account PINs.
package pinpkg

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// Iterations is the PBKDF2 round count. High on purpose: it prices
	// offline brute-forcing of short numeric PINs.
	Iterations = 150_000

	saltSize   = 16
	digestSize = 32
)

// ErrMismatch indicates that the PIN does not match the stored digest.
var ErrMismatch = errors.New("pin mismatch")

// NewSalt returns a fresh random salt. Each account gets exactly one salt at
// creation and keeps it for life.
func NewSalt() ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}

	return salt, nil
}

// Hash derives the digest of pin under salt with PBKDF2-HMAC-SHA256.
func Hash(pin string, salt []byte) []byte {
	return pbkdf2.Key([]byte(pin), salt, Iterations, digestSize, sha256.New)
}

// Check recomputes the digest and compares it in constant time.
func Check(pin string, salt, digest []byte) error {
	if subtle.ConstantTimeCompare(Hash(pin, salt), digest) != 1 {
		return ErrMismatch
	}

	return nil
}
