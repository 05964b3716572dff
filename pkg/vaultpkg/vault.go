// Package vaultpkg provides authenticated symmetric encryption for stored
// account numbers and manages the key file lifecycle.
package vaultpkg

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
)

// KeySize is the AES-256 key size in bytes.
const KeySize = 32

var (
	// ErrCiphertext indicates that a ciphertext is malformed, tampered with,
	// or was produced under a different key.
	ErrCiphertext = errors.New("ciphertext invalid or tampered")
	// ErrKeyExists indicates an attempt to regenerate a key that already
	// exists. Regenerating the key would orphan every ciphertext encrypted
	// under the old one, so the key is fixed for the life of the store.
	ErrKeyExists = errors.New("key file already exists")
)

// Vault encrypts and decrypts byte strings with AES-256-GCM.
// Every Encrypt call uses a fresh nonce, so equal plaintexts produce
// different ciphertexts.
type Vault struct {
	aead cipher.AEAD
}

// New returns a Vault for the given 32-byte key.
func New(key []byte) (Vault, error) {
	if len(key) != KeySize {
		return Vault{}, fmt.Errorf("key must be %d bytes, got %d", KeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return Vault{}, err
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return Vault{}, err
	}

	return Vault{aead: aead}, nil
}

// Encrypt seals the plaintext and prepends the nonce.
func (v Vault) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	return v.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a ciphertext produced by Encrypt. It returns ErrCiphertext
// if the ciphertext is truncated, tampered with, or keyed differently.
func (v Vault) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < v.aead.NonceSize() {
		return nil, ErrCiphertext
	}

	nonce, sealed := ciphertext[:v.aead.NonceSize()], ciphertext[v.aead.NonceSize():]

	plaintext, err := v.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrCiphertext
	}

	return plaintext, nil
}

// GenerateKey creates a fresh random key and writes it to path. It refuses
// to overwrite an existing key file and returns ErrKeyExists instead.
func GenerateKey(path string) ([]byte, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, ErrKeyExists
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}

	if err := os.WriteFile(path, key, 0o600); err != nil {
		return nil, err
	}

	return key, nil
}

// LoadKey reads the key at path, generating one on first use if absent.
func LoadKey(path string) ([]byte, error) {
	key, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return GenerateKey(path)
	}

	if err != nil {
		return nil, err
	}

	if len(key) != KeySize {
		return nil, fmt.Errorf("key file %s is corrupt: want %d bytes, got %d", path, KeySize, len(key))
	}

	return key, nil
}
