// Package crypto derives keys for the profile database and seals exported
// profile bundles with a passphrase.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize is the size of the key in bytes (AES-256)
	KeySize = 32
	// SaltSize is the size of the salt in bytes
	SaltSize = 16
	// Iterations is the number of iterations for PBKDF2
	Iterations = 100000
)

// ErrDecrypt is returned when sealed data cannot be opened, usually because
// of a wrong passphrase.
var ErrDecrypt = errors.New("failed to decrypt, wrong passphrase or corrupted data")

var databaseSalt = []byte("hed-profiles-sqlcipher-salt-v1")

// DeriveKey derives a 32-byte key from a password and salt using PBKDF2.
// If salt is nil, a new random salt is generated.
// Returns the key and the salt used.
func DeriveKey(password string, salt []byte) ([]byte, []byte, error) {
	if salt == nil {
		var err error
		salt, err = GenerateRandomBytes(SaltSize)
		if err != nil {
			return nil, nil, err
		}
	}
	key := pbkdf2.Key([]byte(password), salt, Iterations, KeySize, sha256.New)
	return key, salt, nil
}

// DatabaseKey turns the stored database secret into the hex key SQLCipher
// expects in its DSN.
func DatabaseKey(secret string) (string, error) {
	if secret == "" {
		return "", errors.New("database secret is empty")
	}
	key, _, err := DeriveKey(secret, databaseSalt)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(key), nil
}

// Seal encrypts plaintext with a key derived from passphrase. The output is
// base64 of salt || nonce || ciphertext.
func Seal(passphrase string, plaintext []byte) (string, error) {
	key, salt, err := DeriveKey(passphrase, nil)
	if err != nil {
		return "", fmt.Errorf("failed to derive key: %w", err)
	}
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	out := make([]byte, 0, len(salt)+len(nonce)+len(plaintext)+gcm.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	out = gcm.Seal(out, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Open reverses Seal.
func Open(passphrase, sealed string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to decode sealed data: %w", err)
	}
	if len(data) < SaltSize {
		return nil, ErrDecrypt
	}

	key, _, err := DeriveKey(passphrase, data[:SaltSize])
	if err != nil {
		return nil, err
	}
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	data = data[SaltSize:]
	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, ErrDecrypt
	}
	plaintext, err := gcm.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// GenerateRandomBytes returns n random bytes.
func GenerateRandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, err
	}
	return b, nil
}
