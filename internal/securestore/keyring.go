// Package securestore keeps the profile database secret in the OS keyring,
// falling back to a private file when no keyring is available.
package securestore

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	serviceName  = "hed"
	dbSecretUser = "profiles-db-secret-v1"
	secretSize   = 32
)

var errNotFound = errors.New("secret not found")

type backend interface {
	Get(service, user string) (string, error)
	Set(service, user, value string) error
	Delete(service, user string) error
}

type keyringBackend struct{}

func (keyringBackend) Get(service, user string) (string, error) {
	v, err := keyring.Get(service, user)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", errNotFound
	}
	return v, err
}

func (keyringBackend) Set(service, user, value string) error {
	return keyring.Set(service, user, value)
}

func (keyringBackend) Delete(service, user string) error {
	err := keyring.Delete(service, user)
	if errors.Is(err, keyring.ErrNotFound) {
		return errNotFound
	}
	return err
}

// GetOrCreateDBSecret returns the profile database secret, generating and
// storing one from randReader on first use. When the keyring cannot be
// reached the secret lives in a private file in the data directory instead.
func GetOrCreateDBSecret(randReader io.Reader) (string, error) {
	s, err := getOrCreate(keyringBackend{}, randReader)
	if err == nil {
		return s, nil
	}
	fs, ferr := newDirStore()
	if ferr != nil {
		return "", fmt.Errorf("failed to open keyring (%v) and key file: %w", err, ferr)
	}
	return getOrCreate(fs, randReader)
}

// ClearDBSecret forgets the database secret. The database cannot be opened
// afterwards.
func ClearDBSecret() error {
	err := keyringBackend{}.Delete(serviceName, dbSecretUser)
	if err != nil && !errors.Is(err, errNotFound) {
		return err
	}
	fs, ferr := newDirStore()
	if ferr != nil {
		return nil
	}
	if err := fs.Delete(serviceName, dbSecretUser); err != nil && !errors.Is(err, errNotFound) {
		return err
	}
	return nil
}

func getOrCreate(b backend, randReader io.Reader) (string, error) {
	v, err := b.Get(serviceName, dbSecretUser)
	if err == nil {
		v = strings.TrimSpace(v)
		raw, derr := base64.RawStdEncoding.DecodeString(v)
		if derr != nil || len(raw) < 16 {
			return "", fmt.Errorf("stored database secret is malformed")
		}
		return v, nil
	}
	if !errors.Is(err, errNotFound) {
		return "", err
	}

	raw := make([]byte, secretSize)
	if _, err := io.ReadFull(randReader, raw); err != nil {
		return "", fmt.Errorf("failed to generate database secret: %w", err)
	}
	enc := base64.RawStdEncoding.EncodeToString(raw)
	if err := b.Set(serviceName, dbSecretUser, enc); err != nil {
		return "", err
	}
	return enc, nil
}
