package db

import (
	"crypto/rand"
	"fmt"

	"github.com/hedhosts/hed/internal/securestore"
)

// Open opens the profile database with the secret kept in the keyring,
// creating both on first use.
func Open() (*Store, error) {
	secret, err := securestore.GetOrCreateDBSecret(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to load database secret: %w", err)
	}
	return Init(secret)
}
