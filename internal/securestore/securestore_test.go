package securestore

import (
	"bytes"
	"crypto/rand"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/zalando/go-keyring"
)

func TestGetOrCreateDBSecretKeyring(t *testing.T) {
	keyring.MockInit()
	t.Setenv("HED_DATA_DIR", t.TempDir())

	first, err := GetOrCreateDBSecret(rand.Reader)
	if err != nil {
		t.Fatalf("GetOrCreateDBSecret: %v", err)
	}
	second, err := GetOrCreateDBSecret(rand.Reader)
	if err != nil {
		t.Fatalf("GetOrCreateDBSecret: %v", err)
	}
	if first != second {
		t.Fatalf("secret should be stable across calls")
	}

	if err := ClearDBSecret(); err != nil {
		t.Fatalf("ClearDBSecret: %v", err)
	}
	third, err := GetOrCreateDBSecret(rand.Reader)
	if err != nil {
		t.Fatalf("GetOrCreateDBSecret: %v", err)
	}
	if third == first {
		t.Fatalf("expected a new secret after clearing")
	}
}

func TestFallbackToFileStore(t *testing.T) {
	keyring.MockInitWithError(errors.New("no keyring"))
	dir := t.TempDir()
	t.Setenv("HED_DATA_DIR", dir)

	first, err := GetOrCreateDBSecret(rand.Reader)
	if err != nil {
		t.Fatalf("GetOrCreateDBSecret: %v", err)
	}
	info, err := os.Stat(filepath.Join(dir, "secrets", serviceName+"."+dbSecretUser))
	if err != nil {
		t.Fatalf("secret file not written: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Fatalf("secret file should be private, got %v", info.Mode().Perm())
	}

	second, err := GetOrCreateDBSecret(rand.Reader)
	if err != nil {
		t.Fatalf("GetOrCreateDBSecret: %v", err)
	}
	if first != second {
		t.Fatalf("file store secret should be stable")
	}
}

func TestGetOrCreateShortRandom(t *testing.T) {
	fs := &dirStore{dir: t.TempDir()}
	if _, err := getOrCreate(fs, bytes.NewReader([]byte{1, 2, 3})); err == nil {
		t.Fatalf("expected error for short random source")
	}
}

func TestGetOrCreateMalformed(t *testing.T) {
	fs := &dirStore{dir: t.TempDir()}
	if err := fs.Set(serviceName, dbSecretUser, "!!"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := getOrCreate(fs, rand.Reader); err == nil {
		t.Fatalf("expected error for malformed secret")
	}
}
