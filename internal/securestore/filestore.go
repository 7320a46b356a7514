package securestore

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/hedhosts/hed/internal/config"
)

// dirStore is the keyring fallback. Each secret is a 0600 file in a 0700
// directory under the data dir.
type dirStore struct {
	dir string
}

func newDirStore() (*dirStore, error) {
	base, err := config.DataDir()
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(base, "secrets")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	return &dirStore{dir: dir}, nil
}

func (d *dirStore) file(service, user string) string {
	return filepath.Join(d.dir, service+"."+user)
}

func (d *dirStore) Get(service, user string) (string, error) {
	raw, err := os.ReadFile(d.file(service, user))
	if errors.Is(err, os.ErrNotExist) {
		return "", errNotFound
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}

func (d *dirStore) Set(service, user, value string) error {
	path := d.file(service, user)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(value+"\n"), 0600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (d *dirStore) Delete(service, user string) error {
	err := os.Remove(d.file(service, user))
	if errors.Is(err, os.ErrNotExist) {
		return errNotFound
	}
	return err
}
