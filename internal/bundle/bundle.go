// Package bundle exports profiles to a YAML file and imports them back.
package bundle

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hedhosts/hed/internal/crypto"
	"github.com/hedhosts/hed/internal/db"
)

// Version is the bundle format written by Encode.
const Version = 1

var (
	ErrPassphraseRequired = errors.New("bundle is encrypted, a passphrase is required")
	ErrUnsupportedVersion = errors.New("unsupported bundle version")
)

type Profile struct {
	Name    string `yaml:"name"`
	Content string `yaml:"content"`
}

type Bundle struct {
	Version  int       `yaml:"version"`
	Exported time.Time `yaml:"exported,omitempty"`
	Profiles []Profile `yaml:"profiles"`
}

// envelope is the on-disk form of a passphrase protected bundle.
type envelope struct {
	Version   int    `yaml:"version"`
	Encrypted bool   `yaml:"encrypted"`
	Data      string `yaml:"data"`
}

// Validate checks the version and that names are present and unique
// regardless of case.
func (b Bundle) Validate() error {
	if b.Version != Version {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, b.Version)
	}
	seen := make(map[string]bool, len(b.Profiles))
	for i, p := range b.Profiles {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return fmt.Errorf("profile %d: %w", i+1, db.ErrEmptyName)
		}
		key := strings.ToLower(name)
		if seen[key] {
			return fmt.Errorf("profile `%s` appears twice", name)
		}
		seen[key] = true
	}
	return nil
}

// Encode renders b as YAML. A non-empty passphrase seals the document.
func Encode(b Bundle, passphrase string) ([]byte, error) {
	if b.Version == 0 {
		b.Version = Version
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	plain, err := yaml.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("failed to encode bundle: %w", err)
	}
	if passphrase == "" {
		return plain, nil
	}

	sealed, err := crypto.Seal(passphrase, plain)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt bundle: %w", err)
	}
	return yaml.Marshal(envelope{Version: Version, Encrypted: true, Data: sealed})
}

// Decode parses a bundle written by Encode.
func Decode(data []byte, passphrase string) (Bundle, error) {
	var env envelope
	if err := yaml.Unmarshal(data, &env); err != nil {
		return Bundle{}, fmt.Errorf("failed to parse bundle: %w", err)
	}
	if env.Encrypted {
		if passphrase == "" {
			return Bundle{}, ErrPassphraseRequired
		}
		plain, err := crypto.Open(passphrase, env.Data)
		if err != nil {
			return Bundle{}, err
		}
		data = plain
	}

	var b Bundle
	if err := yaml.Unmarshal(data, &b); err != nil {
		return Bundle{}, fmt.Errorf("failed to parse bundle: %w", err)
	}
	if err := b.Validate(); err != nil {
		return Bundle{}, err
	}
	return b, nil
}

// Store is the part of the profile database imports need.
type Store interface {
	GetProfiles() ([]db.ProfileModel, error)
	CreateProfile(name, content string) (db.ProfileModel, error)
	UpdateProfileContent(id int64, content string) error
}

// Export collects the named profiles, or all of them when names is empty.
func Export(s Store, names []string, now time.Time) (Bundle, error) {
	all, err := s.GetProfiles()
	if err != nil {
		return Bundle{}, err
	}

	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[strings.ToLower(strings.TrimSpace(n))] = true
	}

	b := Bundle{Version: Version, Exported: now.UTC(), Profiles: []Profile{}}
	for _, p := range all {
		key := strings.ToLower(p.Name)
		if len(want) > 0 && !want[key] {
			continue
		}
		delete(want, key)
		b.Profiles = append(b.Profiles, Profile{Name: p.Name, Content: p.Content})
	}
	for n := range want {
		return Bundle{}, fmt.Errorf("%s: %w", n, db.ErrProfileNotFound)
	}
	return b, nil
}

// Import creates profiles missing from s and overwrites the content of
// those whose name already exists.
func Import(s Store, b Bundle) (created, updated int, err error) {
	if err := b.Validate(); err != nil {
		return 0, 0, err
	}
	existing, err := s.GetProfiles()
	if err != nil {
		return 0, 0, err
	}
	byName := make(map[string]db.ProfileModel, len(existing))
	for _, p := range existing {
		byName[strings.ToLower(p.Name)] = p
	}

	for _, p := range b.Profiles {
		name := strings.TrimSpace(p.Name)
		if cur, ok := byName[strings.ToLower(name)]; ok {
			if cur.Content == p.Content {
				continue
			}
			if err := s.UpdateProfileContent(cur.ID, p.Content); err != nil {
				return created, updated, fmt.Errorf("failed to update %s: %w", name, err)
			}
			updated++
			continue
		}
		if _, err := s.CreateProfile(name, p.Content); err != nil {
			return created, updated, fmt.Errorf("failed to create %s: %w", name, err)
		}
		created++
	}
	return created, updated, nil
}
